package state

import "fmt"

// State 单次结算流转状态
const (
	StateReceived  = "received"  // 已接收请求
	StateValidated = "validated" // 入参校验通过
	StateLocked    = "locked"    // 账户行已加锁
	StateComputed  = "computed"  // 结果与派彩已计算
	StateCommitted = "committed" // 已提交（成功终态）
	StateRejected  = "rejected"  // 业务拒绝（终态，无写入）
	StateAborted   = "aborted"   // 基础设施失败回滚（终态，无写入）
)

// Event 结算事件
const (
	EvtValidate = "validate"
	EvtLock     = "lock"
	EvtCompute  = "compute"
	EvtCommit   = "commit"
	EvtReject   = "reject"
	EvtAbort    = "abort"
)

// Next 根据当前状态与事件计算下一个状态，非法转换报错
// 约束：reject 仅在提交前允许（业务拒绝不产生写入）；
// abort 仅在开启事务之后允许（回滚撤销全部写入）
func Next(cur, evt string) (string, error) {
	switch cur {
	case StateReceived:
		switch evt {
		case EvtValidate:
			return StateValidated, nil
		case EvtReject:
			return StateRejected, nil
		}
	case StateValidated:
		switch evt {
		case EvtLock:
			return StateLocked, nil
		case EvtReject:
			return StateRejected, nil
		case EvtAbort:
			return StateAborted, nil
		}
	case StateLocked:
		switch evt {
		case EvtCompute:
			return StateComputed, nil
		case EvtReject:
			return StateRejected, nil
		case EvtAbort:
			return StateAborted, nil
		}
	case StateComputed:
		switch evt {
		case EvtCommit:
			return StateCommitted, nil
		case EvtAbort:
			return StateAborted, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// Terminal 判断是否终态
func Terminal(s string) bool {
	return s == StateCommitted || s == StateRejected || s == StateAborted
}
