package api

import (
	"errors"

	"slots-server/common/helper"
	reqhelper "slots-server/internal/common/helper"
	"slots-server/internal/common/response"
	"slots-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

type SpinController struct{ beego.Controller }

// 转轮请求参数
type SpinRequestParam struct {
	BetAmount int64 `json:"bet_amount"` // 投注金额（分）
	/*
		幂等键：客户端生成并随请求传入，用于在网络重试/超时重发/服务端重试时保证"同一次投注只结算一次"。
		使用约定：
		- 对于"同一次转轮"的所有重试，请传相同的 idempotency_key；
		- 业务语义不同（金额/账户不同）的请求必须使用不同的 key；
		- 建议生成方式：UUID。
		服务端幂等保证（多层防护）：
		1) Redis 进行中锁（约15秒）：并发重复请求直接返回 202，并携带 Retry-After: 1；
		2) MySQL 唯一键：在事务内先插入 idempotency_keys(idempotency_key)，若已存在则返回首次结算结果；
		3) 结果缓存：首次成功结果会写入 Redis（短期缓存），后续重复可直接读缓存快速返回。
	*/
	IdempotencyKey string `json:"idempotency_key"`
}

// Spin 处理转轮接口：POST /api/spin
func (c *SpinController) Spin() {
	traceID := reqhelper.GetTraceID(c.Ctx)

	// 1) 解析入参与基本校验
	// 这里必须要对业务参数严格校验，后续service不再重复校验边界以外的格式问题
	sp, ok, msg := reqhelper.ParseAndValidateSpin(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	// 账户信息由认证中间件注入
	accountID := ""
	if v := c.Ctx.Input.GetData("account_id"); v != nil {
		if aid, ok := v.(string); ok {
			accountID = aid
		}
	}
	if accountID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	out, err := spinSvc.Spin(c.Ctx.Request.Context(), service.SpinInput{
		AccountID:      accountID,
		BetAmount:      sp.BetAmount,
		IdempotencyKey: sp.IdempotencyKey,
		TraceID:        traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateInFlight):
			response.Accepted(&c.Controller, "重复请求进行中，请稍后重试", traceID)
		case errors.Is(err, service.ErrInvalidWager):
			response.ErrorWithMessage(&c.Controller, 400, response.CodeInvalidWager, err.Error(), traceID)
		case errors.Is(err, service.ErrAccountNotFound):
			response.Error(&c.Controller, 404, response.CodeAccountNotFound, traceID)
		case errors.Is(err, service.ErrInsufficientFunds):
			response.Error(&c.Controller, 400, response.CodeInsufficientFunds, traceID)
		case errors.Is(err, service.ErrPersistence):
			response.Error(&c.Controller, 500, response.CodePersistenceFailure, traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}

	// 大奖：向所有在线连接广播（只携带展示名，不泄露账户标识）
	if out.BigWin && wsHub != nil {
		displayName := ""
		if v := c.Ctx.Input.GetData("display_name"); v != nil {
			displayName, _ = v.(string)
		}
		if displayName == "" {
			if dn, derr := acctSvc.DisplayName(c.Ctx.Request.Context(), accountID); derr == nil {
				displayName = dn
			}
		}
		wsHub.BroadcastBigWin(displayName, out.RoundID, out.Payout)
	}

	response.Success(&c.Controller, map[string]interface{}{
		"round_id":            out.RoundID,
		"reels":               out.Reels,
		"outcome":             out.Outcome,
		"bet_amount":          out.BetAmount,
		"payout":              out.Payout,
		"new_balance":         out.NewBalance,
		"new_balance_display": helper.FormatCents(out.NewBalance),
		"big_win":             out.BigWin,
		"replayed":            out.Replayed,
	}, traceID)
}
