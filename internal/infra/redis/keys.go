package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixSpinIdemResult：转轮幂等“结果缓存”Key 的前缀。
	// 作用：缓存某个 idempotency key 对应的第一次成功结果（SpinOutput JSON），用于后续重复请求直接返回。
	PrefixSpinIdemResult = "spin:idem:result:"
	// PrefixSpinIdemLock：转轮幂等“进行中锁”Key 的前缀。
	// 作用：使用 SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求，减轻数据库压力。
	PrefixSpinIdemLock = "spin:idem:lock:"

	// PrefixRoundResult：一局结算结果缓存
	PrefixRoundResult = "game:result:"
)

// SpinIdemResultKey：构造幂等“结果缓存”的完整 Key。
// 形如：spin:idem:result:{idempotency_key}
func SpinIdemResultKey(k string) string { return PrefixSpinIdemResult + k }

// SpinIdemLockKey：构造幂等“进行中锁”的完整 Key。
// 形如：spin:idem:lock:{idempotency_key}
func SpinIdemLockKey(k string) string { return PrefixSpinIdemLock + k }

// RoundResultKey：构造结算结果缓存 Key。形如：game:result:{round_id}
func RoundResultKey(roundID string) string { return PrefixRoundResult + roundID }
