package ws

// WebSocket 消息协议
// 客户端 -> 服务端：spin_request / balance_request / ping
// 服务端 -> 客户端：spin_result / spin_error / balance / big_win / pong

// ClientMsg 客户端入站消息
type ClientMsg struct {
	Type string `json:"type"`
	// spin_request 字段
	BetAmount      int64  `json:"bet_amount,omitempty"`      // 分
	IdempotencyKey string `json:"idempotency_key,omitempty"` // 缺省时服务端生成
}

// SpinResultMsg 一次成功结算的推送
type SpinResultMsg struct {
	Type       string   `json:"type"` // spin_result
	RoundID    string   `json:"round_id"`
	Reels      []string `json:"reels"`
	Outcome    string   `json:"outcome"`
	BetAmount  int64    `json:"bet_amount"`
	Payout     int64    `json:"payout"`
	NewBalance int64    `json:"new_balance"`
	BigWin     bool     `json:"big_win"`
	Replayed   bool     `json:"replayed,omitempty"`
}

// SpinErrorMsg 结算失败推送；Code 复用统一业务错误码
type SpinErrorMsg struct {
	Type    string `json:"type"` // spin_error
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BalanceMsg 余额推送
type BalanceMsg struct {
	Type      string `json:"type"` // balance
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"` // 分
}

// BigWinMsg 大奖全员广播
// 广播面向全部在线连接，只携带展示名与派彩金额，不携带账户标识
type BigWinMsg struct {
	Type        string `json:"type"` // big_win
	DisplayName string `json:"display_name"`
	RoundID     string `json:"round_id"`
	Payout      int64  `json:"payout"` // 分
}
