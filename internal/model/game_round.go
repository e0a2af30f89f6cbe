package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// GameRound 对应 game_rounds 表
// 一次成功结算恰好产生一行；创建后不再更新或删除
type GameRound struct {
	RoundID   string `db:"round_id"`   // 局ID（uuid）
	AccountID string `db:"account_id"` // 账户ID
	GameType  string `db:"game_type"`  // 玩法标识，如 SLOTS_3_REEL
	BetAmount int64  `db:"bet_amount"` // 投注金额（分）
	Payout    int64  `db:"payout"`     // 派彩金额（分，>=0）
	Reels     string `db:"reels"`      // 抽取结果（符号数组的 JSON 字符串）
	TraceID   string `db:"trace_id"`   // 链路追踪ID
	CreatedAt int64  `db:"created_at"` // 创建时间（13位毫秒时间戳）
}

// SetReels 序列化符号序列入 Reels 字段
func (r *GameRound) SetReels(outcome []string) error {
	b, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	r.Reels = string(b)
	return nil
}

// ReelSymbols 反序列化 Reels 字段
func (r *GameRound) ReelSymbols() ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(r.Reels), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert 落一局结算记录
func (r *GameRound) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	r.CreatedAt = now

	sqlStr := `INSERT INTO game_rounds (round_id, account_id, game_type, bet_amount, payout, reels, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	args := []interface{}{r.RoundID, r.AccountID, r.GameType, r.BetAmount, r.Payout, r.Reels, r.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// GetRound 按局ID查询（无锁读取）
func GetRound(ctx context.Context, exec sqlx.ExtContext, roundID string) (*GameRound, error) {
	sqlStr := `SELECT round_id, account_id, game_type, bet_amount, payout, reels, trace_id, created_at
	           FROM game_rounds WHERE round_id = ?`
	var r GameRound
	if err := sqlx.GetContext(ctx, exec, &r, sqlStr, roundID); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRoundsByAccount 查询账户最近的结算记录（倒序）
func ListRoundsByAccount(ctx context.Context, exec sqlx.ExtContext, accountID string, limit int) ([]GameRound, error) {
	sqlStr := `SELECT round_id, account_id, game_type, bet_amount, payout, reels, trace_id, created_at
	           FROM game_rounds WHERE account_id = ? ORDER BY created_at DESC LIMIT ?`
	var list []GameRound
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, accountID, limit); err != nil {
		return nil, err
	}
	return list, nil
}
