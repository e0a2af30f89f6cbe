package model

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// 账本条目类型（数值码+字符串双写，便于查询）
const (
	EntryWagerDebit    = 1 // WAGER_DEBIT 投注扣款（金额为负）
	EntryPayoutCredit  = 2 // PAYOUT_CREDIT 派彩入账（金额为正）
	EntryOpeningCredit = 3 // OPENING_CREDIT 开户入金（金额为正）
)

// WalletLedger 对应 wallet_ledger 表（追加式账本，只插入从不修改）
// amount 带符号：扣款为负、入账为正；
// 一局的所有条目金额之和等于该局的余额变化（payout - bet）
type WalletLedger struct {
	ID           int64  `db:"id"`
	AccountID    string `db:"account_id"`
	EntryType    int    `db:"entry_type"`
	EntryTypeStr string `db:"entry_type_str"`
	Amount       int64  `db:"amount"`        // 带符号金额（分）
	BeforeAmount int64  `db:"before_amount"` // 记账前余额（分）
	AfterAmount  int64  `db:"after_amount"`  // 记账后余额（分）
	Currency     string `db:"currency"`
	RoundID      string `db:"round_id"` // 触发本条目的局ID
	Remark       string `db:"remark"`
	TraceID      string `db:"trace_id"`
	CreatedAt    int64  `db:"created_at"`
}

// Insert 新增一条账本记录（entry_type 数值码与字符串双写）
func (l *WalletLedger) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	code := l.EntryType
	str := l.EntryTypeStr
	if code == 0 && str != "" {
		code = entryTypeCode(str)
	}
	if str == "" && code != 0 {
		str = EntryTypeName(code)
	}

	sqlStr := "INSERT INTO wallet_ledger (account_id, entry_type, entry_type_str, amount, before_amount, after_amount, currency, round_id, remark, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{l.AccountID, code, str, l.Amount, l.BeforeAmount, l.AfterAmount, l.Currency, l.RoundID, l.Remark, l.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListLedgerByRound 查询一局产生的全部账本条目
func ListLedgerByRound(ctx context.Context, exec sqlx.ExtContext, roundID string) ([]WalletLedger, error) {
	sqlStr := `SELECT id, account_id, entry_type, entry_type_str, amount, before_amount, after_amount, currency, round_id, remark, trace_id, created_at
	           FROM wallet_ledger WHERE round_id = ? ORDER BY id ASC`
	var list []WalletLedger
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, roundID); err != nil {
		return nil, err
	}
	return list, nil
}

func entryTypeCode(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WAGER_DEBIT":
		return EntryWagerDebit
	case "PAYOUT_CREDIT":
		return EntryPayoutCredit
	case "OPENING_CREDIT":
		return EntryOpeningCredit
	}
	return 0
}

// EntryTypeName 返回条目类型码对应的字符串
func EntryTypeName(code int) string {
	switch code {
	case EntryWagerDebit:
		return "WAGER_DEBIT"
	case EntryPayoutCredit:
		return "PAYOUT_CREDIT"
	case EntryOpeningCredit:
		return "OPENING_CREDIT"
	}
	return ""
}
