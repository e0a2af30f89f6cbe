// Package store 封装结算所需的持久化操作
// MySQL 实现用于线上（行锁保证并发安全），内存实现用于测试
package store

import (
	"context"

	"github.com/pkg/errors"

	"slots-server/internal/model"
)

var (
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateKey 唯一键冲突（幂等键重放或账户重复创建）
	ErrDuplicateKey = errors.New("duplicate key")
)

// Tx 是一次结算事务内可用的操作集合
// Settle 回调持有账户行锁期间，余额读写与账本/局/outbox 写入均在同一事务内
type Tx interface {
	// Balance 返回加锁时读到的账户余额（分）
	Balance() int64
	// UpdateBalance 更新账户余额（分）
	UpdateBalance(newBalance int64) error
	// AppendLedger 追加一条账本记录
	AppendLedger(entry *model.WalletLedger) error
	// InsertRound 写入一条局记录
	InsertRound(round *model.GameRound) error
	// InsertOutbox 写入一条事务消息
	InsertOutbox(topic, bizKey string, payload any) error
	// InsertIdempotencyKey 写入幂等键，重放返回 ErrDuplicateKey
	InsertIdempotencyKey(key, purpose, ref string) error
}

// Store 是结算引擎的持久化入口
type Store interface {
	// Settle 对指定账户加锁并在事务内执行 fn
	// fn 返回 error 时整个事务回滚；账户不存在返回 ErrAccountNotFound
	Settle(ctx context.Context, accountID string, fn func(tx Tx) error) error
	// Balance 查询账户余额（分），不加锁
	Balance(ctx context.Context, accountID string) (int64, error)
	// Account 查询账户资料（展示名等），不加锁
	Account(ctx context.Context, accountID string) (*model.Account, error)
	// CreateAccount 创建账户并记入开户账本，重复创建返回 ErrDuplicateKey
	CreateAccount(ctx context.Context, accountID, displayName string, openingBalance int64, currency, traceID string) error
	// RoundByID 按局ID查询局记录
	RoundByID(ctx context.Context, roundID string) (*model.GameRound, error)
	// RoundsByAccount 查询账户最近的局记录
	RoundsByAccount(ctx context.Context, accountID string, limit int) ([]model.GameRound, error)
	// LedgerByRound 查询一局产生的账本条目（对账回放）
	LedgerByRound(ctx context.Context, roundID string) ([]model.WalletLedger, error)
	// RoundIDByIdemKey 按幂等键查询已结算的局ID，未找到返回空串
	RoundIDByIdemKey(ctx context.Context, key string) (string, error)
}
