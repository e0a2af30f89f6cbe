package model

import (
	"context"
	"database/sql"
	"time"

	"slots-server/common/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Account 账户表
// balance 为最小货币单位（分）的非负整数，只允许结算引擎在事务内修改
type Account struct {
	AccountID   string `db:"account_id"`   // 账户ID（外部身份系统下发，服务内视为不透明）
	DisplayName string `db:"display_name"` // 对外展示名（大奖广播使用，不泄露账户ID）
	Balance     int64  `db:"balance"`      // 余额（分）
	Status      int8   `db:"status"`       // 状态: 1=正常 0=禁用
	CreatedAt   int64  `db:"created_at"`   // 创建时间（13位毫秒时间戳）
	UpdatedAt   int64  `db:"updated_at"`   // 更新时间（13位毫秒时间戳）
}

// GetAccount 查询账户（不加锁，仅用于展示快照，不得参与结算判定）
func GetAccount(ctx context.Context, exec sqlx.ExtContext, accountID string) (*Account, error) {
	query := `SELECT account_id, display_name, balance, status, created_at, updated_at
	          FROM accounts
	          WHERE account_id = ?
	          LIMIT 1`

	var a Account
	err := sqlx.GetContext(ctx, exec, &a, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get account failed",
			zap.String("account_id", accountID),
			zap.Error(err))
		return nil, err
	}

	return &a, nil
}

// GetAccountForUpdate 查询账户并加行锁
// 必须在事务中调用；锁持有至事务提交或回滚，
// 同一账户的并发结算在此串行化，不同账户互不阻塞
func GetAccountForUpdate(ctx context.Context, exec sqlx.ExtContext, accountID string) (*Account, error) {
	query := `SELECT account_id, display_name, balance, status, created_at, updated_at
	          FROM accounts
	          WHERE account_id = ?
	          FOR UPDATE`

	var a Account
	err := sqlx.GetContext(ctx, exec, &a, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get account for update failed",
			zap.String("account_id", accountID),
			zap.Error(err))
		return nil, err
	}

	return &a, nil
}

// Insert 插入账户
func (a *Account) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `INSERT INTO accounts (account_id, display_name, balance, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := exec.ExecContext(ctx, query,
		a.AccountID, a.DisplayName, a.Balance, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		logger.Error("insert account failed",
			zap.String("account_id", a.AccountID),
			zap.Error(err))
		return err
	}

	logger.Info("account created",
		zap.String("account_id", a.AccountID),
		zap.String("display_name", a.DisplayName),
		zap.Int64("balance", a.Balance))

	return nil
}

// UpdateAccountBalance 更新账户余额（仅允许在持有行锁的事务内调用）
func UpdateAccountBalance(ctx context.Context, exec sqlx.ExtContext, accountID string, newBalance int64) error {
	now := time.Now().UnixMilli()
	query := `UPDATE accounts SET balance = ?, updated_at = ? WHERE account_id = ?`

	_, err := exec.ExecContext(ctx, query, newBalance, now, accountID)
	if err != nil {
		logger.Error("update account balance failed",
			zap.String("account_id", accountID),
			zap.Int64("new_balance", newBalance),
			zap.Error(err))
		return err
	}

	return nil
}

// GetAccountBalance 获取账户余额（非锁查询，展示用快照）
func GetAccountBalance(ctx context.Context, exec sqlx.ExtContext, accountID string) (int64, error) {
	query := `SELECT balance FROM accounts WHERE account_id = ? LIMIT 1`

	var balance int64
	err := sqlx.GetContext(ctx, exec, &balance, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		logger.Error("get account balance failed",
			zap.String("account_id", accountID),
			zap.Error(err))
		return 0, err
	}

	return balance, nil
}
