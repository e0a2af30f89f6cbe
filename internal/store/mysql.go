package store

import (
	"context"
	"database/sql"
	"time"

	gosqlmysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"slots-server/common/logger"
	"slots-server/internal/model"
)

// settleTimeout 结算事务兜底超时；调用方未设 deadline 时生效
const settleTimeout = 3 * time.Second

// MySQLStore 基于 sqlx/MySQL 的 Store 实现
// 并发控制依赖 accounts 行锁（SELECT ... FOR UPDATE）
type MySQLStore struct {
	db *sqlx.DB
}

// NewMySQLStore 构造 MySQL Store
func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Settle 开启事务、锁定账户行并执行 fn
// fn 出错或 panic 均回滚；提交成功后行锁释放
func (s *MySQLStore) Settle(ctx context.Context, accountID string, fn func(tx Tx) error) (err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settleTimeout)
		defer cancel()
	}

	dbTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorCtx(ctx, "begin settle tx failed",
			zap.String("account_id", accountID),
			zap.Error(err))
		return errors.Wrap(err, "begin settle tx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = dbTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	acct, err := model.GetAccountForUpdate(ctx, dbTx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		return errors.Wrap(err, "lock account")
	}

	mt := &mysqlTx{ctx: ctx, tx: dbTx, accountID: accountID, balance: acct.Balance}
	if err = fn(mt); err != nil {
		return err
	}

	if err = dbTx.Commit(); err != nil {
		logger.ErrorCtx(ctx, "commit settle tx failed",
			zap.String("account_id", accountID),
			zap.Error(err))
		return errors.Wrap(err, "commit settle tx")
	}
	return nil
}

// Balance 查询账户余额（不加锁的展示快照）
func (s *MySQLStore) Balance(ctx context.Context, accountID string) (int64, error) {
	bal, err := model.GetAccountBalance(ctx, s.db, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return bal, nil
}

// Account 查询账户资料（不加锁的展示快照）
func (s *MySQLStore) Account(ctx context.Context, accountID string) (*model.Account, error) {
	acct, err := model.GetAccount(ctx, s.db, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

// CreateAccount 创建账户并在同一事务内记入开户账本
func (s *MySQLStore) CreateAccount(ctx context.Context, accountID, displayName string, openingBalance int64, currency, traceID string) (err error) {
	dbTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin create account tx")
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	acct := &model.Account{
		AccountID:   accountID,
		DisplayName: displayName,
		Balance:     openingBalance,
		Status:      1,
	}
	if err = acct.Insert(ctx, dbTx); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateKey
		}
		return errors.Wrap(err, "insert account")
	}

	if openingBalance > 0 {
		entry := &model.WalletLedger{
			AccountID:    accountID,
			EntryType:    model.EntryOpeningCredit,
			Amount:       openingBalance,
			BeforeAmount: 0,
			AfterAmount:  openingBalance,
			Currency:     currency,
			Remark:       "opening balance",
			TraceID:      traceID,
		}
		if err = entry.Insert(ctx, dbTx); err != nil {
			return errors.Wrap(err, "insert opening ledger")
		}
	}

	return dbTx.Commit()
}

// RoundByID 按局ID查询局记录
func (s *MySQLStore) RoundByID(ctx context.Context, roundID string) (*model.GameRound, error) {
	r, err := model.GetRound(ctx, s.db, roundID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return r, nil
}

// RoundsByAccount 查询账户最近的局记录
func (s *MySQLStore) RoundsByAccount(ctx context.Context, accountID string, limit int) ([]model.GameRound, error) {
	return model.ListRoundsByAccount(ctx, s.db, accountID, limit)
}

// LedgerByRound 查询一局产生的账本条目
func (s *MySQLStore) LedgerByRound(ctx context.Context, roundID string) ([]model.WalletLedger, error) {
	return model.ListLedgerByRound(ctx, s.db, roundID)
}

// RoundIDByIdemKey 按幂等键查询已结算的局ID
func (s *MySQLStore) RoundIDByIdemKey(ctx context.Context, key string) (string, error) {
	ref, err := model.SelectRefByIdemKey(ctx, s.db, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return ref, nil
}

// mysqlTx 是持有行锁期间的事务句柄
type mysqlTx struct {
	ctx       context.Context
	tx        *sqlx.Tx
	accountID string
	balance   int64
}

func (t *mysqlTx) Balance() int64 {
	return t.balance
}

func (t *mysqlTx) UpdateBalance(newBalance int64) error {
	if err := model.UpdateAccountBalance(t.ctx, t.tx, t.accountID, newBalance); err != nil {
		return errors.Wrap(err, "update balance")
	}
	t.balance = newBalance
	return nil
}

func (t *mysqlTx) AppendLedger(entry *model.WalletLedger) error {
	return entry.Insert(t.ctx, t.tx)
}

func (t *mysqlTx) InsertRound(round *model.GameRound) error {
	return round.Insert(t.ctx, t.tx)
}

func (t *mysqlTx) InsertOutbox(topic, bizKey string, payload any) error {
	return model.CreateOutbox(t.ctx, t.tx, topic, bizKey, payload)
}

func (t *mysqlTx) InsertIdempotencyKey(key, purpose, ref string) error {
	k := &model.IdempotencyKey{IdempotencyKey: key, Purpose: purpose, Ref: ref}
	if err := k.Insert(t.ctx, t.tx); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// isDuplicateKey 识别 MySQL 唯一键冲突（错误码 1062）
func isDuplicateKey(err error) bool {
	var me *gosqlmysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
