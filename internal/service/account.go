package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"slots-server/common/logger"
	"slots-server/internal/model"
	"slots-server/internal/store"
)

// 账户开户与查询

var ErrAccountExists = errors.New("account already exists")

type CreateAccountInput struct {
	AccountID      string
	DisplayName    string
	OpeningBalance int64 // 分
	Currency       string
	TraceID        string
}

type AccountService interface {
	// Create 开户；开户入金记入账本（OPENING_CREDIT）
	Create(ctx context.Context, in CreateAccountInput) error
	// Balance 查询余额（分）
	Balance(ctx context.Context, accountID string) (int64, error)
	// DisplayName 查询对外展示名（大奖广播使用）
	DisplayName(ctx context.Context, accountID string) (string, error)
	// Rounds 查询账户最近的局
	Rounds(ctx context.Context, accountID string, limit int) ([]model.GameRound, error)
}

type accountService struct {
	store store.Store
}

func NewAccountService(st store.Store) AccountService {
	return &accountService{store: st}
}

func (s *accountService) Create(ctx context.Context, in CreateAccountInput) error {
	if in.AccountID == "" {
		return errors.Wrap(ErrInvalidWager, "account_id required")
	}
	if in.OpeningBalance < 0 {
		return errors.Wrap(ErrInvalidWager, "opening balance must not be negative")
	}
	err := s.store.CreateAccount(ctx, in.AccountID, in.DisplayName, in.OpeningBalance, in.Currency, in.TraceID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return ErrAccountExists
		}
		logger.ErrorCtx(ctx, "create account failed",
			zap.String("account_id", in.AccountID),
			zap.Error(err))
		return errors.Wrap(ErrPersistence, err.Error())
	}
	logger.InfoCtx(ctx, "account created",
		zap.String("account_id", in.AccountID),
		zap.Int64("opening_balance", in.OpeningBalance))
	return nil
}

func (s *accountService) Balance(ctx context.Context, accountID string) (int64, error) {
	bal, err := s.store.Balance(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, errors.Wrap(ErrPersistence, err.Error())
	}
	return bal, nil
}

func (s *accountService) DisplayName(ctx context.Context, accountID string) (string, error) {
	acct, err := s.store.Account(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return "", ErrAccountNotFound
		}
		return "", errors.Wrap(ErrPersistence, err.Error())
	}
	return acct.DisplayName, nil
}

func (s *accountService) Rounds(ctx context.Context, accountID string, limit int) ([]model.GameRound, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.store.RoundsByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, errors.Wrap(ErrPersistence, err.Error())
	}
	return list, nil
}
