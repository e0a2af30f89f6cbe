package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"slots-server/common/logger"
	"slots-server/internal/config"
	"slots-server/internal/game"
	infrds "slots-server/internal/infra/redis"
	"slots-server/internal/metrics"
	"slots-server/internal/model"
	"slots-server/internal/state"
	"slots-server/internal/store"
)

// 处理转轮结算业务逻辑

// SpinInput 输入参数
// BetAmount 单位为分
type SpinInput struct {
	AccountID      string
	BetAmount      int64
	IdempotencyKey string
	TraceID        string
}

// SpinOutput 结算结果
// NewBalance 为提交后的账户余额（分）
type SpinOutput struct {
	RoundID    string   `json:"round_id"`
	Reels      []string `json:"reels"`
	Outcome    string   `json:"outcome"` // triple|double|none
	BetAmount  int64    `json:"bet_amount"`
	Payout     int64    `json:"payout"`
	NewBalance int64    `json:"new_balance"`
	BigWin     bool     `json:"big_win"`
	Replayed   bool     `json:"replayed,omitempty"` // 幂等重放命中
}

type SpinService interface {
	Spin(ctx context.Context, in SpinInput) (*SpinOutput, error)
}

type spinService struct {
	store store.Store
	rules game.Rules
	draw  game.DrawFunc
}

// NewSpinService 构造线上结算服务：规则来自全局配置，抽取使用密码学随机源
func NewSpinService(st store.Store) SpinService {
	return &spinService{
		store: st,
		rules: game.RulesFromConfig(config.Get()),
		draw:  game.Draw,
	}
}

// NewSpinServiceWith 注入规则与抽取函数，供测试固定结果
func NewSpinServiceWith(st store.Store, rules game.Rules, draw game.DrawFunc) SpinService {
	return &spinService{store: st, rules: rules, draw: draw}
}

const (
	// Redis 进行中锁 TTL：覆盖最慢的一次结算即可
	idemLockTTL = 15 * time.Second
	// 结果缓存 TTL：覆盖大多数短时重试窗口
	idemResultTTL = 1 * time.Minute
)

// 失败类别（业务拒绝不产生任何持久化写入）
var (
	ErrInvalidWager      = errors.New("invalid wager")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPersistence       = errors.New("persistence failure")
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
)

// errReplayed 内部信号：幂等键已被占用，需回源返回首次结果
var errReplayed = errors.New("idempotency key replayed")

// Spin 处理一次转轮结算主流程：
// 校验 -> 锁定账户 -> 抽取与派彩计算 -> 原子提交（余额+账本+局+outbox）
// 提交点之后结果不可变；提交点之前任何失败均不产生写入
func (s *spinService) Spin(ctx context.Context, in SpinInput) (*SpinOutput, error) {
	started := time.Now()
	result := "fail"
	outcomeKind := ""
	defer func() { metrics.RecordSpin(result, outcomeKind, started) }()

	cur := state.StateReceived

	// ========== 入参校验（在加锁之前，失败即拒绝） ==========
	if err := s.validate(in); err != nil {
		s.advance(&cur, state.EvtReject, in.TraceID)
		logger.WarnCtx(ctx, "spin rejected: invalid wager",
			zap.String("account_id", in.AccountID),
			zap.Int64("bet_amount", in.BetAmount),
			zap.Error(err))
		return nil, err
	}
	s.advance(&cur, state.EvtValidate, in.TraceID)

	logger.InfoCtx(ctx, "spin request accepted",
		zap.String("account_id", in.AccountID),
		zap.Int64("bet_amount", in.BetAmount),
		zap.String("idem_key", in.IdempotencyKey))

	// Redis 快路径：若已有结果缓存，直接返回
	if r := infrds.Client(); r != nil {
		if out := s.cachedResult(ctx, in.IdempotencyKey); out != nil {
			result = "success"
			outcomeKind = out.Outcome
			return out, nil
		}

		// 进行中锁，吸收瞬时重复；唯一锁值防止误删其他请求的锁
		lockValue := uuid.New().String()
		lockKey := infrds.SpinIdemLockKey(in.IdempotencyKey)
		ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
		if !ok {
			if out := s.cachedResult(ctx, in.IdempotencyKey); out != nil {
				result = "success"
				outcomeKind = out.Outcome
				return out, nil
			}
			return nil, ErrDuplicateInFlight
		}
		defer func() {
			// Lua 原子释放：仅当锁值匹配时删除
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			if _, err := r.Eval(context.WithoutCancel(ctx), script, []string{lockKey}, lockValue).Result(); err != nil {
				logger.WarnCtx(ctx, "release idem lock failed",
					zap.String("idem_key", in.IdempotencyKey),
					zap.Error(err))
			}
		}()
	}

	// 结算阶段脱离请求取消：一旦进入提交流程，客户端断开不得中止半程结算
	settleCtx := context.WithoutCancel(ctx)

	roundID := uuid.New().String()
	var out *SpinOutput

	err := s.store.Settle(settleCtx, in.AccountID, func(tx store.Tx) error {
		s.advance(&cur, state.EvtLock, in.TraceID)

		// 幂等：先占幂等键，ref 记录 round_id
		if err := tx.InsertIdempotencyKey(in.IdempotencyKey, "spin", roundID); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return errReplayed
			}
			return err
		}

		balance := tx.Balance()
		if balance < in.BetAmount {
			return ErrInsufficientFunds
		}

		// 抽取与派彩：纯计算，无 I/O
		reels := s.draw(s.rules.ReelCount, s.rules.Symbols)
		payout := s.rules.Resolve(in.BetAmount, reels)
		kind := s.rules.Classify(reels)
		bigWin := s.rules.BigWinMultiple > 0 && payout >= in.BetAmount*s.rules.BigWinMultiple
		s.advance(&cur, state.EvtCompute, in.TraceID)

		afterDebit := balance - in.BetAmount
		newBalance := afterDebit + payout

		if err := tx.UpdateBalance(newBalance); err != nil {
			return err
		}

		// 账本：扣注一条，派彩大于0再追加一条
		debit := &model.WalletLedger{
			AccountID:    in.AccountID,
			EntryType:    model.EntryWagerDebit,
			Amount:       -in.BetAmount,
			BeforeAmount: balance,
			AfterAmount:  afterDebit,
			Currency:     s.rules.Currency,
			RoundID:      roundID,
			Remark:       "wager deduct",
			TraceID:      in.TraceID,
		}
		if err := tx.AppendLedger(debit); err != nil {
			return err
		}
		if payout > 0 {
			credit := &model.WalletLedger{
				AccountID:    in.AccountID,
				EntryType:    model.EntryPayoutCredit,
				Amount:       payout,
				BeforeAmount: afterDebit,
				AfterAmount:  newBalance,
				Currency:     s.rules.Currency,
				RoundID:      roundID,
				Remark:       "payout credit",
				TraceID:      in.TraceID,
			}
			if err := tx.AppendLedger(credit); err != nil {
				return err
			}
		}

		round := &model.GameRound{
			RoundID:   roundID,
			AccountID: in.AccountID,
			GameType:  s.rules.GameType,
			BetAmount: in.BetAmount,
			Payout:    payout,
			TraceID:   in.TraceID,
		}
		if err := round.SetReels(reels); err != nil {
			return err
		}
		if err := tx.InsertRound(round); err != nil {
			return err
		}

		// Outbox 消息（调度器异步投递）
		settled := map[string]any{
			"event":      "round_settled",
			"round_id":   roundID,
			"account_id": in.AccountID,
			"bet_amount": in.BetAmount,
			"payout":     payout,
			"reels":      reels,
			"outcome":    kind,
		}
		if err := tx.InsertOutbox(model.TopicRoundSettled, roundID, settled); err != nil {
			return err
		}
		if bigWin {
			bw := map[string]any{
				"event":      "big_win",
				"round_id":   roundID,
				"account_id": in.AccountID,
				"payout":     payout,
			}
			if err := tx.InsertOutbox(model.TopicBigWin, roundID, bw); err != nil {
				return err
			}
		}

		out = &SpinOutput{
			RoundID:    roundID,
			Reels:      reels,
			Outcome:    kind,
			BetAmount:  in.BetAmount,
			Payout:     payout,
			NewBalance: newBalance,
			BigWin:     bigWin,
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, errReplayed) {
			// 幂等重放：回源返回首次结算结果
			if rp := s.replayResult(settleCtx, in); rp != nil {
				s.advance(&cur, state.EvtReject, in.TraceID)
				logger.InfoCtx(ctx, "spin replayed from idempotency key",
					zap.String("idem_key", in.IdempotencyKey),
					zap.String("round_id", rp.RoundID))
				result = "success"
				outcomeKind = rp.Outcome
				return rp, nil
			}
			s.advance(&cur, state.EvtAbort, in.TraceID)
			return nil, errors.Wrap(ErrPersistence, "idempotency replay lookup failed")
		}
		return nil, s.mapSettleErr(ctx, &cur, in, err)
	}

	s.advance(&cur, state.EvtCommit, in.TraceID)
	result = "success"
	outcomeKind = out.Outcome
	metrics.RecordPayout(out.Outcome, out.Payout)
	if out.BigWin {
		metrics.RecordBigWin()
	}

	logger.InfoCtx(ctx, "spin settled",
		zap.String("account_id", in.AccountID),
		zap.String("round_id", out.RoundID),
		zap.Strings("reels", out.Reels),
		zap.Int64("payout", out.Payout),
		zap.Int64("new_balance", out.NewBalance),
		zap.Bool("big_win", out.BigWin))

	// 写入 Redis 结果缓存（降级容错，失败不影响结算结果）
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(settleCtx, infrds.SpinIdemResultKey(in.IdempotencyKey), b, idemResultTTL).Err()
			_ = r.Set(settleCtx, infrds.RoundResultKey(out.RoundID), b, idemResultTTL).Err()
		}
	}

	return out, nil
}

// validate 入参校验；阈值可被动态配置覆盖
func (s *spinService) validate(in SpinInput) error {
	if in.AccountID == "" {
		return errors.Wrap(ErrInvalidWager, "account_id required")
	}
	if in.IdempotencyKey == "" {
		return errors.Wrap(ErrInvalidWager, "idempotency_key required")
	}
	if in.BetAmount <= 0 {
		return errors.Wrap(ErrInvalidWager, "bet amount must be positive")
	}
	minBet := config.GetThreshold("min_bet", s.rules.MinBet)
	maxBet := config.GetThreshold("max_bet", s.rules.MaxBet)
	if in.BetAmount < minBet {
		return errors.Wrapf(ErrInvalidWager, "bet amount below minimum %d", minBet)
	}
	if maxBet > 0 && in.BetAmount > maxBet {
		return errors.Wrapf(ErrInvalidWager, "bet amount exceeds maximum %d", maxBet)
	}
	return nil
}

// mapSettleErr 将存储层错误映射到失败类别并推进状态机
func (s *spinService) mapSettleErr(ctx context.Context, cur *string, in SpinInput, err error) error {
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		s.advance(cur, state.EvtReject, in.TraceID)
		logger.WarnCtx(ctx, "spin rejected: account not found",
			zap.String("account_id", in.AccountID))
		return ErrAccountNotFound
	case errors.Is(err, ErrInsufficientFunds):
		s.advance(cur, state.EvtReject, in.TraceID)
		logger.WarnCtx(ctx, "spin rejected: insufficient funds",
			zap.String("account_id", in.AccountID),
			zap.Int64("bet_amount", in.BetAmount))
		return ErrInsufficientFunds
	default:
		s.advance(cur, state.EvtAbort, in.TraceID)
		logger.ErrorCtx(ctx, "spin aborted: settle failed",
			zap.String("account_id", in.AccountID),
			zap.Error(err))
		return errors.Wrap(ErrPersistence, err.Error())
	}
}

// cachedResult 从 Redis 结果缓存读取首次结算结果
func (s *spinService) cachedResult(ctx context.Context, idemKey string) *SpinOutput {
	r := infrds.Client()
	if r == nil {
		return nil
	}
	bs, _ := r.Get(ctx, infrds.SpinIdemResultKey(idemKey)).Bytes()
	if len(bs) == 0 {
		return nil
	}
	var out SpinOutput
	if json.Unmarshal(bs, &out) != nil {
		return nil
	}
	out.Replayed = true
	return &out
}

// replayResult 按幂等键回源数据库，重建首次结算结果
func (s *spinService) replayResult(ctx context.Context, in SpinInput) *SpinOutput {
	if out := s.cachedResult(ctx, in.IdempotencyKey); out != nil {
		return out
	}
	roundID, err := s.store.RoundIDByIdemKey(ctx, in.IdempotencyKey)
	if err != nil || roundID == "" {
		return nil
	}
	round, err := s.store.RoundByID(ctx, roundID)
	if err != nil {
		return nil
	}
	reels, err := round.ReelSymbols()
	if err != nil {
		return nil
	}
	balance, err := s.store.Balance(ctx, in.AccountID)
	if err != nil {
		return nil
	}
	return &SpinOutput{
		RoundID:    round.RoundID,
		Reels:      reels,
		Outcome:    s.rules.Classify(reels),
		BetAmount:  round.BetAmount,
		Payout:     round.Payout,
		NewBalance: balance,
		BigWin:     s.rules.BigWinMultiple > 0 && round.Payout >= round.BetAmount*s.rules.BigWinMultiple,
		Replayed:   true,
	}
}

// advance 推进结算状态机；非法转换只记录告警，不影响主流程
func (s *spinService) advance(cur *string, evt, traceID string) {
	next, err := state.Next(*cur, evt)
	if err != nil {
		logger.Warn("unexpected settlement transition",
			zap.String("from", *cur),
			zap.String("event", evt),
			zap.String("trace_id", traceID))
		return
	}
	*cur = next
}
