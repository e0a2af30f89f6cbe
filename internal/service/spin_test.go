package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"slots-server/internal/game"
	"slots-server/internal/model"
	"slots-server/internal/store"
)

// fixedDraw 返回固定结果的抽取函数
func fixedDraw(outcome []string) game.DrawFunc {
	return func(reelCount int, symbols []string) []string {
		out := make([]string, len(outcome))
		copy(out, outcome)
		return out
	}
}

func newTestService(t *testing.T, outcome []string, openingBalance int64) (SpinService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	err := st.CreateAccount(context.Background(), "acct-1", "tester", openingBalance, "EUR", "t-setup")
	require.NoError(t, err)
	svc := NewSpinServiceWith(st, game.DefaultRules(), fixedDraw(outcome))
	return svc, st
}

func TestSpinWinningRound(t *testing.T) {
	// 余额1000，投注10，三连🍀（×50）：余额 1000-10+500=1490
	svc, st := newTestService(t, []string{"🍀", "🍀", "🍀"}, 1000)

	out, err := svc.Spin(context.Background(), SpinInput{
		AccountID:      "acct-1",
		BetAmount:      10,
		IdempotencyKey: "idem-win",
		TraceID:        "t-win",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"🍀", "🍀", "🍀"}, out.Reels)
	require.Equal(t, int64(500), out.Payout)
	require.Equal(t, int64(1490), out.NewBalance)
	require.Equal(t, game.OutcomeTriple, out.Outcome)
	require.True(t, out.BigWin, "50x payout should cross the 10x big win threshold")

	bal, err := st.Balance(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(1490), bal)

	// 账本：扣注 + 派彩两条，金额之和等于余额变化
	entries, err := st.LedgerByRound(context.Background(), out.RoundID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, model.EntryWagerDebit, entries[0].EntryType)
	require.Equal(t, int64(-10), entries[0].Amount)
	require.Equal(t, int64(1000), entries[0].BeforeAmount)
	require.Equal(t, int64(990), entries[0].AfterAmount)
	require.Equal(t, model.EntryPayoutCredit, entries[1].EntryType)
	require.Equal(t, int64(500), entries[1].Amount)
	require.Equal(t, int64(990), entries[1].BeforeAmount)
	require.Equal(t, int64(1490), entries[1].AfterAmount)

	// 局记录落库且结果一致
	round, err := st.RoundByID(context.Background(), out.RoundID)
	require.NoError(t, err)
	reels, err := round.ReelSymbols()
	require.NoError(t, err)
	require.Equal(t, out.Reels, reels)
	require.Equal(t, out.Payout, round.Payout)
}

func TestSpinLosingRound(t *testing.T) {
	// 余额1000，投注10，未中奖：余额990，账本只有扣注一条
	svc, st := newTestService(t, []string{"🍒", "🍋", "🍇"}, 1000)

	out, err := svc.Spin(context.Background(), SpinInput{
		AccountID:      "acct-1",
		BetAmount:      10,
		IdempotencyKey: "idem-lose",
		TraceID:        "t-lose",
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), out.Payout)
	require.Equal(t, int64(990), out.NewBalance)
	require.Equal(t, game.OutcomeNone, out.Outcome)
	require.False(t, out.BigWin)

	entries, err := st.LedgerByRound(context.Background(), out.RoundID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.EntryWagerDebit, entries[0].EntryType)
}

func TestSpinInsufficientFunds(t *testing.T) {
	// 余额5，投注10：拒绝且无任何写入
	svc, st := newTestService(t, []string{"🍀", "🍀", "🍀"}, 5)

	_, err := svc.Spin(context.Background(), SpinInput{
		AccountID:      "acct-1",
		BetAmount:      10,
		IdempotencyKey: "idem-poor",
		TraceID:        "t-poor",
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bal, err := st.Balance(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(5), bal, "rejected wager must not change balance")

	rounds, err := st.RoundsByAccount(context.Background(), "acct-1", 10)
	require.NoError(t, err)
	require.Empty(t, rounds, "rejected wager must not write a round")
}

func TestSpinAccountNotFound(t *testing.T) {
	svc, _ := newTestService(t, []string{"🍒", "🍋", "🍇"}, 100)

	_, err := svc.Spin(context.Background(), SpinInput{
		AccountID:      "no-such-account",
		BetAmount:      10,
		IdempotencyKey: "idem-missing",
		TraceID:        "t-missing",
	})
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSpinInvalidWager(t *testing.T) {
	svc, _ := newTestService(t, []string{"🍒", "🍋", "🍇"}, 1000)

	cases := []struct {
		name string
		in   SpinInput
	}{
		{"zero bet", SpinInput{AccountID: "acct-1", BetAmount: 0, IdempotencyKey: "k1"}},
		{"negative bet", SpinInput{AccountID: "acct-1", BetAmount: -10, IdempotencyKey: "k2"}},
		{"below minimum", SpinInput{AccountID: "acct-1", BetAmount: 5, IdempotencyKey: "k3"}},
		{"above maximum", SpinInput{AccountID: "acct-1", BetAmount: 100001, IdempotencyKey: "k4"}},
		{"missing account", SpinInput{AccountID: "", BetAmount: 10, IdempotencyKey: "k5"}},
		{"missing idem key", SpinInput{AccountID: "acct-1", BetAmount: 10, IdempotencyKey: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Spin(context.Background(), tc.in)
			require.ErrorIs(t, err, ErrInvalidWager)
		})
	}
}

func TestSpinBoundaryBets(t *testing.T) {
	// 最小/最大边界值本身是合法投注
	svc, _ := newTestService(t, []string{"🍒", "🍋", "🍇"}, 10_000_000)

	for i, bet := range []int64{10, 100000} {
		_, err := svc.Spin(context.Background(), SpinInput{
			AccountID:      "acct-1",
			BetAmount:      bet,
			IdempotencyKey: fmt.Sprintf("idem-boundary-%d", i),
			TraceID:        "t-boundary",
		})
		require.NoError(t, err, "bet %d at boundary should be accepted", bet)
	}
}

func TestSpinExactBalance(t *testing.T) {
	// 余额恰好等于投注额：允许，余额归零
	svc, st := newTestService(t, []string{"🍒", "🍋", "🍇"}, 10)

	out, err := svc.Spin(context.Background(), SpinInput{
		AccountID:      "acct-1",
		BetAmount:      10,
		IdempotencyKey: "idem-exact",
		TraceID:        "t-exact",
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), out.NewBalance)

	bal, err := st.Balance(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), bal)
}

func TestSpinIdempotentReplay(t *testing.T) {
	// 相同幂等键第二次提交：返回首次结果，余额不再变化
	svc, st := newTestService(t, []string{"🍀", "🍀", "🍀"}, 1000)

	in := SpinInput{
		AccountID:      "acct-1",
		BetAmount:      10,
		IdempotencyKey: "idem-replay",
		TraceID:        "t-replay",
	}
	first, err := svc.Spin(context.Background(), in)
	require.NoError(t, err)

	second, err := svc.Spin(context.Background(), in)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.RoundID, second.RoundID)
	require.Equal(t, first.Payout, second.Payout)

	bal, err := st.Balance(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, first.NewBalance, bal, "replay must not settle twice")
}

func TestSpinOutboxEvents(t *testing.T) {
	// 大奖局写入 round_settled 和 big_win 两条事务消息
	svc, st := newTestService(t, []string{"🍀", "🍀", "🍀"}, 1000)

	out, err := svc.Spin(context.Background(), SpinInput{
		AccountID:      "acct-1",
		BetAmount:      10,
		IdempotencyKey: "idem-outbox",
		TraceID:        "t-outbox",
	})
	require.NoError(t, err)
	require.True(t, out.BigWin)

	var topics []string
	for _, o := range st.OutboxPending() {
		if o.BizKey == out.RoundID {
			topics = append(topics, o.Topic)
		}
	}
	require.ElementsMatch(t, []string{model.TopicRoundSettled, model.TopicBigWin}, topics)
}

func TestSpinConcurrentSameAccount(t *testing.T) {
	// 并发打同一账户：无丢失更新，最终余额 = 初始 - Σ投注 + Σ派彩
	const workers = 32
	svc, st := newTestService(t, []string{"🍒", "🍒", "🍇"}, 100_000)

	var wg sync.WaitGroup
	payouts := make([]int64, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Spin(context.Background(), SpinInput{
				AccountID:      "acct-1",
				BetAmount:      10,
				IdempotencyKey: fmt.Sprintf("idem-conc-%d", i),
				TraceID:        "t-conc",
			})
			if err != nil {
				errs[i] = err
				return
			}
			payouts[i] = out.Payout
		}(i)
	}
	wg.Wait()

	var totalPayout int64
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		totalPayout += payouts[i]
	}

	bal, err := st.Balance(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(100_000-workers*10)+totalPayout, bal)

	// 账本与余额对账：所有条目金额之和 = 余额变化
	var ledgerSum int64
	for _, e := range st.LedgerByAccount("acct-1") {
		ledgerSum += e.Amount
	}
	require.Equal(t, bal, ledgerSum, "ledger must reconcile with balance")
}

func TestSpinConcurrentFundsForOne(t *testing.T) {
	// 余额只够一注，两笔并发：恰好一笔提交，另一笔拒绝，无丢失更新
	svc, st := newTestService(t, []string{"🍒", "🍋", "🍇"}, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Spin(context.Background(), SpinInput{
				AccountID:      "acct-1",
				BetAmount:      10,
				IdempotencyKey: fmt.Sprintf("idem-race-%d", i),
				TraceID:        "t-race",
			})
		}(i)
	}
	wg.Wait()

	var committed, rejected int
	for i := 0; i < 2; i++ {
		switch {
		case errs[i] == nil:
			committed++
		case errors.Is(errs[i], ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", errs[i])
		}
	}
	require.Equal(t, 1, committed)
	require.Equal(t, 1, rejected)

	bal, err := st.Balance(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), bal)
}

func TestSpinConcurrentDistinctAccounts(t *testing.T) {
	// 不同账户并发互不干扰
	const accounts = 8
	st := store.NewMemoryStore()
	for i := 0; i < accounts; i++ {
		err := st.CreateAccount(context.Background(), fmt.Sprintf("acct-%d", i), "tester", 1000, "EUR", "t-setup")
		require.NoError(t, err)
	}
	svc := NewSpinServiceWith(st, game.DefaultRules(), fixedDraw([]string{"🍒", "🍋", "🍇"}))

	var wg sync.WaitGroup
	errs := make([]error, accounts)
	for i := 0; i < accounts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Spin(context.Background(), SpinInput{
				AccountID:      fmt.Sprintf("acct-%d", i),
				BetAmount:      10,
				IdempotencyKey: fmt.Sprintf("idem-acct-%d", i),
				TraceID:        "t-multi",
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < accounts; i++ {
		require.NoError(t, errs[i])
		bal, err := st.Balance(context.Background(), fmt.Sprintf("acct-%d", i))
		require.NoError(t, err)
		require.Equal(t, int64(990), bal)
	}
}

func TestSpinCommitsAfterCallerCancel(t *testing.T) {
	// 客户端断开（调用方 ctx 已取消）不得中止半程结算：结果照常提交
	svc, st := newTestService(t, []string{"🍀", "🍀", "🍀"}, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := svc.Spin(ctx, SpinInput{
		AccountID:      "acct-1",
		BetAmount:      10,
		IdempotencyKey: "idem-cancel",
		TraceID:        "t-cancel",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1490), out.NewBalance)

	bal, err := st.Balance(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(1490), bal, "cancelled caller must still get a committed settlement")

	round, err := st.RoundByID(context.Background(), out.RoundID)
	require.NoError(t, err)
	require.Equal(t, int64(500), round.Payout)
}

func TestSpinPersistenceFailureAborts(t *testing.T) {
	// 存储层故障：整体回滚，归类为持久化失败
	st := &failingStore{MemoryStore: store.NewMemoryStore()}
	err := st.CreateAccount(context.Background(), "acct-1", "tester", 1000, "EUR", "t-setup")
	require.NoError(t, err)
	svc := NewSpinServiceWith(st, game.DefaultRules(), fixedDraw([]string{"🍒", "🍋", "🍇"}))

	_, err = svc.Spin(context.Background(), SpinInput{
		AccountID:      "acct-1",
		BetAmount:      10,
		IdempotencyKey: "idem-fail",
		TraceID:        "t-fail",
	})
	require.ErrorIs(t, err, ErrPersistence)
}

// failingStore 模拟结算事务失败
type failingStore struct {
	*store.MemoryStore
}

func (f *failingStore) Settle(ctx context.Context, accountID string, fn func(tx store.Tx) error) error {
	return errors.New("connection reset by peer")
}
