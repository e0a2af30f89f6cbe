package api

import (
	"testing"

	"github.com/stretchr/testify/require"

	"slots-server/internal/model"
)

func TestRoundResponseOmitsAccountID(t *testing.T) {
	round := &model.GameRound{
		RoundID:   "round-1",
		AccountID: "acct-secret-1",
		GameType:  "SLOTS_3_REEL",
		BetAmount: 10,
		Payout:    500,
	}
	require.NoError(t, round.SetReels([]string{"🍀", "🍀", "🍀"}))

	result := roundResponse(round)
	require.NotContains(t, result, "account_id")
	require.Equal(t, "round-1", result["round_id"])
	require.Equal(t, int64(500), result["payout"])
}

func TestLedgerViewReconcilesWithRound(t *testing.T) {
	entries := []model.WalletLedger{
		{AccountID: "acct-secret-1", EntryType: model.EntryWagerDebit, Amount: -10, BeforeAmount: 1000, AfterAmount: 990},
		{AccountID: "acct-secret-1", EntryType: model.EntryPayoutCredit, Amount: 500, BeforeAmount: 990, AfterAmount: 1490},
	}

	view := ledgerView(entries)
	require.Len(t, view, 2)

	var sum int64
	for _, e := range view {
		require.NotContains(t, e, "account_id")
		sum += e["amount"].(int64)
	}
	// 条目金额之和 = 派彩 - 投注
	require.Equal(t, int64(490), sum)
}
