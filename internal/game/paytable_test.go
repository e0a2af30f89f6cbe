package game

import (
	"testing"
)

func TestResolveTriple(t *testing.T) {
	r := DefaultRules()
	// balance=1000 bet=10 🍀🍀🍀 paytable[🍀]=50 -> payout=500
	if got := r.Resolve(10, []string{"🍀", "🍀", "🍀"}); got != 500 {
		t.Fatalf("triple clover payout = %d, want 500", got)
	}
	if got := r.Resolve(100, []string{"🍒", "🍒", "🍒"}); got != 200 {
		t.Fatalf("triple cherry payout = %d, want 200", got)
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := DefaultRules()
	if got := r.Resolve(10, []string{"🍒", "🍋", "🍇"}); got != 0 {
		t.Fatalf("no-match payout = %d, want 0", got)
	}
}

func TestResolveMinorWin(t *testing.T) {
	r := DefaultRules()
	for _, outcome := range [][]string{
		{"🍒", "🍒", "🍇"},
		{"🍒", "🍇", "🍒"},
		{"🍇", "🍒", "🍒"},
	} {
		if got := r.Resolve(10, outcome); got != 20 {
			t.Fatalf("minor win %v payout = %d, want 20", outcome, got)
		}
	}

	// 小奖倍数为 0 时关闭两同玩法
	r.MinorMultiplier = 0
	if got := r.Resolve(10, []string{"🍒", "🍒", "🍇"}); got != 0 {
		t.Fatalf("minor win disabled payout = %d, want 0", got)
	}
}

func TestResolvePureAndDeterministic(t *testing.T) {
	r := DefaultRules()
	for i := 0; i < 2000; i++ {
		outcome := Draw(r.ReelCount, r.Symbols)
		bet := int64(10 + i%991)
		first := r.Resolve(bet, outcome)
		if first < 0 {
			t.Fatalf("payout must be non-negative, got %d for %v", first, outcome)
		}
		// 同样输入必然得到同样输出
		for j := 0; j < 3; j++ {
			if again := r.Resolve(bet, outcome); again != first {
				t.Fatalf("resolve is not deterministic: %d != %d for %v", again, first, outcome)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	r := DefaultRules()
	cases := []struct {
		outcome []string
		want    string
	}{
		{[]string{"🍀", "🍀", "🍀"}, OutcomeTriple},
		{[]string{"🍋", "🍋", "🍀"}, OutcomeDouble},
		{[]string{"🍒", "🍋", "🍇"}, OutcomeNone},
		{nil, OutcomeNone},
	}
	for _, c := range cases {
		if got := r.Classify(c.outcome); got != c.want {
			t.Fatalf("Classify(%v) = %s, want %s", c.outcome, got, c.want)
		}
	}
}
