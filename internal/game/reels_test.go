package game

import (
	"sync"
	"testing"
)

func TestDrawShape(t *testing.T) {
	r := DefaultRules()
	allowed := make(map[string]bool, len(r.Symbols))
	for _, s := range r.Symbols {
		allowed[s] = true
	}

	for i := 0; i < 1000; i++ {
		outcome := Draw(r.ReelCount, r.Symbols)
		if len(outcome) != r.ReelCount {
			t.Fatalf("draw length = %d, want %d", len(outcome), r.ReelCount)
		}
		for _, s := range outcome {
			if !allowed[s] {
				t.Fatalf("draw produced symbol outside the set: %q", s)
			}
		}
	}
}

func TestDrawCoversAllSymbols(t *testing.T) {
	// 均匀抽取下 5 个符号在几千次抽取中必然全部出现；
	// 某个符号从未出现说明抽取实现有问题
	r := DefaultRules()
	seen := make(map[string]bool)
	for i := 0; i < 5000 && len(seen) < len(r.Symbols); i++ {
		for _, s := range Draw(r.ReelCount, r.Symbols) {
			seen[s] = true
		}
	}
	for _, s := range r.Symbols {
		if !seen[s] {
			t.Fatalf("symbol %q never drawn", s)
		}
	}
}

func TestDrawConcurrentSafe(t *testing.T) {
	r := DefaultRules()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := Draw(r.ReelCount, r.Symbols); len(got) != r.ReelCount {
					t.Errorf("concurrent draw length = %d", len(got))
					return
				}
			}
		}()
	}
	wg.Wait()
}
