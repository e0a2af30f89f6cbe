package state

import "testing"

func TestSuccessPath(t *testing.T) {
	cur := StateReceived
	for _, evt := range []string{EvtValidate, EvtLock, EvtCompute, EvtCommit} {
		next, err := Next(cur, evt)
		if err != nil {
			t.Fatalf("unexpected error at %s --%s-->: %v", cur, evt, err)
		}
		cur = next
	}
	if cur != StateCommitted {
		t.Fatalf("expected committed, got %s", cur)
	}
	if !Terminal(cur) {
		t.Fatalf("committed must be terminal")
	}
}

func TestRejectBeforeCommit(t *testing.T) {
	for _, from := range []string{StateReceived, StateValidated, StateLocked} {
		next, err := Next(from, EvtReject)
		if err != nil {
			t.Fatalf("reject from %s: %v", from, err)
		}
		if next != StateRejected {
			t.Fatalf("reject from %s = %s, want rejected", from, next)
		}
	}
	// 计算完成后只能 commit 或 abort，不能再业务拒绝
	if _, err := Next(StateComputed, EvtReject); err == nil {
		t.Fatalf("reject from computed must be invalid")
	}
}

func TestAbortRequiresOpenUnitOfWork(t *testing.T) {
	// 事务尚未开启时没有可回滚的内容
	if _, err := Next(StateReceived, EvtAbort); err == nil {
		t.Fatalf("abort from received must be invalid")
	}
	for _, from := range []string{StateValidated, StateLocked, StateComputed} {
		next, err := Next(from, EvtAbort)
		if err != nil {
			t.Fatalf("abort from %s: %v", from, err)
		}
		if next != StateAborted {
			t.Fatalf("abort from %s = %s, want aborted", from, next)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	events := []string{EvtValidate, EvtLock, EvtCompute, EvtCommit, EvtReject, EvtAbort}
	for _, s := range []string{StateCommitted, StateRejected, StateAborted} {
		for _, evt := range events {
			if _, err := Next(s, evt); err == nil {
				t.Fatalf("terminal state %s must not accept %s", s, evt)
			}
		}
	}
}
