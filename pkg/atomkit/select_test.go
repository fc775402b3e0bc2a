package atomkit

import (
	"errors"
	"strconv"
	"testing"
)

func TestSelectionReadsResolvedValues(t *testing.T) {
	a := NewAtom(2)
	b := NewAtom(3)

	res := runSelection(func(c *Ctx) int {
		return Get(c, a) + Get(c, b)
	})
	if res.value != 5 || res.err != nil || res.pending != nil {
		t.Errorf("expected value 5, got %+v", res)
	}
	if len(res.deps) != 2 {
		t.Errorf("expected 2 recorded dependencies, got %d", len(res.deps))
	}
}

func TestSelectionSuspendsOnPending(t *testing.T) {
	f := NewFuture[int]()
	a := NewFutureAtom(f)
	b := NewAtom(1)
	reachedAfter := false

	res := runSelection(func(c *Ctx) int {
		before := Get(c, b)
		v := Get(c, a)
		reachedAfter = true
		return before + v
	})

	if res.pending == nil {
		t.Fatal("expected a pending selection result")
	}
	if reachedAfter {
		t.Error("expected computation abandoned at the pending read")
	}
	// Atoms read before the abort are still dependencies
	if len(res.deps) != 2 {
		t.Errorf("expected both cells recorded, got %d", len(res.deps))
	}
}

func TestSelectionAbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	a := NewLazyAtom(func(*InitContext) (int, error) { return 0, boom })

	res := runSelection(func(c *Ctx) int {
		return Get(c, a)
	})
	if !errors.Is(res.err, boom) {
		t.Errorf("expected error propagated, got %v", res.err)
	}
}

func TestSelectionFallbackSubstituted(t *testing.T) {
	f := NewFuture[int]()
	a := NewFutureAtom(f, WithFallback(9))

	res := runSelection(func(c *Ctx) int {
		return Get(c, a) + 1
	})
	if res.pending != nil {
		t.Fatal("expected fallback-bearing atom to not suspend")
	}
	if res.value != 10 {
		t.Errorf("expected 10, got %d", res.value)
	}
	if len(res.staleDeps) != 1 {
		t.Errorf("expected the pending future recorded as a stale dep, got %d", len(res.staleDeps))
	}
}

func TestSelectionComputationPanicBecomesError(t *testing.T) {
	res := runSelection(func(*Ctx) int {
		panic("broken")
	})
	if res.err == nil {
		t.Fatal("expected a computation panic captured as an error")
	}
}

func TestGetOutsideSelectionPanics(t *testing.T) {
	a := NewAtom(1)
	defer func() {
		r := recover()
		up, ok := r.(usagePanic)
		if !ok || !errors.Is(up, ErrNoSelection) {
			t.Errorf("expected usage panic with ErrNoSelection, got %v", r)
		}
	}()
	Get(nil, a)
}

func TestAllCombinator(t *testing.T) {
	a, b := NewAtom(1), NewAtom(2)
	res := runSelection(func(c *Ctx) int {
		vs := All(c, a, b)
		return vs[0] + vs[1]
	})
	if res.value != 3 {
		t.Errorf("expected 3, got %d", res.value)
	}

	pending := NewFutureAtom(NewFuture[int]())
	res = runSelection(func(c *Ctx) int {
		vs := All(c, a, pending)
		return vs[0]
	})
	if res.pending == nil {
		t.Error("expected all to propagate the pending input")
	}
}

func TestRaceCombinator(t *testing.T) {
	pending := NewFutureAtom(NewFuture[int]())
	ready := NewAtom(7)

	res := runSelection(func(c *Ctx) int {
		return Race(c, pending, ready)
	})
	if res.value != 7 {
		t.Errorf("expected first settled input, got %+v", res)
	}

	p2 := NewFutureAtom(NewFuture[int]())
	res = runSelection(func(c *Ctx) int {
		return Race(c, pending, p2)
	})
	if res.pending == nil {
		t.Error("expected race over all-pending inputs to suspend")
	}
}

func TestAnyCombinator(t *testing.T) {
	failed := NewLazyAtom(func(*InitContext) (int, error) { return 0, errors.New("a") })
	ready := NewAtom(4)

	res := runSelection(func(c *Ctx) int {
		return Any(c, failed, ready)
	})
	if res.value != 4 {
		t.Errorf("expected any to skip the failed input, got %+v", res)
	}

	alsoFailed := NewLazyAtom(func(*InitContext) (int, error) { return 0, errors.New("b") })
	res = runSelection(func(c *Ctx) int {
		return Any(c, failed, alsoFailed)
	})
	var agg *AggregateError
	if !errors.As(res.err, &agg) || len(agg.Errors) != 2 {
		t.Errorf("expected aggregate error with both failures, got %v", res.err)
	}
}

func TestAnyCombinatorSuspendsWhilePending(t *testing.T) {
	failed := NewLazyAtom(func(*InitContext) (int, error) { return 0, errors.New("a") })
	pending := NewFutureAtom(NewFuture[int]())

	res := runSelection(func(c *Ctx) int {
		return Any(c, failed, pending)
	})
	if res.pending == nil {
		t.Error("expected any to suspend while an input might still fulfill")
	}
}

func TestSettledCombinator(t *testing.T) {
	boom := errors.New("boom")
	ok := NewAtom(1)
	bad := NewLazyAtom(func(*InitContext) (int, error) { return 0, boom })

	res := runSelection(func(c *Ctx) []Settlement[int] {
		return Settled(c, ok, bad)
	})
	if res.err != nil || res.pending != nil {
		t.Fatalf("expected settled to absorb failures, got %+v", res)
	}
	if res.value[0].Status != Fulfilled || res.value[0].Value != 1 {
		t.Errorf("expected first input fulfilled, got %+v", res.value[0])
	}
	if res.value[1].Status != Rejected || !errors.Is(res.value[1].Err, boom) {
		t.Errorf("expected second input rejected, got %+v", res.value[1])
	}
}

func TestReadyCombinator(t *testing.T) {
	s := NewAtom("")
	res := runSelection(func(c *Ctx) string {
		return Ready(c, s)
	})
	if res.pending == nil {
		t.Fatal("expected ready to suspend on a zero value")
	}

	s.Set("go")
	res = runSelection(func(c *Ctx) string {
		return Ready(c, s)
	})
	if res.value != "go" {
		t.Errorf("expected %q, got %+v", "go", res)
	}
}

func TestReadyWhenCombinator(t *testing.T) {
	n := NewAtom(0)
	sel := func(v int) (string, bool) {
		if v <= 0 {
			return "", false
		}
		return strconv.Itoa(v), true
	}

	res := runSelection(func(c *Ctx) string {
		return ReadyWhen(c, n, sel)
	})
	if res.pending == nil {
		t.Fatal("expected suspension while the selector reports not-ok")
	}

	n.Set(12)
	res = runSelection(func(c *Ctx) string {
		return ReadyWhen(c, n, sel)
	})
	if res.value != "12" {
		t.Errorf("expected %q, got %+v", "12", res)
	}
}

func TestSafeCapturesErrors(t *testing.T) {
	boom := errors.New("boom")
	bad := NewLazyAtom(func(*InitContext) (int, error) { return 0, boom })

	res := runSelection(func(c *Ctx) int {
		v, err := Safe(c, func() int { return Get(c, bad) })
		if !errors.Is(err, boom) {
			t.Errorf("expected boom captured, got %v", err)
		}
		return v
	})
	if res.err != nil || res.pending != nil {
		t.Errorf("expected safe to absorb the failure, got %+v", res)
	}
}

func TestSafeRepropagatesSuspension(t *testing.T) {
	pending := NewFutureAtom(NewFuture[int]())

	res := runSelection(func(c *Ctx) int {
		v, _ := Safe(c, func() int { return Get(c, pending) })
		return v
	})
	if res.pending == nil {
		t.Error("expected safe to re-propagate the pending future untouched")
	}
}

func TestSelectionDeduplicatesDependencies(t *testing.T) {
	a := NewAtom(1)
	res := runSelection(func(c *Ctx) int {
		return Get(c, a) + Get(c, a) + Get(c, a)
	})
	if len(res.deps) != 1 {
		t.Errorf("expected one recorded dependency, got %d", len(res.deps))
	}
	if res.value != 3 {
		t.Errorf("expected 3, got %d", res.value)
	}
}
