package atomkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFutureSettleOnce(t *testing.T) {
	f := NewFuture[int]()
	if f.State() != Pending {
		t.Fatalf("expected pending, got %v", f.State())
	}

	f.Resolve(7)
	if f.State() != Fulfilled {
		t.Fatalf("expected fulfilled, got %v", f.State())
	}
	if v, err := f.Result(); v != 7 || err != nil {
		t.Errorf("expected (7, nil), got (%d, %v)", v, err)
	}

	// Later settles have no effect
	f.Resolve(9)
	f.Reject(errors.New("late"))
	if v, _ := f.Result(); v != 7 {
		t.Errorf("expected first resolution to stick, got %d", v)
	}
}

func TestFutureOnSettleReplay(t *testing.T) {
	f := ResolvedFuture("hi")
	var got string
	f.OnSettle(func(v string, err error) { got = v })
	if got != "hi" {
		t.Errorf("expected immediate replay for settled future, got %q", got)
	}
}

func TestFutureAwait(t *testing.T) {
	f := NewFuture[int]()
	go f.Resolve(42)
	v, err := f.Await(context.Background())
	if v != 42 || err != nil {
		t.Errorf("expected (42, nil), got (%d, %v)", v, err)
	}

	pending := NewFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := pending.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestAllFutures(t *testing.T) {
	a, b := NewFuture[int](), NewFuture[int]()
	all := AllFutures(a, b)

	a.Resolve(1)
	if all.State() != Pending {
		t.Fatal("expected all to stay pending until every input settles")
	}
	b.Resolve(2)
	vs, err := all.Result()
	if err != nil || len(vs) != 2 || vs[0] != 1 || vs[1] != 2 {
		t.Errorf("expected [1 2], got (%v, %v)", vs, err)
	}
}

func TestAllFuturesRejectsOnFirstError(t *testing.T) {
	a, b := NewFuture[int](), NewFuture[int]()
	all := AllFutures(a, b)
	boom := errors.New("boom")
	a.Reject(boom)
	if _, err := all.Result(); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestRaceFutures(t *testing.T) {
	a, b := NewFuture[int](), NewFuture[int]()
	race := RaceFutures(a, b)
	b.Resolve(2)
	if v, err := race.Result(); v != 2 || err != nil {
		t.Errorf("expected first settled input to win, got (%d, %v)", v, err)
	}
	a.Resolve(1)
	if v, _ := race.Result(); v != 2 {
		t.Errorf("expected race result to stick, got %d", v)
	}
}

func TestAnyFuturesAggregateError(t *testing.T) {
	a, b := NewFuture[int](), NewFuture[int]()
	any := AnyFutures(a, b)

	a.Reject(errors.New("first"))
	if any.State() != Pending {
		t.Fatal("expected any to stay pending while an input might still fulfill")
	}
	b.Reject(errors.New("second"))

	_, err := any.Result()
	var agg *AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("expected AggregateError, got %v", err)
	}
	if len(agg.Errors) != 2 {
		t.Errorf("expected 2 wrapped errors, got %d", len(agg.Errors))
	}
}

func TestAnyFuturesFirstFulfilled(t *testing.T) {
	a, b := NewFuture[int](), NewFuture[int]()
	any := AnyFutures(a, b)
	a.Reject(errors.New("nope"))
	b.Resolve(5)
	if v, err := any.Result(); v != 5 || err != nil {
		t.Errorf("expected (5, nil), got (%d, %v)", v, err)
	}
}

func TestSettledFutures(t *testing.T) {
	a, b := NewFuture[int](), NewFuture[int]()
	settled := SettledFutures(a, b)
	boom := errors.New("boom")

	a.Resolve(1)
	b.Reject(boom)

	res, err := settled.Result()
	if err != nil {
		t.Fatalf("expected settled to never reject, got %v", err)
	}
	if res[0].Status != Fulfilled || res[0].Value != 1 {
		t.Errorf("expected first input fulfilled with 1, got %+v", res[0])
	}
	if res[1].Status != Rejected || !errors.Is(res[1].Err, boom) {
		t.Errorf("expected second input rejected with boom, got %+v", res[1])
	}
}

func TestMapFuture(t *testing.T) {
	f := NewFuture[int]()
	doubled := mapFuture(f, func(v int) (int, error) { return v * 2, nil })
	f.Resolve(21)
	if v, err := doubled.Result(); v != 42 || err != nil {
		t.Errorf("expected (42, nil), got (%d, %v)", v, err)
	}

	g := NewFuture[int]()
	boom := errors.New("boom")
	failed := mapFuture(g, func(int) (int, error) { return 0, boom })
	g.Resolve(1)
	if _, err := failed.Result(); !errors.Is(err, boom) {
		t.Errorf("expected mapped error, got %v", err)
	}
}
