package atomkit

import (
	"errors"
	"testing"
)

func TestTrackMemoizesSettleState(t *testing.T) {
	f := NewFuture[int]()
	if st, _, _ := Track(f); st != Pending {
		t.Fatalf("expected pending, got %v", st)
	}

	f.Resolve(3)
	st, v, err := Track(f)
	if st != Fulfilled || v != 3 || err != nil {
		t.Errorf("expected fulfilled 3, got (%v, %v, %v)", st, v, err)
	}
}

func TestTrackSingleContinuationPerIdentity(t *testing.T) {
	f := NewFuture[int]()
	Track(f)
	before := f.subs.Len()
	Track(f)
	Track(f)
	if got := f.subs.Len(); got != before {
		t.Errorf("expected repeated Track to attach no extra continuations, got %d vs %d", got, before)
	}
}

func TestTrackAlreadySettled(t *testing.T) {
	f := ResolvedFuture("v")
	if st, v, _ := Track(f); st != Fulfilled || v != "v" {
		t.Errorf("expected fulfilled %q, got (%v, %v)", "v", st, v)
	}
}

func TestUnwrap(t *testing.T) {
	// Non-deferred values pass through
	v, err, pending := Unwrap(41)
	if v != 41 || err != nil || pending != nil {
		t.Errorf("expected passthrough, got (%v, %v, %v)", v, err, pending)
	}

	// Fulfilled future yields its value
	v, err, pending = Unwrap(ResolvedFuture("ok"))
	if v != "ok" || err != nil || pending != nil {
		t.Errorf("expected unwrapped value, got (%v, %v, %v)", v, err, pending)
	}

	// Rejected future yields its error
	boom := errors.New("boom")
	_, err, pending = Unwrap(RejectedFuture[int](boom))
	if !errors.Is(err, boom) || pending != nil {
		t.Errorf("expected boom, got (%v, %v)", err, pending)
	}

	// Pending future yields itself
	f := NewFuture[int]()
	_, err, pending = Unwrap(f)
	if err != nil || pending == nil || pending.futureID() != f.ID() {
		t.Errorf("expected the pending future back, got (%v, %v)", err, pending)
	}
}
