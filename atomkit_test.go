package atomkit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/atomkit-dev/atomkit"
)

func TestFacadeAtomAndDerived(t *testing.T) {
	count := atomkit.NewAtom(1, atomkit.WithKey[int]("facade.count"))
	doubled := atomkit.NewDerived(func(c *atomkit.Ctx) int {
		return atomkit.Get(c, count) * 2
	})

	if got := doubled.Value(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	count.Set(21)
	if got := doubled.Value(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	st := doubled.State()
	if st.Status != atomkit.StatusReady || st.Value != 42 {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestFacadeFutureAtom(t *testing.T) {
	f := atomkit.NewFuture[string]()
	a := atomkit.NewFutureAtom(f, atomkit.WithFallback("placeholder"))

	if !a.Loading() {
		t.Error("expected loading before settle")
	}
	if got := a.Value(); got != "placeholder" {
		t.Errorf("expected fallback, got %q", got)
	}

	f.Resolve("ready")
	if got := a.Value(); got != "ready" {
		t.Errorf("expected resolved value, got %q", got)
	}
}

func TestFacadeSelectionSafe(t *testing.T) {
	boom := atomkit.NewFutureAtom(atomkit.RejectedFuture[int](errors.New("boom")))

	d := atomkit.NewDerived(func(c *atomkit.Ctx) string {
		_, err := atomkit.Safe(c, func() int {
			return atomkit.Get(c, boom)
		})
		if err != nil {
			return "recovered"
		}
		return "ok"
	})
	if got := d.Value(); got != "recovered" {
		t.Errorf("expected recovered, got %q", got)
	}
}

func TestFacadeEvent(t *testing.T) {
	ev := atomkit.NewEvent[string](atomkit.WithOnce[string]())

	var seen []string
	ev.On(func(v string) { seen = append(seen, v) })

	ev.Fire("first")
	ev.Fire("second")

	if len(seen) != 1 || seen[0] != "first" {
		t.Errorf("unexpected deliveries: %v", seen)
	}
	if !ev.Sealed() {
		t.Error("expected sealed after first fire")
	}
}

func TestFacadePoolEviction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := atomkit.NewPool(func(id int, _ *atomkit.InitContext) (string, error) {
		return "entry", nil
	}, atomkit.WithGCTime[int, string](time.Second),
		atomkit.WithClock[int, string](clock))

	p.Get(7)
	if p.Len() != 1 {
		t.Fatalf("expected one entry, got %d", p.Len())
	}

	clock.Advance(2 * time.Second)
	deadline := time.Now().Add(time.Second)
	for p.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("entry not evicted")
		}
		time.Sleep(time.Millisecond)
	}
}
