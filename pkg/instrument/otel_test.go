package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atomkit-dev/atomkit/pkg/atomkit"
)

func TestTracingDeliversNotifications(t *testing.T) {
	tracing := NewTracing()
	prev := atomkit.SetScheduler(tracing)
	defer atomkit.SetScheduler(prev)

	a := atomkit.NewAtom(0)
	delivered := 0
	a.On(func(atomkit.CellState[int]) { delivered++ })

	a.Set(1)
	assert.Equal(t, 1, delivered, "span wrapping must not swallow the notification")
}

func TestTracingChainsDownstream(t *testing.T) {
	batch := atomkit.NewCoalescingScheduler()
	tracing := NewTracing(WithTracingNext(batch), WithSpanName("custom.notify"))

	delivered := 0
	tracing.Schedule(7, func() { delivered++ })
	assert.Equal(t, 0, delivered, "notification should queue downstream first")

	batch.Flush()
	assert.Equal(t, 1, delivered)
}
