package instrument

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomkit-dev/atomkit/pkg/atomkit"
)

func TestMetricsCountsCellCreation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	restore := m.Install()
	defer restore()

	atomkit.NewAtom(1)
	atomkit.NewAtom("x")
	atomkit.NewDerived(func(c *atomkit.Ctx) int { return 0 })
	atomkit.NewEvent[int]()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cellsCreated.WithLabelValues("mutable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cellsCreated.WithLabelValues("derived")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cellsCreated.WithLabelValues("event")))
}

func TestMetricsCountsNotifications(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	restore := m.Install()
	defer restore()

	a := atomkit.NewAtom(0)
	delivered := 0
	a.On(func(atomkit.CellState[int]) { delivered++ })

	a.Set(1)
	a.Set(2)

	require.Equal(t, 2, delivered, "scheduler must still deliver")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications))
}

func TestMetricsChainsDownstreamScheduler(t *testing.T) {
	reg := prometheus.NewRegistry()
	batch := atomkit.NewCoalescingScheduler()
	m := NewMetrics(WithRegistry(reg), WithNextScheduler(batch))
	restore := m.Install()
	defer restore()

	a := atomkit.NewAtom(0)
	delivered := 0
	a.On(func(atomkit.CellState[int]) { delivered++ })

	a.Set(1)
	assert.Equal(t, 0, delivered, "notification should be queued downstream")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications))

	batch.Flush()
	assert.Equal(t, 1, delivered)
}

func TestObservePool(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	p := atomkit.NewPool(func(id string, _ *atomkit.InitContext) (string, error) {
		return "v:" + id, nil
	})
	off := ObservePool(m, p)
	defer off()

	p.Get("a")
	p.Remove("a")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.poolEvents.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.poolEvents.WithLabelValues("removed")))
}

func TestMetricsNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg), WithNamespace("custom"), WithSubsystem("engine"))

	families, err := reg.Gather()
	require.NoError(t, err)
	// Counters without observations are not gathered; the registration
	// itself must not have panicked and the registry stays usable.
	assert.NotNil(t, families)
}
