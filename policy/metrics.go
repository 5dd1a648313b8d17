package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports allocation activity to prometheus. It is intended to be
// combined with other policies via NewCombined when a process wants
// visibility into arena usage without enabling the heavier Tracking policy.
type Metrics struct {
	allocationsTotal   prometheus.Counter
	deallocationsTotal prometheus.Counter
	bytesInUse         prometheus.Gauge
	resetsTotal        prometheus.Counter
}

var _ Policy = &Metrics{}

// NewMetrics creates a Metrics policy registered against the provided
// registerer. The name label distinguishes multiple observed strategies
// within the same process.
func NewMetrics(reg prometheus.Registerer, name string) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"arena": name}

	return &Metrics{
		allocationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "arena_allocations_total",
			Help:        "The total number of blocks handed out by the allocation strategy",
			ConstLabels: labels,
		}),
		deallocationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "arena_deallocations_total",
			Help:        "The total number of blocks returned to the allocation strategy",
			ConstLabels: labels,
		}),
		bytesInUse: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "arena_bytes_in_use",
			Help:        "Requested bytes currently live in the allocation strategy",
			ConstLabels: labels,
		}),
		resetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "arena_resets_total",
			Help:        "The total number of bulk resets performed on the allocation strategy",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) OnAllocate(size int, alignment uint, offset int) {
	m.allocationsTotal.Inc()
	m.bytesInUse.Add(float64(size))
}

func (m *Metrics) OnDeallocate(offset, size int) {
	m.deallocationsTotal.Inc()
	m.bytesInUse.Sub(float64(size))
}

func (m *Metrics) OnReset() {
	m.resetsTotal.Inc()
	m.bytesInUse.Set(0)
}
