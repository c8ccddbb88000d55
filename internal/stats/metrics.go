package stats

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented wraps a Store and mirrors every successful increment into a
// Prometheus counter vector. Room IDs are not used as a label to keep
// cardinality bounded.
type Instrumented struct {
	Store
	counter *prometheus.CounterVec
}

// NewInstrumented wraps inner and registers its collector with reg.
// It returns an error if a collector with the same name is already
// registered.
func NewInstrumented(inner Store, reg prometheus.Registerer) (*Instrumented, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catbot",
		Name:      "stats_total",
		Help:      "Counter increments recorded by the dispatch engine.",
	}, []string{"counter", "module", "sub"})

	if err := reg.Register(vec); err != nil {
		return nil, err
	}
	return &Instrumented{Store: inner, counter: vec}, nil
}

// Add implements Store.
func (i *Instrumented) Add(ctx context.Context, key Key, delta int64) error {
	if err := ValidateAdd(key, delta); err != nil {
		return err
	}
	if err := i.Store.Add(ctx, key, delta); err != nil {
		return err
	}
	i.counter.WithLabelValues(key.Counter, key.Module, key.Sub).Add(float64(delta))
	return nil
}
