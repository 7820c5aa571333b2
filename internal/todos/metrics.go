package todos

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var storeOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "todos_store_operations_total",
		Help: "Total number of todo store operations by result",
	},
	[]string{"op", "result"},
)

func init() {
	prometheus.MustRegister(storeOpsTotal)
}

// InstrumentedStore counts every call to the wrapped Store.
type InstrumentedStore struct {
	next Store
}

func WithMetrics(s Store) *InstrumentedStore {
	return &InstrumentedStore{next: s}
}

func (s *InstrumentedStore) ListAll(ctx context.Context) ([]Todo, error) {
	out, err := s.next.ListAll(ctx)
	observe("list_all", err)
	return out, err
}

func (s *InstrumentedStore) GetByID(ctx context.Context, id string) (Todo, error) {
	out, err := s.next.GetByID(ctx, id)
	observe("get_by_id", err)
	return out, err
}

func (s *InstrumentedStore) Append(ctx context.Context, t Todo) error {
	err := s.next.Append(ctx, t)
	observe("append", err)
	return err
}

func (s *InstrumentedStore) ReplaceAll(ctx context.Context, all []Todo) error {
	err := s.next.ReplaceAll(ctx, all)
	observe("replace_all", err)
	return err
}

func (s *InstrumentedStore) RemoveByID(ctx context.Context, id string) error {
	err := s.next.RemoveByID(ctx, id)
	observe("remove_by_id", err)
	return err
}

func (s *InstrumentedStore) Update(ctx context.Context, id string, fn func(*Todo)) (Todo, error) {
	out, err := s.next.Update(ctx, id, fn)
	observe("update", err)
	return out, err
}

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	storeOpsTotal.WithLabelValues(op, result).Inc()
}
