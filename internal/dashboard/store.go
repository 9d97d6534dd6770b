package dashboard

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"hstrader/internal/metrics"
	"hstrader/models"
)

// ring keeps the most recent limit items.
type ring[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

func newRing[T any](limit int) *ring[T] {
	if limit <= 0 {
		limit = 200
	}
	return &ring[T]{limit: limit}
}

func (r *ring[T]) add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	if len(r.items) > r.limit {
		r.items = append([]T(nil), r.items[len(r.items)-r.limit:]...)
	}
}

func (r *ring[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// metricStore receives every emitted metric through metrics.RegisterMetricHandler.
type metricStore struct {
	*ring[metrics.Metric]
}

func newMetricStore(limit int) *metricStore {
	return &metricStore{ring: newRing[metrics.Metric](limit)}
}

func (s *metricStore) handle(metric metrics.Metric) {
	s.add(metric)
}

type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// logStore is a logrus hook; it is attached to the global logger for the
// lifetime of the server.
type logStore struct {
	*ring[logRecord]
	enabled atomic.Bool
}

func newLogStore(limit int) *logStore {
	ls := &logStore{ring: newRing[logRecord](limit)}
	ls.enabled.Store(true)
	return ls
}

func (s *logStore) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (s *logStore) Fire(entry *logrus.Entry) error {
	if !s.enabled.Load() {
		return nil
	}

	record := logRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	if component, ok := entry.Data["component"].(string); ok {
		record.Component = component
	}
	if len(entry.Data) > 0 {
		record.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if k == "component" {
				continue
			}
			switch val := v.(type) {
			case error:
				record.Fields[k] = val.Error()
			case fmt.Stringer:
				record.Fields[k] = val.String()
			default:
				record.Fields[k] = val
			}
		}
	}

	s.add(record)
	return nil
}

func (s *logStore) close() {
	s.enabled.Store(false)
}

// quoteStore holds the latest adjusted quote per symbol and the latest
// account summary.
type quoteStore struct {
	mu      sync.RWMutex
	quotes  map[int64]models.Tick
	summary *models.Summary
	pl      map[int64]float64
}

func newQuoteStore() *quoteStore {
	return &quoteStore{
		quotes: make(map[int64]models.Tick),
		pl:     make(map[int64]float64),
	}
}

func (s *quoteStore) tick(t models.Tick) {
	s.mu.Lock()
	s.quotes[t.SymbolID] = t
	s.mu.Unlock()
}

func (s *quoteStore) setSummary(sum models.Summary) {
	s.mu.Lock()
	s.summary = &sum
	s.mu.Unlock()
}

func (s *quoteStore) positionPL(pl models.PositionPL) {
	s.mu.Lock()
	s.pl[pl.PositionID] = pl.Profit
	s.mu.Unlock()
}

func (s *quoteStore) quotesSnapshot() []models.Tick {
	s.mu.RLock()
	out := make([]models.Tick, 0, len(s.quotes))
	for _, t := range s.quotes {
		out = append(out, t)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SymbolID < out[j].SymbolID })
	return out
}

func (s *quoteStore) accountSnapshot() (*models.Summary, map[int64]float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum *models.Summary
	if s.summary != nil {
		copied := *s.summary
		sum = &copied
	}
	pl := make(map[int64]float64, len(s.pl))
	for k, v := range s.pl {
		pl[k] = v
	}
	return sum, pl
}
