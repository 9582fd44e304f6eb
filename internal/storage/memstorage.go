package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alisaviation/metricboard/internal/models"
)

// MemStorage keeps metrics in process memory. All sessions share one table.
type MemStorage struct {
	mu      sync.Mutex
	metrics map[int64]models.Metric
	lastID  int64
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		metrics: make(map[int64]models.Metric),
	}
}

func (m *MemStorage) EnsureSchema(ctx context.Context) error {
	return nil
}

func (m *MemStorage) Session(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memSession{store: m}, nil
}

func (m *MemStorage) Close() error {
	return nil
}

// insert must be called with mu held.
func (m *MemStorage) insert(metric models.Metric) (models.Metric, error) {
	var id int64
	if metric.ID != nil {
		id = *metric.ID
		if _, exists := m.metrics[id]; exists {
			return models.Metric{}, fmt.Errorf("insert metric %d: %w", id, ErrDuplicateID)
		}
	} else {
		id = m.lastID + 1
	}
	if id > m.lastID {
		m.lastID = id
	}
	metric.ID = &id
	m.metrics[id] = clone(metric)
	return clone(metric), nil
}

// sortedIDs must be called with mu held.
func (m *MemStorage) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.metrics))
	for id := range m.metrics {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// importLocked stages the whole batch first so a failure leaves the table untouched.
func (m *MemStorage) importLocked(metrics []models.Metric) (ImportStats, error) {
	var stats ImportStats
	staged := make(map[int64]models.Metric)
	next := m.lastID

	for _, metric := range metrics {
		if metric.ID != nil {
			id := *metric.ID
			_, stored := m.metrics[id]
			_, pending := staged[id]
			if stored || pending {
				stats.Skipped++
				continue
			}
			if id > next {
				next = id
			}
			staged[id] = clone(metric)
			stats.Imported++
			continue
		}
		next++
		for {
			_, stored := m.metrics[next]
			_, pending := staged[next]
			if !stored && !pending {
				break
			}
			next++
		}
		id := next
		metric.ID = &id
		staged[id] = clone(metric)
		stats.Imported++
	}

	for id, metric := range staged {
		m.metrics[id] = metric
	}
	m.lastID = next
	return stats, nil
}

type memSession struct {
	store  *MemStorage
	closed bool
}

var errSessionClosed = errors.New("session is closed")

func (s *memSession) check(ctx context.Context) error {
	if s.closed {
		return errSessionClosed
	}
	return ctx.Err()
}

func (s *memSession) Create(ctx context.Context, metric models.Metric) (models.Metric, error) {
	if err := s.check(ctx); err != nil {
		return models.Metric{}, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.store.insert(metric)
}

func (s *memSession) List(ctx context.Context, offset, limit uint64) ([]models.Metric, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	ids := s.store.sortedIDs()
	result := make([]models.Metric, 0)
	if offset >= uint64(len(ids)) {
		return result, nil
	}
	ids = ids[offset:]
	if limit < uint64(len(ids)) {
		ids = ids[:limit]
	}
	for _, id := range ids {
		result = append(result, clone(s.store.metrics[id]))
	}
	return result, nil
}

func (s *memSession) All(ctx context.Context) ([]models.Metric, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	result := make([]models.Metric, 0, len(s.store.metrics))
	for _, id := range s.store.sortedIDs() {
		result = append(result, clone(s.store.metrics[id]))
	}
	return result, nil
}

func (s *memSession) Get(ctx context.Context, id int64) (models.Metric, error) {
	if err := s.check(ctx); err != nil {
		return models.Metric{}, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	metric, exists := s.store.metrics[id]
	if !exists {
		return models.Metric{}, ErrNotFound
	}
	return clone(metric), nil
}

func (s *memSession) Update(ctx context.Context, id int64, patch models.MetricPatch) (models.Metric, error) {
	if err := s.check(ctx); err != nil {
		return models.Metric{}, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	metric, exists := s.store.metrics[id]
	if !exists {
		return models.Metric{}, ErrNotFound
	}
	updated := patch.Apply(clone(metric))
	s.store.metrics[id] = updated
	return clone(updated), nil
}

func (s *memSession) Delete(ctx context.Context, id int64) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if _, exists := s.store.metrics[id]; !exists {
		return ErrNotFound
	}
	delete(s.store.metrics, id)
	return nil
}

func (s *memSession) IsEmpty(ctx context.Context) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return len(s.store.metrics) == 0, nil
}

func (s *memSession) Import(ctx context.Context, metrics []models.Metric) (ImportStats, error) {
	if err := s.check(ctx); err != nil {
		return ImportStats{}, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.store.importLocked(metrics)
}

func (s *memSession) SeedIfEmpty(ctx context.Context, metrics []models.Metric) (ImportStats, bool, error) {
	if err := s.check(ctx); err != nil {
		return ImportStats{}, false, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if len(s.store.metrics) > 0 {
		return ImportStats{}, false, nil
	}
	stats, err := s.store.importLocked(metrics)
	return stats, err == nil, err
}

func (s *memSession) Close() error {
	s.closed = true
	return nil
}

func clone(m models.Metric) models.Metric {
	if m.ID != nil {
		id := *m.ID
		m.ID = &id
	}
	if m.Icon != nil {
		icon := *m.Icon
		m.Icon = &icon
	}
	return m
}
