package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"adaptive-coach/internal/readiness"
)

// MemoryStore keeps everything in process memory. It backs tests and
// one-off CLI runs.
type MemoryStore struct {
	mu        sync.RWMutex
	baselines map[string][]byte
	decisions map[string]map[time.Time]DecisionRecord
	alerts    []AlertRecord
	nextID    int64
	locks     keyLocks
	now       func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		baselines: make(map[string][]byte),
		decisions: make(map[string]map[time.Time]DecisionRecord),
		now:       time.Now,
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() {}

// TryAdvisoryLock acquires an in-process lock for key.
func (m *MemoryStore) TryAdvisoryLock(_ context.Context, key int64) (func(), bool, error) {
	unlock, ok := m.locks.try(key)
	return unlock, ok, nil
}

// SaveBaseline replaces the athlete's baseline snapshot.
func (m *MemoryStore) SaveBaseline(_ context.Context, athlete string, baseline readiness.Baseline) error {
	payload, err := encodeBaseline(baseline)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[athlete] = payload
	return nil
}

// LoadBaseline reads the athlete's baseline snapshot.
func (m *MemoryStore) LoadBaseline(_ context.Context, athlete string) (readiness.Baseline, error) {
	m.mu.RLock()
	payload, ok := m.baselines[athlete]
	m.mu.RUnlock()
	if !ok {
		return readiness.Baseline{}, ErrNoBaseline
	}
	return decodeBaseline(payload)
}

// UpsertDecision persists or replaces the decision of a day.
func (m *MemoryStore) UpsertDecision(_ context.Context, rec DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Day = dayOf(rec.Day)
	rec.CreatedAt = m.now().UTC()
	if m.decisions[rec.Athlete] == nil {
		m.decisions[rec.Athlete] = make(map[time.Time]DecisionRecord)
	}
	m.decisions[rec.Athlete][rec.Day] = rec
	return nil
}

// ListDecisionsBetween lists decisions with from <= day < to, oldest first.
func (m *MemoryStore) ListDecisionsBetween(_ context.Context, athlete string, from, to time.Time) ([]DecisionRecord, error) {
	from, to = dayOf(from), dayOf(to)
	records := make([]DecisionRecord, 0)
	for _, rec := range m.sortedDecisions(athlete) {
		if !rec.Day.Before(from) && rec.Day.Before(to) {
			records = append(records, rec)
		}
	}
	return records, nil
}

// ListRecentDecisions lists the most recent decisions ordered by descending day.
func (m *MemoryStore) ListRecentDecisions(_ context.Context, athlete string, limit int) ([]DecisionRecord, error) {
	sorted := m.sortedDecisions(athlete)
	records := make([]DecisionRecord, 0, limit)
	for i := len(sorted) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, sorted[i])
	}
	return records, nil
}

// CountDecisions counts stored decisions of the athlete.
func (m *MemoryStore) CountDecisions(_ context.Context, athlete string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.decisions[athlete])), nil
}

// InsertAlert records an alert unless one of the same kind exists for the day.
func (m *MemoryStore) InsertAlert(_ context.Context, alert AlertRecord) (AlertRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert.Day = dayOf(alert.Day)
	for _, existing := range m.alerts {
		if existing.Athlete == alert.Athlete && existing.Day.Equal(alert.Day) && existing.Kind == alert.Kind {
			return AlertRecord{}, false, nil
		}
	}
	m.nextID++
	alert.ID = m.nextID
	alert.CreatedAt = m.now().UTC()
	m.alerts = append(m.alerts, alert)
	return alert, true, nil
}

// ListRecentAlerts lists most recent alerts.
func (m *MemoryStore) ListRecentAlerts(_ context.Context, athlete string, limit int) ([]AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	alerts := make([]AlertRecord, 0, limit)
	for i := len(m.alerts) - 1; i >= 0 && len(alerts) < limit; i-- {
		if m.alerts[i].Athlete == athlete {
			alerts = append(alerts, m.alerts[i])
		}
	}
	return alerts, nil
}

func (m *MemoryStore) sortedDecisions(athlete string) []DecisionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]DecisionRecord, 0, len(m.decisions[athlete]))
	for _, rec := range m.decisions[athlete] {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Day.Before(records[j].Day) })
	return records
}
