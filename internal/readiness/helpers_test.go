package readiness

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

func floatPtr(v float64) *float64 { return &v }

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

var refDay = time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

// history builds n newest-first records ending at refDay.
func history(n int, fill func(i int, r *WellnessRecord)) []WellnessRecord {
	out := make([]WellnessRecord, n)
	for i := range out {
		out[i] = WellnessRecord{Date: refDay.AddDate(0, 0, -i), SleepHours: 7.5}
		if fill != nil {
			fill(i, &out[i])
		}
	}
	return out
}

type memRepo struct {
	baseline *Baseline
	saves    int
	loadErr  error
	saveErr  error
}

func (m *memRepo) LoadBaseline(context.Context) (*Baseline, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.baseline == nil {
		return nil, nil
	}
	b := *m.baseline
	return &b, nil
}

func (m *memRepo) SaveBaseline(_ context.Context, b Baseline) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.baseline = &b
	return nil
}

// stubEnhancer returns a fixed payload or error per kind.
type stubEnhancer struct {
	payloads map[string]string
	err      error
	calls    []string
}

func (s *stubEnhancer) Assess(_ context.Context, kind string, _ any) (json.RawMessage, error) {
	s.calls = append(s.calls, kind)
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.payloads[kind]
	if !ok {
		return nil, nil
	}
	return json.RawMessage(p), nil
}

var errEnhance = errors.New("enhancement unavailable")
