package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adaptive-coach/internal/readiness"
)

// AthleteBaselines binds a BaselineSnapshots backend to one athlete so it can
// serve as the engine's baseline repository.
type AthleteBaselines struct {
	snapshots BaselineSnapshots
	athlete   string
}

var _ readiness.BaselineRepository = (*AthleteBaselines)(nil)

// NewAthleteBaselines scopes snapshots to athlete.
func NewAthleteBaselines(snapshots BaselineSnapshots, athlete string) *AthleteBaselines {
	return &AthleteBaselines{snapshots: snapshots, athlete: athlete}
}

// LoadBaseline returns the stored snapshot, or nil when none exists.
func (a *AthleteBaselines) LoadBaseline(ctx context.Context) (*readiness.Baseline, error) {
	if a == nil || a.snapshots == nil {
		return nil, ErrNotConfigured
	}
	baseline, err := a.snapshots.LoadBaseline(ctx, a.athlete)
	if errors.Is(err, ErrNoBaseline) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &baseline, nil
}

// SaveBaseline replaces the stored snapshot.
func (a *AthleteBaselines) SaveBaseline(ctx context.Context, baseline readiness.Baseline) error {
	if a == nil || a.snapshots == nil {
		return ErrNotConfigured
	}
	return a.snapshots.SaveBaseline(ctx, a.athlete, baseline)
}

func encodeBaseline(baseline readiness.Baseline) ([]byte, error) {
	payload, err := json.Marshal(baseline)
	if err != nil {
		return nil, fmt.Errorf("encode baseline: %w", err)
	}
	return payload, nil
}

func decodeBaseline(payload []byte) (readiness.Baseline, error) {
	var baseline readiness.Baseline
	if err := json.Unmarshal(payload, &baseline); err != nil {
		return readiness.Baseline{}, fmt.Errorf("decode baseline: %w", err)
	}
	return baseline, nil
}
