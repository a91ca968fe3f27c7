package readiness

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"adaptive-coach/internal/stats"
)

const (
	// MinBaselineSamples is the minimum number of records (and of non-null
	// samples per metric) required before a 30-day mean is trusted.
	MinBaselineSamples = 7

	baselineLongWindow  = 30
	baselineShortWindow = 7

	// fallbackStdDevRatio stands in for a missing standard deviation.
	fallbackStdDevRatio = 0.1
)

// ErrInsufficientData marks a computation that lacked the minimum samples.
var ErrInsufficientData = errors.New("readiness: insufficient data")

// MetricBaseline summarises one metric over the rolling windows.
type MetricBaseline struct {
	Mean30d     *float64 `json:"mean_30d"`
	StdDev30d   *float64 `json:"std_dev_30d"`
	Mean7d      *float64 `json:"mean_7d"`
	Min30d      *float64 `json:"min_30d"`
	Max30d      *float64 `json:"max_30d"`
	SampleCount int      `json:"sample_count"`
}

// EffectiveStdDev returns the deviation used in z-score math.
// A missing or zero deviation falls back to 10% of the mean.
func (b MetricBaseline) EffectiveStdDev() (float64, bool) {
	if b.Mean30d == nil {
		return 0, false
	}
	if b.StdDev30d != nil && *b.StdDev30d > 0 {
		return *b.StdDev30d, true
	}
	fallback := *b.Mean30d * fallbackStdDevRatio
	if fallback <= 0 {
		return 0, false
	}
	return fallback, true
}

// Baseline is the athlete's current personal baseline snapshot.
type Baseline struct {
	HRV          MetricBaseline `json:"hrv"`
	RHR          MetricBaseline `json:"rhr"`
	CalculatedAt time.Time      `json:"calculated_at"`
}

// For returns the baseline of the given metric.
func (b *Baseline) For(metric Metric) MetricBaseline {
	if b == nil {
		return MetricBaseline{}
	}
	if metric == MetricRHR {
		return b.RHR
	}
	return b.HRV
}

// BaselineRepository persists the single current baseline snapshot.
// LoadBaseline returns (nil, nil) when nothing has been stored yet.
type BaselineRepository interface {
	LoadBaseline(ctx context.Context) (*Baseline, error)
	SaveBaseline(ctx context.Context, baseline Baseline) error
}

// BaselineOptions tune BaselineStore.
type BaselineOptions struct {
	// MaxAge bounds how old a stored snapshot may be when read through
	// Current. Zero disables the freshness check.
	MaxAge time.Duration
	Now    func() time.Time
}

// BaselineStore computes rolling baselines and keeps the latest snapshot.
type BaselineStore struct {
	repo   BaselineRepository
	opts   BaselineOptions
	logger zerolog.Logger
}

// NewBaselineStore wires a repository into a BaselineStore. repo may be nil,
// in which case snapshots are computed but not persisted.
func NewBaselineStore(repo BaselineRepository, opts BaselineOptions, logger zerolog.Logger) *BaselineStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BaselineStore{
		repo:   repo,
		opts:   opts,
		logger: logger.With().Str("component", "baseline_store").Logger(),
	}
}

// Compute derives a new baseline from records and persists it, replacing
// any previous snapshot. It returns nil when fewer than seven records exist.
func (s *BaselineStore) Compute(ctx context.Context, records []WellnessRecord) *Baseline {
	baseline, err := ComputeBaseline(records, s.opts.Now())
	if err != nil {
		s.logger.Info().Int("records", len(records)).Msg("baseline skipped: insufficient data")
		return nil
	}

	if s.repo != nil {
		if err := s.repo.SaveBaseline(ctx, *baseline); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist baseline")
		}
	}

	s.logger.Debug().
		Int("hrv_samples", baseline.HRV.SampleCount).
		Int("rhr_samples", baseline.RHR.SampleCount).
		Msg("baseline recomputed")
	return baseline
}

// Current returns the stored snapshot, or nil when none exists, it cannot be
// read, or it is older than MaxAge.
func (s *BaselineStore) Current(ctx context.Context) *Baseline {
	if s.repo == nil {
		return nil
	}
	baseline, err := s.repo.LoadBaseline(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load baseline")
		return nil
	}
	if baseline == nil {
		return nil
	}
	if s.opts.MaxAge > 0 && s.opts.Now().Sub(baseline.CalculatedAt) > s.opts.MaxAge {
		s.logger.Info().Time("calculated_at", baseline.CalculatedAt).Msg("stored baseline is stale")
		return nil
	}
	return baseline
}

// ComputeBaseline is the pure computation behind BaselineStore.Compute.
func ComputeBaseline(records []WellnessRecord, now time.Time) (*Baseline, error) {
	if len(records) < MinBaselineSamples {
		return nil, ErrInsufficientData
	}

	sorted := newestFirst(records)
	long := sorted[:min(baselineLongWindow, len(sorted))]
	short := sorted[:min(baselineShortWindow, len(sorted))]

	hrv := func(r WellnessRecord) *float64 { return r.HRV }
	rhr := func(r WellnessRecord) *float64 { return r.RestingHR }

	return &Baseline{
		HRV:          metricBaseline(long, short, hrv),
		RHR:          metricBaseline(long, short, rhr),
		CalculatedAt: now.UTC(),
	}, nil
}

func metricBaseline(long, short []WellnessRecord, pick func(WellnessRecord) *float64) MetricBaseline {
	longVals := stats.Positive(column(long, pick))
	shortVals := stats.Positive(column(short, pick))

	b := MetricBaseline{SampleCount: len(longVals)}
	if len(longVals) >= MinBaselineSamples {
		b.Mean30d = stats.Ptr(stats.Average(longVals))
	}
	b.StdDev30d = stats.Ptr(stats.StdDev(longVals))
	b.Min30d = stats.Ptr(stats.Min(longVals))
	b.Max30d = stats.Ptr(stats.Max(longVals))
	b.Mean7d = stats.Ptr(stats.Average(shortVals))
	return b
}

func column(records []WellnessRecord, pick func(WellnessRecord) *float64) []*float64 {
	out := make([]*float64, len(records))
	for i, r := range records {
		out[i] = pick(r)
	}
	return out
}

// newestFirst returns a copy of records ordered by descending date.
func newestFirst(records []WellnessRecord) []WellnessRecord {
	sorted := make([]WellnessRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted
}
