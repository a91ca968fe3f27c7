package fetcher

import (
	"context"
	"time"

	"adaptive-coach/internal/readiness"
)

// WellnessFetcher retrieves daily wellness records, newest first.
type WellnessFetcher interface {
	FetchWellness(ctx context.Context, oldest, newest time.Time) ([]readiness.WellnessRecord, error)
}

// FitnessFetcher retrieves CTL/ATL/TSB for a day.
type FitnessFetcher interface {
	FetchFitness(ctx context.Context, day time.Time) (*readiness.FitnessMetrics, error)
}

// ActivityFetcher retrieves completed activities.
type ActivityFetcher interface {
	FetchActivities(ctx context.Context, oldest, newest time.Time) ([]readiness.Activity, error)
}

// GoalFetcher retrieves the next goal event on or after from. It returns
// nil without error when no goal is planned.
type GoalFetcher interface {
	FetchNextGoal(ctx context.Context, from time.Time) (*readiness.Goal, error)
}

// Source bundles all fetchers the decision cycle needs.
type Source interface {
	WellnessFetcher
	FitnessFetcher
	ActivityFetcher
	GoalFetcher
}
