package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adaptive-coach/internal/alerting"
	"adaptive-coach/internal/fetcher"
	"adaptive-coach/internal/readiness"
	"adaptive-coach/internal/storage"
)

// SimulateAlert runs a full decision cycle over synthetic wellness data
// shaped to trigger the given alert kind and dispatches the resulting alerts
// through the configured channels. Nothing is persisted.
func (a *App) SimulateAlert(ctx context.Context, kind string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	today := calendarDay(time.Now(), a.location())
	src, err := syntheticSource(kind, today)
	if err != nil {
		return err
	}

	svc := a.newService(serviceDeps{
		source:   src,
		store:    storage.NewMemoryStore(),
		notifier: notifier,
		alerts:   true,
	})

	res, err := svc.ProcessDay(ctx, today)
	if err != nil {
		return err
	}
	if len(res.Alerts) == 0 {
		return fmt.Errorf("simulated %s data raised no alert (recovery %s, illness %s)", kind, res.Decision.Recovery.Label, res.Decision.Illness.Probability)
	}
	for _, note := range res.Alerts {
		fmt.Fprintf(a.Out, "sent %s alert (%s) to %v\n", note.Kind, note.Severity, note.Channels)
	}
	return nil
}

// staticSource serves fixed data to the decision cycle.
type staticSource struct {
	wellness   []readiness.WellnessRecord
	activities []readiness.Activity
}

var _ fetcher.Source = (*staticSource)(nil)

func (s *staticSource) FetchWellness(context.Context, time.Time, time.Time) ([]readiness.WellnessRecord, error) {
	return s.wellness, nil
}

func (s *staticSource) FetchFitness(context.Context, time.Time) (*readiness.FitnessMetrics, error) {
	return nil, nil
}

func (s *staticSource) FetchActivities(context.Context, time.Time, time.Time) ([]readiness.Activity, error) {
	return s.activities, nil
}

func (s *staticSource) FetchNextGoal(context.Context, time.Time) (*readiness.Goal, error) {
	return nil, nil
}

// syntheticSource builds three weeks of steady history and then bends the
// most recent days into the requested alert pattern.
func syntheticSource(kind string, today time.Time) (*staticSource, error) {
	if kind != alerting.KindIllness && kind != alerting.KindRecovery {
		return nil, fmt.Errorf("unknown alert kind %q (want %s or %s)", kind, alerting.KindIllness, alerting.KindRecovery)
	}

	wellness := make([]readiness.WellnessRecord, 21)
	for i := range wellness {
		swing := float64((i+1)%3 - 1)
		wellness[i] = readiness.WellnessRecord{
			Date:          today.AddDate(0, 0, -i),
			SleepHours:    7.5,
			HRV:           ptr(62 + swing*4),
			RestingHR:     ptr(50 - swing*2),
			RecoveryScore: ptr(72),
		}
	}

	switch kind {
	case alerting.KindRecovery:
		wellness[0].RecoveryScore = ptr(18)
	case alerting.KindIllness:
		for i := 0; i < 3; i++ {
			wellness[i].HRV = ptr(44)
			wellness[i].RestingHR = ptr(60)
			wellness[i].SleepHours = 5.2
			wellness[i].RecoveryScore = ptr(22)
			wellness[i].SkinTempDeltaC = ptr(0.9)
		}
	}

	activities := []readiness.Activity{
		{ID: "sim-1", Type: "Ride", StartDate: today.AddDate(0, 0, -1), TrainingLoad: 70},
	}
	return &staticSource{wellness: wellness, activities: activities}, nil
}

func ptr(v float64) *float64 { return &v }
