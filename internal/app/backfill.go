package app

import (
	"context"
	"errors"
	"time"
)

// Backfill recomputes decisions for every day in [From, To]. Backfilled days
// never raise alerts and leave the stored baseline untouched.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	loc := a.location()
	start := calendarDay(opts.From, loc)
	end := calendarDay(opts.To, loc)
	if end.Before(start) {
		return errors.New("backfill range is empty; check --from/--to")
	}

	deps := serviceDeps{historical: true}
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be written")
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		deps.store = store
	}
	svc := a.newService(deps)

	processed := 0
	failed := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var err error
		if opts.DryRun {
			_, err = svc.Evaluate(ctx, day)
		} else {
			_, err = svc.ProcessDay(ctx, day)
		}
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Time("day", day).Msg("backfill day failed")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("backfill complete")
	if failed > 0 {
		return errors.New("some days failed to backfill; check the logs")
	}
	return nil
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
