package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"adaptive-coach/internal/readiness"
	"adaptive-coach/internal/storage"
)

// ShowBaseline prints the stored baseline snapshot of the athlete.
func (a *App) ShowBaseline(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	baseline, err := store.LoadBaseline(ctx, a.athlete())
	if errors.Is(err, storage.ErrNoBaseline) {
		fmt.Fprintln(a.Out, "no baseline stored yet; run decide or backfill first")
		return nil
	}
	if err != nil {
		return err
	}

	age := humanize.Time(baseline.CalculatedAt)
	if a.Config.Engine.BaselineMaxAge > 0 && time.Since(baseline.CalculatedAt) > a.Config.Engine.BaselineMaxAge {
		age += " (stale)"
	}
	fmt.Fprintf(a.Out, "Baseline for athlete %s, calculated %s\n\n", a.athlete(), age)

	w := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Metric\t7d mean\t30d mean\tStd dev\t30d range\tSamples")
	writeMetric(w, "HRV (ms)", baseline.HRV)
	writeMetric(w, "Resting HR (bpm)", baseline.RHR)
	return w.Flush()
}

func writeMetric(w *tabwriter.Writer, name string, m readiness.MetricBaseline) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s-%s\t%s\n",
		name,
		optional(m.Mean7d),
		optional(m.Mean30d),
		optional(m.StdDev30d),
		optional(m.Min30d),
		optional(m.Max30d),
		humanize.Comma(int64(m.SampleCount)),
	)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return humanize.FormatFloat("#,###.#", *v)
}
