package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"adaptive-coach/internal/readiness"
	"adaptive-coach/internal/service"
)

// Decide runs one decision cycle for a day and prints the result. A dry run
// fetches and decides without persisting or alerting.
func (a *App) Decide(ctx context.Context, opts DecideOptions) error {
	loc := a.location()
	deps := serviceDeps{historical: calendarDay(opts.Day, loc).Before(calendarDay(time.Now(), loc))}
	if !opts.DryRun {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		deps.store = store
		deps.notifier = a.newNotifier()
		deps.alerts = a.Config.Alerting.Enabled && deps.notifier != nil
	}
	svc := a.newService(deps)

	var (
		res service.Result
		err error
	)
	if opts.DryRun {
		res, err = svc.Evaluate(ctx, opts.Day)
	} else {
		res, err = svc.ProcessDay(ctx, opts.Day)
	}
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Decision)
	}
	return a.printDecision(res)
}

func (a *App) printDecision(res service.Result) error {
	d := res.Decision
	w := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Day\t%s\n", res.Day.Format("Mon 2006-01-02"))
	fmt.Fprintf(w, "Run\t%s (%s)\n", res.RunID, res.Status)
	fmt.Fprintf(w, "Final modifier\t%.2f\n", d.FinalModifier)
	fmt.Fprintf(w, "Intensity\t%.2f (%s confidence)\n", d.Intensity.Modifier, d.Intensity.Confidence)
	fmt.Fprintf(w, "HRV\t%s\n", describeDeviation(d.HRV))
	fmt.Fprintf(w, "Resting HR\t%s\n", describeDeviation(d.RHR))
	fmt.Fprintf(w, "Recovery\t%s [%s]\n", d.Recovery.Label, d.Recovery.Source)
	fmt.Fprintf(w, "Illness\t%s (%d day(s)) %s\n", d.Illness.Probability, d.Illness.ConsecutiveDays, d.Illness.Recommendation)
	fmt.Fprintf(w, "Training gap\t%d day(s): %s x%.2f [%s]\n", d.Gap.GapDays, d.Gap.Interpretation, d.Gap.IntensityModifier, d.Gap.Source)
	if d.Fitness != nil {
		fmt.Fprintf(w, "Fitness\tCTL %.1f  ATL %.1f  TSB %.1f (%s)\n", d.Fitness.CTL, d.Fitness.ATL, d.Fitness.TSB, readiness.FormDescription(d.Fitness.TSB))
	}
	if d.Phase != nil {
		fmt.Fprintf(w, "Phase\t%s, %.0f week(s) out: %s\n", d.Phase.Name, d.Phase.WeeksOut, d.Phase.Focus)
	}
	fmt.Fprintf(w, "Weekly TSS\t%.0f (%.0f-%.0f), ramp %s\n", d.Load.RecommendedWeeklyTSS, d.Load.TSSRange.Min, d.Load.TSSRange.Max, d.Load.RampRateAdvice)
	if d.Load.Warning != "" {
		fmt.Fprintf(w, "Warning\t%s\n", d.Load.Warning)
	}
	if len(res.Problems) > 0 {
		fmt.Fprintf(w, "Degraded\t%s\n", strings.Join(res.Problems, "; "))
	}
	for _, note := range res.Alerts {
		fmt.Fprintf(w, "Alert\t%s (%s)\n", note.Kind, note.Severity)
	}
	return w.Flush()
}

func describeDeviation(d readiness.DeviationResult) string {
	if !d.Available {
		return "unavailable"
	}
	return fmt.Sprintf("%s (z %+.2f, %+.1f%%)", d.Status, d.ZScore, d.DeviationPercent)
}
