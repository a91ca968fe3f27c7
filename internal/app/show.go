package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
)

// Show prints recent decisions, a trend of the final modifier and recent
// alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	decisions, err := store.ListRecentDecisions(ctx, a.athlete(), opts.Limit)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		fmt.Fprintln(a.Out, "no decisions found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Day\tFinal\tIntensity\tGap\tConfidence\tRecovery\tIllness\tGap Reason\tPhase\tStatus\tError")
	for _, rec := range decisions {
		errMsg := ""
		if rec.Error != nil {
			errMsg = sanitizeInline(*rec.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Day.Format("2006-01-02"),
			rec.FinalModifier.StringFixed(2),
			rec.IntensityModifier.StringFixed(2),
			rec.GapModifier.StringFixed(2),
			rec.Confidence,
			rec.Recovery,
			rec.IllnessProbability,
			rec.GapInterpretation,
			orDash(rec.Phase),
			rec.Status,
			errMsg,
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	// Oldest first for the plot.
	series := make([]float64, len(decisions))
	for i, rec := range decisions {
		series[len(decisions)-1-i] = rec.FinalModifier.InexactFloat64()
	}
	if varies(series) {
		graph := asciigraph.Plot(series,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Precision(2),
			asciigraph.Caption("final modifier"),
		)
		fmt.Fprintf(a.Out, "\n%s\n", graph)
	}

	alerts, err := store.ListRecentAlerts(ctx, a.athlete(), opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) > 0 {
		fmt.Fprintln(a.Out, "\nRecent alerts:")
		for _, alert := range alerts {
			fmt.Fprintf(a.Out, "  %s  %-8s  %-9s  %s\n", alert.Day.Format("2006-01-02"), alert.Kind, alert.Severity, strings.Join(alert.Channels, ","))
		}
	}
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func varies(series []float64) bool {
	for _, v := range series[1:] {
		if v != series[0] {
			return true
		}
	}
	return false
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
