package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"adaptive-coach/internal/storage"
)

const defaultExportDays = 90

// Export renders historical decisions as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	loc := a.location()
	to := calendarDay(time.Now(), loc).AddDate(0, 0, 1)
	if opts.To != nil {
		to = calendarDay(*opts.To, loc)
	}

	from := to.AddDate(0, 0, -defaultExportDays)
	if opts.From != nil {
		from = calendarDay(*opts.From, loc)
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	decisions, err := store.ListDecisionsBetween(ctx, a.athlete(), from, to)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		a.Logger.Info().Msg("no decisions found for export window")
		return nil
	}

	downsampled := downsampleDecisions(decisions, opts.MaxPoints)
	a.Logger.Info().Int("total", len(decisions)).Int("exported", len(downsampled)).Msg("exporting decisions")

	if opts.CSVPath != "" {
		if err := writeDecisionsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeDecisionsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleDecisions(decisions []storage.DecisionRecord, max int) []storage.DecisionRecord {
	if max <= 0 || len(decisions) <= max {
		return decisions
	}
	if max == 1 {
		return decisions[len(decisions)-1:]
	}

	result := make([]storage.DecisionRecord, 0, max)
	step := float64(len(decisions)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(decisions) {
			idx = len(decisions) - 1
		}
		result = append(result, decisions[idx])
	}
	return result
}

func writeDecisionsCSV(path string, decisions []storage.DecisionRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"day", "final_modifier", "intensity_modifier", "gap_modifier", "confidence", "recovery", "illness_probability", "gap_interpretation", "phase", "status", "run_id", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range decisions {
		errMsg := ""
		if rec.Error != nil {
			errMsg = *rec.Error
		}
		row := []string{
			rec.Day.Format("2006-01-02"),
			rec.FinalModifier.StringFixed(2),
			rec.IntensityModifier.StringFixed(2),
			rec.GapModifier.StringFixed(2),
			rec.Confidence,
			rec.Recovery,
			rec.IllnessProbability,
			rec.GapInterpretation,
			rec.Phase,
			rec.Status,
			rec.RunID.String(),
			errMsg,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeDecisionsPNG(path string, decisions []storage.DecisionRecord) error {
	if len(decisions) < 2 {
		return errors.New("at least two decisions are needed for a chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(decisions))
	final := make([]float64, len(decisions))
	intensity := make([]float64, len(decisions))
	gap := make([]float64, len(decisions))

	for i, rec := range decisions {
		x[i] = rec.Day
		final[i] = rec.FinalModifier.InexactFloat64()
		intensity[i] = rec.IntensityModifier.InexactFloat64()
		gap[i] = rec.GapModifier.InexactFloat64()
	}

	modifierFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Modifier",
			ValueFormatter: modifierFormatter,
			Range:          &chart.ContinuousRange{Min: 0, Max: 1.1},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Final",
				XValues: x,
				YValues: final,
			},
			chart.TimeSeries{
				Name:    "Recovery intensity",
				XValues: x,
				YValues: intensity,
			},
			chart.TimeSeries{
				Name:    "Training gap",
				XValues: x,
				YValues: gap,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
