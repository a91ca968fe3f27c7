package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"adaptive-coach/internal/config"
	"adaptive-coach/internal/storage"
)

func intervalsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/athlete/i42/wellness", func(w http.ResponseWriter, r *http.Request) {
		newest, err := time.Parse("2006-01-02", r.URL.Query().Get("newest"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows := make([]map[string]any, 0, 21)
		for i := 0; i < 21; i++ {
			swing := float64((i+1)%3 - 1)
			rows = append(rows, map[string]any{
				"id":        newest.AddDate(0, 0, -i).Format("2006-01-02"),
				"sleepSecs": 7.5 * 3600,
				"hrv":       60 + swing*4,
				"restingHR": 50 - swing*2,
				"readiness": 70,
			})
		}
		_ = json.NewEncoder(w).Encode(rows)
	})
	mux.HandleFunc("/athlete/i42/wellness/", func(w http.ResponseWriter, r *http.Request) {
		day := strings.TrimPrefix(r.URL.Path, "/athlete/i42/wellness/")
		fmt.Fprintf(w, `{"id":%q,"ctl":55,"atl":60,"rampRate":2}`, day)
	})
	mux.HandleFunc("/athlete/i42/activities", func(w http.ResponseWriter, r *http.Request) {
		newest := r.URL.Query().Get("newest")
		fmt.Fprintf(w, `[{"id":"a1","type":"Ride","start_date_local":"%sT07:00:00","icu_training_load":65}]`, newest)
	})
	mux.HandleFunc("/athlete/i42/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, env map[string]string) (*App, *bytes.Buffer) {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("COACHD_INTERVALS_ATHLETE_ID", "i42")
	t.Setenv("COACHD_INTERVALS_API_KEY", "secret")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	var out bytes.Buffer
	a := NewApp(cfg, zerolog.Nop())
	a.Out = &out
	return a, &out
}

func TestBackfillShowExport(t *testing.T) {
	srv := intervalsServer(t)
	dir := t.TempDir()
	a, out := newTestApp(t, map[string]string{
		"COACHD_INTERVALS_BASE_URL": srv.URL,
		"COACHD_DATABASE_PATH":      filepath.Join(dir, "coach.db"),
	})
	ctx := context.Background()

	from := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	if err := a.Backfill(ctx, BackfillOptions{From: from, To: to}); err != nil {
		t.Fatalf("backfill: %v", err)
	}

	if err := a.Show(ctx, ShowOptions{Limit: 10}); err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, day := range []string{"2026-03-18", "2026-03-19", "2026-03-20"} {
		if !strings.Contains(out.String(), day) {
			t.Fatalf("show output missing %q:\n%s", day, out.String())
		}
	}

	out.Reset()
	if err := a.ShowBaseline(ctx); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if !strings.Contains(out.String(), "no baseline stored yet") {
		t.Fatalf("backfill should not store a baseline:\n%s", out.String())
	}

	if err := a.Decide(ctx, DecideOptions{Day: time.Now()}); err != nil {
		t.Fatalf("decide today: %v", err)
	}
	out.Reset()
	if err := a.ShowBaseline(ctx); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if !strings.Contains(out.String(), "HRV (ms)") {
		t.Fatalf("baseline output:\n%s", out.String())
	}

	csvPath := filepath.Join(dir, "out", "decisions.csv")
	end := to.AddDate(0, 0, 1)
	if err := a.Export(ctx, ExportOptions{From: &from, To: &end, CSVPath: csvPath}); err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "day,final_modifier") {
		t.Fatalf("csv =\n%s", raw)
	}
}

func TestBackfillRejectsReversedRange(t *testing.T) {
	a, _ := newTestApp(t, map[string]string{"COACHD_DATABASE_DRIVER": "memory"})
	err := a.Backfill(context.Background(), BackfillOptions{
		From: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected error for reversed range")
	}
}

func TestSimulateAlert(t *testing.T) {
	a, out := newTestApp(t, map[string]string{
		"COACHD_DATABASE_DRIVER":   "memory",
		"COACHD_ALERTING_ENABLED":  "true",
		"COACHD_ALERTING_CHANNELS": "log",
	})

	if err := a.SimulateAlert(context.Background(), "recovery"); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if !strings.Contains(out.String(), "sent recovery alert") {
		t.Fatalf("output = %q", out.String())
	}

	if err := a.SimulateAlert(context.Background(), "bogus"); err == nil {
		t.Fatal("unknown kind should fail")
	}
}

func TestSimulateAlertRequiresAlerting(t *testing.T) {
	a, _ := newTestApp(t, map[string]string{"COACHD_DATABASE_DRIVER": "memory"})
	if err := a.SimulateAlert(context.Background(), "recovery"); err == nil {
		t.Fatal("expected error when alerting is disabled")
	}
}

func TestDownsampleDecisionsKeepsEnds(t *testing.T) {
	recs := make([]storage.DecisionRecord, 10)
	for i := range recs {
		recs[i].Day = time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC)
	}

	got := downsampleDecisions(recs, 4)
	if len(got) != 4 || !got[0].Day.Equal(recs[0].Day) || !got[3].Day.Equal(recs[9].Day) {
		t.Fatalf("downsampled = %v", got)
	}
	if len(downsampleDecisions(recs, 0)) != 10 {
		t.Fatal("zero max should keep everything")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
