package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"adaptive-coach/internal/readiness"
)

func sampleNote() Notification {
	return Notification{
		Athlete:       "i42",
		Day:           time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		Kind:          KindIllness,
		Severity:      readiness.IllnessHigh,
		Headline:      "Strong illness pattern over 2 consecutive days",
		FinalModifier: decimal.NewFromFloat(0),
		Recovery:      "Red (Strained)",
		Illness:       readiness.IllnessHigh,
		Symptoms:      []string{"Resting HR elevated (+1.7 SD)"},
		Guidance:      "Complete rest",
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Errorf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id = %#v", received)
	}
	text := received["text"]
	for _, want := range []string{"Strong illness pattern", "Fri 2026-03-20", "Intensity: 0% of plan", "- Resting HR elevated"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("ok=false should fail")
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, Notification) error {
	f.calls++
	return errors.New("boom")
}

func TestFanoutCallsEveryNotifier(t *testing.T) {
	first, second := &failingNotifier{}, &failingNotifier{}
	err := Fanout{first, NewLogNotifier(testLogger()), second}.Notify(context.Background(), sampleNote())
	if err == nil || first.calls != 1 || second.calls != 1 {
		t.Fatalf("err=%v calls=%d/%d", err, first.calls, second.calls)
	}
}

func TestEvaluate(t *testing.T) {
	d := readiness.Decision{
		Date:          time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		FinalModifier: 0.5,
		Recovery:      readiness.RecoveryStatus{Category: readiness.RecoveryYellow, Label: "Yellow (Recovering)"},
		Illness:       readiness.IllnessAssessment{Probability: readiness.IllnessPossible},
	}
	if notes := Evaluate("i42", d, nil); len(notes) != 0 {
		t.Fatalf("possible illness should not alert: %+v", notes)
	}

	d.Illness = readiness.IllnessAssessment{Probability: readiness.IllnessLikely, Recommendation: "Illness pattern likely", Symptoms: []string{"x"}}
	d.Recovery = readiness.RecoveryStatus{Category: readiness.RecoveryRed, Label: "Red (Strained)", Reason: "recovery score 20%"}
	notes := Evaluate("i42", d, []string{"telegram"})
	if len(notes) != 2 {
		t.Fatalf("got %d alerts, want 2", len(notes))
	}
	if notes[0].Kind != KindIllness || notes[0].Severity != readiness.IllnessLikely || notes[0].Headline != "Illness pattern likely" {
		t.Fatalf("illness alert = %+v", notes[0])
	}
	if notes[1].Kind != KindRecovery || !notes[1].FinalModifier.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("recovery alert = %+v", notes[1])
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
