package readiness

import (
	"context"
	"testing"
	"time"
)

func newTestEngine(repo BaselineRepository, e Enhancer) *Engine {
	store := NewBaselineStore(repo, BaselineOptions{Now: func() time.Time { return refDay }}, testLogger())
	return NewEngine(store, e, EngineOptions{}, testLogger())
}

func TestDecideWithoutData(t *testing.T) {
	d := newTestEngine(nil, nil).Decide(context.Background(), Inputs{Today: refDay})

	if d.Baseline != nil {
		t.Fatalf("unexpected baseline %+v", d.Baseline)
	}
	if d.Intensity.Modifier != 1.0 || d.Intensity.Confidence != ConfidenceLow {
		t.Fatalf("intensity = %+v", d.Intensity)
	}
	if d.Recovery.Category != RecoveryYellow {
		t.Fatalf("recovery = %+v", d.Recovery)
	}
	if d.Illness.Probability != IllnessNone {
		t.Fatalf("illness = %+v", d.Illness)
	}
	if d.Gap.GapDays != DefaultGapLookbackDays || d.Gap.Interpretation != GapUnknown || d.Gap.IntensityModifier != 0.72 {
		t.Fatalf("gap = %+v", d.Gap)
	}
	if d.Phase != nil {
		t.Fatalf("phase without goal = %+v", d.Phase)
	}
	if d.FinalModifier != 0.72 {
		t.Fatalf("final modifier = %v, want 0.72", d.FinalModifier)
	}
}

func TestDecideUsesStoredBaseline(t *testing.T) {
	repo := &memRepo{baseline: &Baseline{
		HRV:          MetricBaseline{Mean30d: floatPtr(50), StdDev30d: floatPtr(10)},
		CalculatedAt: refDay,
	}}
	in := Inputs{
		Today:      refDay,
		Wellness:   []WellnessRecord{{Date: refDay, SleepHours: 8, HRV: floatPtr(40)}},
		Activities: []Activity{{Type: "Ride", StartDate: refDay.AddDate(0, 0, -1), TrainingLoad: 70}},
	}
	d := newTestEngine(repo, nil).Decide(context.Background(), in)

	if d.Baseline == nil || repo.saves != 0 {
		t.Fatalf("expected stored baseline to be read, saves=%d", repo.saves)
	}
	if d.HRV.Status != StatusBelowBaseline {
		t.Fatalf("hrv = %+v", d.HRV)
	}
	if d.Intensity.Modifier != 0.82 || d.Intensity.Confidence != ConfidenceMedium {
		t.Fatalf("intensity = %+v", d.Intensity)
	}
	if d.Recovery.Category != RecoveryRed {
		t.Fatalf("recovery = %+v", d.Recovery)
	}
	if d.Gap.Interpretation != GapNormal {
		t.Fatalf("gap = %+v", d.Gap)
	}
	if d.FinalModifier != 0.82 {
		t.Fatalf("final modifier = %v", d.FinalModifier)
	}
}

func TestDecideIllnessZeroesModifier(t *testing.T) {
	var records []WellnessRecord
	for i := 0; i < 30; i++ {
		r := WellnessRecord{Date: refDay.AddDate(0, 0, -i), SleepHours: 7.5}
		switch {
		case i < 2:
			r.HRV, r.RestingHR, r.RespiratoryRate = floatPtr(30), floatPtr(70), floatPtr(19)
		case i%2 == 0:
			r.HRV, r.RestingHR = floatPtr(48), floatPtr(54)
		default:
			r.HRV, r.RestingHR = floatPtr(52), floatPtr(56)
		}
		records = append(records, r)
	}

	repo := &memRepo{}
	in := Inputs{
		Today:      refDay,
		Wellness:   records,
		Fitness:    &FitnessMetrics{Date: refDay, CTL: 60, ATL: 70, TSB: -10},
		Goal:       &Goal{Date: refDay.AddDate(0, 0, 140), Name: "Spring Classic"},
		Activities: []Activity{{Type: "Ride", StartDate: refDay.AddDate(0, 0, -2)}},
	}
	d := newTestEngine(repo, nil).Decide(context.Background(), in)

	if repo.saves != 1 {
		t.Fatalf("baseline saves = %d, want 1", repo.saves)
	}
	if d.Illness.Probability != IllnessHigh || !d.Illness.Detected {
		t.Fatalf("illness = %+v", d.Illness)
	}
	if d.FinalModifier != 0 {
		t.Fatalf("final modifier = %v, want 0", d.FinalModifier)
	}
	if d.Phase == nil || d.Phase.Name != PhaseBase {
		t.Fatalf("phase = %+v", d.Phase)
	}
	if d.Load.CurrentCTL != 60 {
		t.Fatalf("load = %+v", d.Load)
	}
}

func TestDecideEnhancedRecovery(t *testing.T) {
	e := &stubEnhancer{payloads: map[string]string{KindRecovery: `{"category":"Green","reason":"feels great"}`}}
	in := Inputs{Today: refDay, Wellness: []WellnessRecord{{Date: refDay, SleepHours: 8}}}
	d := newTestEngine(nil, e).Decide(context.Background(), in)
	if d.Recovery.Source != SourceEnhanced || !d.Recovery.IsGreen() {
		t.Fatalf("recovery = %+v", d.Recovery)
	}
	// Thirty days without activity after a green night reads as fresh.
	if d.Gap.Interpretation != GapFresh || d.Gap.IntensityModifier != 0.9 {
		t.Fatalf("gap = %+v", d.Gap)
	}
}

func TestFinalModifier(t *testing.T) {
	tests := []struct {
		intensity, gap float64
		illness        string
		want           float64
	}{
		{1.0, 1.0, IllnessNone, 1.0},
		{1.05, 1.0, IllnessNone, 1.05},
		{0.9, 0.8, IllnessNone, 0.72},
		{1.0, 1.0, IllnessPossible, 0.6},
		{1.0, 1.0, IllnessLikely, 0.5},
		{0.4, 1.0, IllnessLikely, 0.4},
		{1.0, 1.0, IllnessHigh, 0},
	}
	for _, tt := range tests {
		if got := finalModifier(tt.intensity, tt.gap, tt.illness); got != tt.want {
			t.Errorf("finalModifier(%v, %v, %s) = %v, want %v", tt.intensity, tt.gap, tt.illness, got, tt.want)
		}
	}
}

func TestDecideIgnoresStaleReading(t *testing.T) {
	var records []WellnessRecord
	for i := 1; i <= 10; i++ {
		records = append(records, WellnessRecord{
			Date:          refDay.AddDate(0, 0, -i),
			SleepHours:    7.5,
			HRV:           floatPtr(30),
			RestingHR:     floatPtr(70),
			RecoveryScore: floatPtr(20),
		})
	}
	in := Inputs{
		Today:      refDay,
		Wellness:   records,
		Activities: []Activity{{Type: "Ride", StartDate: refDay.AddDate(0, 0, -1)}},
	}
	d := newTestEngine(nil, nil).Decide(context.Background(), in)

	if d.HRV.Status != StatusUnavailable || d.RHR.Status != StatusUnavailable {
		t.Fatalf("deviations should have no reading, hrv = %+v rhr = %+v", d.HRV, d.RHR)
	}
	if d.Intensity.Modifier != 1.0 || d.Intensity.Confidence != ConfidenceLow {
		t.Fatalf("intensity = %+v", d.Intensity)
	}
	if d.Recovery.Category == RecoveryRed {
		t.Fatalf("yesterday's recovery score leaked into today: %+v", d.Recovery)
	}
}

func TestDecideActivitiesUnavailable(t *testing.T) {
	in := Inputs{
		Today:                 refDay,
		Wellness:              []WellnessRecord{{Date: refDay, SleepHours: 8, RecoveryScore: floatPtr(85)}},
		ActivitiesUnavailable: true,
	}
	d := newTestEngine(nil, nil).Decide(context.Background(), in)

	if d.Gap.Interpretation != GapUnknown || d.Gap.IntensityModifier != 0.8 || d.Gap.GapDays != 0 {
		t.Fatalf("gap = %+v", d.Gap)
	}
	if len(d.Gap.Reasoning) == 0 {
		t.Fatal("gap should explain the missing history")
	}
}
