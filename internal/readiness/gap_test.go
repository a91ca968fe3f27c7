package readiness

import (
	"context"
	"testing"
	"time"
)

var (
	green  = RecoveryStatus{Category: RecoveryGreen, Label: recoveryLabels[RecoveryGreen]}
	yellow = RecoveryStatus{Category: RecoveryYellow, Label: recoveryLabels[RecoveryYellow]}
	red    = RecoveryStatus{Category: RecoveryRed, Label: recoveryLabels[RecoveryRed]}
)

func TestGapPolicy(t *testing.T) {
	tests := []struct {
		name           string
		in             GapInput
		interpretation string
		modifier       float64
	}{
		{"three days is normal", GapInput{GapDays: 3, Recovery: red}, GapNormal, 1.0},
		{"zero days is normal", GapInput{GapDays: 0}, GapNormal, 1.0},
		{"no wellness", GapInput{GapDays: 4}, GapUnknown, 0.8},
		{"fresh", GapInput{GapDays: 5, HasWellness: true, Recovery: green}, GapFresh, 1.0},
		{"strained", GapInput{GapDays: 5, HasWellness: true, Recovery: red}, GapReturningFromIllness, 0.7},
		{"recovering", GapInput{GapDays: 5, HasWellness: true, Recovery: yellow}, GapCautiousReturn, 0.85},
		{"custom yellow", GapInput{GapDays: 5, HasWellness: true, Recovery: yellow, YellowModifier: 0.8}, GapCautiousReturn, 0.8},
		{"long fresh", GapInput{GapDays: 10, HasWellness: true, Recovery: green}, GapFresh, 0.9},
		{"long strained", GapInput{GapDays: 7, HasWellness: true, Recovery: red}, GapReturningFromIllness, 0.63},
		{"long unknown", GapInput{GapDays: 30}, GapUnknown, 0.72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GapPolicy(tt.in)
			if got.Interpretation != tt.interpretation {
				t.Fatalf("interpretation = %s, want %s", got.Interpretation, tt.interpretation)
			}
			if got.IntensityModifier != tt.modifier {
				t.Fatalf("modifier = %v, want %v", got.IntensityModifier, tt.modifier)
			}
			if got.GapDays != tt.in.GapDays || got.Source != SourceRule {
				t.Fatalf("unexpected result %+v", got)
			}
			if len(got.Reasoning) == 0 || got.Recommendation == "" {
				t.Fatal("missing explanation")
			}
		})
	}
}

func TestRecoveryLabelMatching(t *testing.T) {
	if !(RecoveryStatus{Label: "Primed and ready"}).IsGreen() {
		t.Fatal("Primed should read as green")
	}
	if !(RecoveryStatus{Label: "Strained"}).IsRed() {
		t.Fatal("Strained should read as red")
	}
	if yellow.IsGreen() || yellow.IsRed() {
		t.Fatal("yellow is neither green nor red")
	}
}

func TestGapDays(t *testing.T) {
	last := refDay.AddDate(0, 0, -5).Add(18 * time.Hour)
	if got := GapDays(refDay.Add(7*time.Hour), &last, 30); got != 5 {
		t.Fatalf("gap = %d, want 5", got)
	}
	if got := GapDays(refDay, nil, 30); got != 30 {
		t.Fatalf("gap without activity = %d, want 30", got)
	}
	if got := GapDays(refDay, nil, 0); got != DefaultGapLookbackDays {
		t.Fatalf("gap default lookback = %d", got)
	}
	future := refDay.AddDate(0, 0, 1)
	if got := GapDays(refDay, &future, 30); got != 0 {
		t.Fatalf("future activity gap = %d, want 0", got)
	}
}

func TestLastQualifyingActivity(t *testing.T) {
	acts := []Activity{
		{Type: "VirtualRide", StartDate: refDay.AddDate(0, 0, -6)},
		{Type: "Run", StartDate: refDay.AddDate(0, 0, -4)},
		{Type: "WeightTraining", StartDate: refDay.AddDate(0, 0, -1)},
		{Type: "Swim", StartDate: refDay},
	}
	got := LastQualifyingActivity(acts)
	if got == nil || !got.Equal(refDay.AddDate(0, 0, -4)) {
		t.Fatalf("last qualifying = %v", got)
	}
	if LastQualifyingActivity([]Activity{{Type: "Yoga"}}) != nil {
		t.Fatal("yoga should not qualify")
	}
}

func TestAnalyzeGapEnhancement(t *testing.T) {
	ctx := context.Background()
	in := GapInput{GapDays: 8, HasWellness: true, Recovery: green}

	e := &stubEnhancer{payloads: map[string]string{
		KindTrainingGap: `{"interpretation":"fresh","intensity_modifier":0.955,"recommendation":"ease in","reasoning":["holiday"]}`,
	}}
	got := AnalyzeGap(ctx, e, in, testLogger())
	if got.Source != SourceEnhanced || got.IntensityModifier != 0.96 || got.GapDays != 8 {
		t.Fatalf("enhanced result = %+v", got)
	}

	bad := &stubEnhancer{payloads: map[string]string{
		KindTrainingGap: `{"interpretation":"fresh","intensity_modifier":1.5}`,
	}}
	got = AnalyzeGap(ctx, bad, in, testLogger())
	if got.Source != SourceRule || got.IntensityModifier != 0.9 {
		t.Fatalf("out of range enhancement should fall back: %+v", got)
	}

	failing := &stubEnhancer{err: errEnhance}
	if got := AnalyzeGap(ctx, failing, in, testLogger()); got.Source != SourceRule {
		t.Fatalf("failed enhancement should fall back: %+v", got)
	}
}

func TestAnalyzeGapShortGapSkipsEnhancement(t *testing.T) {
	e := &stubEnhancer{payloads: map[string]string{KindTrainingGap: `{"interpretation":"fresh","intensity_modifier":0.5}`}}
	got := AnalyzeGap(context.Background(), e, GapInput{GapDays: 3}, testLogger())
	if got.Interpretation != GapNormal || len(e.calls) != 0 {
		t.Fatalf("short gap consulted enhancer: %+v calls=%v", got, e.calls)
	}
}
