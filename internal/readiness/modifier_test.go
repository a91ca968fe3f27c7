package readiness

import (
	"math"
	"testing"
)

func TestZScoreToModifierKnots(t *testing.T) {
	tests := []struct {
		z    float64
		want float64
	}{
		{-5, 0.70},
		{-3, 0.70},
		{-2, 0.70},
		{-1, 0.82},
		{-0.5, 0.88},
		{0, 0.94},
		{0.5, 0.97},
		{1, 1.00},
		{2, 1.05},
		{3, 1.05},
		{math.NaN(), 0.94},
	}
	for _, tt := range tests {
		if got := ZScoreToModifier(tt.z); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ZScoreToModifier(%v) = %v, want %v", tt.z, got, tt.want)
		}
	}
}

func TestZScoreToModifierBoundedAndMonotonic(t *testing.T) {
	prev := ZScoreToModifier(-4)
	for z := -4.0; z <= 4.0; z += 0.05 {
		got := ZScoreToModifier(z)
		if got < MinIntensityModifier || got > MaxIntensityModifier {
			t.Fatalf("modifier %v out of bounds at z=%v", got, z)
		}
		if got < prev-1e-12 {
			t.Fatalf("modifier decreased at z=%v: %v < %v", z, got, prev)
		}
		prev = got
	}
}

func TestCombineModifiers(t *testing.T) {
	tests := []struct {
		name       string
		hrvZ, rhrZ *float64
		want       float64
		confidence string
	}{
		{"hrv only suppressed", floatPtr(-1), nil, 0.82, ConfidenceMedium},
		{"rhr only elevated", nil, floatPtr(1), 0.82, ConfidenceMedium},
		{"both recovered", floatPtr(1), floatPtr(-1), 1.00, ConfidenceHigh},
		{"both neutral", floatPtr(0), floatPtr(0), 0.94, ConfidenceHigh},
		{"weighted", floatPtr(1), floatPtr(1), 0.93, ConfidenceHigh},
		{"nothing", nil, nil, 1.0, ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CombineModifiers(tt.hrvZ, tt.rhrZ)
			if got.Modifier != tt.want {
				t.Fatalf("modifier = %v, want %v", got.Modifier, tt.want)
			}
			if got.Confidence != tt.confidence {
				t.Fatalf("confidence = %s, want %s", got.Confidence, tt.confidence)
			}
			if got.Description == "" {
				t.Fatal("missing description")
			}
		})
	}
}

func TestCombineModifiersBreakdown(t *testing.T) {
	got := CombineModifiers(floatPtr(-1), floatPtr(1))
	if got.Breakdown.HRV == nil || got.Breakdown.RHR == nil {
		t.Fatalf("breakdown incomplete: %+v", got.Breakdown)
	}
	if got.Breakdown.RHR.ZScore != 1 || got.Breakdown.RHR.Modifier != 0.82 {
		t.Fatalf("rhr component = %+v", *got.Breakdown.RHR)
	}
}

func TestRound2(t *testing.T) {
	if got := round2(0.825); got != 0.83 {
		t.Fatalf("round2(0.825) = %v", got)
	}
	if got := round2(0.7199999); got != 0.72 {
		t.Fatalf("round2(0.7199999) = %v", got)
	}
}
