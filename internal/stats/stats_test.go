package stats

import (
	"math"
	"testing"
)

func TestAverage(t *testing.T) {
	if _, ok := Average(nil); ok {
		t.Fatal("empty input should not produce an average")
	}
	got, ok := Average([]float64{40, 50, 60})
	if !ok || got != 50 {
		t.Fatalf("Average = %v, %v; want 50, true", got, ok)
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		want   float64
		wantOK bool
	}{
		{"empty", nil, 0, false},
		{"single value is insufficient", []float64{42}, 0, false},
		{"identical values", []float64{5, 5, 5}, 0, true},
		{"population formula", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StdDev(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("StdDev ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("StdDev = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilters(t *testing.T) {
	neg, zero, pos, nan := -1.0, 0.0, 3.0, math.NaN()
	input := []*float64{nil, &neg, &zero, &pos, &nan}

	if got := Present(input); len(got) != 3 {
		t.Errorf("Present kept %d values, want 3", len(got))
	}
	got := Positive(input)
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("Positive = %v, want [3]", got)
	}
}

func TestMinMax(t *testing.T) {
	xs := []float64{3, 1, 4, 1, 5}
	if m, _ := Min(xs); m != 1 {
		t.Errorf("Min = %v, want 1", m)
	}
	if m, _ := Max(xs); m != 5 {
		t.Errorf("Max = %v, want 5", m)
	}
	if _, ok := Max(nil); ok {
		t.Error("Max of empty slice should not be ok")
	}
}
