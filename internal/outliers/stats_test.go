package outliers

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single", values: []float64{7}, want: 7},
		{name: "odd", values: []float64{3, 1, 2}, want: 2},
		{name: "even", values: []float64{4, 1, 3, 2}, want: 2.5},
		{name: "unsorted_input_untouched", values: []float64{9, 1, 5}, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Median(tt.values); got != tt.want {
				t.Fatalf("Median(%v) = %f, want %f", tt.values, got, tt.want)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	values := []float64{9, 1, 5}
	Median(values)
	if values[0] != 9 || values[1] != 1 || values[2] != 5 {
		t.Fatalf("input mutated: %v", values)
	}
}

func TestMAD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "no_variation", values: []float64{5, 5, 5}, want: 0},
		{name: "simple", values: []float64{1, 2, 3, 4, 5}, want: 1},
		{name: "robust_to_wild_value", values: []float64{1, 2, 3, 4, 1000}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MAD(tt.values); got != tt.want {
				t.Fatalf("MAD(%v) = %f, want %f", tt.values, got, tt.want)
			}
		})
	}
}

func TestModifiedZ(t *testing.T) {
	t.Parallel()

	// MAD of zero is defined as "no variation, no outliers": z is 0 for
	// every value, never a division by zero.
	if got := ModifiedZ(100, 5, 0); got != 0 {
		t.Errorf("ModifiedZ with MAD=0 = %f, want 0", got)
	}

	got := ModifiedZ(10, 5, 1)
	want := 0.6745 * 5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ModifiedZ(10,5,1) = %f, want %f", got, want)
	}

	if z := ModifiedZ(0, 5, 1); z >= 0 {
		t.Errorf("below-median z = %f, want negative", z)
	}
}

func TestExpectedRangeClampsAtZero(t *testing.T) {
	t.Parallel()

	lo, hi := expectedRange(2, 1, 3.5)
	if lo != 0 {
		t.Errorf("lo = %f, want clamped to 0", lo)
	}
	wantHi := 2 + 3.5/0.6745
	if math.Abs(hi-wantHi) > 1e-9 {
		t.Errorf("hi = %f, want %f", hi, wantHi)
	}
}
