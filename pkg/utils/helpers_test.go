package utils

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		value, min, max, want float64
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{42, 0, 10, 10},
		{90.5, -90, 90, 90},
	}

	for _, tt := range tests {
		if got := Clamp(tt.value, tt.min, tt.max); got != tt.want {
			t.Errorf("Clamp(%f, %f, %f) = %f, want %f", tt.value, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %f, want 0", got)
	}
	if got := Mean([]float64{40, 50, 60}); got != 50 {
		t.Errorf("Mean() = %f, want 50", got)
	}
	if got := Mean([]float64{-10, 10}); got != 0 {
		t.Errorf("Mean() = %f, want 0", got)
	}
}
