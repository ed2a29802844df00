package domain

import "testing"

func TestCongestionLevelMonotone(t *testing.T) {
	tests := []struct {
		speed float64
		want  string
	}{
		{10, ConditionCongested},
		{20, ConditionHeavy},
		{35, ConditionModerate},
		{55, ConditionGoodFlow},
		// boundaries belong to the faster bucket
		{15, ConditionHeavy},
		{30, ConditionModerate},
		{50, ConditionGoodFlow},
		{0, ConditionCongested},
		{-5, ConditionCongested},
	}

	for _, tt := range tests {
		if got := CongestionLevel(tt.speed); got != tt.want {
			t.Errorf("CongestionLevel(%v) = %q, want %q", tt.speed, got, tt.want)
		}
	}
}

func TestDelayCondition(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{25, ConditionHeavyDelay},
		{20, ConditionModerateDelay},
		{15, ConditionModerateDelay},
		{10, ConditionNormal},
		{0, ConditionNormal},
		{-10, ConditionNormal},
		{-11, ConditionFasterThanExpected},
	}

	for _, tt := range tests {
		if got := DelayCondition(tt.pct); got != tt.want {
			t.Errorf("DelayCondition(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}
