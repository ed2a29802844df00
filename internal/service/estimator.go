package service

import (
	"fmt"

	"github.com/routewatch/backend/internal/domain"
	"github.com/routewatch/backend/pkg/utils"
)

// Estimator turns a match result into a traffic-adjusted estimate for the
// whole route. It only does duration math; how samples were attributed to
// segments is the matcher's concern.
type Estimator struct{}

// NewEstimator creates a new estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate computes the traffic-adjusted duration, deltas against the plan,
// and both classification views. With per-segment matches each segment is
// re-timed at its own mean matched speed, unmatched or degenerate-speed
// segments keep their planned duration, and the route total is the sum.
// Under the vicinity fallback the whole route is re-timed at the mean speed
// of every fetched sample. No matches at all leaves the plan untouched and
// labels both views no_data.
func (e *Estimator) Estimate(route *domain.Route, match MatchResult) domain.TrafficEstimate {
	if len(match.Matched) == 0 {
		return domain.TrafficEstimate{
			AdjustedDurationS: route.DurationS,
			TrafficCondition:  domain.ConditionNoData,
			CongestionLevel:   domain.ConditionNoData,
			Recommendations:   []string{"No traffic data available for recommendations"},
		}
	}

	var adjusted float64
	if match.UsedFallback {
		adjusted = adjustedDuration(route.DistanceM, route.DurationS, meanSpeed(match.Matched))
	} else {
		for i, segment := range route.Segments {
			adjusted += adjustedDuration(segment.DistanceM, segment.DurationS, meanSpeed(match.SegmentMatches[i]))
		}
	}

	avgSpeed := meanSpeed(match.Matched)
	minSpeed, maxSpeed := speedRange(match.Matched)

	diff := adjusted - route.DurationS
	pct := 0.0
	if route.DurationS > 0 {
		pct = diff / route.DurationS * 100
	}

	estimate := domain.TrafficEstimate{
		AdjustedDurationS: adjusted,
		TimeDifferenceS:   diff,
		TimeDifferencePct: pct,
		AvgSpeedKmh:       avgSpeed,
		MinSpeedKmh:       minSpeed,
		MaxSpeedKmh:       maxSpeed,
		Matched:           match.Matched,
		UsedFallback:      match.UsedFallback,
		TrafficCondition:  domain.DelayCondition(pct),
		CongestionLevel:   domain.CongestionLevel(avgSpeed),
	}
	estimate.Recommendations = recommendations(estimate)
	return estimate
}

// adjustedDuration re-times a distance at the given mean speed. A mean of
// zero or less keeps the planned duration: there is no usable traffic signal
// and dividing by it would either fault or understate the duration.
func adjustedDuration(distanceM, plannedS, meanSpeedKmh float64) float64 {
	if meanSpeedKmh <= 0 {
		return plannedS
	}
	return (distanceM / 1000) / meanSpeedKmh * 3600
}

func meanSpeed(samples []domain.SpeedSample) float64 {
	speeds := make([]float64, len(samples))
	for i, sample := range samples {
		speeds[i] = sample.SpeedKmh
	}
	return utils.Mean(speeds)
}

func speedRange(samples []domain.SpeedSample) (min, max float64) {
	for i, sample := range samples {
		if i == 0 || sample.SpeedKmh < min {
			min = sample.SpeedKmh
		}
		if i == 0 || sample.SpeedKmh > max {
			max = sample.SpeedKmh
		}
	}
	return min, max
}

// recommendations derives advice strings from the estimate: one about the
// expected delay, one about the observed flow.
func recommendations(estimate domain.TrafficEstimate) []string {
	diffMinutes := estimate.TimeDifferenceS / 60

	var advice []string
	switch {
	case diffMinutes > 5:
		advice = append(advice,
			fmt.Sprintf("Expect %.1f minutes longer than planned due to traffic", diffMinutes),
			"Consider departing earlier or finding an alternative route")
	case diffMinutes < -2:
		advice = append(advice,
			fmt.Sprintf("Traffic is flowing well - you may arrive %.1f minutes earlier", -diffMinutes))
	default:
		advice = append(advice, "Current traffic conditions are close to normal expectations")
	}

	switch {
	case estimate.AvgSpeedKmh < 20:
		advice = append(advice, "Heavy traffic detected - consider alternative routes")
	case estimate.AvgSpeedKmh < 30:
		advice = append(advice, "Moderate traffic - allow extra time")
	default:
		advice = append(advice, "Good traffic flow conditions")
	}

	return advice
}
