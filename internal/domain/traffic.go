package domain

// SpeedSample is one road-link speed observation from the traffic provider.
// road_name may be empty. Speed comes from untrusted external input and can
// be zero or negative after bad upstream parsing; it is kept as reported.
type SpeedSample struct {
	LinkID      string  `json:"link_id"`
	RoadName    string  `json:"road_name"`
	SpeedKmh    float64 `json:"speed_kmh"`
	TravelTimeS float64 `json:"travel_time_s"`
	ObservedAt  string  `json:"observed_at"`
}

// Traffic condition labels. The congestion set classifies mean matched speed,
// the delay set classifies the duration delta against the plan; both views
// are reported side by side.
const (
	ConditionNoData    = "no_data"
	ConditionCongested = "congested"
	ConditionHeavy     = "heavy"
	ConditionModerate  = "moderate"
	ConditionGoodFlow  = "good_flow"

	ConditionHeavyDelay         = "heavy_delay"
	ConditionModerateDelay      = "moderate_delay"
	ConditionFasterThanExpected = "faster_than_expected"
	ConditionNormal             = "normal"
)

// CongestionLevel classifies a mean traffic speed in km/h. Boundary values
// belong to the faster bucket.
func CongestionLevel(speedKmh float64) string {
	switch {
	case speedKmh < 15:
		return ConditionCongested
	case speedKmh < 30:
		return ConditionHeavy
	case speedKmh < 50:
		return ConditionModerate
	default:
		return ConditionGoodFlow
	}
}

// DelayCondition classifies the percentage difference between the
// traffic-adjusted and planned durations.
func DelayCondition(timeDiffPct float64) string {
	switch {
	case timeDiffPct > 20:
		return ConditionHeavyDelay
	case timeDiffPct > 10:
		return ConditionModerateDelay
	case timeDiffPct < -10:
		return ConditionFasterThanExpected
	default:
		return ConditionNormal
	}
}
