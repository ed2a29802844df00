package service

import (
	"strings"

	"github.com/routewatch/backend/internal/domain"
)

// MatchResult is the matcher's attribution of samples to a route.
// SegmentMatches is parallel to the route's segment list; Matched is the
// flattened multiset, so a sample matching several segments appears once per
// segment. Under the vicinity fallback SegmentMatches is nil and Matched
// holds every fetched sample.
type MatchResult struct {
	SegmentMatches [][]domain.SpeedSample
	Matched        []domain.SpeedSample
	UsedFallback   bool
}

// Matcher attributes speed samples to a route's segments. Implementations
// decide how a sample relates to a segment; the estimator's duration math is
// independent of that choice.
type Matcher interface {
	Match(route *domain.Route, samples []domain.SpeedSample) MatchResult
}

// NameMatcher matches samples to segments by road name containment: a sample
// belongs to a segment when either name contains the other, case-sensitive,
// with no token boundaries or locale normalization. When no segment matches
// any sample, every fetched sample counts as "in the vicinity" instead, since
// the fetch was already scoped to the route's bounding box.
type NameMatcher struct{}

// NewNameMatcher creates a new name-based matcher.
func NewNameMatcher() *NameMatcher {
	return &NameMatcher{}
}

// Match attributes samples to route segments by bidirectional substring.
// Segments without a name never match. Samples without a road name never
// name-match either (an empty string is contained in everything, which would
// attach unnamed sensors to every segment); they still count in the fallback.
func (m *NameMatcher) Match(route *domain.Route, samples []domain.SpeedSample) MatchResult {
	result := MatchResult{
		SegmentMatches: make([][]domain.SpeedSample, len(route.Segments)),
	}

	for i, segment := range route.Segments {
		if segment.Name == "" {
			continue
		}
		for _, sample := range samples {
			if sample.RoadName == "" {
				continue
			}
			if strings.Contains(segment.Name, sample.RoadName) || strings.Contains(sample.RoadName, segment.Name) {
				result.SegmentMatches[i] = append(result.SegmentMatches[i], sample)
				result.Matched = append(result.Matched, sample)
			}
		}
	}

	if len(result.Matched) == 0 && len(samples) > 0 {
		return MatchResult{
			Matched:      append([]domain.SpeedSample(nil), samples...),
			UsedFallback: true,
		}
	}
	return result
}
