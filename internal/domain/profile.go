package domain

import (
	"fmt"
)

// BuildProfiles joins the latest cumulative and daily figures of each region
// with its population and area. The join is keyed by region identifier, so
// the order of ref does not matter. A region without reference data is a
// *SchemaMismatchError; a zero population or area wraps ErrInvalidReference.
func BuildProfiles(cum CumulativeTable, daily DailyTable, ref []RegionReference) ([]StateProfile, error) {
	latest, ok := cum.Latest()
	if !ok {
		return nil, &MalformedInputError{Source: sourceCumulative, Reason: "no report rows"}
	}
	latestDaily, ok := daily.Latest()
	if !ok {
		return nil, &MalformedInputError{Source: sourceCumulative, Reason: "no daily rows"}
	}

	byID := make(map[string]RegionReference, len(ref))
	for _, r := range ref {
		byID[r.ID] = r
	}

	profiles := make([]StateProfile, 0, len(cum.Regions))
	for c, id := range cum.Regions {
		r, ok := byID[id]
		if !ok {
			return nil, &SchemaMismatchError{Reason: fmt.Sprintf("region %q has no population/area reference", id)}
		}
		if r.Population <= 0 || r.Area <= 0 {
			return nil, fmt.Errorf("%w: region %q has population %d and area %g", ErrInvalidReference, id, r.Population, r.Area)
		}
		d, ok := daily.Column(id)
		if !ok {
			return nil, &SchemaMismatchError{Reason: fmt.Sprintf("region %q missing from daily table", id)}
		}

		name := r.Name
		if name == "" {
			name = id
		}
		cases := latest.Values[c]
		profiles = append(profiles, StateProfile{
			Region:                 id,
			State:                  name,
			Population:             r.Population,
			Area:                   r.Area,
			CumulativeCase:         cases,
			LatestDailyIncrease:    latestDaily.Values[d],
			CumulativeInfectedRate: float64(cases) * 100 / float64(r.Population),
			PopulationDensity:      float64(r.Population) / r.Area,
		})
	}
	return profiles, nil
}
