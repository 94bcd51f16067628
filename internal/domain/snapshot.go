package domain

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot bundles every derived table of one pipeline run. Consumers treat
// it as read-only; a new run produces a new Snapshot.
type Snapshot struct {
	RunID      string
	ComputedAt time.Time

	Cumulative CumulativeTable
	Daily      DailyTable
	Monthly    MonthlyTable
	LongForm   []LongRecord
	Profiles   []StateProfile
	National   NationalSeries
	Continent  []CountryTotal
}

// NewSnapshot returns an empty snapshot stamped with a run ID and the current time.
func NewSnapshot() Snapshot {
	return Snapshot{
		RunID:      uuid.NewString(),
		ComputedAt: clock.Now().UTC(),
	}
}
