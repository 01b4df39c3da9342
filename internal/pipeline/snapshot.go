package pipeline

import (
	"time"

	"github.com/couchcryptid/site-fueling-service/internal/domain"
)

// SnapshotSource records where a snapshot's sites came from.
type SnapshotSource string

const (
	// SourceSheet means the sheet was fetched and decoded on this pass.
	SourceSheet SnapshotSource = "sheet"
	// SourceLastKnownGood means the pass failed and the last good sites were re-grouped.
	SourceLastKnownGood SnapshotSource = "last_known_good"
	// SourceFallback means the pass failed with no prior data, so the built-in dataset is shown.
	SourceFallback SnapshotSource = "fallback"
)

// Snapshot is one committed refresh pass. It is immutable once published.
type Snapshot struct {
	Generation uint64
	Source     SnapshotSource
	// Advisory is a user-facing note set when live data could not be used.
	Advisory  string
	FetchedAt time.Time
	Today     time.Time
	Result    domain.CategorizedResult
	Summary   domain.Summary

	all []domain.Site
}

func newSnapshot(gen uint64, source SnapshotSource, advisory string, fetchedAt, today time.Time, result domain.CategorizedResult) *Snapshot {
	return &Snapshot{
		Generation: gen,
		Source:     source,
		Advisory:   advisory,
		FetchedAt:  fetchedAt,
		Today:      today,
		Result:     result,
		Summary:    domain.Summarize(result),
		all:        result.All(),
	}
}

// All returns every site in source order.
func (s *Snapshot) All() []domain.Site {
	return s.all
}

// Live reports whether the snapshot holds freshly fetched sheet data.
func (s *Snapshot) Live() bool {
	return s.Source == SourceSheet
}
