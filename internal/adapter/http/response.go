package http

import (
	"time"

	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/pipeline"
)

type sitesResponse struct {
	Generation uint64                   `json:"generation"`
	Source     pipeline.SnapshotSource  `json:"source"`
	Advisory   string                   `json:"advisory,omitempty"`
	FetchedAt  time.Time                `json:"fetchedAt"`
	Today      string                   `json:"today"`
	Categories domain.CategorizedResult `json:"categories"`
	All        []domain.Site            `json:"all"`
	Summary    domain.Summary           `json:"summary"`
}

func newSitesResponse(snap *pipeline.Snapshot) sitesResponse {
	return sitesResponse{
		Generation: snap.Generation,
		Source:     snap.Source,
		Advisory:   snap.Advisory,
		FetchedAt:  snap.FetchedAt,
		Today:      snap.Today.Format(domain.DateLayout),
		Categories: snap.Result,
		All:        snap.All(),
		Summary:    snap.Summary,
	}
}

type categoryResponse struct {
	Category domain.Category `json:"category"`
	Sites    []domain.Site   `json:"sites"`
}

type mapResponse struct {
	Generation uint64            `json:"generation"`
	Points     []domain.MapPoint `json:"points"`
}

type refreshResponse struct {
	Generation uint64                  `json:"generation"`
	Source     pipeline.SnapshotSource `json:"source"`
	Advisory   string                  `json:"advisory,omitempty"`
	Summary    domain.Summary          `json:"summary"`
}
