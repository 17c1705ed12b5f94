package syncer

import (
	"context"
	"time"

	"igdash/pkg/instagram"
)

// APIClient defines the Graph API operations the sync flows depend on
type APIClient interface {
	ResetSessionCalls()
	SessionCalls() int
	GetProfile(ctx context.Context) (*instagram.Profile, error)
	GetAllMedia(ctx context.Context, maxPages int) ([]instagram.Media, error)
	MediaInsights(ctx context.Context, mediaID, mediaType string) (map[string]int, error)
	GetAccountInsights(ctx context.Context, since, until time.Time) (map[string][]instagram.SeriesPoint, error)
	GetAudienceDemographics(ctx context.Context) (*instagram.Demographics, error)
}
