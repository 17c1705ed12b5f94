package instagram

import "fmt"

const (
	// DefaultBaseURL is the Graph API host.
	DefaultBaseURL = "https://graph.instagram.com"

	// ProfileEndpoint returns the authenticated account's profile.
	ProfileEndpoint = "/me"

	// MediaEndpoint lists the authenticated account's media.
	MediaEndpoint = "/me/media"

	// AccountInsightsEndpoint returns account-level metric series.
	AccountInsightsEndpoint = "/me/insights"

	// RefreshTokenEndpoint exchanges a long-lived token for a fresh one.
	RefreshTokenEndpoint = "/refresh_access_token"

	// MaxMediaLimit is the provider's page-size ceiling for media listings.
	MaxMediaLimit = 25
)

// ProfileFields is the field list requested for the profile.
const ProfileFields = "id,username,name,biography,followers_count,follows_count,media_count,profile_picture_url"

// MediaFields is the field list requested per media item.
const MediaFields = "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp,like_count,comments_count"

// AccountMetrics is the day-period metric list for account insights.
const AccountMetrics = "impressions,reach,follower_count"

// AudienceMetrics is the lifetime metric list for audience demographics.
const AudienceMetrics = "audience_gender_age,audience_country,audience_city"

// MediaInsightsEndpoint returns the insights path for one media item.
func MediaInsightsEndpoint(mediaID string) string {
	return fmt.Sprintf("/%s/insights", mediaID)
}

// clampMediaLimit bounds a requested page size to the provider's ceiling.
func clampMediaLimit(limit int) int {
	if limit <= 0 || limit > MaxMediaLimit {
		return MaxMediaLimit
	}
	return limit
}
