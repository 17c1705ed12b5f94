package models

import "time"

// Sync status values recorded on the account config and on sync records.
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// SyncTypeAPI marks sync records produced by the Graph API sync flows.
const SyncTypeAPI = "api"

// AccountConfig is the single configuration document for the tracked account.
// It is only ever merged into, never replaced or deleted.
type AccountConfig struct {
	AccessToken      string    `json:"access_token,omitempty"`
	TokenExpiresAt   time.Time `json:"token_expires_at,omitempty"`
	TokenRefreshedAt time.Time `json:"token_refreshed_at,omitempty"`
	IGUserID         string    `json:"ig_user_id,omitempty"`
	IGUsername       string    `json:"ig_username,omitempty"`
	LastSyncAt       time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus   string    `json:"last_sync_status,omitempty"`
}

// ConfigPatch is a partial update of AccountConfig. Nil fields are left
// untouched by Apply.
type ConfigPatch struct {
	AccessToken      *string
	TokenExpiresAt   *time.Time
	TokenRefreshedAt *time.Time
	IGUserID         *string
	IGUsername       *string
	LastSyncAt       *time.Time
	LastSyncStatus   *string
}

// Apply merges the patch into the config, field by field.
func (c *AccountConfig) Apply(p ConfigPatch) {
	if p.AccessToken != nil {
		c.AccessToken = *p.AccessToken
	}
	if p.TokenExpiresAt != nil {
		c.TokenExpiresAt = *p.TokenExpiresAt
	}
	if p.TokenRefreshedAt != nil {
		c.TokenRefreshedAt = *p.TokenRefreshedAt
	}
	if p.IGUserID != nil {
		c.IGUserID = *p.IGUserID
	}
	if p.IGUsername != nil {
		c.IGUsername = *p.IGUsername
	}
	if p.LastSyncAt != nil {
		c.LastSyncAt = *p.LastSyncAt
	}
	if p.LastSyncStatus != nil {
		c.LastSyncStatus = *p.LastSyncStatus
	}
}

// Post is one stored media item, keyed by the provider's media id.
// Insight-derived fields are pointers: nil means "never enriched", so a sync
// whose insight fetch was soft-skipped does not erase earlier enrichment.
type Post struct {
	MediaID      string `json:"media_id"`
	MediaType    string `json:"media_type"`
	Caption      string `json:"caption"`
	Permalink    string `json:"permalink"`
	ThumbnailURL string `json:"thumbnail_url"`
	MediaURL     string `json:"media_url"`
	Timestamp    string `json:"timestamp"`
	Likes        int    `json:"likes"`
	Comments     int    `json:"comments"`
	Reach        *int   `json:"reach,omitempty"`
	Impressions  *int   `json:"impressions,omitempty"`
	Saves        *int   `json:"saves,omitempty"`
	Shares       *int   `json:"shares,omitempty"`
	Plays        *int   `json:"plays,omitempty"`
	Engagement   *int   `json:"engagement,omitempty"`
	// EngagementRate is Engagement / Reach, or 0 when Reach is 0. It is
	// recomputed on every merge that carries insights.
	EngagementRate *float64  `json:"engagement_rate,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
}

// PostInsights carries the normalized per-media metrics for one sync pass.
// Impressions and Plays are pointers because the provider only reports them
// for image-like and video-like media respectively.
type PostInsights struct {
	Reach       int
	Impressions *int
	Saves       int
	Shares      int
	Plays       *int
	Engagement  int
}

// PostUpdate is the payload of one full-sync pass for a single media item.
// Insights is nil when insight retrieval was soft-skipped.
type PostUpdate struct {
	MediaType    string
	Caption      string
	Permalink    string
	ThumbnailURL string
	MediaURL     string
	Timestamp    string
	Likes        int
	Comments     int
	Insights     *PostInsights
}

// Apply merges the update into the post. Provider-reported fields are always
// overwritten; insight fields only when the update carries insights.
func (p *Post) Apply(u PostUpdate, now time.Time) {
	p.MediaType = u.MediaType
	p.Caption = u.Caption
	p.Permalink = u.Permalink
	p.ThumbnailURL = u.ThumbnailURL
	p.MediaURL = u.MediaURL
	p.Timestamp = u.Timestamp
	p.Likes = u.Likes
	p.Comments = u.Comments
	p.LastUpdated = now

	if u.Insights == nil {
		return
	}
	ins := *u.Insights
	p.Reach = intPtr(ins.Reach)
	p.Impressions = ins.Impressions
	p.Saves = intPtr(ins.Saves)
	p.Shares = intPtr(ins.Shares)
	p.Plays = ins.Plays
	p.Engagement = intPtr(ins.Engagement)
	rate := 0.0
	if ins.Reach > 0 {
		rate = float64(ins.Engagement) / float64(ins.Reach)
	}
	p.EngagementRate = &rate
}

// Metric returns the named metric value for ordering queries. Unknown or
// unset metrics rank as zero.
func (p *Post) Metric(name string) float64 {
	switch name {
	case "likes":
		return float64(p.Likes)
	case "comments":
		return float64(p.Comments)
	case "reach":
		return float64(intVal(p.Reach))
	case "impressions":
		return float64(intVal(p.Impressions))
	case "saves":
		return float64(intVal(p.Saves))
	case "shares":
		return float64(intVal(p.Shares))
	case "plays":
		return float64(intVal(p.Plays))
	case "engagement":
		return float64(intVal(p.Engagement))
	case "engagementRate":
		if p.EngagementRate != nil {
			return *p.EngagementRate
		}
		return 0
	default:
		return 0
	}
}

// AccountInsight accumulates account-level metrics for one calendar date.
// Multiple writers merge into the same date's document.
type AccountInsight struct {
	Date              string         `json:"date"`
	FollowerCount     *int           `json:"follower_count,omitempty"`
	FollowingCount    *int           `json:"following_count,omitempty"`
	MediaCount        *int           `json:"media_count,omitempty"`
	Impressions       *int           `json:"impressions,omitempty"`
	Reach             *int           `json:"reach,omitempty"`
	AudienceGenderAge map[string]int `json:"audience_gender_age,omitempty"`
	AudienceCountry   map[string]int `json:"audience_country,omitempty"`
	AudienceCity      map[string]int `json:"audience_city,omitempty"`
}

// InsightPatch is a partial update of one date's AccountInsight.
type InsightPatch struct {
	FollowerCount     *int
	FollowingCount    *int
	MediaCount        *int
	Impressions       *int
	Reach             *int
	AudienceGenderAge map[string]int
	AudienceCountry   map[string]int
	AudienceCity      map[string]int
}

// Apply merges the patch into the insight document. Only fields present in
// the patch are overwritten; unrelated fields survive.
func (a *AccountInsight) Apply(p InsightPatch) {
	if p.FollowerCount != nil {
		a.FollowerCount = p.FollowerCount
	}
	if p.FollowingCount != nil {
		a.FollowingCount = p.FollowingCount
	}
	if p.MediaCount != nil {
		a.MediaCount = p.MediaCount
	}
	if p.Impressions != nil {
		a.Impressions = p.Impressions
	}
	if p.Reach != nil {
		a.Reach = p.Reach
	}
	if p.AudienceGenderAge != nil {
		a.AudienceGenderAge = p.AudienceGenderAge
	}
	if p.AudienceCountry != nil {
		a.AudienceCountry = p.AudienceCountry
	}
	if p.AudienceCity != nil {
		a.AudienceCity = p.AudienceCity
	}
}

// SyncRecord is one append-only audit entry per sync attempt.
type SyncRecord struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	FollowerCount  int       `json:"follower_count,omitempty"`
	FollowingCount int       `json:"following_count,omitempty"`
	MediaCount     int       `json:"media_count,omitempty"`
	PostsProcessed int       `json:"posts_processed,omitempty"`
	APICallsUsed   int       `json:"api_calls_used"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// PostSnapshot is one post's metric snapshot for one calendar date, used for
// engagement-delta queries across syncs.
type PostSnapshot struct {
	MediaID     string    `json:"media_id"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
	Likes       int       `json:"likes"`
	Comments    int       `json:"comments"`
	Saves       int       `json:"saves"`
	Shares      int       `json:"shares"`
	Reach       int       `json:"reach"`
	Impressions int       `json:"impressions"`
	Engagement  int       `json:"engagement"`
}

// SnapshotOf captures the current metric values of a post.
func SnapshotOf(p *Post, now time.Time) PostSnapshot {
	return PostSnapshot{
		MediaID:     p.MediaID,
		Date:        now.UTC().Format("2006-01-02"),
		Timestamp:   now.UTC(),
		Likes:       p.Likes,
		Comments:    p.Comments,
		Saves:       intVal(p.Saves),
		Shares:      intVal(p.Shares),
		Reach:       intVal(p.Reach),
		Impressions: intVal(p.Impressions),
		Engagement:  intVal(p.Engagement),
	}
}

func intPtr(v int) *int { return &v }

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
