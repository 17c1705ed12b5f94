package instagram

// Profile is the account profile as reported by the Graph API.
type Profile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	Biography         string `json:"biography"`
	FollowersCount    int    `json:"followers_count"`
	FollowsCount      int    `json:"follows_count"`
	MediaCount        int    `json:"media_count"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

// Media type values as reported by the provider.
const (
	MediaTypeImage    = "IMAGE"
	MediaTypeCarousel = "CAROUSEL_ALBUM"
	MediaTypeVideo    = "VIDEO"
	MediaTypeReel     = "REEL"
)

// Media is one media item from the /me/media listing.
type Media struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"`
	MediaURL      string `json:"media_url"`
	ThumbnailURL  string `json:"thumbnail_url"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int    `json:"like_count"`
	CommentsCount int    `json:"comments_count"`
}

// IsVideo reports whether the media belongs to the video-like class, which
// has a different insight metric surface than image-like media.
func (m Media) IsVideo() bool {
	return m.MediaType == MediaTypeVideo || m.MediaType == MediaTypeReel
}

// MediaPage is one page of the media listing with its pagination cursors.
type MediaPage struct {
	Data   []Media `json:"data"`
	Paging Paging  `json:"paging"`
}

// Paging carries the provider's pagination envelope.
type Paging struct {
	Cursors Cursors `json:"cursors"`
	Next    string  `json:"next"`
}

// Cursors holds the opaque page cursors.
type Cursors struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// SeriesPoint is one day's value of an account-level metric series.
type SeriesPoint struct {
	Value   int    `json:"value"`
	EndTime string `json:"end_time"`
}

// Date returns the calendar date (2006-01-02) of the point.
func (p SeriesPoint) Date() string {
	if len(p.EndTime) < 10 {
		return p.EndTime
	}
	return p.EndTime[:10]
}

// Demographics holds the lifetime audience breakdowns. Nil maps mean the
// provider returned no value for that breakdown.
type Demographics struct {
	GenderAge map[string]int `json:"gender_age"`
	Country   map[string]int `json:"country"`
	City      map[string]int `json:"city"`
}

// insightEnvelope is the wire shape of every /insights response.
type insightEnvelope struct {
	Data []insightMetric `json:"data"`
}

type insightMetric struct {
	Name   string         `json:"name"`
	Period string         `json:"period"`
	Values []insightValue `json:"values"`
}

type insightValue struct {
	// Value is a plain number for day metrics and an object keyed by
	// bucket for lifetime breakdowns.
	Value   insightNumberOrMap `json:"value"`
	EndTime string             `json:"end_time"`
}

// refreshResponse is the wire shape of /refresh_access_token.
type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// errorEnvelope is the provider's error body; all fields are optional.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
