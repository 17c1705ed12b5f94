package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"igdash/pkg/logger"
	"igdash/pkg/models"
	"igdash/pkg/ratelimit"
	"igdash/pkg/store"
)

// Client is a rate-limited Graph API client. The access token is resolved
// from the account config document on every request, so a token refresh
// takes effect immediately.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     store.ConfigStore
	limiter    *ratelimit.Tracker
	logger     logger.Logger

	// sessionCalls counts physical requests since the last
	// ResetSessionCalls, independent of the persisted window counter.
	sessionCalls int
}

// NewClient creates a new Graph API client. An empty baseURL falls back to
// the production host.
func NewClient(baseURL string, timeout time.Duration, cfg store.ConfigStore, limiter *ratelimit.Tracker, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		config:     cfg,
		limiter:    limiter,
		logger:     log,
	}
}

// ResetSessionCalls zeroes the per-session call counter. The orchestrator
// calls this at the start of each sync flow.
func (c *Client) ResetSessionCalls() {
	c.sessionCalls = 0
}

// SessionCalls returns the number of requests made since the last reset.
func (c *Client) SessionCalls() int {
	return c.sessionCalls
}

// CallsRemaining returns how many calls are left in the rolling window.
func (c *Client) CallsRemaining() (int, error) {
	return c.limiter.Remaining()
}

// token resolves the current access token from the config document.
func (c *Client) token(ctx context.Context) (string, error) {
	cfg, err := c.config.Config(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read account config: %w", err)
	}
	if cfg == nil || cfg.AccessToken == "" {
		return "", ErrMissingToken
	}
	return cfg.AccessToken, nil
}

// get is the single request primitive: rate-limit pre-check, token
// injection, GET, error-envelope classification, call accounting, decode.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, target interface{}) error {
	if err := c.limiter.Check(); err != nil {
		return err
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", token)
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending API request", map[string]interface{}{
		"endpoint": endpoint,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("API request failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	// The request reached the provider, so it counts against the window
	// regardless of status.
	if err := c.limiter.Record(); err != nil {
		c.logger.WithError(err).Warn("failed to record API call")
	}
	c.sessionCalls++

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.DebugWithFields("API request completed", map[string]interface{}{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classifyError(resp.StatusCode, body)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", endpoint, err)
	}
	return nil
}

// classifyError builds an APIError from a non-2xx response, tolerating a
// missing or malformed error envelope.
func (c *Client) classifyError(status int, body []byte) error {
	apiErr := &APIError{
		StatusCode: status,
		Message:    fmt.Sprintf("API request failed (%d)", status),
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
		apiErr.Code = envelope.Error.Code
	}

	c.logger.WarnWithFields("API error response", map[string]interface{}{
		"status":  status,
		"code":    apiErr.Code,
		"message": apiErr.Message,
	})
	return apiErr
}

// RefreshToken exchanges the current long-lived token for a fresh one and
// persists the new token, refresh timestamp and computed expiry into the
// account config. It returns the new expiry time.
func (c *Client) RefreshToken(ctx context.Context) (time.Time, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")

	var data refreshResponse
	if err := c.get(ctx, RefreshTokenEndpoint, params, &data); err != nil {
		return time.Time{}, fmt.Errorf("token refresh failed: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(data.ExpiresIn) * time.Second)
	err := c.config.SaveConfig(ctx, storeConfigPatch(data.AccessToken, now, expiresAt))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	c.logger.InfoWithFields("access token refreshed", map[string]interface{}{
		"expires_at": expiresAt,
	})
	return expiresAt, nil
}

// storeConfigPatch builds the config merge for a refreshed token.
func storeConfigPatch(token string, refreshedAt, expiresAt time.Time) models.ConfigPatch {
	return models.ConfigPatch{
		AccessToken:      &token,
		TokenRefreshedAt: &refreshedAt,
		TokenExpiresAt:   &expiresAt,
	}
}

// GetProfile fetches the account profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	params := url.Values{}
	params.Set("fields", ProfileFields)

	var profile Profile
	if err := c.get(ctx, ProfileEndpoint, params, &profile); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return &profile, nil
}

// GetMediaPage fetches one page of media. The limit is clamped to the
// provider's 25-item ceiling; an empty cursor starts from the newest item.
func (c *Client) GetMediaPage(ctx context.Context, limit int, after string) (*MediaPage, error) {
	params := url.Values{}
	params.Set("fields", MediaFields)
	params.Set("limit", fmt.Sprintf("%d", clampMediaLimit(limit)))
	if after != "" {
		params.Set("after", after)
	}

	var page MediaPage
	if err := c.get(ctx, MediaEndpoint, params, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch media page: %w", err)
	}
	return &page, nil
}

// GetAllMedia follows pagination cursors for up to maxPages pages and
// returns all items in provider order.
func (c *Client) GetAllMedia(ctx context.Context, maxPages int) ([]Media, error) {
	var all []Media
	after := ""

	for page := 0; page < maxPages; page++ {
		result, err := c.GetMediaPage(ctx, MaxMediaLimit, after)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Data...)

		after = result.Paging.Cursors.After
		if after == "" || result.Paging.Next == "" {
			break
		}
	}

	c.logger.DebugWithFields("media listing complete", map[string]interface{}{
		"items": len(all),
	})
	return all, nil
}

// GetAccountInsights fetches day-granularity account metrics for the given
// range and returns a map from metric name to its ordered series.
func (c *Client) GetAccountInsights(ctx context.Context, since, until time.Time) (map[string][]SeriesPoint, error) {
	params := url.Values{}
	params.Set("metric", AccountMetrics)
	params.Set("period", "day")
	params.Set("since", fmt.Sprintf("%d", since.Unix()))
	params.Set("until", fmt.Sprintf("%d", until.Unix()))

	var envelope insightEnvelope
	if err := c.get(ctx, AccountInsightsEndpoint, params, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch account insights: %w", err)
	}

	series := make(map[string][]SeriesPoint)
	for _, metric := range envelope.Data {
		points := make([]SeriesPoint, 0, len(metric.Values))
		for _, v := range metric.Values {
			points = append(points, SeriesPoint{Value: v.Value.Number, EndTime: v.EndTime})
		}
		series[metric.Name] = points
	}
	return series, nil
}

// GetAudienceDemographics fetches the lifetime audience breakdowns. The
// provider rejects accounts below its follower threshold with a client
// error; that case returns (nil, nil) rather than an error.
func (c *Client) GetAudienceDemographics(ctx context.Context) (*Demographics, error) {
	params := url.Values{}
	params.Set("metric", AudienceMetrics)
	params.Set("period", "lifetime")

	var envelope insightEnvelope
	if err := c.get(ctx, AccountInsightsEndpoint, params, &envelope); err != nil {
		if IsSchemaRejection(err) {
			c.logger.Debug("audience demographics unavailable for this account")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch audience demographics: %w", err)
	}

	demo := &Demographics{}
	for _, metric := range envelope.Data {
		var buckets map[string]int
		if len(metric.Values) > 0 {
			buckets = metric.Values[0].Value.Buckets
		}
		switch metric.Name {
		case "audience_gender_age":
			demo.GenderAge = buckets
		case "audience_country":
			demo.Country = buckets
		case "audience_city":
			demo.City = buckets
		}
	}
	return demo, nil
}
