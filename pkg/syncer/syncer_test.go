package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igdash/pkg/instagram"
	"igdash/pkg/logger"
	"igdash/pkg/models"
	"igdash/pkg/store"
	"igdash/pkg/store/memory"
)

// fakeClient implements APIClient with scripted responses.
type fakeClient struct {
	mu sync.Mutex

	profile    *instagram.Profile
	profileErr error

	media    []instagram.Media
	mediaErr error

	// insights maps media id to its normalized metrics; a missing entry
	// means the soft-skip (nil, nil) outcome.
	insights    map[string]map[string]int
	insightsErr map[string]error

	series    map[string][]instagram.SeriesPoint
	seriesErr error

	demo    *instagram.Demographics
	demoErr error

	sessionCalls  int
	resets        int
	insightOrder  []string
	blockInsights chan struct{}
}

func (f *fakeClient) ResetSessionCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls = 0
	f.resets++
}

func (f *fakeClient) SessionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionCalls
}

func (f *fakeClient) count() {
	f.mu.Lock()
	f.sessionCalls++
	f.mu.Unlock()
}

func (f *fakeClient) GetProfile(ctx context.Context) (*instagram.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	f.count()
	return f.profile, nil
}

func (f *fakeClient) GetAllMedia(ctx context.Context, maxPages int) ([]instagram.Media, error) {
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	f.count()
	return f.media, nil
}

func (f *fakeClient) MediaInsights(ctx context.Context, mediaID, mediaType string) (map[string]int, error) {
	f.mu.Lock()
	f.insightOrder = append(f.insightOrder, mediaID)
	f.mu.Unlock()
	if f.blockInsights != nil {
		<-f.blockInsights
	}
	if err := f.insightsErr[mediaID]; err != nil {
		return nil, err
	}
	f.count()
	return f.insights[mediaID], nil
}

func (f *fakeClient) GetAccountInsights(ctx context.Context, since, until time.Time) (map[string][]instagram.SeriesPoint, error) {
	if f.seriesErr != nil {
		return nil, f.seriesErr
	}
	f.count()
	return f.series, nil
}

func (f *fakeClient) GetAudienceDemographics(ctx context.Context) (*instagram.Demographics, error) {
	if f.demoErr != nil {
		return nil, f.demoErr
	}
	f.count()
	return f.demo, nil
}

var testNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestSyncer(client *fakeClient) (*Syncer, *memory.Store) {
	st := memory.New()
	st.SetClock(func() time.Time { return testNow })
	s := New(client, st, nil, logger.NewTestLogger())
	s.SetClock(func() time.Time { return testNow })
	return s, st
}

func testProfile() *instagram.Profile {
	return &instagram.Profile{
		ID:             "1789",
		Username:       "coffeelover",
		MediaCount:     42,
		FollowersCount: 1250,
		FollowsCount:   310,
	}
}

func TestQuickSync(t *testing.T) {
	client := &fakeClient{profile: testProfile()}
	s, st := newTestSyncer(client)

	result, err := s.QuickSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.CallsUsed)
	assert.Equal(t, "coffeelover", result.Profile.Username)
	assert.Equal(t, 1, client.resets)

	cfg, err := st.Config(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "1789", cfg.IGUserID)
	assert.Equal(t, "coffeelover", cfg.IGUsername)
	assert.Equal(t, models.SyncStatusSuccess, cfg.LastSyncStatus)
	assert.Equal(t, testNow, cfg.LastSyncAt)

	insight, err := st.AccountInsight(context.Background(), "2026-03-15")
	require.NoError(t, err)
	require.NotNil(t, insight.FollowerCount)
	assert.Equal(t, 1250, *insight.FollowerCount)
	require.NotNil(t, insight.FollowingCount)
	assert.Equal(t, 310, *insight.FollowingCount)
	require.NotNil(t, insight.MediaCount)
	assert.Equal(t, 42, *insight.MediaCount)

	records, err := st.RecentSyncRecords(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.SyncTypeAPI, records[0].Type)
	assert.Equal(t, models.SyncStatusSuccess, records[0].Status)
	assert.Equal(t, 1250, records[0].FollowerCount)
	assert.Equal(t, 1, records[0].APICallsUsed)
	assert.NotEmpty(t, records[0].ID)
}

func TestQuickSyncProfileFailure(t *testing.T) {
	cause := &instagram.APIError{StatusCode: 401, Message: "Invalid OAuth access token"}
	client := &fakeClient{profileErr: cause}
	s, st := newTestSyncer(client)

	_, err := s.QuickSync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause) || errors.As(err, new(*instagram.APIError)))

	cfg, err := st.Config(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, models.SyncStatusError, cfg.LastSyncStatus)

	records, err := st.RecentSyncRecords(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.SyncStatusError, records[0].Status)
	assert.Contains(t, records[0].ErrorMessage, "Invalid OAuth access token")
}

func TestFullSync(t *testing.T) {
	client := &fakeClient{
		profile: testProfile(),
		media: []instagram.Media{
			{
				ID: "img1", MediaType: instagram.MediaTypeImage,
				Caption: "latte art", Permalink: "https://ig/p/img1",
				MediaURL: "https://cdn/img1.jpg", Timestamp: "2026-03-14T09:00:00+0000",
				LikeCount: 50, CommentsCount: 4,
			},
			{
				ID: "vid1", MediaType: instagram.MediaTypeReel,
				ThumbnailURL: "https://cdn/vid1-thumb.jpg", MediaURL: "https://cdn/vid1.mp4",
				Timestamp: "2026-03-13T09:00:00+0000",
				LikeCount: 80, CommentsCount: 10,
			},
			{
				ID: "img2", MediaType: instagram.MediaTypeImage,
				Timestamp: "2026-03-12T09:00:00+0000",
				LikeCount: 5, CommentsCount: 1,
			},
		},
		insights: map[string]map[string]int{
			// total_interactions present and positive: used as-is.
			"img1": {
				"reach": 500, "impressions": 620, "likes": 55, "comments": 4,
				"saves": 7, "shares": 2, "total_interactions": 70,
			},
			// total_interactions zero: engagement falls back to the sum.
			"vid1": {
				"reach": 900, "likes": 0, "comments": 0,
				"saves": 12, "shares": 6, "plays": 1500, "total_interactions": 0,
			},
			// img2 missing: soft skip.
		},
		series: map[string][]instagram.SeriesPoint{
			"reach":          {{Value: 120, EndTime: "2026-03-14T07:00:00+0000"}},
			"impressions":    {{Value: 340, EndTime: "2026-03-14T07:00:00+0000"}},
			"follower_count": {{Value: 3, EndTime: "2026-03-14T07:00:00+0000"}},
			"unknown_metric": {{Value: 9, EndTime: "2026-03-14T07:00:00+0000"}},
		},
		demo: &instagram.Demographics{
			GenderAge: map[string]int{"F.25-34": 220},
			Country:   map[string]int{"US": 300},
		},
	}
	s, st := newTestSyncer(client)

	var phases []string
	result, err := s.FullSync(context.Background(), FullSyncOptions{
		OnProgress: func(status string) { phases = append(phases, status) },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.PostsProcessed)

	// Insights were fetched once per item, in listing order.
	assert.Equal(t, []string{"img1", "vid1", "img2"}, client.insightOrder)

	// Progress phases arrive in flow order.
	require.NotEmpty(t, phases)
	assert.Equal(t, "Fetching profile...", phases[0])
	assert.Contains(t, phases, "Fetching insights (2/3)...")
	assert.Equal(t, "Saving sync data...", phases[len(phases)-1])

	// Image post: insight counts supersede listing counts.
	img1, err := st.Post(context.Background(), "img1")
	require.NoError(t, err)
	assert.Equal(t, 55, img1.Likes)
	assert.Equal(t, 4, img1.Comments)
	require.NotNil(t, img1.Engagement)
	assert.Equal(t, 70, *img1.Engagement)
	require.NotNil(t, img1.Impressions)
	assert.Equal(t, 620, *img1.Impressions)
	assert.Nil(t, img1.Plays)
	require.NotNil(t, img1.EngagementRate)
	assert.InDelta(t, 70.0/500.0, *img1.EngagementRate, 1e-9)
	// No thumbnail on the listing falls back to the media URL.
	assert.Equal(t, "https://cdn/img1.jpg", img1.ThumbnailURL)

	// Video post: zero insight counts keep the listing's counts, engagement
	// sums the components, plays is present and impressions is not.
	vid1, err := st.Post(context.Background(), "vid1")
	require.NoError(t, err)
	assert.Equal(t, 80, vid1.Likes)
	assert.Equal(t, 10, vid1.Comments)
	require.NotNil(t, vid1.Engagement)
	assert.Equal(t, 80+10+12+6, *vid1.Engagement)
	require.NotNil(t, vid1.Plays)
	assert.Equal(t, 1500, *vid1.Plays)
	assert.Nil(t, vid1.Impressions)
	assert.Equal(t, "https://cdn/vid1-thumb.jpg", vid1.ThumbnailURL)

	// Soft-skipped post keeps its listing fields, no insight enrichment.
	img2, err := st.Post(context.Background(), "img2")
	require.NoError(t, err)
	assert.Equal(t, 5, img2.Likes)
	assert.Nil(t, img2.Reach)
	assert.Nil(t, img2.Engagement)
	assert.Nil(t, img2.EngagementRate)

	// Account insight series merged by date; unknown metrics ignored.
	day, err := st.AccountInsight(context.Background(), "2026-03-14")
	require.NoError(t, err)
	require.NotNil(t, day.Reach)
	assert.Equal(t, 120, *day.Reach)
	require.NotNil(t, day.Impressions)
	assert.Equal(t, 340, *day.Impressions)
	require.NotNil(t, day.FollowerCount)
	assert.Equal(t, 3, *day.FollowerCount)

	// Demographics merged into today's document.
	today, err := st.AccountInsight(context.Background(), "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 220, today.AudienceGenderAge["F.25-34"])
	assert.Equal(t, 300, today.AudienceCountry["US"])
	assert.NotNil(t, today.AudienceCity)

	// Snapshots written for each post for today.
	snaps, err := st.PostSnapshotRange(context.Background(), "2026-03-15", "2026-03-15")
	require.NoError(t, err)
	assert.Len(t, snaps, 3)

	records, err := st.RecentSyncRecords(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.SyncStatusSuccess, records[0].Status)
	assert.Equal(t, 3, records[0].PostsProcessed)
}

func TestFullSyncIdempotent(t *testing.T) {
	client := &fakeClient{
		profile: testProfile(),
		media: []instagram.Media{
			{ID: "img1", MediaType: instagram.MediaTypeImage, Timestamp: "2026-03-14T09:00:00+0000", LikeCount: 50},
		},
		insights: map[string]map[string]int{
			"img1": {"reach": 500, "likes": 55, "saves": 7},
		},
	}
	s, st := newTestSyncer(client)

	_, err := s.FullSync(context.Background(), FullSyncOptions{})
	require.NoError(t, err)
	_, err = s.FullSync(context.Background(), FullSyncOptions{})
	require.NoError(t, err)

	// Posts merge by media id, sync records append.
	count, err := st.PostCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err := st.RecentSyncRecords(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFullSyncSoftSkipPreservesEnrichment(t *testing.T) {
	client := &fakeClient{
		profile: testProfile(),
		media: []instagram.Media{
			{ID: "img1", MediaType: instagram.MediaTypeImage, Timestamp: "2026-03-14T09:00:00+0000", LikeCount: 50, CommentsCount: 4},
		},
		insights: map[string]map[string]int{
			"img1": {"reach": 500, "likes": 55, "saves": 7, "total_interactions": 70},
		},
	}
	s, st := newTestSyncer(client)

	_, err := s.FullSync(context.Background(), FullSyncOptions{})
	require.NoError(t, err)

	// The provider stops serving insights for the item; the earlier
	// enrichment must survive the next sync.
	client.insights = map[string]map[string]int{}
	client.media[0].LikeCount = 60

	_, err = s.FullSync(context.Background(), FullSyncOptions{})
	require.NoError(t, err)

	post, err := st.Post(context.Background(), "img1")
	require.NoError(t, err)
	assert.Equal(t, 60, post.Likes)
	require.NotNil(t, post.Reach)
	assert.Equal(t, 500, *post.Reach)
	require.NotNil(t, post.Engagement)
	assert.Equal(t, 70, *post.Engagement)
}

func TestFullSyncInsightErrorAborts(t *testing.T) {
	cause := &instagram.APIError{StatusCode: 500, Message: "server error"}
	client := &fakeClient{
		profile: testProfile(),
		media: []instagram.Media{
			{ID: "img1", MediaType: instagram.MediaTypeImage, Timestamp: "2026-03-14T09:00:00+0000"},
			{ID: "img2", MediaType: instagram.MediaTypeImage, Timestamp: "2026-03-13T09:00:00+0000"},
			{ID: "img3", MediaType: instagram.MediaTypeImage, Timestamp: "2026-03-12T09:00:00+0000"},
		},
		insights:    map[string]map[string]int{"img1": {"reach": 10}},
		insightsErr: map[string]error{"img2": cause},
	}
	s, st := newTestSyncer(client)

	_, err := s.FullSync(context.Background(), FullSyncOptions{})
	require.Error(t, err)

	var apiErr *instagram.APIError
	require.ErrorAs(t, err, &apiErr)

	// Items before the failure were written; items after were not reached.
	assert.Equal(t, []string{"img1", "img2"}, client.insightOrder)

	_, err = st.Post(context.Background(), "img1")
	assert.NoError(t, err)
	_, err = st.Post(context.Background(), "img3")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	records, rerr := st.RecentSyncRecords(context.Background(), 10)
	require.NoError(t, rerr)
	require.Len(t, records, 1)
	assert.Equal(t, models.SyncStatusError, records[0].Status)
}

func TestFullSyncAccountInsightFailureIsNonFatal(t *testing.T) {
	client := &fakeClient{
		profile:   testProfile(),
		media:     []instagram.Media{},
		seriesErr: &instagram.APIError{StatusCode: 400, Message: "metrics unsupported"},
		demoErr:   &instagram.APIError{StatusCode: 500, Message: "flaky"},
	}
	s, st := newTestSyncer(client)

	result, err := s.FullSync(context.Background(), FullSyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.PostsProcessed)

	records, err := st.RecentSyncRecords(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.SyncStatusSuccess, records[0].Status)
}

func TestFullSyncNilDemographicsSkipped(t *testing.T) {
	client := &fakeClient{
		profile: testProfile(),
		media:   []instagram.Media{},
		demo:    nil,
	}
	s, st := newTestSyncer(client)

	_, err := s.FullSync(context.Background(), FullSyncOptions{})
	require.NoError(t, err)

	// Quick-sync style counters were not written, and demographics were
	// not merged.
	today, err := st.AccountInsight(context.Background(), "2026-03-15")
	if err == nil {
		assert.Nil(t, today.AudienceGenderAge)
	} else {
		assert.True(t, errors.Is(err, store.ErrNotFound))
	}
}

func TestSyncRejectsOverlap(t *testing.T) {
	client := &fakeClient{
		profile:       testProfile(),
		media:         []instagram.Media{{ID: "img1", MediaType: instagram.MediaTypeImage}},
		insights:      map[string]map[string]int{"img1": {"reach": 1}},
		blockInsights: make(chan struct{}),
	}
	s, _ := newTestSyncer(client)

	done := make(chan error, 1)
	go func() {
		_, err := s.FullSync(context.Background(), FullSyncOptions{})
		done <- err
	}()

	// Wait until the first sync is inside the insight fetch.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.insightOrder) > 0
	}, time.Second, time.Millisecond)

	_, err := s.QuickSync(context.Background())
	assert.True(t, errors.Is(err, ErrSyncInProgress))

	close(client.blockInsights)
	require.NoError(t, <-done)

	// Once the first sync finishes, the guard is released.
	_, err = s.QuickSync(context.Background())
	assert.NoError(t, err)
}

func TestDeepFlagWidensPages(t *testing.T) {
	var gotPages []int
	client := &fakeClient{profile: testProfile()}
	s, _ := newTestSyncer(client)

	// Wrap GetAllMedia through a derived fake to capture maxPages.
	wrapped := &pageRecorder{fakeClient: client, pages: &gotPages}
	s.client = wrapped

	_, err := s.FullSync(context.Background(), FullSyncOptions{})
	require.NoError(t, err)
	_, err = s.FullSync(context.Background(), FullSyncOptions{Deep: true})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4}, gotPages)
}

type pageRecorder struct {
	*fakeClient
	pages *[]int
}

func (p *pageRecorder) GetAllMedia(ctx context.Context, maxPages int) ([]instagram.Media, error) {
	*p.pages = append(*p.pages, maxPages)
	return p.fakeClient.GetAllMedia(ctx, maxPages)
}
