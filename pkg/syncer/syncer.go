// Package syncer orchestrates the two dashboard sync flows: a quick
// profile refresh and a full media + insights sync. Both run strictly
// sequentially, since the provider's call budget and the store's
// merge-style upserts make concurrent writes unsafe, and both record
// their outcome in the account config and the append-only sync log.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"igdash/pkg/config"
	"igdash/pkg/instagram"
	"igdash/pkg/logger"
	"igdash/pkg/models"
	"igdash/pkg/store"
)

const dateLayout = "2006-01-02"

// ErrSyncInProgress is returned when a sync flow is invoked while another
// one is still running on the same Syncer.
var ErrSyncInProgress = errors.New("a sync is already in progress")

// Progress receives human-readable status updates during a sync. It is
// fire-and-forget: the orchestrator never blocks on or reacts to it.
type Progress func(status string)

// QuickResult summarizes a quick sync.
type QuickResult struct {
	Profile   *instagram.Profile
	CallsUsed int
}

// FullResult summarizes a full sync.
type FullResult struct {
	Profile        *instagram.Profile
	PostsProcessed int
	CallsUsed      int
}

// FullSyncOptions parameterizes a full sync.
type FullSyncOptions struct {
	// Deep widens the media retrieval from ~50 to ~100 items.
	Deep bool
	// OnProgress, when set, receives phase updates.
	OnProgress Progress
}

// Syncer runs the sync flows against an API client and a document store.
type Syncer struct {
	client APIClient
	store  store.Store
	logger logger.Logger

	shallowPages int
	deepPages    int

	// running guards against overlapping sync invocations, which would
	// corrupt the session call counter.
	running atomic.Bool

	now func() time.Time
}

// New creates a Syncer. A nil sync config uses the default page depths.
func New(client APIClient, st store.Store, cfg *config.SyncConfig, log logger.Logger) *Syncer {
	shallow, deep := 2, 4
	if cfg != nil {
		shallow, deep = cfg.ShallowPages, cfg.DeepPages
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Syncer{
		client:       client,
		store:        st,
		logger:       log,
		shallowPages: shallow,
		deepPages:    deep,
		now:          time.Now,
	}
}

// SetClock overrides the Syncer's time source. Intended for tests.
func (s *Syncer) SetClock(now func() time.Time) {
	s.now = now
}

// QuickSync refreshes the profile counts: one profile call, merged into the
// config document and today's account insight, plus a sync log entry.
func (s *Syncer) QuickSync(ctx context.Context) (*QuickResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	s.client.ResetSessionCalls()

	profile, err := s.client.GetProfile(ctx)
	if err != nil {
		s.recordFailure(ctx, err)
		return nil, err
	}

	if err := s.saveProfileConfig(ctx, profile); err != nil {
		s.recordFailure(ctx, err)
		return nil, err
	}

	now := s.now().UTC()
	today := now.Format(dateLayout)
	err = s.store.SaveAccountInsight(ctx, today, models.InsightPatch{
		FollowerCount:  &profile.FollowersCount,
		FollowingCount: &profile.FollowsCount,
		MediaCount:     &profile.MediaCount,
	})
	if err != nil {
		s.recordFailure(ctx, err)
		return nil, err
	}

	if _, err := s.store.AddSyncRecord(ctx, models.SyncRecord{
		Type:           models.SyncTypeAPI,
		FollowerCount:  profile.FollowersCount,
		FollowingCount: profile.FollowsCount,
		MediaCount:     profile.MediaCount,
		APICallsUsed:   s.client.SessionCalls(),
		Status:         models.SyncStatusSuccess,
		Timestamp:      now,
	}); err != nil {
		s.recordFailure(ctx, err)
		return nil, err
	}

	s.logger.InfoWithFields("quick sync completed", map[string]interface{}{
		"followers":  profile.FollowersCount,
		"calls_used": s.client.SessionCalls(),
	})
	return &QuickResult{Profile: profile, CallsUsed: s.client.SessionCalls()}, nil
}

// FullSync refreshes posts with per-item insights, the last week of account
// insights, and audience demographics. Profile and media failures abort the
// sync; the account-insight and demographic phases are best-effort.
func (s *Syncer) FullSync(ctx context.Context, opts FullSyncOptions) (*FullResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	maxPages := s.shallowPages
	if opts.Deep {
		maxPages = s.deepPages
	}
	progress := opts.OnProgress
	if progress == nil {
		progress = func(string) {}
	}

	s.client.ResetSessionCalls()

	progress("Fetching profile...")
	profile, err := s.client.GetProfile(ctx)
	if err != nil {
		s.recordFailure(ctx, err)
		return nil, err
	}
	if err := s.saveProfileConfig(ctx, profile); err != nil {
		s.recordFailure(ctx, err)
		return nil, err
	}

	progress("Fetching posts...")
	media, err := s.client.GetAllMedia(ctx, maxPages)
	if err != nil {
		s.recordFailure(ctx, err)
		return nil, err
	}

	for i, item := range media {
		progress(fmt.Sprintf("Fetching insights (%d/%d)...", i+1, len(media)))

		insights, err := s.client.MediaInsights(ctx, item.ID, item.MediaType)
		if err != nil {
			s.recordFailure(ctx, err)
			return nil, err
		}

		if err := s.upsertPost(ctx, item, insights); err != nil {
			s.recordFailure(ctx, err)
			return nil, err
		}
	}

	progress("Fetching account insights...")
	if err := s.syncAccountInsights(ctx); err != nil {
		// Account insights fail for some accounts; not fatal.
		s.logger.WithError(err).Warn("account insights fetch failed")
	}

	progress("Fetching audience data...")
	if err := s.syncDemographics(ctx, profile); err != nil {
		s.logger.WithError(err).Warn("demographics fetch failed")
	}

	progress("Saving sync data...")
	if _, err := s.store.AddSyncRecord(ctx, models.SyncRecord{
		Type:           models.SyncTypeAPI,
		FollowerCount:  profile.FollowersCount,
		FollowingCount: profile.FollowsCount,
		MediaCount:     profile.MediaCount,
		PostsProcessed: len(media),
		APICallsUsed:   s.client.SessionCalls(),
		Status:         models.SyncStatusSuccess,
		Timestamp:      s.now().UTC(),
	}); err != nil {
		s.recordFailure(ctx, err)
		return nil, err
	}

	s.logger.InfoWithFields("full sync completed", map[string]interface{}{
		"posts":      len(media),
		"calls_used": s.client.SessionCalls(),
	})
	return &FullResult{
		Profile:        profile,
		PostsProcessed: len(media),
		CallsUsed:      s.client.SessionCalls(),
	}, nil
}

// saveProfileConfig merges the profile identity and sync metadata into the
// account config document.
func (s *Syncer) saveProfileConfig(ctx context.Context, profile *instagram.Profile) error {
	now := s.now().UTC()
	status := models.SyncStatusSuccess
	return s.store.SaveConfig(ctx, models.ConfigPatch{
		IGUserID:       &profile.ID,
		IGUsername:     &profile.Username,
		LastSyncAt:     &now,
		LastSyncStatus: &status,
	})
}

// upsertPost builds the post payload from the raw media item and its
// normalized insights (nil when soft-skipped) and merges it into the store,
// then snapshots the post's metrics for today.
func (s *Syncer) upsertPost(ctx context.Context, item instagram.Media, insights map[string]int) error {
	thumbnail := item.ThumbnailURL
	if thumbnail == "" {
		thumbnail = item.MediaURL
	}

	update := models.PostUpdate{
		MediaType:    item.MediaType,
		Caption:      item.Caption,
		Permalink:    item.Permalink,
		ThumbnailURL: thumbnail,
		MediaURL:     item.MediaURL,
		Timestamp:    item.Timestamp,
		Likes:        item.LikeCount,
		Comments:     item.CommentsCount,
	}

	if insights != nil {
		// Insight counts supersede the listing's counts when present.
		if v := insights["likes"]; v > 0 {
			update.Likes = v
		}
		if v := insights["comments"]; v > 0 {
			update.Comments = v
		}

		engagement := insights["total_interactions"]
		if engagement == 0 {
			engagement = update.Likes + update.Comments + insights["saves"] + insights["shares"]
		}

		ins := &models.PostInsights{
			Reach:      insights["reach"],
			Saves:      insights["saves"],
			Shares:     insights["shares"],
			Engagement: engagement,
		}
		// The metric surface is exclusive by media class: impressions for
		// image-like media, plays for video-like.
		if impressions, ok := insights["impressions"]; ok {
			v := impressions
			ins.Impressions = &v
		}
		if plays, ok := insights["plays"]; ok {
			v := plays
			ins.Plays = &v
		}
		update.Insights = ins
	}

	if err := s.store.UpsertPost(ctx, item.ID, update); err != nil {
		return err
	}

	// Snapshot the merged post for delta tracking; best-effort.
	post, err := s.store.Post(ctx, item.ID)
	if err != nil {
		s.logger.WithError(err).WithField("media_id", item.ID).Warn("failed to read post for snapshot")
		return nil
	}
	if err := s.store.SavePostSnapshot(ctx, models.SnapshotOf(post, s.now())); err != nil {
		s.logger.WithError(err).WithField("media_id", item.ID).Warn("failed to save post snapshot")
	}
	return nil
}

// syncAccountInsights merges the last seven days of account metric series
// into the per-date insight documents.
func (s *Syncer) syncAccountInsights(ctx context.Context) error {
	now := s.now().UTC()
	weekAgo := now.AddDate(0, 0, -7)

	series, err := s.client.GetAccountInsights(ctx, weekAgo, now)
	if err != nil {
		return err
	}

	for name, points := range series {
		for _, point := range points {
			v := point.Value
			patch := models.InsightPatch{}
			switch name {
			case "impressions":
				patch.Impressions = &v
			case "reach":
				patch.Reach = &v
			case "follower_count":
				patch.FollowerCount = &v
			default:
				continue
			}
			if err := s.store.SaveAccountInsight(ctx, point.Date(), patch); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncDemographics merges the lifetime audience breakdowns, together with
// the current follower counts, into today's insight document. A nil result
// (account below the provider's follower threshold) is skipped silently.
func (s *Syncer) syncDemographics(ctx context.Context, profile *instagram.Profile) error {
	demo, err := s.client.GetAudienceDemographics(ctx)
	if err != nil {
		return err
	}
	if demo == nil {
		return nil
	}

	today := s.now().UTC().Format(dateLayout)
	return s.store.SaveAccountInsight(ctx, today, models.InsightPatch{
		FollowerCount:     &profile.FollowersCount,
		FollowingCount:    &profile.FollowsCount,
		AudienceGenderAge: orEmpty(demo.GenderAge),
		AudienceCountry:   orEmpty(demo.Country),
		AudienceCity:      orEmpty(demo.City),
	})
}

// recordFailure marks the config document and appends an error record to
// the sync log. Both writes are best-effort: a failure here must never
// mask the original error.
func (s *Syncer) recordFailure(ctx context.Context, cause error) {
	status := models.SyncStatusError
	if err := s.store.SaveConfig(ctx, models.ConfigPatch{LastSyncStatus: &status}); err != nil {
		s.logger.WithError(err).Warn("failed to mark sync error in config")
	}
	if _, err := s.store.AddSyncRecord(ctx, models.SyncRecord{
		Type:         models.SyncTypeAPI,
		APICallsUsed: s.client.SessionCalls(),
		Status:       models.SyncStatusError,
		ErrorMessage: cause.Error(),
		Timestamp:    s.now().UTC(),
	}); err != nil {
		s.logger.WithError(err).Warn("failed to append error sync record")
	}
}

func orEmpty(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
