// Package memory provides an in-memory document store. It backs tests and
// one-off CLI invocations that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"igdash/pkg/models"
	"igdash/pkg/store"
)

// Store is a thread-safe in-memory implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	config    *models.AccountConfig
	posts     map[string]*models.Post
	insights  map[string]*models.AccountInsight
	snapshots map[string]models.PostSnapshot
	syncs     []models.SyncRecord

	now func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		posts:     make(map[string]*models.Post),
		insights:  make(map[string]*models.AccountInsight),
		snapshots: make(map[string]models.PostSnapshot),
		now:       time.Now,
	}
}

// SetClock overrides the store's time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Config(ctx context.Context) (*models.AccountConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, nil
	}
	cfg := *s.config
	return &cfg, nil
}

func (s *Store) SaveConfig(ctx context.Context, patch models.ConfigPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		s.config = &models.AccountConfig{}
	}
	s.config.Apply(patch)
	return nil
}

func (s *Store) AddSyncRecord(ctx context.Context, rec models.SyncRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	s.syncs = append(s.syncs, rec)
	return rec.ID, nil
}

func (s *Store) RecentSyncRecords(ctx context.Context, n int) ([]models.SyncRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SyncRecord, len(s.syncs))
	copy(out, s.syncs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *Store) UpsertPost(ctx context.Context, mediaID string, update models.PostUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[mediaID]
	if !ok {
		post = &models.Post{MediaID: mediaID}
		s.posts[mediaID] = post
	}
	post.Apply(update, s.now().UTC())
	return nil
}

func (s *Store) Post(ctx context.Context, mediaID string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[mediaID]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := *post
	return &p, nil
}

func (s *Store) Posts(ctx context.Context) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, *p)
	}
	// Provider timestamps are ISO 8601, so string order is time order.
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out, nil
}

func (s *Store) TopPosts(ctx context.Context, metric string, n int) ([]models.Post, error) {
	posts, err := s.Posts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Metric(metric) > posts[j].Metric(metric)
	})
	if n > 0 && len(posts) > n {
		posts = posts[:n]
	}
	return posts, nil
}

func (s *Store) PostCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts), nil
}

func (s *Store) SaveAccountInsight(ctx context.Context, date string, patch models.InsightPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.insights[date]
	if !ok {
		doc = &models.AccountInsight{Date: date}
		s.insights[date] = doc
	}
	doc.Apply(patch)
	return nil
}

func (s *Store) AccountInsight(ctx context.Context, date string) (*models.AccountInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.insights[date]
	if !ok {
		return nil, store.ErrNotFound
	}
	d := *doc
	return &d, nil
}

func (s *Store) AccountInsightRange(ctx context.Context, start, end string) ([]models.AccountInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AccountInsight, 0)
	for date, doc := range s.insights {
		if date >= start && date <= end {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out, nil
}

func (s *Store) LatestAccountInsight(ctx context.Context) (*models.AccountInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.AccountInsight
	for _, doc := range s.insights {
		if latest == nil || doc.Date > latest.Date {
			latest = doc
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	d := *latest
	return &d, nil
}

func (s *Store) SavePostSnapshot(ctx context.Context, snap models.PostSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.Date+"/"+snap.MediaID] = snap
	return nil
}

func (s *Store) PostSnapshotRange(ctx context.Context, start, end string) ([]models.PostSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PostSnapshot, 0)
	for _, snap := range s.snapshots {
		if snap.Date >= start && snap.Date <= end {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].MediaID < out[j].MediaID
	})
	return out, nil
}

var _ store.Store = (*Store)(nil)
