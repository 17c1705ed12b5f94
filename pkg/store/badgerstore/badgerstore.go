// Package badgerstore provides a BadgerDB-backed document store. Documents
// are stored as JSON values under typed key prefixes, so range queries map
// onto prefix iteration and dates sort naturally in key order.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"igdash/pkg/models"
	"igdash/pkg/store"
)

// Key prefixes. Dates are ISO (2006-01-02), so lexicographic key order is
// chronological order.
const (
	configKey      = "config"
	postKeyPrefix  = "post:"
	insightPrefix  = "insight:"
	snapshotPrefix = "snapshot:"
	syncPrefix     = "sync:"
)

// Store is a BadgerDB-backed implementation of store.Store.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens (or creates) the database at path. An empty path opens an
// in-memory database.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock overrides the store's time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// getJSON reads and decodes one document inside a transaction. Missing keys
// return store.ErrNotFound.
func getJSON(txn *badger.Txn, key string, target interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, target)
	})
}

func setJSON(txn *badger.Txn, key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func (s *Store) Config(ctx context.Context) (*models.AccountConfig, error) {
	var cfg models.AccountConfig
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, configKey, &cfg)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) SaveConfig(ctx context.Context, patch models.ConfigPatch) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var cfg models.AccountConfig
		if err := getJSON(txn, configKey, &cfg); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		cfg.Apply(patch)
		return setJSON(txn, configKey, cfg)
	})
}

func (s *Store) AddSyncRecord(ctx context.Context, rec models.SyncRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	// Timestamp-first keys make newest-first reads a reverse iteration.
	key := syncPrefix + rec.Timestamp.UTC().Format(time.RFC3339Nano) + ":" + rec.ID
	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, rec)
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Store) RecentSyncRecords(ctx context.Context, n int) ([]models.SyncRecord, error) {
	var out []models.SyncRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(syncPrefix)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the prefix range, then walk backwards.
		seek := append([]byte(syncPrefix), 0xff)
		for it.Seek(seek); it.Valid(); it.Next() {
			if n > 0 && len(out) >= n {
				break
			}
			var rec models.SyncRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpsertPost(ctx context.Context, mediaID string, update models.PostUpdate) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := postKeyPrefix + mediaID
		post := models.Post{MediaID: mediaID}
		if err := getJSON(txn, key, &post); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		post.Apply(update, s.now().UTC())
		return setJSON(txn, key, post)
	})
}

func (s *Store) Post(ctx context.Context, mediaID string) (*models.Post, error) {
	var post models.Post
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, postKeyPrefix+mediaID, &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) Posts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.allPosts()
	if err != nil {
		return nil, err
	}
	// Provider timestamps are ISO 8601, so string order is time order.
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].Timestamp > posts[j].Timestamp
	})
	return posts, nil
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
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(postKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) allPosts() ([]models.Post, error) {
	var out []models.Post
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(postKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &post)
			})
			if err != nil {
				return err
			}
			out = append(out, post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveAccountInsight(ctx context.Context, date string, patch models.InsightPatch) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := insightPrefix + date
		doc := models.AccountInsight{Date: date}
		if err := getJSON(txn, key, &doc); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		doc.Apply(patch)
		return setJSON(txn, key, doc)
	})
}

func (s *Store) AccountInsight(ctx context.Context, date string) (*models.AccountInsight, error) {
	var doc models.AccountInsight
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, insightPrefix+date, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) AccountInsightRange(ctx context.Context, start, end string) ([]models.AccountInsight, error) {
	var out []models.AccountInsight
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(insightPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(insightPrefix + start)
		endKey := insightPrefix + end
		for it.Seek(seek); it.Valid(); it.Next() {
			if string(it.Item().Key()) > endKey {
				break
			}
			var doc models.AccountInsight
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			out = append(out, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LatestAccountInsight(ctx context.Context) (*models.AccountInsight, error) {
	var doc models.AccountInsight
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(insightPrefix)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(insightPrefix), 0xff)
		it.Seek(seek)
		if !it.Valid() {
			return nil
		}
		found = true
		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNotFound
	}
	return &doc, nil
}

func (s *Store) SavePostSnapshot(ctx context.Context, snap models.PostSnapshot) error {
	key := snapshotPrefix + snap.Date + ":" + snap.MediaID
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, snap)
	})
}

func (s *Store) PostSnapshotRange(ctx context.Context, start, end string) ([]models.PostSnapshot, error) {
	var out []models.PostSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(snapshotPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(snapshotPrefix + start)
		// ":" sorts below "\xff", so this upper bound covers every media id
		// under the end date.
		endKey := snapshotPrefix + end + "\xff"
		for it.Seek(seek); it.Valid(); it.Next() {
			if string(it.Item().Key()) > endKey {
				break
			}
			var snap models.PostSnapshot
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			})
			if err != nil {
				return err
			}
			out = append(out, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ store.Store = (*Store)(nil)
