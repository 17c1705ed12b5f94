// Package store defines the document-store boundary the sync engine reads
// and writes through. Implementations provide per-document merge semantics:
// a write carries only the fields it intends to change, and unrelated fields
// of an existing document survive.
package store

import (
	"context"
	"errors"

	"igdash/pkg/models"
)

// ErrNotFound is returned by point reads when no document exists.
var ErrNotFound = errors.New("store: document not found")

// ConfigStore is the minimal surface the API client needs: the single
// account configuration document.
type ConfigStore interface {
	// Config returns the account config document, or nil when none has
	// been written yet.
	Config(ctx context.Context) (*models.AccountConfig, error)
	// SaveConfig merges the patch into the config document, creating it
	// if absent.
	SaveConfig(ctx context.Context, patch models.ConfigPatch) error
}

// SyncLog is the append-only sync history collection.
type SyncLog interface {
	// AddSyncRecord appends a record and returns its assigned id.
	AddSyncRecord(ctx context.Context, rec models.SyncRecord) (string, error)
	// RecentSyncRecords returns up to n records, newest first.
	RecentSyncRecords(ctx context.Context, n int) ([]models.SyncRecord, error)
}

// PostStore holds one document per provider media id.
type PostStore interface {
	// UpsertPost merges the update into the post keyed by mediaID,
	// creating it if absent.
	UpsertPost(ctx context.Context, mediaID string, update models.PostUpdate) error
	Post(ctx context.Context, mediaID string) (*models.Post, error)
	// Posts returns all posts ordered by provider timestamp, newest first.
	Posts(ctx context.Context) ([]models.Post, error)
	// TopPosts returns up to n posts ordered by the named metric, highest
	// first.
	TopPosts(ctx context.Context, metric string, n int) ([]models.Post, error)
	PostCount(ctx context.Context) (int, error)
}

// InsightStore holds one document per calendar date (ISO form, 2006-01-02).
type InsightStore interface {
	// SaveAccountInsight merges the patch into the given date's document.
	SaveAccountInsight(ctx context.Context, date string, patch models.InsightPatch) error
	AccountInsight(ctx context.Context, date string) (*models.AccountInsight, error)
	// AccountInsightRange returns documents with start <= date <= end,
	// ascending by date.
	AccountInsightRange(ctx context.Context, start, end string) ([]models.AccountInsight, error)
	LatestAccountInsight(ctx context.Context) (*models.AccountInsight, error)
}

// SnapshotStore holds one metric snapshot per post per calendar date.
type SnapshotStore interface {
	// SavePostSnapshot writes the snapshot, replacing any existing one
	// for the same post and date.
	SavePostSnapshot(ctx context.Context, snap models.PostSnapshot) error
	// PostSnapshotRange returns snapshots with start <= date <= end,
	// ascending by date.
	PostSnapshotRange(ctx context.Context, start, end string) ([]models.PostSnapshot, error)
}

// Store is the full document-store surface used by the sync engine and CLI.
type Store interface {
	ConfigStore
	SyncLog
	PostStore
	InsightStore
	SnapshotStore
}
