package interfaces

import (
	"context"

	"sentiment-pulse/src/models"
)

// -----------------------------------------------------------------------------
// ISentimentStore defines the contract for sentiment post storage.
// -----------------------------------------------------------------------------

type ISentimentStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SavePosts upserts a batch of posts keyed by id.
	SavePosts(ctx context.Context, posts []models.MPost) error

	// -----------------------------------------------------------------------------

	// GetStats computes the dashboard summary over all stored posts.
	GetStats(ctx context.Context) (*models.MSocialStats, error)

	// -----------------------------------------------------------------------------

	// GetFeed returns one filtered page of posts, newest first.
	GetFeed(ctx context.Context, filter models.MFeedFilter) (*models.MSocialFeed, error)

	// -----------------------------------------------------------------------------

	// GetRecentPosts returns the newest posts up to limit.
	GetRecentPosts(ctx context.Context, limit int) ([]models.MPost, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
