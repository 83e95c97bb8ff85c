package storage

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *AsyncSQLiteDB {
	t.Helper()
	cfg := &models.MConfig{}
	cfg.Storage.DBType = "sqlite"
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "pulse.db")

	db, err := NewAsyncSQLiteDB(cfg, logger.NewNop("sqlite"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func post(id, title, source, class string, ts time.Time) models.MPost {
	return models.MPost{ID: id, Title: title, URL: "https://example.com/" + id, Source: source,
		Author: "tester", SentimentClass: class, Confidence: 0.9, Timestamp: ts}
}

func TestSQLite_SaveAndRecent(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, db.SavePosts(ctx, []models.MPost{
		post("a", "Old post", "Reddit", models.SentimentNeutral, now.Add(-2*time.Hour)),
		post("b", "Newest post", "YouTube", models.SentimentPositive, now),
		post("c", "Middle post", "Reddit", models.SentimentNegative, now.Add(-time.Hour)),
	}))

	// upsert replaces by id
	require.NoError(t, db.SavePosts(ctx, []models.MPost{
		post("a", "Edited post", "Reddit", models.SentimentPositive, now.Add(-2*time.Hour)),
	}))

	posts, err := db.GetRecentPosts(ctx, 50)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
	assert.Equal(t, "Edited post", posts[2].Title)
	assert.Equal(t, models.SentimentPositive, posts[2].SentimentClass)
	assert.True(t, now.Equal(posts[0].Timestamp))

	limited, err := db.GetRecentPosts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_SaveAssignsMissingIDs(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.SavePosts(ctx, []models.MPost{{Title: "no id"}, {Title: "no id either"}}))

	posts, err := db.GetRecentPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.NotEmpty(t, posts[0].ID)
	assert.NotEqual(t, posts[0].ID, posts[1].ID)
	assert.False(t, posts[0].Timestamp.IsZero())
}

func TestSQLite_GetFeed(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()

	var posts []models.MPost
	for i := 0; i < 15; i++ {
		class, source := models.SentimentPositive, "Reddit r/stocks"
		if i%3 == 0 {
			class, source = models.SentimentNegative, "YouTube"
		}
		posts = append(posts, post(string(rune('a'+i)), "Post", source, class, now.Add(-time.Duration(i)*time.Minute)))
	}
	require.NoError(t, db.SavePosts(ctx, posts))

	feed, err := db.GetFeed(ctx, models.MFeedFilter{})
	require.NoError(t, err)
	assert.Len(t, feed.Posts, 12)
	assert.Equal(t, models.MPagination{Total: 15, Page: 1, TotalPages: 2, Limit: 12}, feed.Pagination)
	assert.Equal(t, "a", feed.Posts[0].ID)

	feed, err = db.GetFeed(ctx, models.MFeedFilter{Page: 2, Limit: 12, Sentiment: "All", Source: "All"})
	require.NoError(t, err)
	assert.Len(t, feed.Posts, 3)

	feed, err = db.GetFeed(ctx, models.MFeedFilter{Sentiment: models.SentimentNegative})
	require.NoError(t, err)
	assert.Equal(t, 5, feed.Pagination.Total)
	for _, p := range feed.Posts {
		assert.Equal(t, models.SentimentNegative, p.SentimentClass)
	}

	feed, err = db.GetFeed(ctx, models.MFeedFilter{Source: "reddit", Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, models.MPagination{Total: 10, Page: 1, TotalPages: 3, Limit: 4}, feed.Pagination)

	feed, err = db.GetFeed(ctx, models.MFeedFilter{Source: "reddit", Sentiment: models.SentimentNegative})
	require.NoError(t, err)
	assert.Zero(t, feed.Pagination.Total)
	assert.Empty(t, feed.Posts)
	assert.NotNil(t, feed.Posts)
}

func TestSQLite_GetFeedSourceWildcardsAreLiteral(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.SavePosts(ctx, []models.MPost{
		post("a", "Post", "Reddit r/wall_street", models.SentimentPositive, now),
		post("b", "Post", "Reddit r/wallXstreet", models.SentimentPositive, now.Add(-time.Minute)),
		post("c", "Post", "100% Gains", models.SentimentNeutral, now.Add(-2*time.Minute)),
	}))

	feed, err := db.GetFeed(ctx, models.MFeedFilter{Source: "wall_street"})
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "a", feed.Posts[0].ID)

	feed, err = db.GetFeed(ctx, models.MFeedFilter{Source: "%"})
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "c", feed.Posts[0].ID)

	feed, err = db.GetFeed(ctx, models.MFeedFilter{Page: 1 << 60, Limit: 12})
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)
	assert.Equal(t, 3, feed.Pagination.Total)
}

func TestSQLite_GetStats(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.SavePosts(ctx, []models.MPost{
		post("1", "Nvidia earnings beat expectations", "Reddit", models.SentimentPositive, now.Add(-10*time.Minute)),
		post("2", "Why Nvidia keeps climbing", "YouTube", models.SentimentPositive, now.Add(-70*time.Minute)),
		post("3", "The market news update for today", "Reddit", models.SentimentNeutral, now.Add(-70*time.Minute)),
		post("4", "Apple slides", "Reddit", models.SentimentNegative, now.Add(-48*time.Hour)),
	}))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalPosts)
	assert.Equal(t, models.MSentimentCounts{Positive: 2, Negative: 1, Neutral: 1}, stats.SentimentCounts)
	assert.Equal(t, "Nvidia", stats.TopTrend)
	assert.Len(t, stats.RecentFeed, 4)
	assert.Equal(t, "1", stats.RecentFeed[0].ID)

	total := 0
	for _, p := range stats.TrendData {
		total += p.Positive + p.Negative + p.Neutral
		assert.Regexp(t, `^\d{2}:00$`, p.Time)
	}
	assert.Equal(t, 3, total)
	assert.GreaterOrEqual(t, len(stats.TrendData), 2)
}

func TestSQLite_GetStatsEmpty(t *testing.T) {
	db := newTestSQLite(t)

	stats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPosts)
	assert.Equal(t, DefaultTopTrend, stats.TopTrend)
	assert.NotNil(t, stats.TrendData)
	assert.NotNil(t, stats.RecentFeed)
}

func TestSeedDemoPosts_OnlyWhenEmpty(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()
	log := logger.NewNop("seed")

	require.NoError(t, SeedDemoPosts(ctx, db, 30, log))
	require.NoError(t, SeedDemoPosts(ctx, db, 30, log))

	feed, err := db.GetFeed(ctx, models.MFeedFilter{})
	require.NoError(t, err)
	assert.Equal(t, 30, feed.Pagination.Total)
}

func TestDemoPosts(t *testing.T) {
	now := time.Now()
	posts := DemoPosts(50, now, rand.New(rand.NewSource(3)))

	require.Len(t, posts, 50)
	for _, p := range posts {
		assert.NotEmpty(t, p.ID)
		assert.Contains(t, []string{models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral}, p.SentimentClass)
		assert.True(t, p.Timestamp.After(now.Add(-24*time.Hour)))
		assert.False(t, p.Timestamp.After(now))
	}
}

func TestTopTrend(t *testing.T) {
	assert.Equal(t, DefaultTopTrend, TopTrend(nil))
	assert.Equal(t, DefaultTopTrend, TopTrend([]string{"the market news", "a big day"}))
	assert.Equal(t, "Bitcoin", TopTrend([]string{"Bitcoin surges", "bitcoin ETF flows", "Gold surges"}))
	// ties go to the first word seen
	assert.Equal(t, "Tesla", TopTrend([]string{"Tesla Apple"}))
}
