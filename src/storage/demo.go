package storage

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"

	"github.com/google/uuid"
)

var (
	demoSources   = []string{"Reddit", "YouTube", "Yahoo Finance", "Seeking Alpha", "MarketWatch"}
	demoSubjects  = []string{"Nvidia", "Apple", "Bitcoin", "Tesla", "Amazon", "Treasury yields", "Fed"}
	demoTemplates = map[string][]string{
		models.SentimentPositive: {"%s rallies after strong earnings", "Analysts upgrade %s on demand", "%s breaks out to new highs"},
		models.SentimentNegative: {"%s slides as guidance disappoints", "Investors dump %s amid selloff", "%s faces regulatory pressure"},
		models.SentimentNeutral:  {"What to watch for %s this week", "%s trades flat ahead of data", "Options activity builds in %s"},
	}
	demoClasses = []string{models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral}
)

// -----------------------------------------------------------------------------

// DemoPosts generates n classified posts spread over the 24h before now.
func DemoPosts(n int, now time.Time, r *rand.Rand) []models.MPost {
	posts := make([]models.MPost, 0, n)
	for i := 0; i < n; i++ {
		class := demoClasses[r.Intn(len(demoClasses))]
		templates := demoTemplates[class]
		subject := demoSubjects[r.Intn(len(demoSubjects))]
		id := uuid.NewString()

		posts = append(posts, models.MPost{
			ID:             id,
			Title:          fmt.Sprintf(templates[r.Intn(len(templates))], subject),
			URL:            "https://example.com/posts/" + id,
			Source:         demoSources[r.Intn(len(demoSources))],
			Author:         fmt.Sprintf("user%03d", r.Intn(1000)),
			SentimentClass: class,
			Confidence:     0.5 + r.Float64()*0.5,
			Timestamp:      now.Add(-time.Duration(r.Int63n(int64(24 * time.Hour)))).UTC(),
		})
	}
	return posts
}

// -----------------------------------------------------------------------------

// SeedDemoPosts fills an empty store with demo posts. A store that already
// holds posts is left alone.
func SeedDemoPosts(ctx context.Context, store interfaces.ISentimentStore, n int, log *logger.Logger) error {
	existing, err := store.GetRecentPosts(ctx, 1)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Debug("Store already holds posts, skipping demo seed")
		return nil
	}

	now := time.Now()
	if err := store.SavePosts(ctx, DemoPosts(n, now, rand.New(rand.NewSource(now.UnixNano())))); err != nil {
		return err
	}
	log.Info("Seeded %d demo posts", n)
	return nil
}
