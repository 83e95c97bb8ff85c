package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/models"

	"github.com/google/uuid"
)

const (
	DefaultFeedPage  = 1
	DefaultFeedLimit = 12
	MaxFeedLimit     = 100
	RecentFeedSize   = 20
	RecentPostsSize  = 50
	TrendTitleSample = 50
	DefaultTopTrend  = "General Market"
)

var (
	trendStopWords = map[string]bool{
		"the": true, "and": true, "for": true, "that": true, "with": true, "from": true,
		"this": true, "market": true, "stock": true, "video": true, "news": true,
		"update": true, "analysis": true, "price": true, "today": true, "2025": true, "2024": true,
	}
	wordPattern = regexp.MustCompile(`\b\w+\b`)

	// likeEscaper makes a user string match literally inside LIKE ... ESCAPE '\'
	likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
)

const postColumns = "id, title, url, source, author, sentiment_class, confidence, timestamp"

// -----------------------------------------------------------------------------
// postQueries holds the SQL shared by every backend. Backends differ only in
// the table reference and the bind placeholder syntax.
// -----------------------------------------------------------------------------

type postQueries struct {
	db    *sql.DB
	table string
	bind  func(n int) string
	now   func() time.Time
}

func sqliteBind(int) string { return "?" }

func postgresBind(n int) string { return fmt.Sprintf("$%d", n) }

// -----------------------------------------------------------------------------

func (q *postQueries) binds(from, count int) string {
	out := make([]string, count)
	for i := range out {
		out[i] = q.bind(from + i)
	}
	return strings.Join(out, ", ")
}

// -----------------------------------------------------------------------------

func (q *postQueries) savePosts(ctx context.Context, posts []models.MPost) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			source = excluded.source,
			author = excluded.author,
			sentiment_class = excluded.sentiment_class,
			confidence = excluded.confidence,
			timestamp = excluded.timestamp
	`, q.table, postColumns, q.binds(1, 8))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return helpers.NewDatabaseError("failed to prepare post upsert", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Timestamp.IsZero() {
			p.Timestamp = q.now()
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Title, p.URL, p.Source, p.Author,
			p.SentimentClass, p.Confidence, p.Timestamp.UnixMilli()); err != nil {
			return helpers.NewDatabaseError(fmt.Sprintf("failed to save post '%s'", p.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("failed to commit posts", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (q *postQueries) recentPosts(ctx context.Context, limit int) ([]models.MPost, error) {
	if limit <= 0 {
		limit = RecentPostsSize
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY timestamp DESC LIMIT %s", postColumns, q.table, q.bind(1))

	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to query recent posts", err)
	}
	return scanPosts(rows)
}

// -----------------------------------------------------------------------------

func (q *postQueries) feed(ctx context.Context, filter models.MFeedFilter) (*models.MSocialFeed, error) {
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = DefaultFeedPage
	}
	if limit < 1 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	var where []string
	var args []interface{}
	if s := filter.Sentiment; s != "" && s != "All" {
		args = append(args, s)
		where = append(where, "sentiment_class = "+q.bind(len(args)))
	}
	if s := filter.Source; s != "" && s != "All" {
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(s))+"%")
		where = append(where, "LOWER(source) LIKE "+q.bind(len(args))+` ESCAPE '\'`)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", q.table, clause)
	if err := q.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, helpers.NewDatabaseError("failed to count posts", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	// Pages past the end are empty; skipping the query keeps the offset in range.
	posts := []models.MPost{}
	if page <= totalPages {
		pageQuery := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY timestamp DESC LIMIT %s OFFSET %s",
			postColumns, q.table, clause, q.bind(len(args)+1), q.bind(len(args)+2))
		rows, err := q.db.QueryContext(ctx, pageQuery, append(args, limit, (page-1)*limit)...)
		if err != nil {
			return nil, helpers.NewDatabaseError("failed to query feed", err)
		}
		if posts, err = scanPosts(rows); err != nil {
			return nil, err
		}
	}

	return &models.MSocialFeed{
		Posts: posts,
		Pagination: models.MPagination{
			Total:      total,
			Page:       page,
			TotalPages: totalPages,
			Limit:      limit,
		},
	}, nil
}

// -----------------------------------------------------------------------------

func (q *postQueries) stats(ctx context.Context) (*models.MSocialStats, error) {
	stats := &models.MSocialStats{TopTrend: DefaultTopTrend, TrendData: []models.MTrendPoint{}}

	// 1. Sentiment breakdown, the total includes unclassified rows
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf("SELECT sentiment_class, COUNT(*) FROM %s GROUP BY sentiment_class", q.table))
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to count sentiment classes", err)
	}
	for rows.Next() {
		var class sql.NullString
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			rows.Close()
			return nil, helpers.NewDatabaseError("failed to scan sentiment count", err)
		}
		stats.TotalPosts += count
		switch class.String {
		case models.SentimentPositive:
			stats.SentimentCounts.Positive = count
		case models.SentimentNegative:
			stats.SentimentCounts.Negative = count
		case models.SentimentNeutral:
			stats.SentimentCounts.Neutral = count
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	// 2. Top trend from recent titles
	titles, err := q.recentTitles(ctx, TrendTitleSample)
	if err != nil {
		return nil, err
	}
	stats.TopTrend = TopTrend(titles)

	// 3. Hourly trend over the last 24h
	since := q.now().Add(-24 * time.Hour).UnixMilli()
	rows, err = q.db.QueryContext(ctx,
		fmt.Sprintf("SELECT sentiment_class, timestamp FROM %s WHERE timestamp >= %s ORDER BY timestamp", q.table, q.bind(1)), since)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to query sentiment trend", err)
	}
	var samples []trendSample
	for rows.Next() {
		var s trendSample
		var class sql.NullString
		if err := rows.Scan(&class, &s.millis); err != nil {
			rows.Close()
			return nil, helpers.NewDatabaseError("failed to scan trend row", err)
		}
		s.class = class.String
		samples = append(samples, s)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	stats.TrendData = hourlyTrend(samples)

	// 4. Recent feed
	if stats.RecentFeed, err = q.recentPosts(ctx, RecentFeedSize); err != nil {
		return nil, err
	}
	return stats, nil
}

// -----------------------------------------------------------------------------

func (q *postQueries) recentTitles(ctx context.Context, limit int) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		fmt.Sprintf("SELECT title FROM %s ORDER BY timestamp DESC LIMIT %s", q.table, q.bind(1)), limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to query titles", err)
	}
	var titles []string
	for rows.Next() {
		var title sql.NullString
		if err := rows.Scan(&title); err != nil {
			rows.Close()
			return nil, helpers.NewDatabaseError("failed to scan title", err)
		}
		titles = append(titles, title.String)
	}
	return titles, closeRows(rows)
}

// -----------------------------------------------------------------------------

// TopTrend returns the most frequent meaningful word across titles,
// capitalised. Ties go to the word seen first.
func TopTrend(titles []string) string {
	counts := make(map[string]int)
	var order []string
	for _, title := range titles {
		for _, w := range wordPattern.FindAllString(strings.ToLower(title), -1) {
			if len(w) <= 3 || trendStopWords[w] {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	top, best := DefaultTopTrend, 0
	for _, w := range order {
		if counts[w] > best {
			best = counts[w]
			top = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return top
}

// -----------------------------------------------------------------------------

type trendSample struct {
	class  string
	millis int64
}

// hourlyTrend buckets samples by UTC hour in chronological order.
func hourlyTrend(samples []trendSample) []models.MTrendPoint {
	points := []models.MTrendPoint{}
	index := make(map[int64]int)
	for _, s := range samples {
		hour := time.UnixMilli(s.millis).UTC().Truncate(time.Hour)
		key := hour.Unix()
		i, ok := index[key]
		if !ok {
			i = len(points)
			index[key] = i
			points = append(points, models.MTrendPoint{Time: fmt.Sprintf("%02d:00", hour.Hour())})
		}
		switch s.class {
		case models.SentimentPositive:
			points[i].Positive++
		case models.SentimentNegative:
			points[i].Negative++
		case models.SentimentNeutral:
			points[i].Neutral++
		}
	}
	return points
}

// -----------------------------------------------------------------------------

func scanPosts(rows *sql.Rows) ([]models.MPost, error) {
	posts := []models.MPost{}
	for rows.Next() {
		var p models.MPost
		var title, url, source, author, class sql.NullString
		var confidence sql.NullFloat64
		var millis int64
		if err := rows.Scan(&p.ID, &title, &url, &source, &author, &class, &confidence, &millis); err != nil {
			rows.Close()
			return nil, helpers.NewDatabaseError("failed to scan post", err)
		}
		p.Title, p.URL, p.Source, p.Author = title.String, url.String, source.String, author.String
		p.SentimentClass = class.String
		p.Confidence = confidence.Float64
		p.Timestamp = time.UnixMilli(millis).UTC()
		posts = append(posts, p)
	}
	return posts, closeRows(rows)
}

// -----------------------------------------------------------------------------

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return helpers.NewDatabaseError("failed to iterate rows", err)
	}
	return rows.Close()
}
