package storage

import (
	"context"
	"database/sql"
	"time"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config  *models.MConfig
	DB      *sql.DB
	Logger  *logger.Logger
	queries *postQueries
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open sqlite database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach sqlite database", err)
	}

	// every pooled connection would get its own empty in-memory database
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	d.attach(db)

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("SQLite store initialized (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) attach(db *sql.DB) {
	d.DB = db
	d.queries = &postQueries{db: db, table: "posts", bind: sqliteBind, now: time.Now}
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT,
			url TEXT,
			source TEXT,
			author TEXT,
			sentiment_class TEXT,
			confidence REAL,
			timestamp INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create posts", err)
	}

	if _, err := d.DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_timestamp ON posts (timestamp)"); err != nil {
		return helpers.NewDatabaseError("failed to index posts", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SavePosts(ctx context.Context, posts []models.MPost) error {
	return d.queries.savePosts(ctx, posts)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) GetStats(ctx context.Context) (*models.MSocialStats, error) {
	return d.queries.stats(ctx)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) GetFeed(ctx context.Context, filter models.MFeedFilter) (*models.MSocialFeed, error) {
	return d.queries.feed(ctx, filter)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) GetRecentPosts(ctx context.Context, limit int) ([]models.MPost, error) {
	return d.queries.recentPosts(ctx, limit)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
