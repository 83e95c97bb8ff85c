package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config  *models.MConfig
	DB      *sql.DB
	Schema  string
	Logger  *logger.Logger
	queries *postQueries
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Schema is named after the executable
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open postgres connection", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach postgres", err)
	}

	d.attach(db)

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to create schema %s", d.Schema), err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) attach(db *sql.DB) {
	d.DB = db
	d.queries = &postQueries{db: db, table: d.table(), bind: postgresBind, now: time.Now}
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table() string {
	return fmt.Sprintf(`"%s"."posts"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT,
			url TEXT,
			source TEXT,
			author TEXT,
			sentiment_class TEXT,
			confidence DOUBLE PRECISION,
			timestamp BIGINT NOT NULL
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create posts", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS posts_timestamp_idx ON %s (timestamp)`, d.table())
	if _, err := d.DB.Exec(index); err != nil {
		return helpers.NewDatabaseError("failed to index posts", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SavePosts(ctx context.Context, posts []models.MPost) error {
	return d.queries.savePosts(ctx, posts)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) GetStats(ctx context.Context) (*models.MSocialStats, error) {
	return d.queries.stats(ctx)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) GetFeed(ctx context.Context, filter models.MFeedFilter) (*models.MSocialFeed, error) {
	return d.queries.feed(ctx, filter)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) GetRecentPosts(ctx context.Context, limit int) ([]models.MPost, error) {
	return d.queries.recentPosts(ctx, limit)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
