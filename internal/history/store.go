package history

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/voxkit/cleanscribe/internal/config"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID         int64     `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"request_id"`
	Input      string    `db:"input" json:"input"`
	Output     string    `db:"output" json:"output"`
	Language   string    `db:"language" json:"language"`
	DurationMS float64   `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Store persists pipeline runs in PostgreSQL.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          BIGSERIAL PRIMARY KEY,
	request_id  TEXT NOT NULL,
	input       TEXT NOT NULL,
	output      TEXT NOT NULL,
	language    TEXT NOT NULL,
	duration_ms DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pipeline_runs_created_at_idx ON pipeline_runs (created_at DESC);
`

// NewStore connects to the history database and ensures the schema exists.
func NewStore(cfg config.HistoryConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	logger.Info("History store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return store, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	return nil
}

// Insert records one pipeline run.
func (s *Store) Insert(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO pipeline_runs (request_id, input, output, language, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return s.db.QueryRowxContext(ctx, query,
		run.RequestID, run.Input, run.Output, run.Language, run.DurationMS,
	).Scan(&run.ID, &run.CreatedAt)
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	runs := []Run{}
	query := `
		SELECT id, request_id, input, output, language, duration_ms, created_at
		FROM pipeline_runs
		ORDER BY created_at DESC
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("history query failed: %w", err)
	}
	return runs, nil
}

// Close closes the database pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "postgres://***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
