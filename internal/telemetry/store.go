package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	sderrors "github.com/shaderdex/shaderdex/internal/errors"
)

// zeroResultCap bounds the zero-result query log (FIFO).
const zeroResultCap = 100

// Store is a SQLite-backed query telemetry store. Writes go straight
// to the database; CLI invocations are short-lived, so there is no
// in-memory aggregation to lose.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the telemetry database at path, creating the file and
// schema as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, sderrors.Newf(sderrors.ErrCodeTelemetry, "telemetry db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, sderrors.New(sderrors.ErrCodeTelemetry, "create telemetry dir", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, sderrors.New(sderrors.ErrCodeTelemetry, "open telemetry db", err).
			WithDetail("path", path)
	}

	// Single writer keeps lock contention off the query path.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL and busy_timeout must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, sderrors.New(sderrors.ErrCodeTelemetry, "set pragma", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, sderrors.Wrap(sderrors.ErrCodeTelemetry, err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	-- Clause-shape frequency (aggregated daily)
	CREATE TABLE IF NOT EXISTS query_shape_stats (
		date TEXT NOT NULL,
		shape TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, shape)
	);

	-- Query terms (tags, kind names, text words) with frequency count
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Zero-result queries (FIFO, trimmed to the cap on insert)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Latency histogram (buckets: <10ms, 10-50ms, 50-100ms, 100-500ms, >=500ms)
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// RecordQuery records one evaluated query in a single transaction.
func (s *Store) RecordQuery(ctx context.Context, rec QueryRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	date := ts.Format("2006-01-02")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO query_shape_stats (date, shape, count)
		VALUES (?, ?, 1)
		ON CONFLICT(date, shape) DO UPDATE SET count = count + 1
	`, date, rec.Shape); err != nil {
		return fmt.Errorf("upsert shape count: %w", err)
	}

	for _, term := range rec.Terms {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO query_terms (term, count, last_seen)
			VALUES (?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(term) DO UPDATE SET
				count = count + 1,
				last_seen = CURRENT_TIMESTAMP
		`, term); err != nil {
			return fmt.Errorf("upsert term count: %w", err)
		}
	}

	if rec.IsZeroResult() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO zero_result_queries (query, timestamp)
			VALUES (?, ?)
		`, rec.Text, ts); err != nil {
			return fmt.Errorf("insert zero-result query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM zero_result_queries
			WHERE id NOT IN (
				SELECT id FROM zero_result_queries
				ORDER BY id DESC
				LIMIT ?
			)
		`, zeroResultCap); err != nil {
			return fmt.Errorf("trim zero-result queries: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, 1)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + 1
	`, date, string(LatencyToBucket(rec.Latency))); err != nil {
		return fmt.Errorf("upsert latency count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TotalQueries returns the number of recorded queries across all days.
func (s *Store) TotalQueries(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(count) FROM query_shape_stats
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query total: %w", err)
	}
	return total.Int64, nil
}

// ShapeCounts returns recorded query counts grouped by clause shape.
func (s *Store) ShapeCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT shape, SUM(count) AS total
		FROM query_shape_stats
		GROUP BY shape
	`)
	if err != nil {
		return nil, fmt.Errorf("query shape counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var shape string
		var count int64
		if err := rows.Scan(&shape, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[shape] = count
	}
	return counts, rows.Err()
}

// TopTerms returns the top n terms by frequency.
func (s *Store) TopTerms(ctx context.Context, n int) ([]TermCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// ZeroResultQueries returns the n most recent zero-result query texts,
// newest first.
func (s *Store) ZeroResultQueries(ctx context.Context, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// LatencyBuckets returns the latency distribution across all days.
func (s *Store) LatencyBuckets(ctx context.Context) (map[LatencyBucket]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bucket, SUM(count) AS total
		FROM query_latency_stats
		GROUP BY bucket
	`)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[LatencyBucket]int64)
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[LatencyBucket(bucket)] = count
	}
	return counts, rows.Err()
}

// Summarize aggregates all readers into one report.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	total, err := s.TotalQueries(ctx)
	if err != nil {
		return nil, err
	}
	shapes, err := s.ShapeCounts(ctx)
	if err != nil {
		return nil, err
	}
	terms, err := s.TopTerms(ctx, 10)
	if err != nil {
		return nil, err
	}
	zero, err := s.ZeroResultQueries(ctx, 10)
	if err != nil {
		return nil, err
	}
	latency, err := s.LatencyBuckets(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		TotalQueries:      total,
		ShapeCounts:       shapes,
		TopTerms:          terms,
		ZeroResultQueries: zero,
		LatencyBuckets:    latency,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
