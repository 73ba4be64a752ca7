package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsift/docsift/internal/extract"
)

const postgresDDL = `CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    file_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    schema_json TEXT NOT NULL,
    data_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);`

// Postgres is the shared-database history store, for deployments where
// history must outlive a single host.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// OpenPostgres connects a pool, verifies connectivity, and ensures the
// history table exists.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	logger.Info("history.postgres.open")
	return &Postgres{pool: pool, log: logger}, nil
}

func (s *Postgres) Load(ctx context.Context) ([]extract.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, file_id, file_name, created_at, schema_json, data_json
		 FROM history ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []extract.Result
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.fileID, &r.fileName, &r.createdAt, &r.schemaJSON, &r.dataJSON); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		res, err := decodeRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *Postgres) Append(ctx context.Context, res extract.Result) error {
	r, err := encodeResult(res)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO history (id, file_id, file_name, created_at, schema_json, data_json)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.id, r.fileID, r.fileName, r.createdAt, r.schemaJSON, r.dataJSON)
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

func (s *Postgres) ReplaceAll(ctx context.Context, results []extract.Result) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for _, res := range results {
		r, err := encodeResult(res)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO history (id, file_id, file_name, created_at, schema_json, data_json)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			r.id, r.fileID, r.fileName, r.createdAt, r.schemaJSON, r.dataJSON); err != nil {
			return fmt.Errorf("insert history row: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Postgres) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
