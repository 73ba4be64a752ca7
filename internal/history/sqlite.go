package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/docsift/docsift/internal/extract"
)

const sqliteDDL = `CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    file_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    schema_json TEXT NOT NULL,
    data_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);`

// SQLite is the embedded history store.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	logger.Info("history.sqlite.open", "path", path)
	return &SQLite{db: db, log: logger}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]extract.Result, error) {
	rows, err := s.db.QueryContext(ctx,
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

func (s *SQLite) Append(ctx context.Context, res extract.Result) error {
	r, err := encodeResult(res)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (id, file_id, file_name, created_at, schema_json, data_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.id, r.fileID, r.fileName, r.createdAt, r.schemaJSON, r.dataJSON)
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

func (s *SQLite) ReplaceAll(ctx context.Context, results []extract.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for _, res := range results {
		r, err := encodeResult(res)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history (id, file_id, file_name, created_at, schema_json, data_json)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.id, r.fileID, r.fileName, r.createdAt, r.schemaJSON, r.dataJSON); err != nil {
			return fmt.Errorf("insert history row: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
