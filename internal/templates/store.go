// Package templates persists reusable schema+prompt pairs. The list is
// loaded wholesale and saved per record; a template loaded from here is
// interchangeable with a freshly built schema.
package templates

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/docsift/docsift/internal/schema"
)

// Template is one saved schema+prompt pair.
type Template struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      []schema.Field `json:"schema"`
	Prompt      string         `json:"prompt"`
	CreatedAt   time.Time      `json:"created_at"`
}

// timeLayout is RFC 3339 with fixed-width nanoseconds, so the lexical
// ORDER BY created_at matches chronological order within a second.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const ddl = `CREATE TABLE IF NOT EXISTS templates (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    schema_json TEXT NOT NULL,
    prompt TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

// Store is the sqlite-backed template collection.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init templates schema: %w", err)
	}
	logger.Info("templates.open", "path", path)
	return &Store{db: db, log: logger}, nil
}

// List returns all templates, oldest first.
func (s *Store) List(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, schema_json, prompt, created_at
		 FROM templates ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var (
			idStr, name, description, schemaJSON, prompt, createdAt string
		)
		if err := rows.Scan(&idStr, &name, &description, &schemaJSON, &prompt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan template row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse template id %q: %w", idStr, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse template timestamp %q: %w", createdAt, err)
		}
		var fields []schema.Field
		if err := json.Unmarshal([]byte(schemaJSON), &fields); err != nil {
			return nil, fmt.Errorf("unmarshal template schema: %w", err)
		}
		out = append(out, Template{
			ID:          id,
			Name:        name,
			Description: description,
			Schema:      fields,
			Prompt:      prompt,
			CreatedAt:   ts,
		})
	}
	return out, rows.Err()
}

// Save upserts one template, assigning an ID and timestamp when missing.
func (s *Store) Save(ctx context.Context, t Template) (Template, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	schemaJSON, err := json.Marshal(t.Schema)
	if err != nil {
		return t, fmt.Errorf("marshal template schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (id, name, description, schema_json, prompt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     name = excluded.name,
		     description = excluded.description,
		     schema_json = excluded.schema_json,
		     prompt = excluded.prompt`,
		t.ID.String(), t.Name, t.Description, string(schemaJSON), t.Prompt,
		t.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return t, fmt.Errorf("save template: %w", err)
	}
	return t, nil
}

// Delete removes one template by ID.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
