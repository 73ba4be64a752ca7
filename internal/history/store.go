// Package history persists extraction results. The store is append-only in
// normal operation; ReplaceAll exists for wholesale imports and pruning.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/schema"
)

// Store is the persistence contract for extraction history. Load returns
// results most-recent-first. Append must be safe under concurrent completion.
type Store interface {
	Load(ctx context.Context) ([]extract.Result, error)
	Append(ctx context.Context, res extract.Result) error
	ReplaceAll(ctx context.Context, results []extract.Result) error
	Clear(ctx context.Context) error
	Close() error
}

// timeLayout is RFC 3339 with fixed-width nanoseconds. created_at is a TEXT
// column ordered lexically, so the encoding must be fixed-width; RFC3339Nano
// trims trailing zeros and mis-orders timestamps within the same second.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// row is the wire shape shared by the sqlite and postgres backends.
type row struct {
	id         string
	fileID     string
	fileName   string
	createdAt  string
	schemaJSON string
	dataJSON   string
}

func encodeResult(res extract.Result) (row, error) {
	schemaJSON, err := json.Marshal(res.Schema)
	if err != nil {
		return row{}, fmt.Errorf("marshal schema: %w", err)
	}
	dataJSON, err := json.Marshal(res.Data)
	if err != nil {
		return row{}, fmt.Errorf("marshal data: %w", err)
	}
	return row{
		id:         res.ID.String(),
		fileID:     res.FileID,
		fileName:   res.FileName,
		createdAt:  res.Timestamp.UTC().Format(timeLayout),
		schemaJSON: string(schemaJSON),
		dataJSON:   string(dataJSON),
	}, nil
}

func decodeRow(r row) (extract.Result, error) {
	id, err := uuid.Parse(r.id)
	if err != nil {
		return extract.Result{}, fmt.Errorf("parse id %q: %w", r.id, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, r.createdAt)
	if err != nil {
		return extract.Result{}, fmt.Errorf("parse timestamp %q: %w", r.createdAt, err)
	}
	var fields []schema.Field
	if err := json.Unmarshal([]byte(r.schemaJSON), &fields); err != nil {
		return extract.Result{}, fmt.Errorf("unmarshal schema: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(r.dataJSON), &data); err != nil {
		return extract.Result{}, fmt.Errorf("unmarshal data: %w", err)
	}
	return extract.Result{
		ID:        id,
		FileID:    r.fileID,
		FileName:  r.fileName,
		Timestamp: ts,
		Schema:    fields,
		Data:      data,
	}, nil
}
