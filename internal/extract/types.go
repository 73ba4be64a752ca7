// Package extract drives one document extraction: schema filtering, contract
// translation, the call to the document understanding service, response
// parsing, and the history append.
package extract

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/docsift/docsift/internal/schema"
)

// Document is one uploaded file to extract from.
type Document struct {
	ID       string
	Name     string
	MIMEType string
	Data     []byte
}

// Request is what the document understanding service consumes: the document
// blob, a natural-language instruction, and the structured-output contract.
type Request struct {
	Model       string
	Document    Document
	Instruction string
	Contract    map[string]any
}

// Service is the document understanding service. Implementations return the
// raw response text, expected (but not guaranteed) to be JSON conforming to
// the request contract.
type Service interface {
	Extract(ctx context.Context, req Request) (string, error)
}

// Result is one successful extraction. Immutable once created; Schema is a
// frozen copy of the schema as it was at submission time.
type Result struct {
	ID        uuid.UUID      `json:"id"`
	FileID    string         `json:"file_id"`
	FileName  string         `json:"file_name"`
	Timestamp time.Time      `json:"timestamp"`
	Schema    []schema.Field `json:"schema"`
	Data      map[string]any `json:"extracted_data"`
}

// HistorySink receives completed results. Appends happen in completion
// order and must be safe under concurrent extractions.
type HistorySink interface {
	Append(ctx context.Context, res Result) error
}
