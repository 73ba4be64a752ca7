package extract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsift/docsift/internal/common"
	"github.com/docsift/docsift/internal/contract"
	"github.com/docsift/docsift/internal/schema"
)

// Orchestrator runs single extractions against a Service and appends
// successes to history. It holds no per-document state, so one instance
// serves any number of concurrent extractions.
type Orchestrator struct {
	svc     Service
	history HistorySink
	log     *slog.Logger
}

func NewOrchestrator(svc Service, history HistorySink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{svc: svc, history: history, log: logger}
}

// Extract runs one document through the pipeline. Failures are typed
// (EmptySchemaError, ServiceError, MalformedResponseError) and never touch
// history; only a fully parsed result is appended.
func (o *Orchestrator) Extract(ctx context.Context, doc Document, fields []schema.Field, prompt, model string) (*Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	named := schema.Named(fields)
	if len(named) == 0 {
		return nil, &common.EmptySchemaError{}
	}

	outputContract := contract.Build(named)

	o.log.Info("extract.start",
		"req_id", rid,
		"file", doc.Name,
		"model", model,
		"fields", len(named),
		"bytes", len(doc.Data),
	)

	text, err := o.svc.Extract(ctx, Request{
		Model:       model,
		Document:    doc,
		Instruction: prompt,
		Contract:    outputContract,
	})
	if err != nil {
		var svcErr *common.ServiceError
		if !errors.As(err, &svcErr) {
			err = &common.ServiceError{Message: err.Error()}
		}
		o.log.Error("extract.service_error",
			"req_id", rid, "file", doc.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		mErr := common.NewMalformedResponseError(trimmed, err)
		o.log.Error("extract.malformed_response",
			"req_id", rid, "file", doc.Name, "error", mErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, mErr
	}

	// The service's structured-output guarantee is trusted; drift from the
	// contract is logged, never fatal.
	if vErr := contract.Validate(outputContract, []byte(trimmed)); vErr != nil {
		o.log.Warn("extract.contract_drift", "req_id", rid, "file", doc.Name, "error", vErr)
	}

	res := &Result{
		ID:        uuid.New(),
		FileID:    doc.ID,
		FileName:  doc.Name,
		Timestamp: time.Now().UTC(),
		Schema:    schema.Clone(fields),
		Data:      data,
	}
	if o.history != nil {
		if hErr := o.history.Append(ctx, *res); hErr != nil {
			o.log.Warn("extract.history_append_failed", "req_id", rid, "result_id", res.ID, "error", hErr)
		}
	}

	o.log.Info("extract.ok",
		"req_id", rid,
		"file", doc.Name,
		"result_id", res.ID,
		"keys", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
