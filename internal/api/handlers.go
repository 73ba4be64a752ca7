package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docsift/docsift/internal/async"
	"github.com/docsift/docsift/internal/common"
	"github.com/docsift/docsift/internal/export"
	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/schema"
	"github.com/docsift/docsift/internal/templates"
)

const maxUploadBytes = 32 << 20

// parseExtractForm pulls the shared multipart fields out of an extract
// request: the schema forest, prompt, and model choice.
func parseExtractForm(r *http.Request) ([]schema.Field, string, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", "", fmt.Errorf("invalid multipart form: %w", err)
	}
	var fields []schema.Field
	raw := r.FormValue("schema")
	if raw == "" {
		return nil, "", "", fmt.Errorf("schema is required")
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, "", "", fmt.Errorf("schema is not valid JSON: %w", err)
	}
	for _, f := range fields {
		if f.Err != "" {
			return nil, "", "", fmt.Errorf("field %q has a validation error: %s", f.Name, f.Err)
		}
	}
	return fields, r.FormValue("prompt"), r.FormValue("model"), nil
}

func readUpload(r *http.Request, field string) (extract.Document, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return extract.Document{}, fmt.Errorf("%s is required: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return extract.Document{}, fmt.Errorf("read upload: %w", err)
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return extract.Document{
		ID:       uuid.NewString(),
		Name:     header.Filename,
		MIMEType: mime,
		Data:     data,
	}, nil
}

// handleExtract runs one synchronous extraction.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	fields, prompt, model, err := parseExtractForm(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := readUpload(r, "file")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.orch.Extract(r.Context(), doc, fields, prompt, model)
	if err != nil {
		status := http.StatusInternalServerError
		var emptyErr *common.EmptySchemaError
		var svcErr *common.ServiceError
		var malErr *common.MalformedResponseError
		switch {
		case errors.As(err, &emptyErr):
			status = http.StatusBadRequest
		case errors.As(err, &svcErr), errors.As(err, &malErr):
			status = http.StatusBadGateway
		}
		jsonError(w, err.Error(), status)
		return
	}
	jsonOK(w, res)
}

// handleExtractBatch enqueues every uploaded file as an independent
// extraction; documents fail or complete individually.
func (s *Server) handleExtractBatch(w http.ResponseWriter, r *http.Request) {
	fields, prompt, model, err := parseExtractForm(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(schema.Named(fields)) == 0 {
		jsonError(w, (&common.EmptySchemaError{}).Error(), http.StatusBadRequest)
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		jsonError(w, "files is required", http.StatusBadRequest)
		return
	}

	type queued struct {
		DocID    string `json:"doc_id"`
		FileName string `json:"file_name"`
		Status   string `json:"status"`
	}
	var out []queued
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			jsonError(w, "open upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		_ = f.Close()
		if err != nil {
			jsonError(w, "read upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		mime := header.Header.Get("Content-Type")
		if mime == "" {
			mime = http.DetectContentType(data)
		}
		doc := extract.Document{
			ID:       uuid.NewString(),
			Name:     header.Filename,
			MIMEType: mime,
			Data:     data,
		}
		_ = s.queue.Enqueue(r.Context(), async.Job{
			Document:    doc,
			Fields:      fields,
			Prompt:      prompt,
			Model:       model,
			SubmittedAt: time.Now().UTC(),
		})
		out = append(out, queued{DocID: doc.ID, FileName: doc.Name, Status: string(extract.StatusPending)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleExtractStatus(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	st, ok := s.board.Get(docID)
	if !ok {
		jsonError(w, "unknown document", http.StatusNotFound)
		return
	}
	resp := map[string]any{"doc_id": docID, "status": st.Status}
	if st.Message != "" {
		resp["error"] = st.Message
	}
	if st.ResultID != uuid.Nil {
		resp["result_id"] = st.ResultID
	}
	jsonOK(w, resp)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	results, err := s.history.Load(r.Context())
	if err != nil {
		jsonError(w, "load history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []extract.Result{}
	}
	jsonOK(w, results)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		jsonError(w, "clear history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]string{"status": "cleared"})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.templates.List(r.Context())
	if err != nil {
		jsonError(w, "list templates: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []templates.Template{}
	}
	jsonOK(w, list)
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var t templates.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		jsonError(w, "invalid template: "+err.Error(), http.StatusBadRequest)
		return
	}
	if t.Name == "" {
		jsonError(w, "template name is required", http.StatusBadRequest)
		return
	}
	saved, err := s.templates.Save(r.Context(), t)
	if err != nil {
		jsonError(w, "save template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, saved)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		jsonError(w, "template id must be a UUID", http.StatusBadRequest)
		return
	}
	if err := s.templates.Delete(r.Context(), id); err != nil {
		jsonError(w, "delete template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]string{"status": "deleted"})
}

type exportRequest struct {
	ResultIDs  []uuid.UUID `json:"result_ids,omitempty"`
	BaseName   string      `json:"base_name,omitempty"`
	Title      string      `json:"title,omitempty"`
	Transposed bool        `json:"transposed,omitempty"`
	Vertical   bool        `json:"vertical,omitempty"`
}

var exportContentTypes = map[string]string{
	"csv":  "text/csv; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"pdf":  "application/pdf",
	"json": "application/json",
}

// handleExport renders selected history results (all, when no IDs are given)
// to the requested format and streams the file back.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	contentType, ok := exportContentTypes[format]
	if !ok {
		jsonError(w, "format must be one of csv, xlsx, pdf, json", http.StatusBadRequest)
		return
	}

	var req exportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid export request: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	all, err := s.history.Load(r.Context())
	if err != nil {
		jsonError(w, "load history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	results := selectResults(all, req.ResultIDs)
	if len(results) == 0 {
		jsonError(w, "no results to export", http.StatusBadRequest)
		return
	}

	columns := export.Columns(results)

	var payload []byte
	switch format {
	case "csv":
		payload = export.CSV(results, columns)
	case "xlsx":
		if req.Transposed {
			payload, err = export.XLSXTransposed(results, columns)
		} else {
			payload, err = export.XLSX(results, columns)
		}
	case "pdf":
		if req.Vertical {
			payload, err = export.PDFVertical(results, columns, req.Title)
		} else {
			payload, err = export.PDF(results, columns, req.Title)
		}
	case "json":
		payload, err = export.JSON(results)
	}
	if err != nil {
		jsonError(w, "render export: "+err.Error(), http.StatusInternalServerError)
		return
	}

	baseName := req.BaseName
	if baseName == "" {
		baseName = "extraction"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", baseName+"."+format))
	_, _ = w.Write(payload)
}

func selectResults(all []extract.Result, ids []uuid.UUID) []extract.Result {
	if len(ids) == 0 {
		return all
	}
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]extract.Result, 0, len(ids))
	for _, r := range all {
		if _, ok := want[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}
