package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsift/docsift/internal/async"
	"github.com/docsift/docsift/internal/common"
	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/history"
	"github.com/docsift/docsift/internal/templates"
)

const totalSchema = `[{"id":"f1","name":"total","type":"NUMBER"}]`

type stubService struct {
	text string
	err  error
}

func (s *stubService) Extract(_ context.Context, _ extract.Request) (string, error) {
	return s.text, s.err
}

type testEnv struct {
	srv   *Server
	queue *async.Queue
	board *extract.Board
}

func newTestEnv(t *testing.T, svc extract.Service) *testEnv {
	t.Helper()
	dir := t.TempDir()

	hist, err := history.OpenSQLite(filepath.Join(dir, "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	tmpl, err := templates.Open(filepath.Join(dir, "templates.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tmpl.Close() })

	orch := extract.NewOrchestrator(svc, hist, nil)
	board := extract.NewBoard()
	queue := async.NewQueue(orch, board, nil, async.WithWorkers(2))
	t.Cleanup(func() { queue.Shutdown(context.Background()) })

	return &testEnv{
		srv:   NewServer(orch, queue, board, hist, tmpl, nil),
		queue: queue,
		board: board,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.srv.ServeHTTP(rr, req)
	return rr
}

func multipartExtract(t *testing.T, target, fileField string, names []string, schemaJSON string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("schema", schemaJSON))
	for _, n := range names {
		fw, err := w.CreateFormFile(fileField, n)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake document bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestExtractHappyPath(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{"total": 42.5}`})

	rr := env.do(multipartExtract(t, "/api/extract", "file", []string{"invoice.png"}, totalSchema))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res extract.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "invoice.png", res.FileName)
	assert.Equal(t, 42.5, res.Data["total"])

	// the result was appended to history
	hr := env.do(httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, hr.Code)
	var stored []extract.Result
	require.NoError(t, json.Unmarshal(hr.Body.Bytes(), &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, res.ID, stored[0].ID)
}

func TestExtractRequiresSchema(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "invoice.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("x"))
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/extract", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rr := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExtractEmptySchemaIsBadRequest(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})
	schemaJSON := `[{"id":"f1","name":"","type":"STRING"}]`
	rr := env.do(multipartExtract(t, "/api/extract", "file", []string{"invoice.png"}, schemaJSON))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no named fields")
}

func TestExtractServiceFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, &stubService{err: &common.ServiceError{Status: 500, Message: "upstream down"}})
	rr := env.do(multipartExtract(t, "/api/extract", "file", []string{"invoice.png"}, totalSchema))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestExtractMalformedResponseIsBadGateway(t *testing.T) {
	env := newTestEnv(t, &stubService{text: "sorry, no"})
	rr := env.do(multipartExtract(t, "/api/extract", "file", []string{"invoice.png"}, totalSchema))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "not valid JSON")
}

func TestExtractBatch(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{"total": 1}`})

	rr := env.do(multipartExtract(t, "/api/extract/batch", "files", []string{"a.png", "b.png"}, totalSchema))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var queued []struct {
		DocID    string `json:"doc_id"`
		FileName string `json:"file_name"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &queued))
	require.Len(t, queued, 2)
	assert.Equal(t, "pending", queued[0].Status)

	// drain the workers, then every document must be terminal and completed
	env.queue.Shutdown(context.Background())
	for _, q := range queued {
		sr := env.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/extract/%s/status", q.DocID), nil))
		require.Equal(t, http.StatusOK, sr.Code)
		assert.Contains(t, sr.Body.String(), `"completed"`)
	}
}

func TestExtractBatchRequiresFiles(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})
	rr := env.do(multipartExtract(t, "/api/extract/batch", "files", nil, totalSchema))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExtractStatusUnknownDocument(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/extract/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestClearHistory(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{"total": 1}`})
	require.Equal(t, http.StatusOK,
		env.do(multipartExtract(t, "/api/extract", "file", []string{"a.png"}, totalSchema)).Code)

	rr := env.do(httptest.NewRequest(http.MethodDelete, "/api/history", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	hr := env.do(httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.JSONEq(t, `[]`, hr.Body.String())
}

func TestTemplatesCRUD(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})

	body := `{"name": "invoices", "prompt": "extract totals", "schema": ` + totalSchema + `}`
	rr := env.do(httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var saved templates.Template
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &saved))
	assert.Equal(t, "invoices", saved.Name)

	lr := env.do(httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	var list []templates.Template
	require.NoError(t, json.Unmarshal(lr.Body.Bytes(), &list))
	require.Len(t, list, 1)

	dr := env.do(httptest.NewRequest(http.MethodDelete, "/api/templates/"+saved.ID.String(), nil))
	require.Equal(t, http.StatusOK, dr.Code)

	lr = env.do(httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	assert.JSONEq(t, `[]`, lr.Body.String())
}

func TestSaveTemplateRequiresName(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})
	rr := env.do(httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(`{"prompt": "p"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteTemplateRejectsBadID(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})
	rr := env.do(httptest.NewRequest(http.MethodDelete, "/api/templates/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{"total": 42.5}`})
	require.Equal(t, http.StatusOK,
		env.do(multipartExtract(t, "/api/extract", "file", []string{"a.png"}, totalSchema)).Code)

	rr := env.do(httptest.NewRequest(http.MethodPost, "/api/export/csv", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="extraction.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Contains(t, rr.Body.String(), `"total"`)
	assert.Contains(t, rr.Body.String(), `"42.5"`)
}

func TestExportUnknownFormat(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})
	rr := env.do(httptest.NewRequest(http.MethodPost, "/api/export/docx", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportEmptyHistory(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{}`})
	rr := env.do(httptest.NewRequest(http.MethodPost, "/api/export/csv", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no results to export")
}

func TestExportFiltersByResultID(t *testing.T) {
	env := newTestEnv(t, &stubService{text: `{"total": 1}`})
	require.Equal(t, http.StatusOK,
		env.do(multipartExtract(t, "/api/extract", "file", []string{"a.png"}, totalSchema)).Code)

	body := strings.NewReader(`{"result_ids": ["00000000-0000-0000-0000-000000000001"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/export/json", body)
	rr := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
