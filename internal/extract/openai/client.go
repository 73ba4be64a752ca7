// Package openai implements the document understanding service on top of an
// OpenAI-compatible chat/completions endpoint with vision input.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsift/docsift/internal/common"
	"github.com/docsift/docsift/internal/extract"
)

// Config for the client.
type Config struct {
	APIKey      string        // required
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // fallback when the request names no model
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// Extract submits the document and contract and returns the model's raw text
// response. Transport failures and non-2xx statuses come back as
// *common.ServiceError; parsing the text as JSON is the caller's job.
func (c *Client) Extract(ctx context.Context, req extract.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", model,
		"file", req.Document.Name,
		"mime", req.Document.MIMEType,
		"bytes", len(req.Document.Data),
	)

	body := map[string]any{
		"model":           model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt(req.Instruction)},
			{"role": "user", "content": buildUserContent(req.Document)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(req.Contract)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &common.ServiceError{Message: fmt.Sprintf("decode completion response: %v", err)}
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid, "raw_bytes", len(raw))
		return "", &common.ServiceError{Message: "no choices in completion response"}
	}

	content := stripCodeBlock(cc.Choices[0].Message.Content)
	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, &common.ServiceError{Message: fmt.Sprintf("marshal request: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, &common.ServiceError{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &common.ServiceError{Message: err.Error()}
	}
	defer func(rc io.ReadCloser) {
		if err := rc.Close(); err != nil {
			c.log.Warn("response body close error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &common.ServiceError{Status: resp.StatusCode, Message: string(raw)}
	}
	return raw, nil
}

func buildSystemPrompt(instruction string) string {
	parts := []string{
		"You are a document data extractor. Return ONLY JSON that matches the JSON Schema provided.",
		"Never output null. If a field is not present in the document, use an empty string, 0, false, or an empty array as appropriate.",
		"Do not wrap the JSON in markdown fences or add commentary.",
	}
	if s := strings.TrimSpace(instruction); s != "" {
		parts = append(parts, "Task: "+s)
	}
	return strings.Join(parts, " ")
}

// buildUserContent attaches the document as a data URL. Images go through the
// image_url content part; PDFs use the file part with inline file_data.
func buildUserContent(doc extract.Document) []map[string]any {
	mime := doc.MIMEType
	if mime == "" {
		mime = "application/octet-stream"
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)

	if strings.HasPrefix(mime, "image/") {
		return []map[string]any{
			{"type": "text", "text": "Extract the requested fields from this document: " + doc.Name},
			{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
		}
	}
	return []map[string]any{
		{"type": "text", "text": "Extract the requested fields from this document: " + doc.Name},
		{"type": "file", "file": map[string]any{"filename": doc.Name, "file_data": dataURL}},
	}
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
