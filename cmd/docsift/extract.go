package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/docsift/docsift/internal/async"
	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/extract/openai"
	"github.com/docsift/docsift/internal/schema"
)

var (
	flagSchemaPath string
	flagPrompt     string
	flagOut        string
	flagWorkers    int
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract structured data from documents using a schema file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&flagSchemaPath, "schema", "", "path to the schema JSON file (required)")
	extractCmd.Flags().StringVar(&flagPrompt, "prompt", "", "natural-language extraction instruction")
	extractCmd.Flags().StringVar(&flagOut, "out", "results.json", "output file for collected results")
	extractCmd.Flags().IntVar(&flagWorkers, "workers", 4, "concurrent extractions")
	_ = extractCmd.MarkFlagRequired("schema")
}

// collector gathers completed results in completion order.
type collector struct {
	mu      sync.Mutex
	results []extract.Result
}

func (c *collector) Append(_ context.Context, res extract.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(flagSchemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	var fields []schema.Field
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("schema is not valid JSON: %w", err)
	}

	svc := openai.NewClient(openai.Config{
		APIKey:  viper.GetString("api-key"),
		BaseURL: viper.GetString("base-url"),
		Model:   viper.GetString("model"),
	}, slog.Default())

	sink := &collector{}
	orch := extract.NewOrchestrator(svc, sink, slog.Default())
	board := extract.NewBoard()
	queue := async.NewQueue(orch, board, slog.Default(), async.WithWorkers(flagWorkers))

	names := make(map[string]string, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		doc := extract.Document{
			ID:       uuid.NewString(),
			Name:     filepath.Base(path),
			MIMEType: http.DetectContentType(data),
			Data:     data,
		}
		names[doc.ID] = doc.Name
		_ = queue.Enqueue(cmd.Context(), async.Job{
			Document:    doc,
			Fields:      fields,
			Prompt:      flagPrompt,
			Model:       viper.GetString("model"),
			SubmittedAt: time.Now().UTC(),
		})
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	queue.Shutdown(drainCtx)

	failed := 0
	states := board.Snapshot()
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return names[ids[i]] < names[ids[j]] })
	for _, id := range ids {
		st := states[id]
		if st.Status == extract.StatusError {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", names[id], st.Status, st.Message)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s: %s\n", names[id], st.Status)
	}

	out, err := json.MarshalIndent(sink.results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(flagOut, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", flagOut, err)
	}
	fmt.Printf("wrote %d result(s) to %s\n", len(sink.results), flagOut)
	if failed > 0 {
		return fmt.Errorf("%d document(s) failed", failed)
	}
	return nil
}
