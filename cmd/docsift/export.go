package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsift/docsift/internal/export"
	"github.com/docsift/docsift/internal/extract"
)

var (
	flagFormat     string
	flagIn         string
	flagExportOut  string
	flagTransposed bool
	flagVertical   bool
	flagTitle      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export collected extraction results to csv, xlsx, pdf, or json",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagFormat, "format", "csv", "output format: csv, xlsx, pdf, json")
	exportCmd.Flags().StringVar(&flagIn, "in", "results.json", "results file produced by 'docsift extract'")
	exportCmd.Flags().StringVar(&flagExportOut, "out", "", "output file (default: input base name with the format extension)")
	exportCmd.Flags().BoolVar(&flagTransposed, "transposed", false, "xlsx only: fields as rows, one column per record")
	exportCmd.Flags().BoolVar(&flagVertical, "vertical", false, "pdf only: fields as rows, one column per document")
	exportCmd.Flags().StringVar(&flagTitle, "title", "", "pdf only: table title")
}

func runExport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(flagIn)
	if err != nil {
		return fmt.Errorf("read %s: %w", flagIn, err)
	}
	var results []extract.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return fmt.Errorf("%s is not a results file: %w", flagIn, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no results to export")
	}

	columns := export.Columns(results)

	var payload []byte
	switch flagFormat {
	case "csv":
		payload = export.CSV(results, columns)
	case "xlsx":
		if flagTransposed {
			payload, err = export.XLSXTransposed(results, columns)
		} else {
			payload, err = export.XLSX(results, columns)
		}
	case "pdf":
		if flagVertical {
			payload, err = export.PDFVertical(results, columns, flagTitle)
		} else {
			payload, err = export.PDF(results, columns, flagTitle)
		}
	case "json":
		payload, err = export.JSON(results)
	default:
		return fmt.Errorf("unknown format %q", flagFormat)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", flagFormat, err)
	}

	out := flagExportOut
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(flagIn), filepath.Ext(flagIn))
		out = base + "." + flagFormat
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes, %d record(s))\n", out, len(payload), len(results))
	return nil
}
