// Package export renders flattened extraction results to downloadable
// artifacts: CSV text, XLSX workbooks, paginated PDF tables, and raw JSON.
// Every renderer consumes the same column order and renders missing values as
// empty strings; a column is never dropped because one document lacks it.
package export

import (
	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/flatten"
	"github.com/docsift/docsift/internal/schema"
)

// Columns resolves the single column set shared by a batch export: the column
// order derived from the first result carrying a named schema, falling back
// to columns observed in the data (unioned across the batch, first-seen
// order) when no schema is available.
func Columns(results []extract.Result) []string {
	for _, r := range results {
		if cols := schema.Columns(r.Schema); len(cols) > 0 {
			return cols
		}
	}
	objs := make([]map[string]any, 0, len(results))
	for _, r := range results {
		objs = append(objs, r.Data)
	}
	return flatten.ColumnsFromData(objs)
}
