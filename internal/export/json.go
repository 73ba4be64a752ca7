package export

import (
	"encoding/json"

	"github.com/docsift/docsift/internal/extract"
)

// JSON renders the raw extracted data pretty-printed with 2-space indent.
// Schemas are not included. A single result dumps its object directly; a
// batch dumps an array.
func JSON(results []extract.Result) ([]byte, error) {
	if len(results) == 1 {
		return json.MarshalIndent(results[0].Data, "", "  ")
	}
	datas := make([]map[string]any, 0, len(results))
	for _, r := range results {
		datas = append(datas, r.Data)
	}
	return json.MarshalIndent(datas, "", "  ")
}
