package export

import (
	"bytes"
	"strings"

	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/flatten"
)

// utf8BOM keeps spreadsheet applications from misreading the encoding.
const utf8BOM = "\xEF\xBB\xBF"

// CSV renders one join-mode row per document. Every field is quoted, with
// embedded quotes doubled per RFC 4180; the header row is the column order
// verbatim.
func CSV(results []extract.Result, columns []string) []byte {
	var b bytes.Buffer
	b.WriteString(utf8BOM)
	writeCSVRow(&b, columns)
	for _, r := range results {
		flat := flatten.Flatten(r.Data)
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = flatten.Render(flat[col])
		}
		writeCSVRow(&b, row)
	}
	return b.Bytes()
}

func writeCSVRow(b *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
