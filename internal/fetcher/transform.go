package fetcher

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// transformFile reads a downloaded vendor file and turns its rows into
// JSON-shaped item documents keyed by the header row. fileType "text" means
// tab-separated, everything else is treated as CSV with the configured
// delimiter.
func transformFile(path, fileType, delimiter string) ([]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// Vendor exports occasionally carry stray NUL bytes that break the
	// CSV reader.
	data = bytes.ReplaceAll(data, []byte{0}, nil)
	if !utf8.Valid(data) {
		data = latin1ToUTF8(data)
	}

	sep := detectDelimiter(fileType, delimiter)
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	items := make([]interface{}, 0, len(rows)-1)
	for _, row := range rows[1:] {
		item := make(map[string]interface{}, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(row) {
				item[key] = row[i]
			} else {
				item[key] = ""
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func detectDelimiter(fileType, delimiter string) rune {
	if strings.EqualFold(fileType, "text") || strings.EqualFold(fileType, "txt") {
		return '\t'
	}
	if delimiter != "" {
		r, _ := utf8.DecodeRuneInString(delimiter)
		return r
	}
	return ','
}

// latin1ToUTF8 reinterprets bytes as Latin-1. Some vendors ship exports in
// that encoding without declaring it.
func latin1ToUTF8(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data))
	for _, b := range data {
		buf.WriteRune(rune(b))
	}
	return buf.Bytes()
}
