package utils

import (
	"encoding/csv"
	"io"
)

// ParseCSV reads all rows, tolerating ragged row lengths; callers validate
// column counts themselves so they can report which row is short.
func ParseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}
