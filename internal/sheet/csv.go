package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingIDColumn is returned when a CSV header has no "id" column.
var ErrMissingIDColumn = errors.New("csv header has no id column")

// ReadCSV parses character snapshots from CSV. The first row is a header; the "id"
// column is required, "name" is optional and every other column becomes an attribute.
func ReadCSV(r io.Reader) ([]Snapshot, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrMissingIDColumn
	}

	header := records[0]
	idCol, nameCol := -1, -1
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		header[i] = col
		if col == "" {
			return nil, fmt.Errorf("csv column %d has no name", i+1)
		}
		if seen[col] {
			return nil, fmt.Errorf("csv column %q appears twice", col)
		}
		seen[col] = true
		switch strings.ToLower(col) {
		case "id":
			idCol = i
		case "name":
			nameCol = i
		}
	}
	if idCol < 0 {
		return nil, ErrMissingIDColumn
	}

	out := make([]Snapshot, 0, len(records)-1)
	for n, record := range records[1:] {
		id := strings.TrimSpace(record[idCol])
		if id == "" {
			return nil, fmt.Errorf("csv row %d: %w", n+2, ErrEmptyCharacterID)
		}
		snap := Snapshot{ID: id, Name: id, Attributes: make(map[string]string, len(header))}
		for i, value := range record {
			switch i {
			case idCol:
			case nameCol:
				if v := strings.TrimSpace(value); v != "" {
					snap.Name = v
				}
			default:
				snap.Attributes[header[i]] = value
			}
		}
		out = append(out, snap)
	}
	return out, nil
}
