package ingestion

import (
	"strings"

	"github.com/rpattn/evservice/internal/domain"
)

// Cell is one header/value pair of a data row.
type Cell struct {
	Header string
	Value  string
}

// RawRow is one data row keyed by the trimmed header of its column.
type RawRow struct {
	// Number is the 1-based spreadsheet row number shown to users.
	Number int
	Cells  []Cell
}

// BuildRawRows turns every non-blank row below the header into a RawRow. Row
// numbers follow the physical sheet, so dropped blank rows do not shift them.
func BuildRawRows(grid Grid, headerIndex int) []RawRow {
	if headerIndex < 0 || headerIndex >= len(grid) {
		return nil
	}

	headers := make([]string, len(grid[headerIndex]))
	for i, value := range grid[headerIndex] {
		headers[i] = strings.TrimSpace(value)
	}

	rows := make([]RawRow, 0, len(grid)-headerIndex-1)
	for idx := headerIndex + 1; idx < len(grid); idx++ {
		row := grid[idx]
		if isBlankRow(row) {
			continue
		}

		cells := make([]Cell, 0, len(headers))
		for col, header := range headers {
			value := ""
			if col < len(row) {
				value = row[col]
			}
			cells = append(cells, Cell{Header: header, Value: value})
		}
		rows = append(rows, RawRow{Number: idx + 1, Cells: cells})
	}
	return rows
}

// Canonicalize maps a raw row onto canonical field names. For each field the
// aliases are tried in priority order and the first matching column supplies
// the value. A column consumed by an earlier field is not offered to later
// ones. Fields without a matching column map to "".
func Canonicalize(raw RawRow) map[string]string {
	values := make(map[string]string, len(domain.CanonicalFields))
	claimed := make([]bool, len(raw.Cells))

	for _, field := range domain.CanonicalFields {
		values[field.Name] = ""
	aliases:
		for _, alias := range field.Aliases {
			for col, cell := range raw.Cells {
				if claimed[col] || cell.Header == "" {
					continue
				}
				if strings.EqualFold(cell.Header, alias) {
					claimed[col] = true
					values[field.Name] = strings.TrimSpace(cell.Value)
					break aliases
				}
			}
		}
	}
	return values
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
