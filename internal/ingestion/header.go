package ingestion

import (
	"strings"

	"github.com/rpattn/evservice/internal/domain"
)

// fallbackHeaderIndex is used when no row carries a header token; partner
// sheets usually start with a single title row.
const fallbackHeaderIndex = 1

var (
	exactHeaderTokens   = []string{"booking reference", "customer name"}
	partialHeaderTokens = []string{"service request", "vehicle model", "contact number"}
)

// LocateHeader returns the zero-based index of the column header row: the first
// row with a cell that equals or contains a header token.
func LocateHeader(grid Grid) (int, error) {
	if len(grid) < 2 {
		return 0, domain.ErrEmptyFile
	}

	for idx, row := range grid {
		if isHeaderRow(row) {
			return idx, nil
		}
	}
	return fallbackHeaderIndex, nil
}

func isHeaderRow(row []string) bool {
	for _, cell := range row {
		value := strings.ToLower(strings.TrimSpace(cell))
		if value == "" {
			continue
		}
		for _, token := range exactHeaderTokens {
			if value == token {
				return true
			}
		}
		for _, token := range partialHeaderTokens {
			if strings.Contains(value, token) {
				return true
			}
		}
	}
	return false
}
