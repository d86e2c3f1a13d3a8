package ingestion

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rpattn/evservice/internal/domain"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Grid is the cell text of one sheet, row by row. Rows may have differing lengths.
type Grid [][]string

var (
	zipMagic = []byte("PK\x03\x04")

	unicodeBOMs = [][]byte{
		{0xEF, 0xBB, 0xBF},
		{0xFE, 0xFF},
		{0xFF, 0xFE},
	}
)

// LoadWorkbook parses an uploaded spreadsheet into a grid. Excel workbooks are
// read from their first sheet with raw cell values, so dates arrive as serial
// numbers. CSV files are decoded to UTF-8 first.
func LoadWorkbook(fileName string, payload []byte) (Grid, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, domain.ErrEmptyFile
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return loadExcel(payload)
	case ".csv", ".txt":
		return loadCSV(payload)
	default:
		if bytes.HasPrefix(payload, zipMagic) {
			return loadExcel(payload)
		}
		return loadCSV(payload)
	}
}

func loadExcel(payload []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open xlsx: %v", domain.ErrUnreadableFile, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: excel file has no sheets", domain.ErrUnreadableFile)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows from xlsx: %v", domain.ErrUnreadableFile, err)
	}
	return Grid(rows), nil
}

func loadCSV(payload []byte) (Grid, error) {
	text, err := decodeText(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableFile, err)
	}

	csvReader := csv.NewReader(bytes.NewReader(text))
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	records, err := csvReader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: failed to read csv at line %d: %v", domain.ErrUnreadableFile, parseErr.Line, parseErr.Err)
		}
		return nil, fmt.Errorf("%w: failed to read csv: %v", domain.ErrUnreadableFile, err)
	}
	return Grid(records), nil
}

// decodeText converts CSV bytes to UTF-8. A byte order mark selects the UTF-8
// or UTF-16 decoder; BOM-less input that is not valid UTF-8 is treated as
// Windows-1252, the usual export encoding of desktop spreadsheet tools.
func decodeText(payload []byte) ([]byte, error) {
	if !hasUnicodeBOM(payload) && !utf8.Valid(payload) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode windows-1252 text: %w", err)
		}
		return decoded, nil
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode unicode text: %w", err)
	}
	return decoded, nil
}

func hasUnicodeBOM(payload []byte) bool {
	for _, bom := range unicodeBOMs {
		if bytes.HasPrefix(payload, bom) {
			return true
		}
	}
	return false
}
