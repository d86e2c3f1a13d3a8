package ingestion

import (
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/evservice/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// excelEpochOffset is the serial number of 1970-01-01 in the 1900 date system.
	excelEpochOffset = 25569
	maxExcelSerial   = 100000

	minDateYear = 1900
	maxDateYear = 2100
)

var (
	// dateLayouts are tried in order; day-first layouts follow the ISO and
	// month-first ones.
	dateLayouts = []string{
		"2006-01-02",
		"01/02/2006",
		"02-01-2006",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"02/01/2006",
		"02-Jan-2006",
		"02 Jan 2006",
		"Jan 2, 2006",
		"2 January 2006",
	}

	contactNumberNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// CoerceDate converts a cell to a calendar date. Blank cells yield no value and
// fail only when required. Numeric cells in (0, 100000) are tried as
// spreadsheet serial dates first; everything else must match one of the known
// layouts. Dates outside 1900-2100 are rejected.
func CoerceDate(value string, required bool) (domain.Date, bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required {
			return domain.Date{}, false, &domain.InvalidDateError{Value: value}
		}
		return domain.Date{}, false, nil
	}

	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil && serial > 0 && serial < maxExcelSerial {
		days := int(serial) - excelEpochOffset
		date := domain.NewDate(time.Unix(0, 0).UTC().AddDate(0, 0, days))
		if inDateRange(date) {
			return date, true, nil
		}
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		date := domain.NewDate(parsed)
		if !inDateRange(date) {
			break
		}
		return date, true, nil
	}
	return domain.Date{}, false, &domain.InvalidDateError{Value: trimmed}
}

func inDateRange(date domain.Date) bool {
	year := date.Year()
	return year >= minDateYear && year <= maxDateYear
}

// CoerceInteger parses a whole number such as a phone number. Spaces, dashes,
// brackets and a leading plus are ignored; "9876543210.0" and exponent forms
// written by spreadsheets are accepted when they are integral. Only values that
// are not whole numbers fail; implausible ones are flagged by validation.
func CoerceInteger(field, value string) (int64, bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false, nil
	}

	cleaned := strings.TrimPrefix(contactNumberNoise.Replace(trimmed), "+")
	if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return n, true, nil
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil || !d.IsInteger() {
		return 0, false, &domain.InvalidNumberError{Field: field, Value: trimmed}
	}
	return d.IntPart(), true, nil
}

// CoerceFloat parses a decimal number. Blank cells stay absent; any value that
// parses is kept.
func CoerceFloat(field, value string) (float64, bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false, nil
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(trimmed, ",", ""))
	if err != nil {
		return 0, false, &domain.InvalidNumberError{Field: field, Value: trimmed}
	}
	f, _ := d.Float64()
	return f, true, nil
}

// CoerceBool maps "yes" and "true" (any case) to true and any other non-blank
// value to false.
func CoerceBool(value string) (bool, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false, false
	}
	return strings.EqualFold(trimmed, "yes") || strings.EqualFold(trimmed, "true"), true
}

// CoerceRecord converts canonical cell text into typed record values. Blank
// cells are left out of the record so that they never overwrite stored data.
// The first conversion failure is returned.
func CoerceRecord(fields map[string]string) (domain.Record, error) {
	rec := domain.NewRecord()

	for _, field := range domain.CanonicalFields {
		raw := strings.TrimSpace(fields[field.Name])
		if raw == "" {
			continue
		}

		switch field.Kind {
		case domain.FieldKindDate:
			date, ok, err := CoerceDate(raw, false)
			if err != nil {
				return domain.Record{}, err
			}
			if ok {
				rec.Set(field.Name, date)
			}
		case domain.FieldKindInteger:
			n, ok, err := CoerceInteger(field.Name, raw)
			if err != nil {
				return domain.Record{}, err
			}
			if ok {
				rec.Set(field.Name, n)
			}
		case domain.FieldKindFloat:
			f, ok, err := CoerceFloat(field.Name, raw)
			if err != nil {
				return domain.Record{}, err
			}
			if ok {
				rec.Set(field.Name, f)
			}
		case domain.FieldKindBoolean:
			if b, ok := CoerceBool(raw); ok {
				rec.Set(field.Name, b)
			}
		default:
			rec.Set(field.Name, raw)
		}
	}
	return rec, nil
}
