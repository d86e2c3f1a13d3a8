package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/repository"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName    = "EV Customers"
	titleText    = "EV Customers"
	headerRow    = 3
	firstDataRow = headerRow + 1

	defaultPageSize = 500
)

// Service writes stored EV customers to spreadsheets that the import pipeline
// reads back: a title row, a blank row, then one column per canonical field
// headed by its primary alias.
type Service struct {
	repo     repository.EVCustomerRepository
	pageSize int
	now      func() time.Time
}

type Option func(*Service)

// WithPageSize sets how many customers are fetched per repository call.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithClock overrides the time source used for titles and file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates an export service.
func NewService(repo repository.EVCustomerRepository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		pageSize: defaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FileName returns the download name for an export produced now.
func (s *Service) FileName() string {
	return fmt.Sprintf("ev-customers-%s.xlsx", s.now().UTC().Format("20060102-150405"))
}

// WriteWorkbook writes every customer matching filter to w as an xlsx
// workbook and returns the number of data rows written.
func (s *Service) WriteWorkbook(ctx context.Context, w io.Writer, filter domain.EVCustomerFilter) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}

	if err := s.writeHeader(f); err != nil {
		return 0, err
	}

	rowsWritten := 0
	filter.Offset = 0
	filter.Limit = s.pageSize
	for {
		if err := ctx.Err(); err != nil {
			return rowsWritten, err
		}
		customers, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return rowsWritten, fmt.Errorf("list ev customers: %w", err)
		}
		for _, customer := range customers {
			cell, err := excelize.CoordinatesToCellName(1, firstDataRow+rowsWritten)
			if err != nil {
				return rowsWritten, err
			}
			values := rowValues(customer)
			if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
				return rowsWritten, fmt.Errorf("write row for %s: %w", customer.ServiceRequestNumber(), err)
			}
			rowsWritten++
		}
		if len(customers) < filter.Limit || rowsWritten >= total {
			break
		}
		filter.Offset += filter.Limit
	}

	if err := s.styleDates(f, rowsWritten); err != nil {
		return rowsWritten, err
	}

	if _, err := f.WriteTo(w); err != nil {
		return rowsWritten, fmt.Errorf("write workbook: %w", err)
	}
	return rowsWritten, nil
}

func (s *Service) writeHeader(f *excelize.File) error {
	title := fmt.Sprintf("%s (exported %s)", titleText, s.now().UTC().Format(domain.DateLayout))
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return fmt.Errorf("write title: %w", err)
	}

	headers := make([]any, len(domain.CanonicalFields))
	for i, field := range domain.CanonicalFields {
		headers[i] = field.ExportHeader()
	}
	start, err := excelize.CoordinatesToCellName(1, headerRow)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, start, &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	end, err := excelize.CoordinatesToCellName(len(headers), headerRow)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, start, end, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("create title style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", titleStyle); err != nil {
		return fmt.Errorf("style title: %w", err)
	}

	lastColumn, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheetName, "A", lastColumn, 20)
}

// styleDates applies a calendar date format to the date columns.
func (s *Service) styleDates(f *excelize.File, rows int) error {
	if rows == 0 {
		return nil
	}
	dateFormat := "yyyy-mm-dd"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return fmt.Errorf("create date style: %w", err)
	}
	for i, field := range domain.CanonicalFields {
		if field.Kind != domain.FieldKindDate {
			continue
		}
		start, _ := excelize.CoordinatesToCellName(i+1, firstDataRow)
		end, _ := excelize.CoordinatesToCellName(i+1, firstDataRow+rows-1)
		if err := f.SetCellStyle(sheetName, start, end, dateStyle); err != nil {
			return fmt.Errorf("style %s column: %w", field.Name, err)
		}
	}
	return nil
}

func rowValues(customer domain.EVCustomer) []any {
	rec := customer.Record()
	values := make([]any, len(domain.CanonicalFields))
	for i, field := range domain.CanonicalFields {
		value, ok := rec.Get(field.Name)
		if !ok || value == nil {
			values[i] = nil
			continue
		}
		values[i] = cellValue(value)
	}
	return values
}

func cellValue(value any) any {
	switch v := value.(type) {
	case domain.Date:
		if v.IsZero() {
			return nil
		}
		return v.Time
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case string, int64, float64, int:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
