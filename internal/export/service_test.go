package export

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/ingestion"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

var fixedClock = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

func TestWriteWorkbookLayout(t *testing.T) {
	repo := newMemoryRepo(
		customer("SV-1", "Asha", 12, "2024-03-01"),
		customer("IN-2", "Ravi", 30, ""),
	)
	service := NewService(repo, WithClock(fixedClock))

	var buf bytes.Buffer
	rows, err := service.WriteWorkbook(context.Background(), &buf, domain.EVCustomerFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 rows, got %d", rows)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	title, _ := f.GetCellValue(sheetName, "A1")
	if title != "EV Customers (exported 2024-05-01)" {
		t.Fatalf("unexpected title %q", title)
	}
	header, _ := f.GetCellValue(sheetName, "B3")
	if header != "Customer Name" {
		t.Fatalf("expected primary alias header, got %q", header)
	}
	got, _ := f.GetCellValue(sheetName, "B4")
	if got != "Ravi" {
		t.Fatalf("expected customers sorted by number starting in row 4, got %q", got)
	}
	if service.FileName() != "ev-customers-20240501-093000.xlsx" {
		t.Fatalf("unexpected file name %q", service.FileName())
	}
}

func TestWriteWorkbookPaginates(t *testing.T) {
	var customers []domain.EVCustomer
	for i := 0; i < 7; i++ {
		customers = append(customers, customer("SV-"+string(rune('A'+i)), "Name", 1, ""))
	}
	repo := newMemoryRepo(customers...)
	service := NewService(repo, WithPageSize(3), WithClock(fixedClock))

	rows, err := service.WriteWorkbook(context.Background(), &bytes.Buffer{}, domain.EVCustomerFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 7 {
		t.Fatalf("expected 7 rows, got %d", rows)
	}
	if repo.listCalls != 3 {
		t.Fatalf("expected 3 pages, got %d", repo.listCalls)
	}
}

func TestExportedWorkbookReimportsAsUpdates(t *testing.T) {
	repo := newMemoryRepo(
		customer("SV-1", "Asha", 12, "2024-03-01"),
		customer("IN-2", "Ravi", 30, "2024-03-02"),
		customer("EV-3", "Meera", 0, ""),
	)
	before := repo.snapshot()

	var buf bytes.Buffer
	if _, err := NewService(repo, WithClock(fixedClock)).WriteWorkbook(context.Background(), &buf, domain.EVCustomerFilter{}); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	importer := ingestion.NewService(repo, nil, ingestion.Options{Logger: zerolog.Nop()})
	result, err := importer.Import(context.Background(), ingestion.Request{FileName: "export.xlsx", Data: &buf})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Summary.Updated != 3 || result.Summary.Created != 0 || result.Summary.Failed != 0 {
		t.Fatalf("expected every row to update, got %+v errors %v", result.Summary, result.Errors)
	}

	after := repo.snapshot()
	for number, original := range before {
		reimported := after[number]
		if original.Record().String(domain.FieldScope) != reimported.Record().String(domain.FieldScope) {
			t.Fatalf("%s: scope changed", number)
		}
		if original.Record().String(domain.FieldRequestedDate) != reimported.Record().String(domain.FieldRequestedDate) {
			t.Fatalf("%s: requested date changed from %q to %q", number,
				original.Record().String(domain.FieldRequestedDate), reimported.Record().String(domain.FieldRequestedDate))
		}
		if original.Record().String(domain.FieldContactNumber) != reimported.Record().String(domain.FieldContactNumber) {
			t.Fatalf("%s: contact number changed", number)
		}
	}
}

func TestHandlerServesWorkbook(t *testing.T) {
	repo := newMemoryRepo(customer("SV-1", "Asha", 12, ""), customer("IN-2", "Ravi", 3, ""))
	handler := NewHTTPHandler(NewService(repo, WithClock(fixedClock)))

	req := httptest.NewRequest(http.MethodGet, "/api/ev-customers/export?serviceType=IN", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("X-Export-Rows") != "1" {
		t.Fatalf("expected filtered export, got %s rows", rec.Header().Get("X-Export-Rows"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "ev-customers-20240501-093000.xlsx") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestHandlerRejectsUnknownServiceType(t *testing.T) {
	handler := NewHTTPHandler(NewService(newMemoryRepo()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ev-customers/export?serviceType=Repair", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid service type: Repair") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func customer(number, name string, cable float64, requested string) domain.EVCustomer {
	rec := domain.NewRecord()
	rec.Set(domain.FieldServiceRequestNumber, number)
	rec.Set(domain.FieldCustomerName, name)
	rec.Set(domain.FieldContactNumber, int64(9876543210))
	rec.Set(domain.FieldAdditionalMCB, false)
	if requested != "" {
		date, _ := domain.ParseDate(requested)
		rec.Set(domain.FieldRequestedDate, date)
	}
	if _, err := domain.ApplyRules(&rec, domain.RuleOptions{}); err != nil {
		panic(err)
	}
	serviceType, _ := domain.ParseServiceType(rec.String(domain.FieldServiceType))
	if cable > 0 && serviceType.QualifiesForScope() {
		rec.Set(domain.FieldCableLength, cable)
	}
	domain.Finalize(&rec)
	return domain.NewEVCustomer(rec)
}

type memoryRepo struct {
	mu        sync.Mutex
	byNumber  map[string]domain.EVCustomer
	listCalls int
}

func newMemoryRepo(customers ...domain.EVCustomer) *memoryRepo {
	repo := &memoryRepo{byNumber: make(map[string]domain.EVCustomer)}
	for _, c := range customers {
		repo.byNumber[c.ServiceRequestNumber()] = c
	}
	return repo
}

func (m *memoryRepo) snapshot() map[string]domain.EVCustomer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.EVCustomer, len(m.byNumber))
	for k, v := range m.byNumber {
		out[k] = v
	}
	return out
}

func (m *memoryRepo) Create(ctx context.Context, c domain.EVCustomer) (domain.EVCustomer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byNumber[c.ServiceRequestNumber()]; ok {
		return domain.EVCustomer{}, &domain.DuplicateServiceRequestNumberError{Number: c.ServiceRequestNumber()}
	}
	m.byNumber[c.ServiceRequestNumber()] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c domain.EVCustomer) (domain.EVCustomer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for number, stored := range m.byNumber {
		if stored.ID == c.ID {
			delete(m.byNumber, number)
			m.byNumber[c.ServiceRequestNumber()] = c
			return c, nil
		}
	}
	return domain.EVCustomer{}, domain.ErrNotFound
}

func (m *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.EVCustomer, error) {
	return domain.EVCustomer{}, errors.New("not implemented")
}

func (m *memoryRepo) GetByServiceRequestNumber(ctx context.Context, number string) (domain.EVCustomer, error) {
	return domain.EVCustomer{}, errors.New("not implemented")
}

func (m *memoryRepo) ListByServiceRequestNumbers(ctx context.Context, numbers []string) ([]domain.EVCustomer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EVCustomer
	for _, number := range numbers {
		if c, ok := m.byNumber[number]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) List(ctx context.Context, filter domain.EVCustomerFilter) ([]domain.EVCustomer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	numbers := make([]string, 0, len(m.byNumber))
	for number, c := range m.byNumber {
		if filter.ServiceType != "" && c.Record().String(domain.FieldServiceType) != string(filter.ServiceType) {
			continue
		}
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	total := len(numbers)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	page := make([]domain.EVCustomer, 0, end-start)
	for _, number := range numbers[start:end] {
		page = append(page, m.byNumber[number])
	}
	return page, total, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}
