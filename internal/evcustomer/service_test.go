package evcustomer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/httpx"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func validInput(number string) CreateInput {
	return CreateInput{
		BookingReference:     "BK-1",
		CustomerName:         "Asha Rao",
		ContactNumber:        9876543210,
		Location:             "Pune",
		Address:              "12 MG Road",
		VehicleModel:         "Nexon EV",
		DealerName:           "City Motors",
		ServiceRequestNumber: number,
		ServiceType:          "Enquiry Visit",
	}
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string      { return &v }

func TestCreateDerivesTypeFromPrefix(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, zerolog.Nop())

	input := validInput("IN-100")
	input.CableLength = floatPtr(20)
	created, err := service.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := created.Record()
	if rec.String(domain.FieldServiceType) != string(domain.ServiceTypeInstallation) {
		t.Fatalf("expected prefix to override explicit type, got %q", rec.String(domain.FieldServiceType))
	}
	if rec.String(domain.FieldScope) != domain.ScopeOut || rec.String(domain.FieldServiceRequestStatus) != domain.DefaultStatus {
		t.Fatalf("unexpected derived fields %+v", rec)
	}
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	service := NewService(newMemoryRepo(), zerolog.Nop())

	input := validInput("SV-1")
	input.CustomerName = "   "
	input.ContactNumber = 0

	_, err := service.Create(context.Background(), input)
	var schemaErr *domain.SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %v", err)
	}
	message := err.Error()
	if !strings.Contains(message, "Customer Name is required") || !strings.Contains(message, "Contact Number is required") {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestCreateRejectsIllegalFieldForEnquiry(t *testing.T) {
	service := NewService(newMemoryRepo(), zerolog.Nop())

	input := validInput("EV-7")
	input.CableLength = floatPtr(5)
	_, err := service.Create(context.Background(), input)
	if err == nil || err.Error() != "Invalid fields for Enquiry Visit service type" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, zerolog.Nop())

	if _, err := service.Create(context.Background(), validInput("SV-1")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := service.Create(context.Background(), validInput("SV-1"))
	var duplicate *domain.DuplicateServiceRequestNumberError
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestUpdateStatusOnlyBypassesLegality(t *testing.T) {
	repo := newMemoryRepo()
	// Stored before the rules changed: a commission visit carrying a cable length.
	legacy := domain.NewRecord()
	legacy.Set(domain.FieldServiceRequestNumber, "CM-9")
	legacy.Set(domain.FieldCustomerName, "Ravi")
	legacy.Set(domain.FieldServiceType, string(domain.ServiceTypeCommission))
	legacy.Set(domain.FieldCableLength, 8.0)
	stored := repo.put(domain.NewEVCustomer(legacy))
	service := NewService(repo, zerolog.Nop())

	updated, err := service.Update(context.Background(), stored.ID, UpdateInput{ServiceRequestStatus: strPtr("Completed")})
	if err != nil {
		t.Fatalf("status-only update failed: %v", err)
	}
	if updated.Record().String(domain.FieldServiceRequestStatus) != "Completed" {
		t.Fatalf("status not applied")
	}
	if v, ok := updated.Record().Get(domain.FieldCableLength); !ok || v != 8.0 {
		t.Fatalf("expected stored fields to survive, got %v", v)
	}
}

func TestUpdateChecksLegalityAgainstStoredType(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, zerolog.Nop())
	created, err := service.Create(context.Background(), validInput("EV-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = service.Update(context.Background(), created.ID, UpdateInput{
		ServiceRequestStatus: strPtr("Scheduled"),
		CableLength:          floatPtr(10),
	})
	var illegal *domain.InvalidFieldsForServiceTypeError
	if !errors.As(err, &illegal) || illegal.ServiceType != domain.ServiceTypeEnquiry {
		t.Fatalf("expected enquiry legality error, got %v", err)
	}
}

func TestUpdateKeepsTypeFromStoredNumberPrefix(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, zerolog.Nop())
	created, err := service.Create(context.Background(), validInput("EV-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = service.Update(context.Background(), created.ID, UpdateInput{
		ServiceType: strPtr("Survey Visit"),
		CableLength: floatPtr(20),
	})
	var illegal *domain.InvalidFieldsForServiceTypeError
	if !errors.As(err, &illegal) || illegal.ServiceType != domain.ServiceTypeEnquiry {
		t.Fatalf("expected enquiry legality error, got %v", err)
	}

	updated, err := service.Update(context.Background(), created.ID, UpdateInput{ServiceType: strPtr("Survey Visit")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got := updated.Record().String(domain.FieldServiceType); got != string(domain.ServiceTypeEnquiry) {
		t.Fatalf("expected prefix to keep Enquiry Visit, got %q", got)
	}
	stored, _ := repo.GetByID(context.Background(), created.ID)
	if _, ok := stored.Record().Get(domain.FieldCableLength); ok {
		t.Fatalf("expected no cable length on the stored enquiry")
	}
}

func TestUpdateRecomputesScopeAndClearsOptionalFields(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, zerolog.Nop())
	input := validInput("SV-5")
	input.CableLength = floatPtr(5)
	input.Remarks = "gate code 1234"
	created, err := service.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Record().String(domain.FieldScope) != domain.ScopeIn {
		t.Fatalf("expected in scope after create")
	}

	updated, err := service.Update(context.Background(), created.ID, UpdateInput{
		CableLength: floatPtr(16),
		Remarks:     strPtr(""),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	rec := updated.Record()
	if rec.String(domain.FieldScope) != domain.ScopeOut {
		t.Fatalf("expected out scope, got %q", rec.String(domain.FieldScope))
	}
	if _, ok := rec.Get(domain.FieldRemarks); ok {
		t.Fatalf("expected remarks to be cleared")
	}
	if rec.String(domain.FieldCustomerName) != "Asha Rao" {
		t.Fatalf("expected untouched fields to survive")
	}
}

func TestUpdateRejectsTakenNumberAndBlankRequired(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, zerolog.Nop())
	first, _ := service.Create(context.Background(), validInput("SV-1"))
	if _, err := service.Create(context.Background(), validInput("SV-2")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := service.Update(context.Background(), first.ID, UpdateInput{ServiceRequestNumber: strPtr("SV-2")})
	var duplicate *domain.DuplicateServiceRequestNumberError
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	_, err = service.Update(context.Background(), first.ID, UpdateInput{CustomerName: strPtr(" ")})
	if err == nil || err.Error() != "Customer Name cannot be empty" {
		t.Fatalf("unexpected error %v", err)
	}

	_, err = service.Update(context.Background(), first.ID, UpdateInput{})
	if err == nil || err.Error() != "No fields to update" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestListAppliesLimitBounds(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, zerolog.Nop())

	result, err := service.List(context.Background(), domain.EVCustomerFilter{Limit: 10000, Offset: -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Limit != maxListLimit || result.Offset != 0 || result.Items == nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if repo.lastFilter.Limit != maxListLimit {
		t.Fatalf("expected capped limit to reach the repository, got %d", repo.lastFilter.Limit)
	}
}

func newTestRouter(service *Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/ev-customers", NewHTTPHandler(service).Routes)
	return r
}

func TestHandlerCreateIllegalFieldReturns400(t *testing.T) {
	router := newTestRouter(NewService(newMemoryRepo(), zerolog.Nop()))

	body := `{"bookingReference":"BK","customerName":"A","contactNumber":9876543210,"location":"L","address":"A",
		"vehicleModel":"V","dealerName":"D","serviceRequestNumber":"EV-1","serviceType":"Enquiry Visit","cableLength":12}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/ev-customers", strings.NewReader(body)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp httpx.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Invalid fields for Enquiry Visit service type" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestHandlerCRUDStatusCodes(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(NewService(repo, zerolog.Nop()))

	body := `{"bookingReference":"BK","customerName":"A","contactNumber":9876543210,"location":"L","address":"A",
		"vehicleModel":"V","dealerName":"D","serviceRequestNumber":"SV-1","serviceType":"SV","requestedDate":"2024-03-01"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/ev-customers", strings.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.EVCustomer
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/ev-customers", strings.NewReader(body)))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/ev-customers/"+created.ID.String(),
		strings.NewReader(`{"serviceRequestStatus":"Scheduled"}`)))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Scheduled") {
		t.Fatalf("expected 200 with new status, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ev-customers?serviceType=SV", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"total": 1`) {
		t.Fatalf("unexpected list response %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/ev-customers/"+created.ID.String(), nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ev-customers/"+created.ID.String(), nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ev-customers/not-a-uuid", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/ev-customers", strings.NewReader(`{"unknown":1}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}
}

type memoryRepo struct {
	byID       map[uuid.UUID]domain.EVCustomer
	lastFilter domain.EVCustomerFilter
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: make(map[uuid.UUID]domain.EVCustomer)}
}

func (m *memoryRepo) put(c domain.EVCustomer) domain.EVCustomer {
	m.byID[c.ID] = c
	return c
}

func (m *memoryRepo) Create(ctx context.Context, c domain.EVCustomer) (domain.EVCustomer, error) {
	if _, err := m.GetByServiceRequestNumber(ctx, c.ServiceRequestNumber()); err == nil {
		return domain.EVCustomer{}, &domain.DuplicateServiceRequestNumberError{Number: c.ServiceRequestNumber()}
	}
	return m.put(c), nil
}

func (m *memoryRepo) Update(ctx context.Context, c domain.EVCustomer) (domain.EVCustomer, error) {
	if _, ok := m.byID[c.ID]; !ok {
		return domain.EVCustomer{}, domain.ErrNotFound
	}
	return m.put(c), nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.EVCustomer, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return domain.EVCustomer{}, domain.ErrNotFound
}

func (m *memoryRepo) GetByServiceRequestNumber(ctx context.Context, number string) (domain.EVCustomer, error) {
	for _, c := range m.byID {
		if c.ServiceRequestNumber() == number {
			return c, nil
		}
	}
	return domain.EVCustomer{}, domain.ErrNotFound
}

func (m *memoryRepo) ListByServiceRequestNumbers(ctx context.Context, numbers []string) ([]domain.EVCustomer, error) {
	var out []domain.EVCustomer
	for _, number := range numbers {
		if c, err := m.GetByServiceRequestNumber(ctx, number); err == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) List(ctx context.Context, filter domain.EVCustomerFilter) ([]domain.EVCustomer, int, error) {
	m.lastFilter = filter
	var out []domain.EVCustomer
	for _, c := range m.byID {
		if filter.ServiceType != "" && c.Record().String(domain.FieldServiceType) != string(filter.ServiceType) {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}
