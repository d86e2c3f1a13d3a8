package evcustomer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListResult is one page of customers.
type ListResult struct {
	Items  []domain.EVCustomer `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// Service applies the business rules to single-record operations. Unlike the
// bulk import, every rule violation fails the whole request.
type Service struct {
	repo     repository.EVCustomerRepository
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewService creates a new EV customer service.
func NewService(repo repository.EVCustomerRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: newValidate(),
		logger:   logger,
	}
}

func (s *Service) Create(ctx context.Context, input CreateInput) (domain.EVCustomer, error) {
	if err := s.validate.Struct(input); err != nil {
		return domain.EVCustomer{}, schemaError(err)
	}

	rec := input.Record()
	if _, err := domain.ApplyRules(&rec, domain.RuleOptions{}); err != nil {
		return domain.EVCustomer{}, err
	}
	domain.Finalize(&rec)

	created, err := s.repo.Create(ctx, domain.NewEVCustomer(rec))
	if err != nil {
		return domain.EVCustomer{}, err
	}
	s.logger.Info().
		Str("id", created.ID.String()).
		Str("service_request_number", created.ServiceRequestNumber()).
		Msg("ev customer created")
	return created, nil
}

// Update applies a partial update. A patch that only changes the status skips
// the field legality check; every other patch is checked against the resolved
// service type. The stored number's prefix wins over a patched service type,
// and the stored type is the last fallback.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (domain.EVCustomer, error) {
	if err := s.validate.Struct(input); err != nil {
		return domain.EVCustomer{}, schemaError(err)
	}

	patch := input.Record()
	if patch.Len() == 0 {
		return domain.EVCustomer{}, &domain.SchemaValidationError{Problems: []string{"No fields to update"}}
	}
	if problems := blankRequired(patch); len(problems) > 0 {
		return domain.EVCustomer{}, &domain.SchemaValidationError{Problems: problems}
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.EVCustomer{}, err
	}

	opts := domain.RuleOptions{
		StatusOnly:   domain.IsStatusOnly(patch),
		StoredNumber: existing.ServiceRequestNumber(),
	}
	opts.FallbackType, _ = domain.ParseServiceType(existing.Record().String(domain.FieldServiceType))
	if _, err := domain.ApplyRules(&patch, opts); err != nil {
		return domain.EVCustomer{}, err
	}

	if number := patch.String(domain.FieldServiceRequestNumber); number != "" && number != existing.ServiceRequestNumber() {
		if err := s.ensureNumberFree(ctx, number, id); err != nil {
			return domain.EVCustomer{}, err
		}
	}

	merged := domain.Merge(existing.Record(), patch)
	domain.Finalize(&merged)

	updated, err := s.repo.Update(ctx, existing.WithRecord(merged))
	if err != nil {
		return domain.EVCustomer{}, err
	}
	s.logger.Info().
		Str("id", id.String()).
		Bool("status_only", opts.StatusOnly).
		Strs("fields", patch.Keys()).
		Msg("ev customer updated")
	return updated, nil
}

func (s *Service) ensureNumberFree(ctx context.Context, number string, id uuid.UUID) error {
	other, err := s.repo.GetByServiceRequestNumber(ctx, number)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check service request number: %w", err)
	case other.ID != id:
		return &domain.DuplicateServiceRequestNumberError{Number: number}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.EVCustomer, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns one page of customers matching filter. The limit defaults to
// 50 and is capped at 500.
func (s *Service) List(ctx context.Context, filter domain.EVCustomerFilter) (ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []domain.EVCustomer{}
	}
	return ListResult{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("id", id.String()).Msg("ev customer deleted")
	return nil
}
