package repository

import (
	"context"

	"github.com/rpattn/evservice/internal/domain"

	"github.com/google/uuid"
)

// EVCustomerRepository defines the interface for EV customer operations
type EVCustomerRepository interface {
	Create(ctx context.Context, customer domain.EVCustomer) (domain.EVCustomer, error)
	Update(ctx context.Context, customer domain.EVCustomer) (domain.EVCustomer, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.EVCustomer, error)
	GetByServiceRequestNumber(ctx context.Context, number string) (domain.EVCustomer, error)
	// ListByServiceRequestNumbers returns the customers whose natural key is in
	// numbers. Unknown numbers are omitted; order is unspecified.
	ListByServiceRequestNumbers(ctx context.Context, numbers []string) ([]domain.EVCustomer, error)
	List(ctx context.Context, filter domain.EVCustomerFilter) ([]domain.EVCustomer, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImportLogRepository stores import row failures for observability.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, fileName string, limit int, offset int) ([]domain.ImportLogEntry, error)
}
