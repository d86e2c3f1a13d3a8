package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/evservice/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolationCode = "23505"

	defaultListLimit = 50
	maxListLimit     = 500

	evCustomerColumns = `id, customer, service_request, created_at, updated_at`
)

type evCustomerRepository struct {
	pool *pgxpool.Pool
}

// NewEVCustomerRepository creates a new EV customer repository
func NewEVCustomerRepository(pool *pgxpool.Pool) EVCustomerRepository {
	return &evCustomerRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new EV customer
func (r *evCustomerRepository) Create(ctx context.Context, customer domain.EVCustomer) (domain.EVCustomer, error) {
	customerJSON, requestJSON, err := marshalGroups(customer)
	if err != nil {
		return domain.EVCustomer{}, err
	}
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO ev_customers (id, service_request_number, customer, service_request)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+evCustomerColumns,
		customer.ID,
		customer.ServiceRequestNumber(),
		customerJSON,
		requestJSON,
	)

	created, err := scanEVCustomer(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.EVCustomer{}, &domain.DuplicateServiceRequestNumberError{Number: customer.ServiceRequestNumber()}
		}
		return domain.EVCustomer{}, fmt.Errorf("failed to create ev customer: %w", err)
	}
	return created, nil
}

// Update replaces the stored groups of an existing EV customer
func (r *evCustomerRepository) Update(ctx context.Context, customer domain.EVCustomer) (domain.EVCustomer, error) {
	customerJSON, requestJSON, err := marshalGroups(customer)
	if err != nil {
		return domain.EVCustomer{}, err
	}

	row := r.pool.QueryRow(
		ctx,
		`UPDATE ev_customers
		 SET service_request_number = $2, customer = $3, service_request = $4, updated_at = $5
		 WHERE id = $1
		 RETURNING `+evCustomerColumns,
		customer.ID,
		customer.ServiceRequestNumber(),
		customerJSON,
		requestJSON,
		time.Now().UTC(),
	)

	updated, err := scanEVCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EVCustomer{}, fmt.Errorf("failed to update ev customer %s: %w", customer.ID, domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return domain.EVCustomer{}, &domain.DuplicateServiceRequestNumberError{Number: customer.ServiceRequestNumber()}
		}
		return domain.EVCustomer{}, fmt.Errorf("failed to update ev customer: %w", err)
	}
	return updated, nil
}

// GetByID retrieves an EV customer by ID
func (r *evCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.EVCustomer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+evCustomerColumns+` FROM ev_customers WHERE id = $1`, id)

	customer, err := scanEVCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EVCustomer{}, fmt.Errorf("failed to get ev customer %s: %w", id, domain.ErrNotFound)
		}
		return domain.EVCustomer{}, fmt.Errorf("failed to get ev customer: %w", err)
	}
	return customer, nil
}

// GetByServiceRequestNumber retrieves an EV customer by its natural key
func (r *evCustomerRepository) GetByServiceRequestNumber(ctx context.Context, number string) (domain.EVCustomer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+evCustomerColumns+` FROM ev_customers WHERE service_request_number = $1`, number)

	customer, err := scanEVCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EVCustomer{}, fmt.Errorf("failed to get ev customer %s: %w", number, domain.ErrNotFound)
		}
		return domain.EVCustomer{}, fmt.Errorf("failed to get ev customer by service request number: %w", err)
	}
	return customer, nil
}

// ListByServiceRequestNumbers retrieves the EV customers matching any of the numbers
func (r *evCustomerRepository) ListByServiceRequestNumbers(ctx context.Context, numbers []string) ([]domain.EVCustomer, error) {
	if len(numbers) == 0 {
		return []domain.EVCustomer{}, nil
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+evCustomerColumns+` FROM ev_customers WHERE service_request_number = ANY($1)`,
		numbers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ev customers by service request numbers: %w", err)
	}
	defer rows.Close()

	return collectEVCustomers(rows)
}

// List retrieves EV customers matching the filter along with the total match count
func (r *evCustomerRepository) List(ctx context.Context, filter domain.EVCustomerFilter) ([]domain.EVCustomer, int, error) {
	where, args := listConditions(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ev_customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ev customers: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM ev_customers%s ORDER BY created_at DESC, service_request_number ASC LIMIT $%d OFFSET $%d`,
		evCustomerColumns, where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ev customers: %w", err)
	}
	defer rows.Close()

	customers, err := collectEVCustomers(rows)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// Delete removes an EV customer
func (r *evCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ev_customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ev customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete ev customer %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// listConditions renders the WHERE clause for filter with positional arguments.
func listConditions(filter domain.EVCustomerFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if filter.ServiceType != "" {
		args = append(args, string(filter.ServiceType))
		conditions = append(conditions, fmt.Sprintf("service_type = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("lower(service_request_status) = lower($%d)", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(service_request_number ILIKE $%[1]d OR customer->>'customerName' ILIKE $%[1]d OR customer->>'bookingReference' ILIKE $%[1]d)",
			len(args),
		))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func marshalGroups(customer domain.EVCustomer) ([]byte, []byte, error) {
	customerJSON, err := domain.MarshalProperties(customer.Customer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal customer properties: %w", err)
	}
	requestJSON, err := domain.MarshalProperties(customer.ServiceRequest)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal service request properties: %w", err)
	}
	return customerJSON, requestJSON, nil
}

func scanEVCustomer(row rowScanner) (domain.EVCustomer, error) {
	var (
		customer     domain.EVCustomer
		customerJSON []byte
		requestJSON  []byte
	)
	if err := row.Scan(&customer.ID, &customerJSON, &requestJSON, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
		return domain.EVCustomer{}, err
	}

	var err error
	if customer.Customer, err = domain.UnmarshalProperties(customerJSON); err != nil {
		return domain.EVCustomer{}, fmt.Errorf("failed to unmarshal customer properties: %w", err)
	}
	if customer.ServiceRequest, err = domain.UnmarshalProperties(requestJSON); err != nil {
		return domain.EVCustomer{}, fmt.Errorf("failed to unmarshal service request properties: %w", err)
	}
	return customer, nil
}

func collectEVCustomers(rows pgx.Rows) ([]domain.EVCustomer, error) {
	customers := []domain.EVCustomer{}
	for rows.Next() {
		customer, err := scanEVCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ev customer: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ev customers: %w", err)
	}
	return customers, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
