package ingestion

import (
	"context"

	"github.com/rpattn/evservice/internal/domain"
)

// DecisionKind says whether a row creates a new customer or updates one.
type DecisionKind string

const (
	DecisionCreate DecisionKind = "create"
	DecisionUpdate DecisionKind = "update"
)

// Decision is the reconciliation result for one row. Existing is set for
// updates; InBatch marks an update of a row staged earlier in the same upload.
type Decision struct {
	Kind     DecisionKind
	Existing *domain.EVCustomer
	InBatch  bool
}

// Lookup resolves stored customers by service request number.
type Lookup interface {
	Load(ctx context.Context, number string) (domain.EVCustomer, bool, error)
	LoadMany(ctx context.Context, numbers []string) (map[string]domain.EVCustomer, error)
	Prime(ctx context.Context, customer domain.EVCustomer)
}

// Reconciler matches incoming rows to stored customers by exact service
// request number. Results staged by earlier rows of the same upload take
// precedence over the store, so a repeated number updates the earlier row's
// result.
type Reconciler struct {
	lookup Lookup
	staged map[string]domain.EVCustomer
}

// NewReconciler creates a reconciler for one upload.
func NewReconciler(lookup Lookup) *Reconciler {
	return &Reconciler{
		lookup: lookup,
		staged: make(map[string]domain.EVCustomer),
	}
}

// Prefetch loads all numbers in one batch so that Decide is served from cache.
func (r *Reconciler) Prefetch(ctx context.Context, numbers []string) error {
	seen := make(map[string]struct{}, len(numbers))
	unique := make([]string, 0, len(numbers))
	for _, number := range numbers {
		if number == "" {
			continue
		}
		if _, ok := seen[number]; ok {
			continue
		}
		seen[number] = struct{}{}
		unique = append(unique, number)
	}

	_, err := r.lookup.LoadMany(ctx, unique)
	return err
}

// Decide returns whether the row with number creates or updates a customer.
func (r *Reconciler) Decide(ctx context.Context, number string) (Decision, error) {
	if staged, ok := r.staged[number]; ok {
		existing := staged
		return Decision{Kind: DecisionUpdate, Existing: &existing, InBatch: true}, nil
	}

	existing, found, err := r.lookup.Load(ctx, number)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return Decision{Kind: DecisionCreate}, nil
	}
	return Decision{Kind: DecisionUpdate, Existing: &existing}, nil
}

// Stage records a row's resulting customer for later rows of the upload.
// Persisted customers are also written through to the lookup cache.
func (r *Reconciler) Stage(ctx context.Context, customer domain.EVCustomer, persisted bool) {
	r.staged[customer.ServiceRequestNumber()] = customer
	if persisted {
		r.lookup.Prime(ctx, customer)
	}
}
