package ingestion

import (
	"context"
	"errors"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/repository"
)

// Committer writes reconciled rows one at a time.
type Committer struct {
	repo repository.EVCustomerRepository
}

// NewCommitter creates a committer backed by repo.
func NewCommitter(repo repository.EVCustomerRepository) *Committer {
	return &Committer{repo: repo}
}

// Commit creates or updates the customer for a finalized record according to
// decision and returns the stored customer.
func (c *Committer) Commit(ctx context.Context, decision Decision, rec domain.Record) (domain.EVCustomer, error) {
	if decision.Kind == DecisionUpdate {
		if decision.Existing == nil {
			return domain.EVCustomer{}, errors.New("update decision without existing customer")
		}
		return c.repo.Update(ctx, decision.Existing.WithRecord(rec))
	}
	return c.repo.Create(ctx, domain.NewEVCustomer(rec))
}
