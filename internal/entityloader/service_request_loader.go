package entityloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/repository"

	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const loaderKey ctxKey = "serviceRequestLoader"

// ServiceRequestLoader batches and caches EV customer lookups by service
// request number for the lifetime of one request.
type ServiceRequestLoader struct {
	Loader *dataloader.Loader
}

// NewServiceRequestLoader builds a loader that resolves every batch of keys
// with a single ListByServiceRequestNumbers call.
func NewServiceRequestLoader(repo repository.EVCustomerRepository) *ServiceRequestLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		customers, err := repo.ListByServiceRequestNumbers(ctx, keys.Keys())
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byNumber := make(map[string]domain.EVCustomer, len(customers))
		for _, c := range customers {
			byNumber[c.ServiceRequestNumber()] = c
		}

		// Results must line up with keys; misses carry nil data.
		for i, key := range keys {
			if c, ok := byNumber[key.String()]; ok {
				results[i] = &dataloader.Result{Data: c}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &ServiceRequestLoader{Loader: loader}
}

// Load returns the customer holding number, if any. A failed lookup is not
// cached.
func (l *ServiceRequestLoader) Load(ctx context.Context, number string) (domain.EVCustomer, bool, error) {
	key := dataloader.StringKey(number)
	data, err := l.Loader.Load(ctx, key)()
	if err != nil {
		l.Loader.Clear(ctx, key)
		return domain.EVCustomer{}, false, fmt.Errorf("failed to load service request %s: %w", number, err)
	}
	customer, ok := data.(domain.EVCustomer)
	return customer, ok, nil
}

// LoadMany resolves numbers in one batch and returns the ones that exist.
// On failure the batch is evicted so later loads go back to the store.
func (l *ServiceRequestLoader) LoadMany(ctx context.Context, numbers []string) (map[string]domain.EVCustomer, error) {
	found := make(map[string]domain.EVCustomer, len(numbers))
	if len(numbers) == 0 {
		return found, nil
	}

	keys := dataloader.NewKeysFromStrings(numbers)
	data, errs := l.Loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			for _, key := range keys {
				l.Loader.Clear(ctx, key)
			}
			return nil, fmt.Errorf("failed to load service requests: %w", err)
		}
	}
	for _, item := range data {
		if customer, ok := item.(domain.EVCustomer); ok {
			found[customer.ServiceRequestNumber()] = customer
		}
	}
	return found, nil
}

// Prime replaces the cached entry for the customer's service request number.
func (l *ServiceRequestLoader) Prime(ctx context.Context, customer domain.EVCustomer) {
	key := dataloader.StringKey(customer.ServiceRequestNumber())
	l.Loader.Clear(ctx, key).Prime(ctx, key, customer)
}

// Forget drops any cached entry for number.
func (l *ServiceRequestLoader) Forget(ctx context.Context, number string) {
	l.Loader.Clear(ctx, dataloader.StringKey(number))
}

// WithLoader returns a context carrying loader.
func WithLoader(ctx context.Context, loader *ServiceRequestLoader) context.Context {
	return context.WithValue(ctx, loaderKey, loader)
}

// FromContext retrieves the loader attached by WithLoader.
func FromContext(ctx context.Context) *ServiceRequestLoader {
	if l, ok := ctx.Value(loaderKey).(*ServiceRequestLoader); ok {
		return l
	}
	return nil
}
