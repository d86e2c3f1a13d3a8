package middleware

import (
	"net/http"

	"github.com/rpattn/evservice/internal/entityloader"
	"github.com/rpattn/evservice/internal/repository"
)

// DataLoaderMiddleware attaches a fresh service request loader to every
// request so lookups are batched and cached for that request only.
func DataLoaderMiddleware(repo repository.EVCustomerRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := entityloader.NewServiceRequestLoader(repo)
			ctx := entityloader.WithLoader(r.Context(), loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
