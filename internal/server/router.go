package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rpattn/evservice/internal/evcustomer"
	"github.com/rpattn/evservice/internal/export"
	"github.com/rpattn/evservice/internal/httpx"
	"github.com/rpattn/evservice/internal/ingestion"
	"github.com/rpattn/evservice/internal/middleware"
	"github.com/rpattn/evservice/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Logger         zerolog.Logger
	DB             Pinger
	CustomerRepo   repository.EVCustomerRepository
	Ingestion      *ingestion.Service
	Export         *export.Service
	Customers      *evcustomer.Service
	CORSOrigins    []string
	MaxUploadBytes int64
}

// NewRouter builds the HTTP API.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.LoggingMiddleware(deps.Logger))

	r.Get("/healthz", healthHandler(deps.DB))

	importHandler := ingestion.NewHTTPHandler(deps.Ingestion, deps.MaxUploadBytes)
	exportHandler := export.NewHTTPHandler(deps.Export)
	customerHandler := evcustomer.NewHTTPHandler(deps.Customers)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.DataLoaderMiddleware(deps.CustomerRepo))

		api.Route("/ev-customers", func(customers chi.Router) {
			customers.Post("/preview-import", importHandler.Preview)
			customers.Post("/import", importHandler.Import)
			customers.Method(http.MethodGet, "/export", exportHandler)
			customerHandler.Routes(customers)
		})
		api.Get("/import-logs", importHandler.Logs)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Export-Rows", middleware.RequestIDHeader},
	})
	return corsHandler.Handler(r)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "unconfigured"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
			httpx.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unreachable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
	}
}
