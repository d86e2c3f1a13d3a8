package evcustomer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/httpx"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler exposes the EV customer service over HTTP.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the handlers on r; the caller decides the prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := domain.NewEVCustomerFilter(query.Get("serviceType"), query.Get("status"), query.Get("search"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if filter.Limit, err = intParam(query.Get("limit")); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %v", err))
		return
	}
	if filter.Offset, err = intParam(query.Get("offset")); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid offset: %v", err))
		return
	}

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if !decodeBody(w, r, &input) {
		return
	}
	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, customer)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var input UpdateInput
	if !decodeBody(w, r, &input) {
		return
	}
	updated, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", raw))
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeServiceError(w http.ResponseWriter, err error) {
	var duplicate *domain.DuplicateServiceRequestNumberError
	switch {
	case domain.IsValidationError(err):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &duplicate):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
