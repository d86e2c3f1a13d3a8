package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/httpx"
)

// DefaultMaxUploadBytes limits the multipart body of an upload.
const DefaultMaxUploadBytes int64 = 32 << 20

// Handler exposes preview and import as HTTP endpoints.
type Handler struct {
	service        *Service
	maxUploadBytes int64
}

// NewHTTPHandler wraps the service. A non-positive limit uses DefaultMaxUploadBytes.
func NewHTTPHandler(service *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// Preview handles POST /api/ev-customers/preview-import.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.service.Preview(r.Context(), req)
	if err != nil && result.Cancelled {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, result)
		return
	}
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// Import handles POST /api/ev-customers/import.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.service.Import(r.Context(), req)
	if err != nil && result.Cancelled {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, result)
		return
	}
	if err != nil {
		httpx.WriteError(w, statusFor(err), err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// Logs handles GET /api/import-logs.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := intParam(query.Get("limit"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %v", err))
		return
	}
	offset, err := intParam(query.Get("offset"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid offset: %v", err))
		return
	}

	logs, err := h.service.ImportLogs(r.Context(), query.Get("fileName"), limit, offset)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, logs)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (Request, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes))
			return Request{}, false
		}
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
		return Request{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("file required: %v", err))
		return Request{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return Request{}, false
	}

	return Request{FileName: header.Filename, Data: bytes.NewReader(data)}, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnreadableFile),
		errors.Is(err, domain.ErrEmptyFile),
		errors.Is(err, domain.ErrRowLimitExceeded):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
