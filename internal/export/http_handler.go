package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rpattn/evservice/internal/domain"
	"github.com/rpattn/evservice/internal/httpx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves spreadsheet exports.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the export service.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ServeHTTP handles GET /api/ev-customers/export.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	filter, err := domain.NewEVCustomerFilter(query.Get("serviceType"), query.Get("status"), query.Get("search"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	rows, err := h.service.WriteWorkbook(r.Context(), &buf, filter)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.service.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Export-Rows", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
