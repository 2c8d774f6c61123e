package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/transport"
	"github.com/frahmantamala/time2pay/pkg/logger"
)

type ServiceAPI interface {
	ListClaims(ctx context.Context, actor *user.Actor, filter Filter) ([]Invoice, error)
	Get(ctx context.Context, actor *user.Actor, claimID int64) (*Invoice, error)
	Download(ctx context.Context, actor *user.Actor, claimID int64) (*File, error)
	Export(ctx context.Context, actor *user.Actor, filter Filter) (*File, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListClaims handles GET /hr/claims
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	actor, _ := errors.ActorFromContext(r.Context())

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	invoices, err := h.Service.ListClaims(r.Context(), actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"claims": invoices})
}

// Get handles GET /hr/claims/{id}/invoice
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := errors.ActorFromContext(r.Context())

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	inv, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "", inv)
}

// Download handles GET /hr/claims/{id}/invoice.pdf
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	actor, _ := errors.ActorFromContext(r.Context())

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	file, err := h.Service.Download(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.writeFile(w, file)
}

// Export handles GET /hr/invoices/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, _ := errors.ActorFromContext(r.Context())

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	file, err := h.Service.Export(r.Context(), actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.writeFile(w, file)
}

func (h *Handler) writeFile(w http.ResponseWriter, file *File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		h.Logger.Warn("failed to write download", "file", file.Name, "error", err)
	}
}
