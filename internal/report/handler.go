package report

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
	Summary(ctx context.Context, actor *user.Actor, filter Filter) (*Report, error)
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

// Summary handles GET /hr/reports
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	actor, _ := errors.ActorFromContext(r.Context())

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	report, err := h.Service.Summary(r.Context(), actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "", report)
}

// Export handles GET /hr/reports/export
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

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		h.Logger.Warn("failed to write report", "error", err)
	}
}
