package auth

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/transport"
	"github.com/frahmantamala/time2pay/pkg/logger"
)

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

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("authentication failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Login successful.", tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Warn("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Token refreshed.", tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.HandleServiceError(w, errors.AuthenticationRequired())
		return
	}

	var dto LogoutDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Logout(r.Context(), token, dto.RefreshToken); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := errors.ActorFromContext(r.Context())
	if !ok {
		h.Logger.Error("Me: actor not found in context")
		h.HandleServiceError(w, errors.AuthenticationRequired())
		return
	}
	h.WriteJSON(w, http.StatusOK, actor)
}

// AuthMiddleware validates the bearer token and stores the freshly loaded
// actor in the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.Logger.Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			h.HandleServiceError(w, errors.AuthenticationRequired())
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		actor, err := h.Service.LoadActor(r.Context(), claims.EmployeeID)
		if err != nil {
			h.Logger.Warn("auth middleware: failed to load actor", "employee_id", claims.EmployeeID, "error", err)
			h.HandleServiceError(w, err)
			return
		}

		ctx := errors.ContextWithActor(r.Context(), actor)
		ctx = logger.With(ctx, "employee_id", actor.EmployeeID, "role", string(actor.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
