package middleware

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/transport"
)

// RequireRoles lets the request through only when the authenticated actor
// holds one of roles. It must run after the auth middleware.
func RequireRoles(logger *slog.Logger, roles ...user.Role) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := errors.ActorFromContext(r.Context())
			if !ok {
				base.HandleServiceError(w, errors.AuthenticationRequired())
				return
			}

			if !actor.Role.OneOf(roles...) {
				base.Logger.Warn("Access denied: role not permitted",
					"employee_id", actor.EmployeeID,
					"role", actor.Role,
					"required_roles", roles,
					"path", r.URL.Path)
				base.HandleServiceError(w, errors.RoleNotPermitted())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
