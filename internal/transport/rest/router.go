package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/time2pay/internal/auth"
	"github.com/frahmantamala/time2pay/internal/claim"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/employee"
	"github.com/frahmantamala/time2pay/internal/invoice"
	"github.com/frahmantamala/time2pay/internal/report"
	"github.com/frahmantamala/time2pay/internal/transport/middleware"
	"github.com/frahmantamala/time2pay/internal/transport/swagger"
)

const APIPrefix = "/api/v1"

type Handlers struct {
	Auth     *auth.Handler
	Employee *employee.Handler
	Claim    *claim.Handler
	Invoice  *invoice.Handler
	Report   *report.Handler
}

type RouterOptions struct {
	AllowedOrigins []string
	OpenAPIPath    string
	Validator      *middleware.OpenAPIValidator
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts RouterOptions, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	openAPIPath := opts.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// the contract lives outside the API prefix so Swagger UI can fetch it
	router.Get(swagger.ContractURL, func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler(swagger.ContractURL))

	router.Route(APIPrefix, func(r chi.Router) {
		if opts.Validator != nil {
			r.Use(opts.Validator.Middleware)
		}

		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Post("/employees/register", h.Employee.Register)
		r.Get("/departments", h.Employee.ListDepartments)

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/me", h.Auth.Me)

			pr.Route("/claims", func(cr chi.Router) {
				cr.Group(func(lr chi.Router) {
					lr.Use(middleware.RequireRoles(logger, user.RoleLecturer))
					lr.Post("/", h.Claim.Submit)
					lr.Get("/mine", h.Claim.ListOwn)
					lr.Put("/{id}", h.Claim.Edit)
					lr.Delete("/{id}", h.Claim.Delete)
				})

				cr.Group(func(vr chi.Router) {
					vr.Use(middleware.RequireRoles(logger, user.RoleCoordinator, user.RoleManager))
					vr.Get("/verification", h.Claim.ListForVerification)
					vr.Get("/summary", h.Claim.Summary)
					vr.Post("/{id}/verify", h.Claim.Verify)
					vr.Post("/{id}/reject", h.Claim.Reject)
				})

				cr.Group(func(mr chi.Router) {
					mr.Use(middleware.RequireRoles(logger, user.RoleManager))
					mr.Get("/approval", h.Claim.ListForApproval)
					mr.Post("/{id}/approve", h.Claim.Approve)
				})

				// visibility is decided per claim by the service
				cr.Get("/{id}", h.Claim.Get)
				cr.Get("/{id}/document", h.Claim.Document)
				cr.Get("/{id}/history", h.Claim.History)
			})

			pr.Route("/hr", func(hr chi.Router) {
				hr.Use(middleware.RequireRoles(logger, user.RoleHRAdmin))

				hr.Get("/employees", h.Employee.ListEmployees)
				hr.Patch("/employees/{id}/department", h.Employee.UpdateEmployeeDepartment)
				hr.Patch("/employees/{id}/role", h.Employee.UpdateEmployeeRole)
				hr.Patch("/employees/{id}/status", h.Employee.SetEmployeeActive)

				hr.Post("/departments", h.Employee.CreateDepartment)
				hr.Patch("/departments/{id}", h.Employee.UpdateDepartmentRate)

				hr.Get("/claims", h.Invoice.ListClaims)
				hr.Get("/claims/{id}/invoice", h.Invoice.Get)
				hr.Get("/claims/{id}/invoice.pdf", h.Invoice.Download)
				hr.Get("/invoices/export", h.Invoice.Export)

				hr.Get("/reports", h.Report.Summary)
				hr.Get("/reports/export", h.Report.Export)
			})
		})
	})
}
