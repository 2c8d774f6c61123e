package employee

import (
	"context"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/transport"
	"github.com/frahmantamala/time2pay/pkg/logger"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*Employee, error)
	ListDepartments(ctx context.Context) ([]*Department, error)
	ListEmployees(ctx context.Context, actor *user.Actor) ([]*Employee, error)
	CreateDepartment(ctx context.Context, actor *user.Actor, dto CreateDepartmentDTO) (*Department, error)
	UpdateDepartmentRate(ctx context.Context, actor *user.Actor, id int64, dto UpdateRateDTO) (*Department, error)
	UpdateEmployeeDepartment(ctx context.Context, actor *user.Actor, id int64, dto AssignDepartmentDTO) (*Employee, error)
	UpdateEmployeeRole(ctx context.Context, actor *user.Actor, id int64, dto AssignRoleDTO) (*Employee, error)
	SetEmployeeActive(ctx context.Context, actor *user.Actor, id int64, dto SetActiveDTO) (*Employee, error)
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

// Register handles POST /employees/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	e, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("Register: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusCreated, "Registration successful.", e)
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"departments": departments})
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	actor, ok := errors.ActorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.AuthenticationRequired())
		return
	}

	employees, err := h.Service.ListEmployees(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"employees": employees})
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := errors.ActorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.AuthenticationRequired())
		return
	}

	var dto CreateDepartmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.CreateDepartment(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, "Department created successfully.", d)
}

func (h *Handler) UpdateDepartmentRate(w http.ResponseWriter, r *http.Request) {
	actor, ok := errors.ActorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.AuthenticationRequired())
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateRateDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.UpdateDepartmentRate(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department updated successfully.", d)
}

func (h *Handler) UpdateEmployeeDepartment(w http.ResponseWriter, r *http.Request) {
	var dto AssignDepartmentDTO
	h.updateEmployee(w, r, &dto, func(ctx context.Context, actor *user.Actor, id int64) (*Employee, error) {
		return h.Service.UpdateEmployeeDepartment(ctx, actor, id, dto)
	})
}

func (h *Handler) UpdateEmployeeRole(w http.ResponseWriter, r *http.Request) {
	var dto AssignRoleDTO
	h.updateEmployee(w, r, &dto, func(ctx context.Context, actor *user.Actor, id int64) (*Employee, error) {
		return h.Service.UpdateEmployeeRole(ctx, actor, id, dto)
	})
}

func (h *Handler) SetEmployeeActive(w http.ResponseWriter, r *http.Request) {
	var dto SetActiveDTO
	h.updateEmployee(w, r, &dto, func(ctx context.Context, actor *user.Actor, id int64) (*Employee, error) {
		return h.Service.SetEmployeeActive(ctx, actor, id, dto)
	})
}

// updateEmployee decodes the body into dto before calling fn.
func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request, dto interface{},
	fn func(context.Context, *user.Actor, int64) (*Employee, error)) {
	actor, ok := errors.ActorFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.AuthenticationRequired())
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := h.DecodeJSON(r, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	e, err := fn(r.Context(), actor, id)
	if err != nil {
		h.Logger.Warn("employee update failed", "error", err, "employee_id", id, "actor_id", actor.EmployeeID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Employee updated successfully.", e)
}
