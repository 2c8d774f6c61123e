package employee

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

type Repository interface {
	WithinTransaction(ctx context.Context, fn func(tx Repository) error) error

	EmailExists(ctx context.Context, email string) (bool, error)
	CreateEmployee(ctx context.Context, e *Employee) error
	CreateAccount(ctx context.Context, employeeID int64, passwordHash string, active bool) error
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	ListEmployees(ctx context.Context) ([]*Employee, error)
	UpdateEmployeeDepartment(ctx context.Context, id, departmentID int64) error
	UpdateEmployeeRole(ctx context.Context, id int64, role user.Role) error
	SetAccountActive(ctx context.Context, employeeID int64, active bool) error

	GetDepartment(ctx context.Context, id int64) (*Department, error)
	DepartmentNameExists(ctx context.Context, name string) (bool, error)
	ListDepartments(ctx context.Context) ([]*Department, error)
	CreateDepartment(ctx context.Context, d *Department) error
	UpdateDepartmentRate(ctx context.Context, id int64, rate decimal.Decimal) error
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an active Lecturer with a login account.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*Employee, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := NormalizeEmail(dto.Email)
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Warn("registration with existing email", "email", email)
		return nil, errors.EmailInUse()
	}

	dept, err := s.repo.GetDepartment(ctx, dto.DepartmentID)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	e := &Employee{
		Name:           strings.TrimSpace(dto.Name),
		Email:          email,
		Role:           user.RoleLecturer,
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		IsActive:       true,
	}

	err = s.repo.WithinTransaction(ctx, func(tx Repository) error {
		if err := tx.CreateEmployee(ctx, e); err != nil {
			return err
		}
		return tx.CreateAccount(ctx, e.ID, string(hash), true)
	})
	if err != nil {
		s.logger.Error("failed to register employee", "email", email, "error", err)
		return nil, err
	}

	s.logger.Info("employee registered", "employee_id", e.ID, "department_id", e.DepartmentID)
	return e, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]*Department, error) {
	return s.repo.ListDepartments(ctx)
}

func (s *Service) ListEmployees(ctx context.Context, actor *user.Actor) ([]*Employee, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx)
}

func (s *Service) CreateDepartment(ctx context.Context, actor *user.Actor, dto CreateDepartmentDTO) (*Department, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	rate, err := dto.Validate()
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(dto.Name)
	exists, err := s.repo.DepartmentNameExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewConflictError("Department already exists.", errors.ErrCodeDepartmentExists)
	}

	d := &Department{Name: name, HourlyRate: rate}
	if err := s.repo.CreateDepartment(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("department created", "department_id", d.ID, "actor_id", actor.EmployeeID)
	return d, nil
}

// UpdateDepartmentRate changes the rate used by future submissions and edits.
// Totals already stored are left as they are.
func (s *Service) UpdateDepartmentRate(ctx context.Context, actor *user.Actor, id int64, dto UpdateRateDTO) (*Department, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	rate, err := dto.Validate()
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetDepartment(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDepartmentRate(ctx, id, rate); err != nil {
		return nil, err
	}

	s.logger.Info("department rate updated", "department_id", id, "hourly_rate", rate.StringFixed(2), "actor_id", actor.EmployeeID)
	return s.repo.GetDepartment(ctx, id)
}

func (s *Service) UpdateEmployeeDepartment(ctx context.Context, actor *user.Actor, id int64, dto AssignDepartmentDTO) (*Employee, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDepartment(ctx, dto.DepartmentID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEmployeeDepartment(ctx, id, dto.DepartmentID); err != nil {
		return nil, err
	}

	s.logger.Info("employee department updated", "employee_id", id, "department_id", dto.DepartmentID, "actor_id", actor.EmployeeID)
	return s.repo.GetEmployee(ctx, id)
}

func (s *Service) UpdateEmployeeRole(ctx context.Context, actor *user.Actor, id int64, dto AssignRoleDTO) (*Employee, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	role, err := dto.Validate()
	if err != nil {
		return nil, err
	}
	if id == actor.EmployeeID && role != user.RoleHRAdmin {
		return nil, errors.NewValidationError("You cannot remove your own HR Admin role.", errors.ErrCodeInvalidRole)
	}

	if _, err := s.repo.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEmployeeRole(ctx, id, role); err != nil {
		return nil, err
	}

	s.logger.Info("employee role updated", "employee_id", id, "role", role, "actor_id", actor.EmployeeID)
	return s.repo.GetEmployee(ctx, id)
}

// SetEmployeeActive toggles the login account. Inactive employees are refused
// at login and on every authenticated request.
func (s *Service) SetEmployeeActive(ctx context.Context, actor *user.Actor, id int64, dto SetActiveDTO) (*Employee, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	active, err := dto.Validate()
	if err != nil {
		return nil, err
	}
	if id == actor.EmployeeID && !active {
		return nil, errors.NewValidationError("You cannot deactivate your own account.", errors.ErrCodeValidationFailed)
	}

	if _, err := s.repo.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetAccountActive(ctx, id, active); err != nil {
		return nil, err
	}

	s.logger.Info("employee active flag updated", "employee_id", id, "is_active", active, "actor_id", actor.EmployeeID)
	return s.repo.GetEmployee(ctx, id)
}

func requireHR(actor *user.Actor) error {
	return errors.RequireRole(actor, user.RoleHRAdmin)
}
