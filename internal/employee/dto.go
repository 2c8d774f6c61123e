package employee

import (
	"strings"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/common/validation"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

const (
	maxNameLength  = 200
	maxEmailLength = 200
)

// RegisterDTO is the self-registration form. Accounts created through it are
// always Lecturers.
type RegisterDTO struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	DepartmentID    int64  `json:"department_id"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (dto RegisterDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("name", strings.TrimSpace(dto.Name)).
		Required().
		MaxLength(maxNameLength)
	validator.Field("email", NormalizeEmail(dto.Email)).
		Required().
		MaxLength(maxEmailLength).
		Email()
	validator.Field("department_id", dto.DepartmentID).
		Required()
	if err := validator.Validate(); err != nil {
		return err
	}

	if err := validation.ValidatePassword(dto.Password, dto.ConfirmPassword); err != nil {
		return err
	}
	return nil
}

type CreateDepartmentDTO struct {
	Name       string `json:"name"`
	HourlyRate string `json:"hourly_rate"`
}

func (dto CreateDepartmentDTO) Validate() (decimal.Decimal, error) {
	validator := validation.NewValidator()
	validator.Field("name", strings.TrimSpace(dto.Name)).
		Required().
		MaxLength(maxNameLength)
	if err := validator.Validate(); err != nil {
		return decimal.Zero, err
	}
	return parseRate(dto.HourlyRate)
}

type UpdateRateDTO struct {
	HourlyRate string `json:"hourly_rate"`
}

func (dto UpdateRateDTO) Validate() (decimal.Decimal, error) {
	return parseRate(dto.HourlyRate)
}

// parseRate accepts zero for departments that never claim hours.
func parseRate(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, errors.NewValidationFieldError("hourly_rate", "hourly_rate is required", errors.ErrCodeInvalidRate)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.NewValidationFieldError("hourly_rate", "hourly_rate must be a number", errors.ErrCodeInvalidRate)
	}

	validator := validation.NewValidator()
	validator.Field("hourly_rate", rate).NonNegativeDecimal(errors.ErrCodeInvalidRate)
	if err := validator.Validate(); err != nil {
		return decimal.Zero, err
	}
	return rate.Round(2), nil
}

type AssignDepartmentDTO struct {
	DepartmentID int64 `json:"department_id"`
}

func (dto AssignDepartmentDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("department_id", dto.DepartmentID).Required()
	if err := validator.Validate(); err != nil {
		return err
	}
	return nil
}

type AssignRoleDTO struct {
	Role string `json:"role"`
}

func (dto AssignRoleDTO) Validate() (user.Role, error) {
	role, err := user.ParseRole(dto.Role)
	if err != nil {
		return "", errors.NewValidationFieldError("role", "Role must be one of Lecturer, Coordinator, Manager or HR Admin.", errors.ErrCodeInvalidRole)
	}
	return role, nil
}

type SetActiveDTO struct {
	IsActive *bool `json:"is_active"`
}

func (dto SetActiveDTO) Validate() (bool, error) {
	if dto.IsActive == nil {
		return false, errors.NewValidationFieldError("is_active", "is_active is required", errors.ErrCodeValidationFailed)
	}
	return *dto.IsActive, nil
}
