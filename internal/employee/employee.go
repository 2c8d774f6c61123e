package employee

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	employeeDatamodel "github.com/frahmantamala/time2pay/internal/core/datamodel/employee"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

type Employee struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           user.Role `json:"role"`
	DepartmentID   int64     `json:"department_id"`
	DepartmentName string    `json:"department_name,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Department struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ToDataModel(e *Employee) *employeeDatamodel.Employee {
	return &employeeDatamodel.Employee{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		DepartmentID: e.DepartmentID,
		Role:         string(e.Role),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func FromDataModel(e *employeeDatamodel.Employee) *Employee {
	role, err := user.ParseRole(e.Role)
	if err != nil {
		role = user.Role(e.Role)
	}
	return &Employee{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		Role:         role,
		DepartmentID: e.DepartmentID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func DepartmentToDataModel(d *Department) *employeeDatamodel.Department {
	return &employeeDatamodel.Department{
		ID:         d.ID,
		Name:       d.Name,
		HourlyRate: d.HourlyRate,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func DepartmentFromDataModel(d *employeeDatamodel.Department) *Department {
	return &Department{
		ID:         d.ID,
		Name:       d.Name,
		HourlyRate: d.HourlyRate,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
