package claim

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/common/validation"
)

// ClaimInputDTO carries the fields of a submit or edit form.
type ClaimInputDTO struct {
	HoursWorked string `json:"hours_worked"`
	WorkMonth   string `json:"work_month"`
}

// Validate returns the parsed hours at the scale they are persisted with.
func (dto ClaimInputDTO) Validate(now time.Time) (decimal.Decimal, error) {
	raw := strings.TrimSpace(dto.HoursWorked)
	if raw == "" {
		return decimal.Zero, errors.NewValidationFieldError("hours_worked", "hours_worked is required", errors.ErrCodeInvalidHours)
	}

	hours, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.NewValidationFieldError("hours_worked", "hours_worked must be a number", errors.ErrCodeInvalidHours)
	}

	validator := validation.NewValidator()
	validator.Field("hours_worked", hours).HoursWorked()
	validator.Field("work_month", strings.TrimSpace(dto.WorkMonth)).
		Required().
		WorkMonth(now)
	if err := validator.Validate(); err != nil {
		return decimal.Zero, err
	}

	// drop trailing zeros beyond the column scale so the total is computed
	// from exactly what gets stored
	return hours.Round(validation.HoursScale), nil
}

func (dto ClaimInputDTO) Month() string {
	return strings.TrimSpace(dto.WorkMonth)
}

// TransitionDTO is the body of verify, reject and approve.
type TransitionDTO struct {
	Remarks string `json:"remarks"`
}

func (dto TransitionDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("remarks", dto.Remarks).MaxLength(1000)
	if err := validator.Validate(); err != nil {
		return err
	}
	return nil
}

// StatusCount is one bucket of a department summary.
type StatusCount struct {
	Status Status `json:"status"`
	Total  int64  `json:"total"`
}

type Summary struct {
	DepartmentID int64         `json:"department_id"`
	Counts       []StatusCount `json:"counts"`
	Total        int64         `json:"total"`
}
