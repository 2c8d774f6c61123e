package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/time2pay/internal"
)

const (
	WorkMonthLayout = "2006-01"
	HoursScale      = 2
)

var (
	MaxHoursPerClaim = decimal.NewFromInt(140)
	MinPasswordLen   = 8
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
	errors []errors.ValidationError
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
		errors: make([]errors.ValidationError, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		missing := false
		switch v := value.(type) {
		case string:
			missing = strings.TrimSpace(v) == ""
		case int64:
			missing = v == 0
		case *string:
			missing = v == nil || strings.TrimSpace(*v) == ""
		}
		if missing {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

// PositiveDecimal rejects zero and negative values.
func (fv *FieldValidator) PositiveDecimal(code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(decimal.Decimal); ok && !v.IsPositive() {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be greater than 0", fv.FieldName), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxDecimal(max decimal.Decimal, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(decimal.Decimal); ok && v.GreaterThan(max) {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must not exceed %s", fv.FieldName, max.String()), code)
		}
		return nil
	})
	return fv
}

// MaxScale rejects values carrying more fractional digits than places.
// Trailing zeros are fine: "10.500" has scale 2.
func (fv *FieldValidator) MaxScale(places int32, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(decimal.Decimal); ok && !v.Equal(v.Truncate(places)) {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must have at most %d decimal places", fv.FieldName, places), code)
		}
		return nil
	})
	return fv
}

// HoursWorked applies the claim rules: positive, two decimal places as
// stored by claims.hours_worked, and capped at MaxHoursPerClaim.
func (fv *FieldValidator) HoursWorked() *FieldValidator {
	return fv.PositiveDecimal(errors.ErrCodeInvalidHours).
		MaxScale(HoursScale, errors.ErrCodeInvalidHours).
		MaxDecimal(MaxHoursPerClaim, errors.ErrCodeInvalidHours)
}

func (fv *FieldValidator) NonNegativeDecimal(code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(decimal.Decimal); ok && v.IsNegative() {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s cannot be negative", fv.FieldName), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if len(v) < min {
				message := fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min)
				return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if len(v) > max {
				message := fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max)
				return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Email() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok && v != "" {
			addr, err := mail.ParseAddress(v)
			if err != nil || addr.Address != v {
				return errors.NewValidationFieldError(fv.FieldName, "Invalid email address.", errors.ErrCodeInvalidEmail)
			}
		}
		return nil
	})
	return fv
}

// StrongPassword requires upper, lower, digit and special characters.
func (fv *FieldValidator) StrongPassword() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := value.(string)
		if !ok {
			return nil
		}
		var upper, lower, digit, special bool
		for _, r := range v {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			case unicode.IsPunct(r) || unicode.IsSymbol(r):
				special = true
			}
		}
		if len(v) < MinPasswordLen || !upper || !lower || !digit || !special {
			return errors.NewValidationFieldError(fv.FieldName,
				"Password must be at least 8 characters and include upper case, lower case, a digit and a special character.",
				errors.ErrCodeInvalidPassword)
		}
		return nil
	})
	return fv
}

// WorkMonth accepts YYYY-MM values that are not after the current month.
func (fv *FieldValidator) WorkMonth(now time.Time) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := value.(string)
		if !ok || v == "" {
			return nil
		}
		month, err := time.Parse(WorkMonthLayout, v)
		if err != nil {
			return errors.NewValidationFieldError(fv.FieldName, "Work month must be in YYYY-MM format.", errors.ErrCodeInvalidMonth)
		}
		current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		if month.After(current) {
			return errors.NewValidationFieldError(fv.FieldName, "Work month cannot be in the future.", errors.ErrCodeInvalidMonth)
		}
		return nil
	})
	return fv
}

// MonthFormat only checks the YYYY-MM shape; used by filters.
func (fv *FieldValidator) MonthFormat() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := value.(string)
		if !ok || v == "" {
			return nil
		}
		if _, err := time.Parse(WorkMonthLayout, v); err != nil {
			return errors.NewValidationFieldError(fv.FieldName, "Month must be in YYYY-MM format.", errors.ErrCodeInvalidMonth)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			err := validator(field.Value)
			if err == nil {
				continue
			}
			if details, ok := err.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: err.Message,
					Code:    string(err.Code),
				})
			}
			// first failure per field is enough
			break
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

func ValidatePassword(password, confirm string) *errors.AppError {
	validator := NewValidator()
	validator.Field("password", password).
		Required().
		StrongPassword()
	validator.Field("confirm_password", confirm).
		Custom(func(value interface{}) *errors.AppError {
			if value.(string) != password {
				return errors.NewValidationFieldError("confirm_password", "Passwords do not match.", errors.ErrCodeInvalidPassword)
			}
			return nil
		})
	return validator.Validate()
}
