package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidHours     ErrorCode = "INVALID_HOURS"
	ErrCodeInvalidMonth     ErrorCode = "INVALID_WORK_MONTH"
	ErrCodeInvalidDocument  ErrorCode = "INVALID_DOCUMENT"
	ErrCodeInvalidPassword  ErrorCode = "INVALID_PASSWORD"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidRate      ErrorCode = "INVALID_HOURLY_RATE"

	ErrCodeClaimNotFound      ErrorCode = "CLAIM_NOT_FOUND"
	ErrCodeDocumentNotFound   ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeEmployeeNotFound   ErrorCode = "EMPLOYEE_NOT_FOUND"
	ErrCodeDepartmentNotFound ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_CLAIM_TRANSITION"
	ErrCodeTransitionConflict ErrorCode = "CLAIM_TRANSITION_CONFLICT"
	ErrCodeOutsideDepartment  ErrorCode = "OUTSIDE_DEPARTMENT"
	ErrCodeNotClaimOwner      ErrorCode = "NOT_CLAIM_OWNER"
	ErrCodeRoleNotPermitted   ErrorCode = "ROLE_NOT_PERMITTED"
	ErrCodeEmailInUse         ErrorCode = "EMAIL_IN_USE"
	ErrCodeDepartmentExists   ErrorCode = "DEPARTMENT_EXISTS"
	ErrCodeNoInvoices         ErrorCode = "NO_INVOICES"

	ErrCodeAuthenticationRequired ErrorCode = "AUTHENTICATION_REQUIRED"
	ErrCodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive           ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken           ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired           ErrorCode = "TOKEN_EXPIRED"

	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
	ErrCodeStorageFailure     ErrorCode = "STORAGE_FAILURE"
	ErrCodeMailFailure        ErrorCode = "MAIL_FAILURE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage joins field level messages so a caller sees every
// reason an input was refused.
func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Is matches on type and code so fresh instances compare equal to the
// exported templates below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodePersistenceFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExternalError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// Templates for errors.Is. Never return these directly, the constructors
// hand out fresh values so WithCause cannot leak between requests.
var (
	ErrAuthenticationRequired = NewUnauthorizedError("Not authenticated.", ErrCodeAuthenticationRequired)
	ErrInvalidCredentials     = NewUnauthorizedError("Invalid email or password.", ErrCodeInvalidCredentials)
	ErrUserInactive           = NewUnauthorizedError("Account not found or not active.", ErrCodeUserInactive)
	ErrInvalidToken           = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired           = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)

	ErrClaimNotFound      = NewNotFoundError("Claim not found.", ErrCodeClaimNotFound)
	ErrDocumentNotFound   = NewNotFoundError("Supporting document not found.", ErrCodeDocumentNotFound)
	ErrEmployeeNotFound   = NewNotFoundError("Employee not found.", ErrCodeEmployeeNotFound)
	ErrDepartmentNotFound = NewNotFoundError("Department not found.", ErrCodeDepartmentNotFound)

	ErrOutsideDepartment = NewForbiddenError("You cannot act on claims outside your department.", ErrCodeOutsideDepartment)
	ErrNotClaimOwner     = NewForbiddenError("You can only change your own claims.", ErrCodeNotClaimOwner)
	ErrRoleNotPermitted  = NewForbiddenError("Your role is not permitted to perform this action.", ErrCodeRoleNotPermitted)

	ErrEmailInUse = NewConflictError("Email already in use.", ErrCodeEmailInUse)
)

func AuthenticationRequired() *AppError {
	return NewUnauthorizedError(ErrAuthenticationRequired.Message, ErrCodeAuthenticationRequired)
}

func ClaimNotFound() *AppError {
	return NewNotFoundError(ErrClaimNotFound.Message, ErrCodeClaimNotFound)
}

func DocumentNotFound() *AppError {
	return NewNotFoundError(ErrDocumentNotFound.Message, ErrCodeDocumentNotFound)
}

func EmployeeNotFound() *AppError {
	return NewNotFoundError(ErrEmployeeNotFound.Message, ErrCodeEmployeeNotFound)
}

func DepartmentNotFound() *AppError {
	return NewNotFoundError(ErrDepartmentNotFound.Message, ErrCodeDepartmentNotFound)
}

func OutsideDepartment() *AppError {
	return NewForbiddenError(ErrOutsideDepartment.Message, ErrCodeOutsideDepartment)
}

func NotClaimOwner() *AppError {
	return NewForbiddenError(ErrNotClaimOwner.Message, ErrCodeNotClaimOwner)
}

func RoleNotPermitted() *AppError {
	return NewForbiddenError(ErrRoleNotPermitted.Message, ErrCodeRoleNotPermitted)
}

func EmailInUse() *AppError {
	return NewConflictError(ErrEmailInUse.Message, ErrCodeEmailInUse)
}

func InvalidCredentials() *AppError {
	return NewUnauthorizedError(ErrInvalidCredentials.Message, ErrCodeInvalidCredentials)
}

func UserInactive() *AppError {
	return NewUnauthorizedError(ErrUserInactive.Message, ErrCodeUserInactive)
}

func InvalidToken() *AppError {
	return NewUnauthorizedError(ErrInvalidToken.Message, ErrCodeInvalidToken)
}

func TokenExpired() *AppError {
	return NewUnauthorizedError(ErrTokenExpired.Message, ErrCodeTokenExpired)
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func IsNotFound(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == ErrorTypeNotFound
}

// Response is the envelope written for every failed request.
type Response struct {
	Success bool        `json:"success"`
	Code    ErrorCode   `json:"code"`
	Type    ErrorType   `json:"type"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	status := e.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, Response{
		Success: false,
		Code:    e.Code,
		Type:    e.Type,
		Message: e.GetDetailedMessage(),
		Details: e.Details,
	}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
