package invoice

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	"github.com/frahmantamala/time2pay/internal/core/common/validation"
)

// Invoice is the payable view of a single claim.
type Invoice struct {
	ClaimID        int64           `json:"claim_id"`
	LecturerName   string          `json:"lecturer_name"`
	LecturerEmail  string          `json:"lecturer_email"`
	DepartmentName string          `json:"department_name"`
	ClaimDate      time.Time       `json:"claim_date"`
	WorkMonth      string          `json:"work_month"`
	HoursWorked    decimal.Decimal `json:"hours_worked"`
	HourlyRate     decimal.Decimal `json:"hourly_rate"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         claim.Status    `json:"status"`
	IsDeleted      bool            `json:"-"`
	DocumentID     *int64          `json:"document_id,omitempty"`
}

// Filter selects claims for the HR listing and the batch export. Zero values
// do not filter.
type Filter struct {
	DepartmentID   int64
	Status         *claim.Status
	WorkMonth      string
	LecturerName   string
	IncludeDeleted bool
}

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

const (
	ContentTypePDF = "application/pdf"
	ContentTypeZip = "application/zip"

	ExportFileName = "Filtered_Invoices.zip"
)

func FileName(claimID int64) string {
	return fmt.Sprintf("Invoice_%d.pdf", claimID)
}

// ParseFilter reads department_id, status, month and lecturer from a query
// string.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	if raw := strings.TrimSpace(q.Get("department_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return Filter{}, errors.NewValidationFieldError("department_id", "department_id must be a positive number", errors.ErrCodeValidationFailed)
		}
		f.DepartmentID = id
	}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := claim.ParseStatus(raw)
		if err != nil {
			return Filter{}, errors.NewValidationFieldError("status", fmt.Sprintf("unknown status %q", raw), errors.ErrCodeValidationFailed)
		}
		f.Status = &status
	}

	f.WorkMonth = strings.TrimSpace(q.Get("month"))
	f.LecturerName = strings.TrimSpace(q.Get("lecturer"))

	validator := validation.NewValidator()
	validator.Field("month", f.WorkMonth).MonthFormat()
	validator.Field("lecturer", f.LecturerName).MaxLength(200)
	if err := validator.Validate(); err != nil {
		return Filter{}, err
	}

	return f, nil
}

// FormatRand renders an amount the way invoices show it, e.g. "R 4,000.00".
func FormatRand(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, cents := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%sR %s.%s", sign, b.String(), cents)
}
