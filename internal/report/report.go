package report

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/common/validation"
)

// Row is one department, lecturer and work month bucket.
type Row struct {
	Department  string          `db:"department" json:"department"`
	Lecturer    string          `db:"lecturer" json:"lecturer"`
	WorkMonth   string          `db:"work_month" json:"work_month"`
	Claims      int64           `db:"claims" json:"claims"`
	TotalHours  decimal.Decimal `db:"total_hours" json:"total_hours"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
}

type Report struct {
	Rows        []Row           `json:"rows"`
	TotalHours  decimal.Decimal `json:"total_hours"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Filter bounds the aggregation. Months are inclusive YYYY-MM values.
type Filter struct {
	DepartmentID int64
	Lecturer     string
	MonthFrom    string
	MonthTo      string
}

func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	if raw := strings.TrimSpace(q.Get("department_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return Filter{}, errors.NewValidationFieldError("department_id", "department_id must be a positive number", errors.ErrCodeValidationFailed)
		}
		f.DepartmentID = id
	}

	f.Lecturer = strings.TrimSpace(q.Get("lecturer"))
	f.MonthFrom = strings.TrimSpace(q.Get("month_from"))
	f.MonthTo = strings.TrimSpace(q.Get("month_to"))

	validator := validation.NewValidator()
	validator.Field("lecturer", f.Lecturer).MaxLength(200)
	validator.Field("month_from", f.MonthFrom).MonthFormat()
	validator.Field("month_to", f.MonthTo).MonthFormat().
		Custom(func(value interface{}) *errors.AppError {
			to := value.(string)
			if to != "" && f.MonthFrom != "" && to < f.MonthFrom {
				return errors.NewValidationFieldError("month_to", "month_to cannot be before month_from", errors.ErrCodeInvalidMonth)
			}
			return nil
		})
	if err := validator.Validate(); err != nil {
		return Filter{}, err
	}

	return f, nil
}

// newReport rounds each bucket and adds the grand totals.
func newReport(rows []Row) *Report {
	r := &Report{Rows: rows, TotalHours: decimal.Zero, TotalAmount: decimal.Zero}
	if r.Rows == nil {
		r.Rows = []Row{}
	}
	for i := range r.Rows {
		r.Rows[i].TotalHours = r.Rows[i].TotalHours.Round(2)
		r.Rows[i].TotalAmount = r.Rows[i].TotalAmount.Round(2)
		r.TotalHours = r.TotalHours.Add(r.Rows[i].TotalHours)
		r.TotalAmount = r.TotalAmount.Add(r.Rows[i].TotalAmount)
	}
	return r
}
