package claim

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	claimDatamodel "github.com/frahmantamala/time2pay/internal/core/datamodel/claim"
)

// Status is the lifecycle state of a claim.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusVerified Status = "Verified"
	StatusRejected Status = "Rejected"
	StatusApproved Status = "Approved"
	StatusDeleted  Status = "Deleted"
)

var statuses = []Status{StatusPending, StatusVerified, StatusRejected, StatusApproved, StatusDeleted}

// ParseStatus accepts any casing; legacy rows mix "deleted" and "Deleted".
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown claim status %q", s)
}

func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func (s Status) String() string {
	return string(s)
}

type Claim struct {
	ID             int64                `json:"id"`
	EmployeeID     int64                `json:"employee_id"`
	EmployeeName   string               `json:"employee_name,omitempty"`
	DepartmentID   int64                `json:"department_id,omitempty"`
	DepartmentName string               `json:"department_name,omitempty"`
	HoursWorked    decimal.Decimal      `json:"hours_worked"`
	WorkMonth      string               `json:"work_month"`
	Status         Status               `json:"status"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	IsDeleted      bool                 `json:"-"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Documents      []SupportingDocument `json:"documents,omitempty"`
	Actions        []Action             `json:"actions,omitempty"`
}

type SupportingDocument struct {
	ID           int64     `json:"id"`
	ClaimID      int64     `json:"claim_id"`
	FilePath     string    `json:"-"`
	OriginalName string    `json:"file_name"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// AuditEntry is one Verification or Approval record.
type AuditEntry struct {
	Kind      string    `json:"kind"`
	ClaimID   int64     `json:"claim_id"`
	ActorID   int64     `json:"actor_id"`
	ActorName string    `json:"actor_name,omitempty"`
	Status    Status    `json:"status"`
	Remarks   *string   `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	AuditKindVerification = "verification"
	AuditKindApproval     = "approval"
)

// Profile is an employee with the department data a transition needs.
type Profile struct {
	EmployeeID     int64
	Name           string
	Email          string
	Role           string
	DepartmentID   int64
	DepartmentName string
	HourlyRate     decimal.Decimal
}

// ListFilter narrows department listings. A nil Status lists every active
// state.
type ListFilter struct {
	DepartmentID int64
	EmployeeID   int64
	Status       *Status
}

// ComputeTotal is hours times rate, half away from zero to 2 places.
func ComputeTotal(hours, rate decimal.Decimal) decimal.Decimal {
	return hours.Mul(rate).Round(2)
}

func (c *Claim) FirstDocument() (*SupportingDocument, bool) {
	if len(c.Documents) == 0 {
		return nil, false
	}
	return &c.Documents[0], true
}

func ToDataModel(c *Claim) *claimDatamodel.Claim {
	return &claimDatamodel.Claim{
		ID:          c.ID,
		EmployeeID:  c.EmployeeID,
		HoursWorked: c.HoursWorked,
		WorkMonth:   c.WorkMonth,
		Status:      string(c.Status),
		TotalAmount: c.TotalAmount,
		IsDeleted:   c.IsDeleted,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// FromDataModel keeps an unparseable status as-is so callers can still refuse
// to act on it.
func FromDataModel(c *claimDatamodel.Claim) *Claim {
	status, err := ParseStatus(c.Status)
	if err != nil {
		status = Status(c.Status)
	}
	return &Claim{
		ID:          c.ID,
		EmployeeID:  c.EmployeeID,
		HoursWorked: c.HoursWorked,
		WorkMonth:   c.WorkMonth,
		Status:      status,
		TotalAmount: c.TotalAmount,
		IsDeleted:   c.IsDeleted,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func DocumentFromDataModel(d *claimDatamodel.SupportingDocument) SupportingDocument {
	return SupportingDocument{
		ID:           d.ID,
		ClaimID:      d.ClaimID,
		FilePath:     d.FilePath,
		OriginalName: d.OriginalName,
		SizeBytes:    d.SizeBytes,
		UploadedAt:   d.UploadedAt,
	}
}

func DocumentToDataModel(d *SupportingDocument) *claimDatamodel.SupportingDocument {
	return &claimDatamodel.SupportingDocument{
		ID:           d.ID,
		ClaimID:      d.ClaimID,
		FilePath:     d.FilePath,
		OriginalName: d.OriginalName,
		SizeBytes:    d.SizeBytes,
		UploadedAt:   d.UploadedAt,
	}
}
