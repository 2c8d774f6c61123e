package claim

import (
	"time"

	"github.com/shopspring/decimal"
)

type Claim struct {
	ID          int64           `gorm:"primaryKey"`
	EmployeeID  int64           `gorm:"column:employee_id;not null;index"`
	HoursWorked decimal.Decimal `gorm:"column:hours_worked;type:numeric(10,2);not null"`
	WorkMonth   string          `gorm:"column:work_month;type:varchar(7);not null"`
	Status      string          `gorm:"column:status;type:varchar(20);not null;default:Pending"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(18,2);not null"`
	IsDeleted   bool            `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

type SupportingDocument struct {
	ID           int64     `gorm:"primaryKey"`
	ClaimID      int64     `gorm:"column:claim_id;not null;index"`
	FilePath     string    `gorm:"column:file_path;not null"`
	OriginalName string    `gorm:"column:original_name"`
	SizeBytes    int64     `gorm:"column:size_bytes"`
	UploadedAt   time.Time `gorm:"column:uploaded_at;autoCreateTime"`
}

// Verification and Approval rows are append only.
type Verification struct {
	ID         int64     `gorm:"primaryKey"`
	ClaimID    int64     `gorm:"column:claim_id;not null;index"`
	EmployeeID int64     `gorm:"column:employee_id;not null"`
	Status     string    `gorm:"column:status;type:varchar(20);not null"`
	Remarks    *string   `gorm:"column:remarks"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

type Approval struct {
	ID         int64     `gorm:"primaryKey"`
	ClaimID    int64     `gorm:"column:claim_id;not null;index"`
	EmployeeID int64     `gorm:"column:employee_id;not null"`
	Status     string    `gorm:"column:status;type:varchar(20);not null"`
	Remarks    *string   `gorm:"column:remarks"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
