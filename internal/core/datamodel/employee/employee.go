package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type Department struct {
	ID         int64           `gorm:"primaryKey"`
	Name       string          `gorm:"column:name;uniqueIndex;not null"`
	HourlyRate decimal.Decimal `gorm:"column:hourly_rate;type:numeric(18,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

type Employee struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	DepartmentID int64     `gorm:"column:department_id;not null;index"`
	Role         string    `gorm:"column:role;type:varchar(20);not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// UserAccount holds credentials and the active flag apart from the profile.
type UserAccount struct {
	ID           int64      `gorm:"primaryKey"`
	EmployeeID   int64      `gorm:"column:employee_id;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
