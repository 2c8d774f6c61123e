package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/auth"
	employeeDatamodel "github.com/frahmantamala/time2pay/internal/core/datamodel/employee"
)

const accountColumns = "e.id AS employee_id, e.email, e.name, e.role, e.department_id, " +
	"ua.password_hash, ua.is_active, ua.id IS NOT NULL AS has_account"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

type accountRow struct {
	EmployeeID   int64   `gorm:"column:employee_id"`
	Email        string  `gorm:"column:email"`
	Name         string  `gorm:"column:name"`
	Role         string  `gorm:"column:role"`
	DepartmentID int64   `gorm:"column:department_id"`
	PasswordHash *string `gorm:"column:password_hash"`
	IsActive     *bool   `gorm:"column:is_active"`
	HasAccount   bool    `gorm:"column:has_account"`
}

func (row accountRow) toAccount() *auth.Account {
	a := &auth.Account{
		EmployeeID:   row.EmployeeID,
		Email:        row.Email,
		Name:         row.Name,
		Role:         row.Role,
		DepartmentID: row.DepartmentID,
		HasAccount:   row.HasAccount,
	}
	if row.PasswordHash != nil {
		a.PasswordHash = *row.PasswordHash
	}
	if row.IsActive != nil {
		a.IsActive = *row.IsActive
	}
	return a
}

func (r *Repository) account(ctx context.Context, where string, arg interface{}) (*auth.Account, error) {
	var row accountRow
	err := r.db.WithContext(ctx).
		Table("employees e").
		Select(accountColumns).
		Joins("LEFT JOIN user_accounts ua ON ua.employee_id = e.id").
		Where(where, arg).
		Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.EmployeeNotFound()
		}
		return nil, errors.NewInternalError("failed to load account", err)
	}
	return row.toAccount(), nil
}

func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return r.account(ctx, "LOWER(e.email) = LOWER(?)", email)
}

func (r *Repository) GetAccountByID(ctx context.Context, employeeID int64) (*auth.Account, error) {
	return r.account(ctx, "e.id = ?", employeeID)
}

func (r *Repository) UpdateLastLogin(ctx context.Context, employeeID int64, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&employeeDatamodel.UserAccount{}).
		Where("employee_id = ?", employeeID).
		Update("last_login_at", at).Error
	if err != nil {
		return errors.NewInternalError("failed to update last login", err)
	}
	return nil
}
