package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	errors "github.com/frahmantamala/time2pay/internal"
	employeeDatamodel "github.com/frahmantamala/time2pay/internal/core/datamodel/employee"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/employee"
)

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) employee.Repository {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) WithinTransaction(ctx context.Context, fn func(tx employee.Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&EmployeeRepository{db: tx})
	})
	if err == nil {
		return nil
	}
	if _, ok := errors.IsAppError(err); ok {
		return err
	}
	return errors.NewInternalError("transaction failed", err)
}

func (r *EmployeeRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&employeeDatamodel.Employee{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&count).Error
	if err != nil {
		return false, errors.NewInternalError("failed to check email", err)
	}
	return count > 0, nil
}

func (r *EmployeeRepository) CreateEmployee(ctx context.Context, e *employee.Employee) error {
	row := employee.ToDataModel(e)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.NewInternalError("failed to create employee", err)
	}
	e.ID = row.ID
	e.CreatedAt = row.CreatedAt
	e.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *EmployeeRepository) CreateAccount(ctx context.Context, employeeID int64, passwordHash string, active bool) error {
	row := &employeeDatamodel.UserAccount{
		EmployeeID:   employeeID,
		PasswordHash: passwordHash,
		IsActive:     active,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.NewInternalError("failed to create account", err)
	}
	return nil
}

type employeeRow struct {
	employeeDatamodel.Employee
	DepartmentName string `gorm:"column:department_name"`
	IsActive       *bool  `gorm:"column:is_active"`
}

func (row employeeRow) toEmployee() *employee.Employee {
	e := employee.FromDataModel(&row.Employee)
	e.DepartmentName = row.DepartmentName
	e.IsActive = row.IsActive != nil && *row.IsActive
	return e
}

func (r *EmployeeRepository) employees(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&employeeDatamodel.Employee{}).
		Select("employees.*, d.name AS department_name, ua.is_active AS is_active").
		Joins("LEFT JOIN departments d ON d.id = employees.department_id").
		Joins("LEFT JOIN user_accounts ua ON ua.employee_id = employees.id")
}

func (r *EmployeeRepository) GetEmployee(ctx context.Context, id int64) (*employee.Employee, error) {
	var row employeeRow
	err := r.employees(ctx).Where("employees.id = ?", id).Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.EmployeeNotFound()
		}
		return nil, errors.NewInternalError("failed to load employee", err)
	}
	return row.toEmployee(), nil
}

func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]*employee.Employee, error) {
	var rows []employeeRow
	if err := r.employees(ctx).Order("employees.name ASC, employees.id ASC").Scan(&rows).Error; err != nil {
		return nil, errors.NewInternalError("failed to list employees", err)
	}
	out := make([]*employee.Employee, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEmployee())
	}
	return out, nil
}

func (r *EmployeeRepository) UpdateEmployeeDepartment(ctx context.Context, id, departmentID int64) error {
	return r.updateEmployee(ctx, id, map[string]interface{}{"department_id": departmentID})
}

func (r *EmployeeRepository) UpdateEmployeeRole(ctx context.Context, id int64, role user.Role) error {
	return r.updateEmployee(ctx, id, map[string]interface{}{"role": string(role)})
}

func (r *EmployeeRepository) updateEmployee(ctx context.Context, id int64, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).
		Model(&employeeDatamodel.Employee{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return errors.NewInternalError("failed to update employee", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.EmployeeNotFound()
	}
	return nil
}

func (r *EmployeeRepository) SetAccountActive(ctx context.Context, employeeID int64, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&employeeDatamodel.UserAccount{}).
		Where("employee_id = ?", employeeID).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()})
	if res.Error != nil {
		return errors.NewInternalError("failed to update account", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.EmployeeNotFound()
	}
	return nil
}

func (r *EmployeeRepository) GetDepartment(ctx context.Context, id int64) (*employee.Department, error) {
	var row employeeDatamodel.Department
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.DepartmentNotFound()
		}
		return nil, errors.NewInternalError("failed to load department", err)
	}
	return employee.DepartmentFromDataModel(&row), nil
}

func (r *EmployeeRepository) DepartmentNameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&employeeDatamodel.Department{}).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count).Error
	if err != nil {
		return false, errors.NewInternalError("failed to check department", err)
	}
	return count > 0, nil
}

func (r *EmployeeRepository) ListDepartments(ctx context.Context) ([]*employee.Department, error) {
	var rows []employeeDatamodel.Department
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, errors.NewInternalError("failed to list departments", err)
	}
	out := make([]*employee.Department, 0, len(rows))
	for i := range rows {
		out = append(out, employee.DepartmentFromDataModel(&rows[i]))
	}
	return out, nil
}

func (r *EmployeeRepository) CreateDepartment(ctx context.Context, d *employee.Department) error {
	row := employee.DepartmentToDataModel(d)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.NewInternalError("failed to create department", err)
	}
	d.ID = row.ID
	d.CreatedAt = row.CreatedAt
	d.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *EmployeeRepository) UpdateDepartmentRate(ctx context.Context, id int64, rate decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&employeeDatamodel.Department{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"hourly_rate": rate, "updated_at": time.Now()})
	if res.Error != nil {
		return errors.NewInternalError("failed to update department", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.DepartmentNotFound()
	}
	return nil
}
