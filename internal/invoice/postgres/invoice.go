package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	"github.com/frahmantamala/time2pay/internal/invoice"
)

const invoiceColumns = "c.id AS claim_id, e.name AS lecturer_name, e.email AS lecturer_email, " +
	"d.name AS department_name, d.hourly_rate, c.created_at AS claim_date, c.work_month, " +
	"c.hours_worked, c.total_amount, c.status, c.is_deleted, " +
	"(SELECT MIN(sd.id) FROM supporting_documents sd WHERE sd.claim_id = c.id) AS document_id"

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

type invoiceRow struct {
	ClaimID        int64           `gorm:"column:claim_id"`
	LecturerName   string          `gorm:"column:lecturer_name"`
	LecturerEmail  string          `gorm:"column:lecturer_email"`
	DepartmentName string          `gorm:"column:department_name"`
	HourlyRate     decimal.Decimal `gorm:"column:hourly_rate"`
	ClaimDate      time.Time       `gorm:"column:claim_date"`
	WorkMonth      string          `gorm:"column:work_month"`
	HoursWorked    decimal.Decimal `gorm:"column:hours_worked"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount"`
	Status         string          `gorm:"column:status"`
	IsDeleted      bool            `gorm:"column:is_deleted"`
	DocumentID     *int64          `gorm:"column:document_id"`
}

func (row invoiceRow) toInvoice() invoice.Invoice {
	status, err := claim.ParseStatus(row.Status)
	if err != nil {
		status = claim.Status(row.Status)
	}
	if row.IsDeleted {
		status = claim.StatusDeleted
	}
	return invoice.Invoice{
		ClaimID:        row.ClaimID,
		LecturerName:   row.LecturerName,
		LecturerEmail:  row.LecturerEmail,
		DepartmentName: row.DepartmentName,
		ClaimDate:      row.ClaimDate,
		WorkMonth:      row.WorkMonth,
		HoursWorked:    row.HoursWorked,
		HourlyRate:     row.HourlyRate,
		TotalAmount:    row.TotalAmount,
		Status:         status,
		IsDeleted:      row.IsDeleted,
		DocumentID:     row.DocumentID,
	}
}

func (r *InvoiceRepository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("claims c").
		Select(invoiceColumns).
		Joins("JOIN employees e ON e.id = c.employee_id").
		Joins("JOIN departments d ON d.id = e.department_id")
}

func (r *InvoiceRepository) GetInvoice(ctx context.Context, claimID int64) (*invoice.Invoice, error) {
	var row invoiceRow
	err := r.base(ctx).Where("c.id = ?", claimID).Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ClaimNotFound()
		}
		return nil, errors.NewInternalError("failed to load invoice", err)
	}
	inv := row.toInvoice()
	return &inv, nil
}

func (r *InvoiceRepository) ListInvoices(ctx context.Context, filter invoice.Filter) ([]invoice.Invoice, error) {
	query := r.base(ctx)

	if !filter.IncludeDeleted {
		query = query.Where("c.is_deleted = ? AND LOWER(c.status) <> LOWER(?)", false, string(claim.StatusDeleted))
	}
	if filter.DepartmentID > 0 {
		query = query.Where("e.department_id = ?", filter.DepartmentID)
	}
	if filter.Status != nil {
		query = query.Where("LOWER(c.status) = LOWER(?)", string(*filter.Status))
	}
	if filter.WorkMonth != "" {
		query = query.Where("c.work_month = ?", filter.WorkMonth)
	}
	if filter.LecturerName != "" {
		query = query.Where("LOWER(e.name) LIKE ?", "%"+strings.ToLower(filter.LecturerName)+"%")
	}

	var rows []invoiceRow
	if err := query.Order("c.created_at DESC, c.id DESC").Scan(&rows).Error; err != nil {
		return nil, errors.NewInternalError("failed to list invoices", err)
	}

	invoices := make([]invoice.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, row.toInvoice())
	}
	return invoices, nil
}
