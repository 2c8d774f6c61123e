package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	claimDatamodel "github.com/frahmantamala/time2pay/internal/core/datamodel/claim"
)

const claimColumns = "claims.id, claims.employee_id, claims.hours_worked, claims.work_month, claims.status, " +
	"claims.total_amount, claims.is_deleted, claims.created_at, claims.updated_at, " +
	"e.name AS employee_name, e.department_id AS department_id, d.name AS department_name"

// ClaimRepository implements claim.Repository using GORM
type ClaimRepository struct {
	db *gorm.DB
}

func NewClaimRepository(db *gorm.DB) claim.Repository {
	return &ClaimRepository{db: db}
}

type claimRow struct {
	claimDatamodel.Claim
	EmployeeName   string `gorm:"column:employee_name"`
	DepartmentID   int64  `gorm:"column:department_id"`
	DepartmentName string `gorm:"column:department_name"`
}

func (r claimRow) toClaim() *claim.Claim {
	c := claim.FromDataModel(&r.Claim)
	c.EmployeeName = r.EmployeeName
	c.DepartmentID = r.DepartmentID
	c.DepartmentName = r.DepartmentName
	return c
}

func (r *ClaimRepository) WithinTransaction(ctx context.Context, fn func(tx claim.Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ClaimRepository{db: tx})
	})
	return wrapError(err)
}

func (r *ClaimRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&claimDatamodel.Claim{}).
		Select(claimColumns).
		Joins("JOIN employees e ON e.id = claims.employee_id").
		Joins("JOIN departments d ON d.id = e.department_id")
}

func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	row := claim.ToDataModel(c)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.NewInternalError("failed to create claim", err)
	}
	c.ID = row.ID
	c.CreatedAt = row.CreatedAt
	c.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*claim.Claim, error) {
	var row claimRow
	err := r.joined(ctx).Where("claims.id = ?", id).Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ClaimNotFound()
		}
		return nil, errors.NewInternalError("failed to load claim", err)
	}
	return row.toClaim(), nil
}

// GetForUpdate locks the claim row until the surrounding transaction ends.
func (r *ClaimRepository) GetForUpdate(ctx context.Context, id int64) (*claim.Claim, error) {
	var row claimDatamodel.Claim
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ClaimNotFound()
		}
		return nil, errors.NewInternalError("failed to load claim", err)
	}
	return claim.FromDataModel(&row), nil
}

// UpdateStatus writes to only while the row is still in from. Stored casing
// may differ from the canonical status.
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id int64, from, to claim.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&claimDatamodel.Claim{}).
		Where("id = ? AND LOWER(status) = LOWER(?)", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, errors.NewInternalError("failed to update claim status", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ClaimRepository) UpdateDetails(ctx context.Context, c *claim.Claim, from claim.Status) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&claimDatamodel.Claim{}).
		Where("id = ? AND LOWER(status) = LOWER(?)", c.ID, string(from)).
		Updates(map[string]interface{}{
			"hours_worked": c.HoursWorked,
			"work_month":   c.WorkMonth,
			"total_amount": c.TotalAmount,
			"status":       string(c.Status),
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, errors.NewInternalError("failed to update claim", res.Error)
	}
	c.UpdatedAt = now
	return res.RowsAffected == 1, nil
}

func (r *ClaimRepository) SoftDelete(ctx context.Context, id int64, from claim.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&claimDatamodel.Claim{}).
		Where("id = ? AND LOWER(status) = LOWER(?)", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(claim.StatusDeleted),
			"is_deleted": true,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, errors.NewInternalError("failed to delete claim", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ClaimRepository) AddDocument(ctx context.Context, doc *claim.SupportingDocument) error {
	row := claim.DocumentToDataModel(doc)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.NewInternalError("failed to save supporting document", err)
	}
	doc.ID = row.ID
	doc.UploadedAt = row.UploadedAt
	return nil
}

// ReplaceDocuments removes every document row of the claim, inserts doc and
// returns the removed rows so their files can be deleted after commit.
func (r *ClaimRepository) ReplaceDocuments(ctx context.Context, claimID int64, doc *claim.SupportingDocument) ([]claim.SupportingDocument, error) {
	old, err := r.Documents(ctx, claimID)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Delete(&claimDatamodel.SupportingDocument{}).Error; err != nil {
		return nil, errors.NewInternalError("failed to remove supporting documents", err)
	}

	if err := r.AddDocument(ctx, doc); err != nil {
		return nil, err
	}
	return old, nil
}

func (r *ClaimRepository) Documents(ctx context.Context, claimID int64) ([]claim.SupportingDocument, error) {
	var rows []claimDatamodel.SupportingDocument
	err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("uploaded_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.NewInternalError("failed to load supporting documents", err)
	}

	docs := make([]claim.SupportingDocument, 0, len(rows))
	for i := range rows {
		docs = append(docs, claim.DocumentFromDataModel(&rows[i]))
	}
	return docs, nil
}

func (r *ClaimRepository) AppendVerification(ctx context.Context, claimID, actorID int64, status claim.Status, remarks *string) error {
	row := &claimDatamodel.Verification{
		ClaimID:    claimID,
		EmployeeID: actorID,
		Status:     string(status),
		Remarks:    remarks,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.NewInternalError("failed to record verification", err)
	}
	return nil
}

func (r *ClaimRepository) AppendApproval(ctx context.Context, claimID, actorID int64, status claim.Status, remarks *string) error {
	row := &claimDatamodel.Approval{
		ClaimID:    claimID,
		EmployeeID: actorID,
		Status:     string(status),
		Remarks:    remarks,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.NewInternalError("failed to record approval", err)
	}
	return nil
}

type auditRow struct {
	ClaimID    int64     `gorm:"column:claim_id"`
	EmployeeID int64     `gorm:"column:employee_id"`
	ActorName  string    `gorm:"column:actor_name"`
	Status     string    `gorm:"column:status"`
	Remarks    *string   `gorm:"column:remarks"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (r *ClaimRepository) History(ctx context.Context, claimID int64) ([]claim.AuditEntry, error) {
	var verifications, approvals []auditRow

	audit := func(table string, dest *[]auditRow) error {
		return r.db.WithContext(ctx).
			Table(table+" a").
			Select("a.claim_id, a.employee_id, e.name AS actor_name, a.status, a.remarks, a.created_at").
			Joins("LEFT JOIN employees e ON e.id = a.employee_id").
			Where("a.claim_id = ?", claimID).
			Order("a.created_at ASC, a.id ASC").
			Scan(dest).Error
	}

	if err := audit("verifications", &verifications); err != nil {
		return nil, errors.NewInternalError("failed to load verification history", err)
	}
	if err := audit("approvals", &approvals); err != nil {
		return nil, errors.NewInternalError("failed to load approval history", err)
	}

	entries := make([]claim.AuditEntry, 0, len(verifications)+len(approvals))
	for _, v := range verifications {
		entries = append(entries, v.toEntry(claim.AuditKindVerification))
	}
	for _, a := range approvals {
		entries = append(entries, a.toEntry(claim.AuditKindApproval))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (a auditRow) toEntry(kind string) claim.AuditEntry {
	status, err := claim.ParseStatus(a.Status)
	if err != nil {
		status = claim.Status(a.Status)
	}
	return claim.AuditEntry{
		Kind:      kind,
		ClaimID:   a.ClaimID,
		ActorID:   a.EmployeeID,
		ActorName: a.ActorName,
		Status:    status,
		Remarks:   a.Remarks,
		CreatedAt: a.CreatedAt,
	}
}

type profileRow struct {
	EmployeeID     int64           `gorm:"column:employee_id"`
	Name           string          `gorm:"column:name"`
	Email          string          `gorm:"column:email"`
	Role           string          `gorm:"column:role"`
	DepartmentID   int64           `gorm:"column:department_id"`
	DepartmentName string          `gorm:"column:department_name"`
	HourlyRate     decimal.Decimal `gorm:"column:hourly_rate"`
}

// EmployeeProfile reads the employee and their department's current rate.
func (r *ClaimRepository) EmployeeProfile(ctx context.Context, employeeID int64) (*claim.Profile, error) {
	var row profileRow
	err := r.db.WithContext(ctx).
		Table("employees e").
		Select("e.id AS employee_id, e.name, e.email, e.role, e.department_id, d.name AS department_name, d.hourly_rate").
		Joins("JOIN departments d ON d.id = e.department_id").
		Where("e.id = ?", employeeID).
		Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.EmployeeNotFound()
		}
		return nil, errors.NewInternalError("failed to load employee", err)
	}
	return &claim.Profile{
		EmployeeID:     row.EmployeeID,
		Name:           row.Name,
		Email:          row.Email,
		Role:           row.Role,
		DepartmentID:   row.DepartmentID,
		DepartmentName: row.DepartmentName,
		HourlyRate:     row.HourlyRate,
	}, nil
}

func (r *ClaimRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]*claim.Claim, error) {
	var rows []claimRow
	err := r.joined(ctx).
		Where("claims.employee_id = ? AND claims.is_deleted = ?", employeeID, false).
		Order("claims.created_at DESC, claims.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.NewInternalError("failed to list claims", err)
	}
	return toClaims(rows), nil
}

// ListByDepartment returns claims of the department's employees. Deleted
// claims are never listed.
func (r *ClaimRepository) ListByDepartment(ctx context.Context, filter claim.ListFilter) ([]*claim.Claim, error) {
	query := r.joined(ctx).
		Where("e.department_id = ? AND claims.is_deleted = ?", filter.DepartmentID, false)

	if filter.EmployeeID != 0 {
		query = query.Where("claims.employee_id = ?", filter.EmployeeID)
	}
	if filter.Status != nil {
		query = query.Where("LOWER(claims.status) = LOWER(?)", string(*filter.Status))
	}

	var rows []claimRow
	if err := query.Order("claims.created_at DESC, claims.id DESC").Scan(&rows).Error; err != nil {
		return nil, errors.NewInternalError("failed to list department claims", err)
	}
	return toClaims(rows), nil
}

func (r *ClaimRepository) CountByStatus(ctx context.Context, departmentID int64) (map[claim.Status]int64, error) {
	var rows []struct {
		Status string `gorm:"column:status"`
		Total  int64  `gorm:"column:total"`
	}
	err := r.db.WithContext(ctx).
		Model(&claimDatamodel.Claim{}).
		Select("claims.status AS status, COUNT(*) AS total").
		Joins("JOIN employees e ON e.id = claims.employee_id").
		Where("e.department_id = ? AND claims.is_deleted = ?", departmentID, false).
		Group("claims.status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.NewInternalError("failed to count claims", err)
	}

	counts := make(map[claim.Status]int64)
	for _, row := range rows {
		status, err := claim.ParseStatus(row.Status)
		if err != nil {
			continue
		}
		counts[status] += row.Total
	}
	return counts, nil
}

func toClaims(rows []claimRow) []*claim.Claim {
	claims := make([]*claim.Claim, 0, len(rows))
	for _, row := range rows {
		claims = append(claims, row.toClaim())
	}
	return claims
}

// wrapError keeps AppErrors returned from inside a transaction intact.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.IsAppError(err); ok {
		return err
	}
	return errors.NewInternalError("transaction failed", err)
}
