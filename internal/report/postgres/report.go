package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/report"
)

const aggregateQuery = `
SELECT d.name AS department,
       e.name AS lecturer,
       c.work_month AS work_month,
       COUNT(*) AS claims,
       COALESCE(SUM(c.hours_worked), 0) AS total_hours,
       COALESCE(SUM(c.total_amount), 0) AS total_amount
FROM claims c
JOIN employees e ON e.id = c.employee_id
JOIN departments d ON d.id = e.department_id
WHERE c.is_deleted = ? AND LOWER(c.status) <> 'deleted'`

// likeEscaper makes a lecturer filter match literally inside LIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ReportRepository runs the aggregation through sqlx so the same SQL works on
// any driver once rebound.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Aggregate(ctx context.Context, filter report.Filter) ([]report.Row, error) {
	var (
		sb   strings.Builder
		args = []interface{}{false}
	)
	sb.WriteString(aggregateQuery)

	if filter.DepartmentID > 0 {
		sb.WriteString(" AND e.department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.Lecturer != "" {
		sb.WriteString(` AND LOWER(e.name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(filter.Lecturer))+"%")
	}
	if filter.MonthFrom != "" {
		sb.WriteString(" AND c.work_month >= ?")
		args = append(args, filter.MonthFrom)
	}
	if filter.MonthTo != "" {
		sb.WriteString(" AND c.work_month <= ?")
		args = append(args, filter.MonthTo)
	}
	sb.WriteString(" GROUP BY d.name, e.name, c.work_month ORDER BY d.name, e.name, c.work_month")

	var rows []report.Row
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(sb.String()), args...); err != nil {
		return nil, errors.NewInternalError("failed to aggregate claims", err)
	}
	return rows, nil
}
