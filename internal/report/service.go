package report

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

type Repository interface {
	Aggregate(ctx context.Context, filter Filter) ([]Row, error)
}

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Summary aggregates active claims. Deleted claims never count.
func (s *Service) Summary(ctx context.Context, actor *user.Actor, filter Filter) (*Report, error) {
	if err := errors.RequireRole(actor, user.RoleHRAdmin); err != nil {
		return nil, err
	}

	rows, err := s.repo.Aggregate(ctx, filter)
	if err != nil {
		s.logger.Error("failed to aggregate claims", "error", err)
		return nil, err
	}
	return newReport(rows), nil
}

func (s *Service) Export(ctx context.Context, actor *user.Actor, filter Filter) (*File, error) {
	report, err := s.Summary(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	body, err := WriteWorkbook(report)
	if err != nil {
		s.logger.Error("failed to write report workbook", "rows", len(report.Rows), "error", err)
		return nil, errors.NewInternalError("Failed to generate report.", err)
	}

	s.logger.Info("report exported", "rows", len(report.Rows), "actor_id", actor.EmployeeID)
	return &File{Name: ExportFileName, ContentType: ContentTypeXLSX, Body: body}, nil
}
