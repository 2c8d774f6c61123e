package invoice

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

type Repository interface {
	GetInvoice(ctx context.Context, claimID int64) (*Invoice, error)
	ListInvoices(ctx context.Context, filter Filter) ([]Invoice, error)
}

type PDFGenerator interface {
	Generate(inv Invoice) ([]byte, error)
}

type Service struct {
	repo      Repository
	generator PDFGenerator
	logger    *slog.Logger
}

func NewService(repo Repository, generator PDFGenerator, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		generator: generator,
		logger:    logger,
	}
}

// ListClaims is the HR claim overview. Deleted claims are included so HR can
// audit them.
func (s *Service) ListClaims(ctx context.Context, actor *user.Actor, filter Filter) ([]Invoice, error) {
	if err := errors.RequireRole(actor, user.RoleHRAdmin); err != nil {
		return nil, err
	}
	filter.IncludeDeleted = true
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) Get(ctx context.Context, actor *user.Actor, claimID int64) (*Invoice, error) {
	if err := errors.RequireRole(actor, user.RoleHRAdmin); err != nil {
		return nil, err
	}
	inv, err := s.repo.GetInvoice(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if inv.IsDeleted || inv.Status == claim.StatusDeleted {
		return nil, deletedClaim()
	}
	return inv, nil
}

func (s *Service) Download(ctx context.Context, actor *user.Actor, claimID int64) (*File, error) {
	inv, err := s.Get(ctx, actor, claimID)
	if err != nil {
		return nil, err
	}

	body, err := s.generator.Generate(*inv)
	if err != nil {
		s.logger.Error("failed to render invoice", "claim_id", claimID, "error", err)
		return nil, errors.NewInternalError("Failed to generate invoice.", err)
	}

	s.logger.Info("invoice generated", "claim_id", claimID, "actor_id", actor.EmployeeID, "bytes", len(body))
	return &File{Name: FileName(claimID), ContentType: ContentTypePDF, Body: body}, nil
}

// Export bundles the invoices of every non-deleted claim matching filter.
func (s *Service) Export(ctx context.Context, actor *user.Actor, filter Filter) (*File, error) {
	if err := errors.RequireRole(actor, user.RoleHRAdmin); err != nil {
		return nil, err
	}
	if filter.Status != nil && *filter.Status == claim.StatusDeleted {
		return nil, deletedClaim()
	}

	filter.IncludeDeleted = false
	invoices, err := s.repo.ListInvoices(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, errors.NewValidationError("No invoices found for selected filters.", errors.ErrCodeNoInvoices)
	}

	body, err := ExportZip(s.generator, invoices)
	if err != nil {
		s.logger.Error("failed to export invoices", "count", len(invoices), "error", err)
		return nil, errors.NewInternalError("Failed to generate invoices.", err)
	}

	s.logger.Info("invoices exported", "count", len(invoices), "actor_id", actor.EmployeeID)
	return &File{Name: ExportFileName, ContentType: ContentTypeZip, Body: body}, nil
}

func deletedClaim() error {
	return errors.NewValidationError(fmt.Sprintf("%s claims cannot be invoiced", claim.StatusDeleted), errors.ErrCodeInvalidTransition)
}
