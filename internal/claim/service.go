package claim

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/events"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/document"
)

// Repository is the persistence the lifecycle manager needs. Methods called
// on the value passed to WithinTransaction run inside that transaction.
type Repository interface {
	WithinTransaction(ctx context.Context, fn func(tx Repository) error) error

	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id int64) (*Claim, error)
	GetForUpdate(ctx context.Context, id int64) (*Claim, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) (bool, error)
	UpdateDetails(ctx context.Context, c *Claim, from Status) (bool, error)
	SoftDelete(ctx context.Context, id int64, from Status) (bool, error)

	AddDocument(ctx context.Context, doc *SupportingDocument) error
	ReplaceDocuments(ctx context.Context, claimID int64, doc *SupportingDocument) ([]SupportingDocument, error)
	Documents(ctx context.Context, claimID int64) ([]SupportingDocument, error)

	AppendVerification(ctx context.Context, claimID, actorID int64, status Status, remarks *string) error
	AppendApproval(ctx context.Context, claimID, actorID int64, status Status, remarks *string) error
	History(ctx context.Context, claimID int64) ([]AuditEntry, error)

	EmployeeProfile(ctx context.Context, employeeID int64) (*Profile, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]*Claim, error)
	ListByDepartment(ctx context.Context, filter ListFilter) ([]*Claim, error)
	CountByStatus(ctx context.Context, departmentID int64) (map[Status]int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      Repository
	store     document.Store
	publisher EventPublisher
	maxUpload int64
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, store document.Store, publisher EventPublisher, maxUpload int64, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		publisher: publisher,
		maxUpload: maxUpload,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit creates a Pending claim with its supporting document.
func (s *Service) Submit(ctx context.Context, actor *user.Actor, dto ClaimInputDTO, upload *document.Upload) (*Claim, error) {
	if _, err := Authorize(actor, ActionSubmit); err != nil {
		return nil, err
	}

	hours, err := dto.Validate(s.now())
	if err != nil {
		s.logger.Warn("claim submission rejected", "actor_id", actor.EmployeeID, "error", err)
		return nil, err
	}
	if err := document.ValidateUpload(upload, s.maxUpload); err != nil {
		s.logger.Warn("claim document rejected", "actor_id", actor.EmployeeID, "error", err)
		return nil, err
	}

	owner, err := s.repo.EmployeeProfile(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}

	key, err := s.saveDocument(ctx, upload)
	if err != nil {
		return nil, err
	}

	c := &Claim{
		EmployeeID:     owner.EmployeeID,
		EmployeeName:   owner.Name,
		DepartmentID:   owner.DepartmentID,
		DepartmentName: owner.DepartmentName,
		HoursWorked:    hours,
		WorkMonth:      dto.Month(),
		Status:         StatusPending,
		TotalAmount:    ComputeTotal(hours, owner.HourlyRate),
	}

	err = s.repo.WithinTransaction(ctx, func(tx Repository) error {
		if err := tx.Create(ctx, c); err != nil {
			return err
		}
		doc := &SupportingDocument{
			ClaimID:      c.ID,
			FilePath:     key,
			OriginalName: upload.Name,
			SizeBytes:    upload.Size,
		}
		if err := tx.AddDocument(ctx, doc); err != nil {
			return err
		}
		c.Documents = []SupportingDocument{*doc}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to persist claim", "actor_id", actor.EmployeeID, "error", err)
		s.discardDocument(ctx, key)
		return nil, err
	}

	s.logger.Info("claim submitted",
		"claim_id", c.ID,
		"actor_id", actor.EmployeeID,
		"hours_worked", c.HoursWorked.String(),
		"total_amount", c.TotalAmount.StringFixed(2))

	s.publish(ctx, events.EventTypeClaimSubmitted, c, actor, "")
	return c, nil
}

// Edit resets the claim to Pending with recomputed amount. A nil upload keeps
// the current document.
func (s *Service) Edit(ctx context.Context, actor *user.Actor, id int64, dto ClaimInputDTO, upload *document.Upload) (*Claim, error) {
	if _, err := Authorize(actor, ActionEdit); err != nil {
		return nil, err
	}

	hours, err := dto.Validate(s.now())
	if err != nil {
		return nil, err
	}
	if upload != nil {
		if err := document.ValidateUpload(upload, s.maxUpload); err != nil {
			return nil, err
		}
	}

	var newKey string
	if upload != nil {
		if newKey, err = s.saveDocument(ctx, upload); err != nil {
			return nil, err
		}
	}

	var replaced []SupportingDocument
	c, err := s.transition(ctx, actor, id, ActionEdit, "", func(tx Repository, c *Claim, owner *Profile, next Status) error {
		from := c.Status
		c.HoursWorked = hours
		c.WorkMonth = dto.Month()
		c.TotalAmount = ComputeTotal(hours, owner.HourlyRate)
		c.Status = next

		ok, err := tx.UpdateDetails(ctx, c, from)
		if err != nil {
			return err
		}
		if !ok {
			return s.conflict(ctx, tx, id, ActionEdit)
		}

		if newKey != "" {
			doc := &SupportingDocument{
				ClaimID:      c.ID,
				FilePath:     newKey,
				OriginalName: upload.Name,
				SizeBytes:    upload.Size,
			}
			if replaced, err = tx.ReplaceDocuments(ctx, c.ID, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if newKey != "" {
			s.discardDocument(ctx, newKey)
		}
		return nil, err
	}

	// old files go only after the new rows are committed
	for _, old := range replaced {
		s.discardDocument(ctx, old.FilePath)
	}

	if docs, err := s.repo.Documents(ctx, c.ID); err == nil {
		c.Documents = docs
	}
	return c, nil
}

// Delete soft deletes the actor's own claim.
func (s *Service) Delete(ctx context.Context, actor *user.Actor, id int64) error {
	_, err := s.transition(ctx, actor, id, ActionDelete, "", func(tx Repository, c *Claim, _ *Profile, next Status) error {
		ok, err := tx.SoftDelete(ctx, c.ID, c.Status)
		if err != nil {
			return err
		}
		if !ok {
			return s.conflict(ctx, tx, id, ActionDelete)
		}
		c.Status = next
		c.IsDeleted = true
		return nil
	})
	return err
}

func (s *Service) Verify(ctx context.Context, actor *user.Actor, id int64, remarks string) (*Claim, error) {
	return s.transition(ctx, actor, id, ActionVerify, remarks, nil)
}

func (s *Service) Reject(ctx context.Context, actor *user.Actor, id int64, remarks string) (*Claim, error) {
	return s.transition(ctx, actor, id, ActionReject, remarks, nil)
}

func (s *Service) Approve(ctx context.Context, actor *user.Actor, id int64, remarks string) (*Claim, error) {
	return s.transition(ctx, actor, id, ActionApprove, remarks, nil)
}

type applyFunc func(tx Repository, c *Claim, owner *Profile, next Status) error

// transition runs every lifecycle change after Submit. The row is locked, the
// department of both actor and owner is read inside the transaction, and the
// status write is conditional on the state that was checked. apply replaces
// the plain status update when the action changes more than the status.
func (s *Service) transition(ctx context.Context, actor *user.Actor, id int64, action Action, remarks string, apply applyFunc) (*Claim, error) {
	rule, err := Authorize(actor, action)
	if err != nil {
		if actor != nil {
			s.logger.Warn("claim transition denied", "action", action, "claim_id", id, "actor_id", actor.EmployeeID, "role", actor.Role)
		}
		return nil, err
	}

	var result *Claim
	err = s.repo.WithinTransaction(ctx, func(tx Repository) error {
		c, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		owner, err := s.checkScope(ctx, tx, actor, c, rule)
		if err != nil {
			return err
		}

		next, err := NextStatus(action, c.Status)
		if err != nil {
			return err
		}

		if apply != nil {
			if err := apply(tx, c, owner, next); err != nil {
				return err
			}
		} else {
			ok, err := tx.UpdateStatus(ctx, c.ID, c.Status, next)
			if err != nil {
				return err
			}
			if !ok {
				return s.conflict(ctx, tx, id, action)
			}
			c.Status = next
		}

		var note *string
		if trimmed := strings.TrimSpace(remarks); trimmed != "" {
			note = &trimmed
		}

		switch rule.Audit {
		case AuditKindVerification:
			err = tx.AppendVerification(ctx, c.ID, actor.EmployeeID, next, note)
		case AuditKindApproval:
			err = tx.AppendApproval(ctx, c.ID, actor.EmployeeID, next, note)
		}
		if err != nil {
			return err
		}

		c.EmployeeName = owner.Name
		c.DepartmentID = owner.DepartmentID
		c.DepartmentName = owner.DepartmentName
		result = c
		return nil
	})
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.StatusCode < 500 {
			s.logger.Warn("claim transition refused",
				"action", action, "claim_id", id, "actor_id", actor.EmployeeID, "reason", appErr.Message)
		} else {
			s.logger.Error("claim transition failed",
				"action", action, "claim_id", id, "actor_id", actor.EmployeeID, "error", err)
		}
		return nil, err
	}

	s.logger.Info("claim transitioned",
		"action", action, "claim_id", id, "actor_id", actor.EmployeeID, "status", result.Status)

	switch action {
	case ActionVerify:
		s.publish(ctx, events.EventTypeClaimVerified, result, actor, remarks)
	case ActionReject:
		s.publish(ctx, events.EventTypeClaimRejected, result, actor, remarks)
	case ActionApprove:
		s.publish(ctx, events.EventTypeClaimApproved, result, actor, remarks)
	}

	return result, nil
}

// checkScope enforces ownership or department scope and returns the owner's
// current profile.
func (s *Service) checkScope(ctx context.Context, tx Repository, actor *user.Actor, c *Claim, rule Rule) (*Profile, error) {
	if rule.OwnerOnly && c.EmployeeID != actor.EmployeeID {
		return nil, errors.NotClaimOwner()
	}

	owner, err := tx.EmployeeProfile(ctx, c.EmployeeID)
	if err != nil {
		return nil, err
	}

	if rule.SameDepartment {
		self, err := tx.EmployeeProfile(ctx, actor.EmployeeID)
		if err != nil {
			return nil, err
		}
		if self.DepartmentID != owner.DepartmentID {
			return nil, errors.OutsideDepartment()
		}
	}

	return owner, nil
}

// conflict re-reads the claim so the message names the state that won.
func (s *Service) conflict(ctx context.Context, tx Repository, id int64, action Action) error {
	current, err := tx.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return TransitionConflict(current.Status, action)
}

// Get returns a claim the actor may see: their own, one from their department
// for coordinators and managers, or any for HR.
func (s *Service) Get(ctx context.Context, actor *user.Actor, id int64) (*Claim, error) {
	c, err := s.visibleClaim(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	docs, err := s.repo.Documents(ctx, c.ID)
	if err != nil {
		s.logger.Error("failed to load claim documents", "claim_id", id, "error", err)
		return nil, err
	}
	c.Documents = docs
	c.Actions = AllowedActions(actor, c)
	return c, nil
}

func withActions(actor *user.Actor, claims []*Claim) []*Claim {
	for _, c := range claims {
		c.Actions = AllowedActions(actor, c)
	}
	return claims
}

func (s *Service) visibleClaim(ctx context.Context, actor *user.Actor, id int64) (*Claim, error) {
	if actor == nil {
		return nil, errors.AuthenticationRequired()
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role == user.RoleHRAdmin:
		return c, nil
	case c.IsDeleted || c.Status == StatusDeleted:
		return nil, errors.ClaimNotFound()
	case c.EmployeeID == actor.EmployeeID:
		return c, nil
	case actor.Role.OneOf(user.RoleCoordinator, user.RoleManager):
		if c.DepartmentID != actor.DepartmentID {
			return nil, errors.OutsideDepartment()
		}
		return c, nil
	default:
		return nil, errors.NotClaimOwner()
	}
}

func (s *Service) ListOwn(ctx context.Context, actor *user.Actor) ([]*Claim, error) {
	if actor == nil {
		return nil, errors.AuthenticationRequired()
	}
	claims, err := s.repo.ListByEmployee(ctx, actor.EmployeeID)
	if err != nil {
		s.logger.Error("failed to list own claims", "actor_id", actor.EmployeeID, "error", err)
		return nil, err
	}
	return withActions(actor, claims), nil
}

func (s *Service) ListForVerification(ctx context.Context, actor *user.Actor, status *Status) ([]*Claim, error) {
	return s.listDepartment(ctx, actor, status, user.RoleCoordinator, user.RoleManager)
}

func (s *Service) ListForApproval(ctx context.Context, actor *user.Actor, status *Status) ([]*Claim, error) {
	return s.listDepartment(ctx, actor, status, user.RoleManager)
}

func (s *Service) listDepartment(ctx context.Context, actor *user.Actor, status *Status, roles ...user.Role) ([]*Claim, error) {
	if actor == nil {
		return nil, errors.AuthenticationRequired()
	}
	if !actor.Role.OneOf(roles...) {
		return nil, errors.RoleNotPermitted()
	}
	if status != nil && *status == StatusDeleted {
		return []*Claim{}, nil
	}

	claims, err := s.repo.ListByDepartment(ctx, ListFilter{DepartmentID: actor.DepartmentID, Status: status})
	if err != nil {
		s.logger.Error("failed to list department claims", "department_id", actor.DepartmentID, "error", err)
		return nil, err
	}
	return withActions(actor, claims), nil
}

// DepartmentSummary counts active claims per state in the actor's department.
func (s *Service) DepartmentSummary(ctx context.Context, actor *user.Actor) (*Summary, error) {
	if actor == nil {
		return nil, errors.AuthenticationRequired()
	}
	if !actor.Role.OneOf(user.RoleCoordinator, user.RoleManager) {
		return nil, errors.RoleNotPermitted()
	}

	counts, err := s.repo.CountByStatus(ctx, actor.DepartmentID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{DepartmentID: actor.DepartmentID}
	for _, st := range Statuses() {
		if st == StatusDeleted {
			continue
		}
		summary.Counts = append(summary.Counts, StatusCount{Status: st, Total: counts[st]})
		summary.Total += counts[st]
	}
	return summary, nil
}

// History lists the audit trail of a claim, oldest first.
func (s *Service) History(ctx context.Context, actor *user.Actor, id int64) ([]AuditEntry, error) {
	if _, err := s.visibleClaim(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

// OpenDocument streams the first supporting document of a claim. The caller
// closes the reader.
func (s *Service) OpenDocument(ctx context.Context, actor *user.Actor, id int64) (io.ReadCloser, *SupportingDocument, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}

	doc, ok := c.FirstDocument()
	if !ok {
		return nil, nil, errors.DocumentNotFound()
	}

	rc, err := s.store.Open(ctx, doc.FilePath)
	if err != nil {
		s.logger.Error("failed to open claim document", "claim_id", id, "key", doc.FilePath, "error", err)
		return nil, nil, err
	}
	return rc, doc, nil
}

func (s *Service) saveDocument(ctx context.Context, upload *document.Upload) (string, error) {
	key := document.NewKey()
	if err := s.store.Save(ctx, key, upload.Body, upload.Size, document.PDFContentType); err != nil {
		s.logger.Error("failed to store claim document", "key", key, "error", err)
		return "", err
	}
	return key, nil
}

func (s *Service) discardDocument(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error("failed to remove claim document", "key", key, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, c *Claim, actor *user.Actor, remarks string) {
	if s.publisher == nil {
		return
	}
	event := events.NewClaimStatusChangedEvent(eventType, c.ID, c.EmployeeID, actor.EmployeeID,
		string(c.Status), c.WorkMonth, c.TotalAmount.StringFixed(2), strings.TrimSpace(remarks))
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish claim event", "event_type", eventType, "claim_id", c.ID, "error", err)
	}
}
