package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/frahmantamala/time2pay/internal/core/events"
	"github.com/frahmantamala/time2pay/internal/employee"
)

//go:embed templates/*.html
var templateFS embed.FS

var claimStatusTemplate = template.Must(template.ParseFS(templateFS, "templates/claim_status.html"))

type EmployeeLookup interface {
	GetEmployee(ctx context.Context, id int64) (*employee.Employee, error)
}

type Enqueuer interface {
	Enqueue(msg Message, reason string) error
}

type claimStatusView struct {
	Name        string
	Headline    string
	ClaimID     int64
	WorkMonth   string
	TotalAmount string
	Status      string
	Remarks     string
}

// EventHandler mails the claim owner whenever their claim changes state.
// Errors are logged by the bus and never reach the transition that raised them.
type EventHandler struct {
	employees EmployeeLookup
	queue     Enqueuer
	logger    *slog.Logger
}

func NewEventHandler(employees EmployeeLookup, queue Enqueuer, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		employees: employees,
		queue:     queue,
		logger:    logger,
	}
}

func (h *EventHandler) RegisterEventHandlers(bus *events.EventBus) {
	for _, eventType := range events.ClaimEventTypes {
		bus.Subscribe(eventType, h.HandleClaimStatusChanged)
	}
	h.logger.Info("claim notification handlers registered", "event_types", events.ClaimEventTypes)
}

func (h *EventHandler) HandleClaimStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ClaimStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	owner, err := h.employees.GetEmployee(ctx, e.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load claim owner %d: %w", e.OwnerID, err)
	}

	msg, err := buildClaimMessage(owner, e)
	if err != nil {
		return err
	}

	if err := h.queue.Enqueue(msg, e.EventType()); err != nil {
		return err
	}

	h.logger.Debug("claim notification queued",
		"event_id", e.EventID(),
		"claim_id", e.ClaimID,
		"to", owner.Email)
	return nil
}

func buildClaimMessage(owner *employee.Employee, e *events.ClaimStatusChangedEvent) (Message, error) {
	subject, headline := describe(e)

	var body bytes.Buffer
	err := claimStatusTemplate.Execute(&body, claimStatusView{
		Name:        owner.Name,
		Headline:    headline,
		ClaimID:     e.ClaimID,
		WorkMonth:   e.WorkMonth,
		TotalAmount: e.TotalAmount,
		Status:      e.Status,
		Remarks:     e.Remarks,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render claim notification: %w", err)
	}

	return Message{
		To:       owner.Email,
		ToName:   owner.Name,
		Subject:  subject,
		HTMLBody: body.String(),
	}, nil
}

func describe(e *events.ClaimStatusChangedEvent) (subject, headline string) {
	switch e.EventType() {
	case events.EventTypeClaimSubmitted:
		return fmt.Sprintf("Claim #%d submitted", e.ClaimID),
			"Your claim has been submitted and is waiting for verification."
	case events.EventTypeClaimVerified:
		return fmt.Sprintf("Claim #%d verified", e.ClaimID),
			"Your claim has been verified and is waiting for final approval."
	case events.EventTypeClaimRejected:
		return fmt.Sprintf("Claim #%d rejected", e.ClaimID),
			"Your claim has been rejected. You can edit it and submit it again."
	case events.EventTypeClaimApproved:
		return fmt.Sprintf("Claim #%d approved", e.ClaimID),
			"Your claim has been approved and will be processed for payment."
	default:
		return fmt.Sprintf("Claim #%d updated", e.ClaimID),
			"The status of your claim has changed."
	}
}
