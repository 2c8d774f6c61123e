package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeClaimSubmitted = "claim.submitted"
	EventTypeClaimVerified  = "claim.verified"
	EventTypeClaimRejected  = "claim.rejected"
	EventTypeClaimApproved  = "claim.approved"
)

// ClaimEventTypes lists every lifecycle event, in workflow order.
var ClaimEventTypes = []string{
	EventTypeClaimSubmitted,
	EventTypeClaimVerified,
	EventTypeClaimRejected,
	EventTypeClaimApproved,
}

// ClaimStatusChangedEvent is published after a lifecycle change commits.
type ClaimStatusChangedEvent struct {
	BaseEvent
	ClaimID     int64  `json:"claim_id"`
	OwnerID     int64  `json:"owner_id"`
	ActorID     int64  `json:"actor_id"`
	Status      string `json:"status"`
	WorkMonth   string `json:"work_month"`
	TotalAmount string `json:"total_amount"`
	Remarks     string `json:"remarks,omitempty"`
}

func NewClaimStatusChangedEvent(eventType string, claimID, ownerID, actorID int64, status, workMonth, totalAmount, remarks string) *ClaimStatusChangedEvent {
	return &ClaimStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"claim_id":     claimID,
				"owner_id":     ownerID,
				"actor_id":     actorID,
				"status":       status,
				"work_month":   workMonth,
				"total_amount": totalAmount,
				"remarks":      remarks,
			},
		},
		ClaimID:     claimID,
		OwnerID:     ownerID,
		ActorID:     actorID,
		Status:      status,
		WorkMonth:   workMonth,
		TotalAmount: totalAmount,
		Remarks:     remarks,
	}
}
