package claim

import (
	"fmt"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionVerify  Action = "verify"
	ActionReject  Action = "reject"
	ActionApprove Action = "approve"
)

var pastTense = map[Action]string{
	ActionSubmit:  "submitted",
	ActionEdit:    "edited",
	ActionDelete:  "deleted",
	ActionVerify:  "verified",
	ActionReject:  "rejected",
	ActionApprove: "approved",
}

func (a Action) PastTense() string {
	if p, ok := pastTense[a]; ok {
		return p
	}
	return string(a)
}

// Rule is one row of the lifecycle table.
type Rule struct {
	Roles          []user.Role
	From           []Status
	To             Status
	OwnerOnly      bool
	SameDepartment bool
	Audit          string
}

var rules = map[Action]Rule{
	ActionSubmit: {
		Roles: []user.Role{user.RoleLecturer},
		To:    StatusPending,
	},
	ActionEdit: {
		Roles:     []user.Role{user.RoleLecturer},
		From:      []Status{StatusPending, StatusRejected},
		To:        StatusPending,
		OwnerOnly: true,
	},
	ActionDelete: {
		Roles:     []user.Role{user.RoleLecturer},
		From:      []Status{StatusPending, StatusVerified, StatusRejected},
		To:        StatusDeleted,
		OwnerOnly: true,
	},
	ActionVerify: {
		Roles:          []user.Role{user.RoleCoordinator, user.RoleManager},
		From:           []Status{StatusPending},
		To:             StatusVerified,
		SameDepartment: true,
		Audit:          AuditKindVerification,
	},
	ActionReject: {
		Roles:          []user.Role{user.RoleCoordinator, user.RoleManager},
		From:           []Status{StatusPending},
		To:             StatusRejected,
		SameDepartment: true,
		Audit:          AuditKindVerification,
	},
	// a manager may approve straight from Pending or overturn a rejection;
	// Approved is excluded so a claim is never approved twice
	ActionApprove: {
		Roles:          []user.Role{user.RoleManager},
		From:           []Status{StatusPending, StatusVerified, StatusRejected},
		To:             StatusApproved,
		SameDepartment: true,
		Audit:          AuditKindApproval,
	},
}

func RuleFor(action Action) (Rule, bool) {
	r, ok := rules[action]
	return r, ok
}

// Authorize checks the caller's role against the table. Department and
// ownership need the claim and are checked by the service.
func Authorize(actor *user.Actor, action Action) (Rule, error) {
	if actor == nil {
		return Rule{}, errors.AuthenticationRequired()
	}
	rule, ok := RuleFor(action)
	if !ok {
		return Rule{}, fmt.Errorf("unknown claim action %q", action)
	}
	if !actor.Role.OneOf(rule.Roles...) {
		return Rule{}, errors.RoleNotPermitted()
	}
	return rule, nil
}

// NextStatus returns the state action leads to from current, or a
// validation error naming the conflict.
func NextStatus(action Action, current Status) (Status, error) {
	rule, ok := RuleFor(action)
	if !ok {
		return "", fmt.Errorf("unknown claim action %q", action)
	}
	for _, from := range rule.From {
		if from == current {
			return rule.To, nil
		}
	}
	return "", InvalidTransition(current, action)
}

// CanPerform reports whether the table allows role to apply action to a
// claim in state current.
func CanPerform(role user.Role, action Action, current Status) bool {
	rule, ok := RuleFor(action)
	if !ok || !role.OneOf(rule.Roles...) {
		return false
	}
	_, err := NextStatus(action, current)
	return err == nil
}

// actionOrder is the order AllowedActions reports in.
var actionOrder = []Action{ActionEdit, ActionDelete, ActionVerify, ActionReject, ActionApprove}

// AllowedActions lists what actor could do to c right now, using the
// department and owner recorded on the claim. The service re-checks all of it
// against fresh rows when an action is submitted.
func AllowedActions(actor *user.Actor, c *Claim) []Action {
	if actor == nil || c == nil {
		return nil
	}
	out := []Action{}
	for _, action := range actionOrder {
		rule, _ := RuleFor(action)
		if rule.OwnerOnly && c.EmployeeID != actor.EmployeeID {
			continue
		}
		if rule.SameDepartment && c.DepartmentID != actor.DepartmentID {
			continue
		}
		if CanPerform(actor.Role, action, c.Status) {
			out = append(out, action)
		}
	}
	return out
}

func transitionMessage(current Status, action Action) string {
	return fmt.Sprintf("%s claims cannot be %s", current, action.PastTense())
}

func InvalidTransition(current Status, action Action) *errors.AppError {
	return errors.NewValidationError(transitionMessage(current, action), errors.ErrCodeInvalidTransition)
}

// TransitionConflict is returned when a concurrent request moved the claim
// between our read and our write.
func TransitionConflict(current Status, action Action) *errors.AppError {
	return errors.NewConflictError(transitionMessage(current, action), errors.ErrCodeTransitionConflict)
}
