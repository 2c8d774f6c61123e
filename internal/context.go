package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/time2pay/internal/core/user"
)

type ctxKey string

const ContextActorKey ctxKey = "actor"

func ActorFromContext(ctx context.Context) (*user.Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	actor, ok := ctx.Value(ContextActorKey).(*user.Actor)
	return actor, ok && actor != nil
}

func ContextWithActor(ctx context.Context, actor *user.Actor) context.Context {
	return context.WithValue(ctx, ContextActorKey, actor)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}

// RequireRole returns AuthenticationRequired for a missing actor and
// RoleNotPermitted when the actor holds none of roles.
func RequireRole(actor *user.Actor, roles ...user.Role) error {
	if actor == nil {
		return AuthenticationRequired()
	}
	if !actor.Role.OneOf(roles...) {
		return RoleNotPermitted()
	}
	return nil
}
