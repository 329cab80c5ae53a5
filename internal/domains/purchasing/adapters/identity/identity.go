// Package identity resolves the acting user of a request, either from a verified bearer
// token placed on the context by Middleware or from a fixed actor.
package identity

import (
	"context"
	"strings"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

type actorKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the actor placed by WithActor.
func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	if !ok || strings.TrimSpace(actor.ID) == "" {
		return domain.Actor{}, false
	}
	return actor, true
}

// Context reads the actor from the request context.
type Context struct{}

var _ ports.Identity = Context{}

func (Context) CurrentActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFrom(ctx)
	if !ok {
		return domain.Actor{}, ports.ErrUnauthenticated
	}
	return actor, nil
}

// Static always answers with the same actor. Used by workers and local development.
type Static struct {
	Actor domain.Actor
}

var _ ports.Identity = Static{}

func (s Static) CurrentActor(ctx context.Context) (domain.Actor, error) {
	if actor, ok := ActorFrom(ctx); ok {
		return actor, nil
	}
	if strings.TrimSpace(s.Actor.ID) == "" {
		return domain.Actor{}, ports.ErrUnauthenticated
	}
	return s.Actor, nil
}
