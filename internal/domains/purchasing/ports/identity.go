package ports

import (
	"context"
	"errors"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// ErrUnauthenticated is returned when no actor is bound to the request.
var ErrUnauthenticated = errors.New("no authenticated actor")

// Identity resolves the acting user for a request.
type Identity interface {
	CurrentActor(ctx context.Context) (domain.Actor, error)
}
