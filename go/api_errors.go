package purchasingserver

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/http/mapper"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	apierrors "github.com/Apurer/backoffice-purchasing/internal/shared/errors"
)

var responder = apierrors.NewChainedResponder("", purchasingProblem, authProblem)

// respondBadRequest answers malformed bodies and query parameters.
func respondBadRequest(c *gin.Context, err error) {
	responder.Respond(c, apierrors.BadRequest(err))
}

// respondServiceError renders a purchasing service failure.
func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

// RespondAuthError is the failure hook for the bearer token middleware.
func RespondAuthError(c *gin.Context, err error) {
	responder.RespondError(c, err)
}

func purchasingProblem(err error) (apierrors.ProblemDetail, bool) {
	var typed *application.Error
	if !errors.As(err, &typed) {
		return apierrors.ProblemDetail{}, false
	}
	kind := application.KindName(err)
	problem := apierrors.ForKind(kind)
	if errors.Is(err, ports.ErrUnauthenticated) {
		problem = apierrors.ErrUnauthorized.WithExtension("kind", kind)
	}
	problem = problem.WithDetail(err.Error())
	problem = apierrors.WithList(problem, "errors", mapper.FromIssues(typed.Issues))
	if typed.Validation != nil {
		problem = apierrors.WithList(problem, "warnings", mapper.FromIssues(typed.Validation.Warnings))
	}
	return problem, true
}

// authProblem answers 401 for token failures and for requests with no resolvable actor.
func authProblem(err error) (apierrors.ProblemDetail, bool) {
	if errors.Is(err, identity.ErrMissingToken) || errors.Is(err, identity.ErrInvalidToken) || errors.Is(err, ports.ErrUnauthenticated) {
		return apierrors.ErrUnauthorized.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}
