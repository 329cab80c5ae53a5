package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

var manager = domain.Actor{ID: "u-mgr", DisplayName: "Max Manager", Role: domain.RoleManager}

func TestVerifier_IssueAndParse(t *testing.T) {
	v := NewVerifier("s3cret")
	token, err := v.Issue(manager, time.Hour)
	require.NoError(t, err)

	actor, err := v.Parse(token)

	require.NoError(t, err)
	assert.Equal(t, manager, actor)
}

func TestVerifier_RejectsForeignAndExpiredTokens(t *testing.T) {
	token, err := NewVerifier("other").Issue(manager, time.Hour)
	require.NoError(t, err)
	_, err = NewVerifier("s3cret").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewVerifier("s3cret").Issue(manager, -time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier("s3cret").Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewVerifier("s3cret").Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware_BindsActorForContextIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewVerifier("s3cret")
	router := gin.New()
	router.Use(v.Middleware(func(c *gin.Context, err error) {
		c.String(http.StatusUnauthorized, err.Error())
	}))
	router.GET("/whoami", func(c *gin.Context) {
		actor, err := Context{}.CurrentActor(c.Request.Context())
		require.NoError(t, err)
		c.String(http.StatusOK, actor.ID)
	})

	token, err := v.Issue(manager, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-mgr", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContextIdentity_Unauthenticated(t *testing.T) {
	_, err := Context{}.CurrentActor(context.Background())
	assert.ErrorIs(t, err, ports.ErrUnauthenticated)
}

func TestStatic_PrefersContextActor(t *testing.T) {
	static := Static{Actor: domain.SystemActor}

	actor, err := static.CurrentActor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SystemActor, actor)

	actor, err = static.CurrentActor(WithActor(context.Background(), manager))
	require.NoError(t, err)
	assert.Equal(t, manager, actor)

	_, err = Static{}.CurrentActor(context.Background())
	assert.ErrorIs(t, err, ports.ErrUnauthenticated)
}
