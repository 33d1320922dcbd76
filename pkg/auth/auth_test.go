package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/session"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := auth.GenerateToken(42, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
}

func TestExpiredTokenRejected(t *testing.T) {
	tok, err := auth.GenerateToken(42, -time.Minute)
	require.NoError(t, err)
	_, err = auth.ValidateToken(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestForeignAlgorithmRejected(t *testing.T) {
	claims := auth.Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "grocerylist",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ValidateToken(tok)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "s3cret"))
	assert.False(t, auth.CheckPassword(hash, "guess"))
}

func resolve(r *http.Request) (uint, bool) {
	var id uint
	var ok bool
	auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		id, ok = auth.UserID(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), r)
	return id, ok
}

func TestMiddlewareReadsBearer(t *testing.T) {
	tok, err := auth.GenerateToken(9, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	id, ok := resolve(req)
	assert.True(t, ok)
	assert.Equal(t, uint(9), id)
}

func TestMiddlewareReadsSession(t *testing.T) {
	sess := session.FromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	auth.Login(sess, 5)
	req := httptest.NewRequest(http.MethodGet, "/grocerylist", nil)
	req = req.WithContext(session.WithSession(req.Context(), sess))

	id, ok := resolve(req)
	assert.True(t, ok)
	assert.Equal(t, uint(5), id)
}

func TestMiddlewareAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/grocerylist", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	_, ok := resolve(req)
	assert.False(t, ok)
}
