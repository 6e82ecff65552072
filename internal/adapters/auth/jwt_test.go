package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/roomcast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthenticateIssuedToken(t *testing.T) {
	a := NewAuthenticator(secret, "roomcast")
	token, err := a.Issue(domain.User{ID: "42", Username: "alice"}, time.Minute)
	require.NoError(t, err)

	u, err := a.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "42", Username: "alice"}, u)
}

func TestAuthenticateNumericAndSubjectIDs(t *testing.T) {
	a := NewAuthenticator(secret, "")
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))

	numeric := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"id": 7, "username": "bob", "exp": exp.Unix(),
	})
	u, err := a.Authenticate(numeric)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("7"), u.ID)

	subject := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": "carol-id", "username": "carol", "exp": exp.Unix(),
	})
	u, err = a.Authenticate(subject)
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "carol-id", Username: "carol"}, u)
}

func TestAuthenticateRejects(t *testing.T) {
	a := NewAuthenticator(secret, "roomcast")
	good := domain.User{ID: "1", Username: "alice"}

	_, err := a.Authenticate("")
	assert.ErrorIs(t, err, domain.ErrNoCredential)
	assert.ErrorIs(t, err, domain.ErrAuth)

	expired, err := a.Issue(good, -time.Minute)
	require.NoError(t, err)

	wrongKey, err := NewAuthenticator("other", "roomcast").Issue(good, time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := NewAuthenticator(secret, "someone-else").Issue(good, time.Minute)
	require.NoError(t, err)

	hs512 := sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{
		"id": "1", "username": "alice", "iss": "roomcast",
	})
	noName := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"id": "1", "iss": "roomcast",
	})

	for name, token := range map[string]string{
		"malformed":     "not.a.jwt",
		"expired":       expired,
		"bad signature": wrongKey,
		"wrong issuer":  wrongIssuer,
		"wrong alg":     hs512,
		"no username":   noName,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(token)
			assert.ErrorIs(t, err, domain.ErrInvalidCredential)
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := NewAuthenticator(secret, "")
	r := gin.New()
	r.GET("/x", Middleware(a), func(c *gin.Context) {
		u, ok := UserFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, u.Username)
	})
	token, err := a.Issue(domain.User{ID: "1", Username: "alice"}, time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		target string
		header string
		code   int
		body   string
	}{
		{"header", "/x", "Bearer " + token, http.StatusOK, "alice"},
		{"query", "/x?token=" + token, "", http.StatusOK, "alice"},
		{"missing", "/x", "", http.StatusUnauthorized, `{"error":"no credential"}`},
		{"invalid", "/x?token=garbage", "", http.StatusUnauthorized, `{"error":"invalid credential"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
		})
	}
}
