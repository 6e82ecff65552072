package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/roomcast/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// userID accepts both numeric and string ids in the token payload.
type userID string

func (id *userID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = userID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = userID(n.String())
	return nil
}

// Claims is the token payload the coordinator understands.
type Claims struct {
	ID       userID `json:"id,omitempty"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and turns them into identities.
// No store lookup is made; the claims are the identity.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

func (a *Authenticator) Authenticate(token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrNoCredential
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		reason := "malformed"
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			reason = "expired"
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			reason = "bad signature"
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			reason = "wrong issuer"
		}
		log.Debug().Err(err).Str("module", "adapters.auth").Str("reason", reason).Msg("token rejected")
		return domain.User{}, domain.ErrInvalidCredential
	}

	id := domain.UserID(claims.ID)
	if id == "" {
		id = domain.UserID(claims.Subject)
	}
	u, err := domain.NewUser(id, claims.Username)
	if err != nil {
		log.Debug().Err(err).Str("module", "adapters.auth").Msg("token claims rejected")
		return domain.User{}, domain.ErrInvalidCredential
	}
	return *u, nil
}

// Issue mints a token for u valid for ttl.
func (a *Authenticator) Issue(u domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:       userID(u.ID),
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   string(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
