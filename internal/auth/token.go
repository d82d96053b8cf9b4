// Package auth issues and verifies bearer tokens, resolves the calling user
// from an Authorization header and decides whether a caller may mutate a
// resource.
//
// Tokens are HS256-signed JWTs carrying {user_id, iat, exp}. Nothing is kept
// server side; the signing secret is handed in once at construction.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 7 * 24 * time.Hour

// Verification failures. Both surface as 401 to clients but are kept apart
// for logs and metrics.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
	ErrNoSecret     = errors.New("signing secret is empty")
)

// Outcome labels for tokenVerifications.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeExpired = "expired"
)

var tokenVerifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_token_verifications_total",
		Help: "Bearer token verifications by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(tokenVerifications)
}

// Claims is the token payload.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticator signs and checks tokens with one symmetric secret.
// It is safe for concurrent use.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator returns an Authenticator for secret. A non-positive ttl
// falls back to DefaultTTL.
func NewAuthenticator(secret string, ttl time.Duration, opts ...Option) (*Authenticator, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	a := &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// TTL returns the configured token lifetime.
func (a *Authenticator) TTL() time.Duration { return a.ttl }

// Issue signs a token for userID and returns it with its expiry.
func (a *Authenticator) Issue(userID uint) (string, time.Time, error) {
	iat := a.now().UTC().Truncate(time.Second)
	exp := iat.Add(a.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Verify checks the signature first and the expiry second, so a token signed
// with another key is always ErrTokenInvalid even when it is also stale.
func (a *Authenticator) Verify(token string) (uint, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	switch {
	case err == nil && claims.UserID != 0:
		tokenVerifications.WithLabelValues(outcomeOK).Inc()
		return claims.UserID, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		tokenVerifications.WithLabelValues(outcomeExpired).Inc()
		log.Debug().Uint("user_id", claims.UserID).Msg("token expired")
		return 0, ErrTokenExpired
	default:
		tokenVerifications.WithLabelValues(outcomeInvalid).Inc()
		if err != nil {
			log.Debug().Str("reason", err.Error()).Msg("token rejected")
		}
		return 0, ErrTokenInvalid
	}
}
