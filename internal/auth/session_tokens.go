package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultSessionTokenTTL = 2 * time.Hour

var (
	// ErrMissingSigningSecret indicates the signing secret was not configured.
	ErrMissingSigningSecret = errors.New("auth: signing secret required")
	// ErrMissingCookieName indicates the session cookie name was not configured.
	ErrMissingCookieName = errors.New("auth: cookie name required")
	// ErrMissingSessionToken indicates no session cookie was presented.
	ErrMissingSessionToken = errors.New("auth: session token required")
	// ErrInvalidSessionToken indicates a malformed or tampered token.
	ErrInvalidSessionToken = errors.New("auth: invalid session token")
	// ErrExpiredSessionToken indicates a token past its expiry.
	ErrExpiredSessionToken = errors.New("auth: session token expired")
)

// SessionTokensConfig configures the quiz session cookie codec.
type SessionTokensConfig struct {
	SigningSecret []byte
	Issuer        string
	CookieName    string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// SessionTokens issues and validates the HS256 JWTs that carry a quiz
// session identifier in a cookie. The token only names the session; all
// game state lives server side.
type SessionTokens struct {
	signingSecret []byte
	issuer        string
	cookieName    string
	tokenTTL      time.Duration
	clock         func() time.Time
}

// NewSessionTokens constructs the codec with sane defaults.
func NewSessionTokens(cfg SessionTokensConfig) (*SessionTokens, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		return nil, ErrMissingCookieName
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "rosterquiz"
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultSessionTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionTokens{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		cookieName:    cookieName,
		tokenTTL:      ttl,
		clock:         clock,
	}, nil
}

// CookieName returns the configured session cookie name.
func (t *SessionTokens) CookieName() string {
	return t.cookieName
}

// TokenTTL returns the configured token lifetime.
func (t *SessionTokens) TokenTTL() time.Duration {
	return t.tokenTTL
}

// Issue signs a token whose subject is the session identifier.
func (t *SessionTokens) Issue(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrInvalidSessionToken
	}

	now := t.clock().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.signingSecret)
}

// Validate checks the token and returns the session identifier it names.
func (t *SessionTokens) Validate(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrMissingSessionToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidSessionToken, token.Method.Alg())
			}
			return t.signingSecret, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredSessionToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return "", ErrInvalidSessionToken
	}
	sessionID := strings.TrimSpace(claims.Subject)
	if sessionID == "" {
		return "", ErrInvalidSessionToken
	}
	return sessionID, nil
}

// SessionIDFromRequest extracts and validates the session cookie.
func (t *SessionTokens) SessionIDFromRequest(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrMissingSessionToken
	}
	cookie, err := r.Cookie(t.cookieName)
	if err != nil || cookie == nil {
		return "", ErrMissingSessionToken
	}
	return t.Validate(cookie.Value)
}
