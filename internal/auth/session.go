// ABOUTME: Stateless session tokens signed with HS256
// ABOUTME: The token is the full session state; nothing is stored server-side

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/redvault/vault-gateway/internal/store"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// DefaultSessionTTL is the fixed validity window for issued sessions.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Session is the validated, fixed-shape session state carried by a token.
type Session struct {
	InvestigatorID string
	BadgeID        string
	Role           string
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

// sessionClaims is the JWT claim set for a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	BadgeID string `json:"badge_id"`
	Role    string `json:"role"`
}

// Issuer mints and validates session tokens using a process-wide secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates a session issuer. A non-positive ttl falls back to
// DefaultSessionTTL; the window is fixed for the life of the issuer.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Issuer{secret: secret, ttl: ttl}
}

// Issue creates a signed session token for the investigator.
func (i *Issuer) Issue(inv *store.Investigator) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   inv.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		BadgeID: inv.BadgeID,
		Role:    inv.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Validate verifies the token signature and expiry and returns the session.
// Tampered or malformed tokens fail with ErrInvalidToken; expired tokens
// fail with ErrExpiredToken. There is no refresh path.
func (i *Issuer) Validate(tokenString string) (*Session, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if claims.BadgeID == "" {
		return nil, fmt.Errorf("%w: badge_id", ErrMissingClaim)
	}

	role := claims.Role
	if role == "" {
		role = store.RoleInvestigator
	}

	return &Session{
		InvestigatorID: claims.Subject,
		BadgeID:        claims.BadgeID,
		Role:           role,
		IssuedAt:       claims.IssuedAt.Time,
		ExpiresAt:      claims.ExpiresAt.Time,
	}, nil
}
