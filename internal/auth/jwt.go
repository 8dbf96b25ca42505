// Package auth issues and validates the HS256 tokens handed out by the demo login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SigNoz/pcparts-store/internal/models"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks
var ErrInvalidToken = errors.New("invalid token")

// UserClaims carries the user identity; the subject is the user id
type UserClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// User returns the user encoded in the claims
func (c *UserClaims) User() models.User {
	return models.User{ID: c.Subject, Email: c.Email, Name: c.Name}
}

// Issuer signs and validates tokens with a shared key
type Issuer struct {
	signingKey []byte
	expiration time.Duration
	now        func() time.Time
}

// NewIssuer returns an issuer whose tokens expire after expiration
func NewIssuer(signingKey string, expiration time.Duration) *Issuer {
	return &Issuer{
		signingKey: []byte(signingKey),
		expiration: expiration,
		now:        time.Now,
	}
}

// GenerateToken creates a new JWT token for a user
func (i *Issuer) GenerateToken(u models.User) (string, error) {
	if len(i.signingKey) == 0 {
		return "", errors.New("JWT signing key not configured")
	}

	now := i.now()
	claims := &UserClaims{
		Email: u.Email,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.signingKey)
}

// ValidateToken validates the token and returns the claims
func (i *Issuer) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return i.signingKey, nil
		},
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
