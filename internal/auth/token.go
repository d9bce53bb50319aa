package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	userIdClaim = "userId"
	emailClaim  = "email"
	expClaim    = "exp"

	// DefaultTokenExpiration is how long an issued session token stays valid.
	DefaultTokenExpiration = time.Hour * 24
)

// Failure reasons for token verification.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
	ReasonExpired = "expired"
)

// Error is returned by Verify when a credential is rejected. Reason is
// one of ReasonMissing, ReasonInvalid or ReasonExpired.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("authentication failed: %s token", e.Reason)
}

// Identity is the set of claims carried by a valid session token.
type Identity struct {
	UserId int
	Email  string
}

// TokenVerifier issues and verifies HS256 session tokens.
type TokenVerifier struct {
	signingKey []byte
}

func NewTokenVerifier(signingKey []byte) *TokenVerifier {
	return &TokenVerifier{signingKey: signingKey}
}

// IssueToken creates a signed session token for the given user.
func (v *TokenVerifier) IssueToken(userId int, email string, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: userId,
		emailClaim:  email,
		expClaim:    time.Now().Add(exp).Unix(),
	})

	return token.SignedString(v.signingKey)
}

// Verify validates a raw bearer token and extracts the identity claims.
// It has no side effects and must run before any per-connection state
// is created.
func (v *TokenVerifier) Verify(rawToken string) (Identity, error) {
	if rawToken == "" {
		return Identity{}, &Error{Reason: ReasonMissing}
	}

	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, &Error{Reason: ReasonExpired}
		}
		return Identity{}, &Error{Reason: ReasonInvalid}
	}

	if !token.Valid {
		return Identity{}, &Error{Reason: ReasonInvalid}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, &Error{Reason: ReasonInvalid}
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return Identity{}, &Error{Reason: ReasonInvalid}
	}

	email, _ := claims[emailClaim].(string)

	return Identity{
		UserId: int(userId),
		Email:  email,
	}, nil
}
