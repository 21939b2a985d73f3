// Package auth issues and reads the identity tokens exchanged during login.
// The backend signs them with HS256; the desktop client only decodes the
// payload to learn who logged in and sends the raw token back as a bearer
// credential.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: standard claims plus the profile the client
// adopts on login.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Photo    string `json:"photo"`
	GoogleID string `json:"google_id"`
}

// Identity is the profile a token is issued for.
type Identity struct {
	UserID   string
	Name     string
	Email    string
	Photo    string
	GoogleID string
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:   id.UserID,
		Name:     id.Name,
		Email:    id.Email,
		Photo:    id.Photo,
		GoogleID: id.GoogleID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseToken verifies the signature and expiry. Expired tokens yield
// common.ErrTokenExpired, anything else invalid yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// ParseUnverified decodes the payload without checking the signature. The
// client uses it to read the profile out of a token it cannot verify.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", common.ErrInvalidToken)
	}
	return claims, nil
}
