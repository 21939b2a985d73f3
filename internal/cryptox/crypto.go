// Package cryptox hashes the single-use invitation tokens the backend hands
// out. Only the bcrypt hash is stored; the plain token travels once to the
// inviting client and once back from the invited one.
package cryptox

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// TokenBytes is the entropy of a generated invitation token.
const TokenBytes = 16

// NewToken returns a random hex token of TokenBytes bytes.
func NewToken() (string, error) {
	return common.MakeRandHexString(TokenBytes)
}

// TokenHasher hashes and checks invitation tokens with bcrypt.
type TokenHasher struct {
	cost int
}

// NewTokenHasher clamps cost below bcrypt.MinCost to bcrypt.DefaultCost.
func NewTokenHasher(cost int) *TokenHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &TokenHasher{cost: cost}
}

func (h *TokenHasher) Hash(token string) (string, error) {
	if token == "" {
		return "", common.NewValidationError("token", "empty token")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(token), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(b), nil
}

// Verify reports whether token matches hash. A mismatch is not an error.
func (h *TokenHasher) Verify(token, hash string) (bool, error) {
	if token == "" || hash == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("compare token: %w", err)
	}
	return true, nil
}
