package cryptox

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	raw, err := hex.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, TokenBytes)
	assert.NotEqual(t, a, b)
}

func TestTokenHasher_RoundTrip(t *testing.T) {
	h := NewTokenHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	ok, err := h.Verify("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenHasher_EmptyInputs(t *testing.T) {
	h := NewTokenHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.True(t, errors.Is(err, common.ErrValidation))

	ok, err := h.Verify("", "x")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenHasher_MalformedHashIsError(t *testing.T) {
	h := NewTokenHasher(bcrypt.MinCost)

	_, err := h.Verify("tok", "not-a-bcrypt-hash")
	assert.Error(t, err)
}

func TestNewTokenHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewTokenHasher(0).cost)
	assert.Equal(t, bcrypt.MinCost+1, NewTokenHasher(bcrypt.MinCost+1).cost)
}
