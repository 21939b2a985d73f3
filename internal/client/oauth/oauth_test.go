package oauth

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/auth"
	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// provider pretends to be the identity provider: it follows the login URL
// back to the loopback server with the given query.
func provider(t *testing.T, extra url.Values, overrideState string) Opener {
	return func(loginURL string) error {
		u, err := url.Parse(loginURL)
		require.NoError(t, err)
		q := u.Query()
		cb, err := url.Parse(q.Get("redirect_uri"))
		require.NoError(t, err)

		cq := url.Values{}
		cq.Set("state", q.Get("state"))
		if overrideState != "" {
			cq.Set("state", overrideState)
		}
		for k, v := range extra {
			cq[k] = v
		}
		cb.RawQuery = cq.Encode()

		go func() {
			resp, err := http.Get(cb.String())
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestFlow_LoginReturnsProfile(t *testing.T) {
	tok, err := auth.GenerateToken(auth.Identity{
		UserID: "u1", Name: "Ann", Email: "ann@example.com", Photo: "p.png", GoogleID: "g-1",
	}, []byte("secret"), time.Hour)
	require.NoError(t, err)

	f := NewFlow(Config{AuthURL: "http://idp.test/oauth/authorize", Timeout: 5 * time.Second},
		provider(t, url.Values{"jwt": {tok}}, ""), nil)

	p, err := f.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Profile{
		UserID: "u1", ExternalID: "g-1", Name: "Ann", Email: "ann@example.com", Photo: "p.png", Token: tok,
	}, p)
}

func TestFlow_BadTokenFails(t *testing.T) {
	f := NewFlow(Config{AuthURL: "http://idp.test/authorize", Timeout: 5 * time.Second},
		provider(t, url.Values{"jwt": {"not-a-jwt"}}, ""), nil)

	_, err := f.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestFlow_CancelEndpoint(t *testing.T) {
	open := func(loginURL string) error {
		u, _ := url.Parse(loginURL)
		cb, _ := url.Parse(u.Query().Get("redirect_uri"))
		cb.Path = "/cancel"
		cb.RawQuery = ""
		go func() {
			resp, err := http.Get(cb.String())
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}
	f := NewFlow(Config{AuthURL: "http://idp.test/authorize", Timeout: 5 * time.Second}, open, nil)

	_, err := f.Login(context.Background())
	assert.ErrorIs(t, err, common.ErrCancelled)
}

func TestFlow_ContextCancelAndStateMismatch(t *testing.T) {
	// A callback with the wrong state is ignored, so only the context ends it.
	f := NewFlow(Config{AuthURL: "http://idp.test/authorize"},
		provider(t, url.Values{"jwt": {"x"}}, "forged"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := f.Login(ctx)
	assert.ErrorIs(t, err, common.ErrCancelled)
}

func TestProfileFromToken_MissingUser(t *testing.T) {
	tok, err := auth.GenerateToken(auth.Identity{Email: "x@y.z"}, []byte("k"), time.Hour)
	require.NoError(t, err)
	_, err = ProfileFromToken(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
