package token

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Source supplies short-lived bearer tokens for outbound requests. Token
// returns the current credential, minting one if none is held. Refresh
// discards any held credential and mints a fresh one; the API client calls
// it after a 401 before its single replay.
type Source interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Static is a Source that always returns the same token. Useful for tests
// and for service-to-service credentials that never rotate.
type Static string

func (s Static) Token(ctx context.Context) (string, error)   { return string(s), nil }
func (s Static) Refresh(ctx context.Context) (string, error) { return string(s), nil }

// MintFunc obtains a brand-new token from the identity provider.
type MintFunc func(ctx context.Context) (string, error)

// refreshSkew is how long before the exp claim a held token is already
// considered stale. It absorbs clock drift between us and the backend.
const refreshSkew = 30 * time.Second

// Caching wraps a MintFunc and holds the minted token until it nears its
// exp claim. The claim is read without signature verification: this process
// only decides when to re-mint, it never trusts the token's contents — the
// backend verifies the signature on every request.
type Caching struct {
	mint MintFunc

	mu      sync.Mutex
	current string
	expiry  time.Time

	// now is overridable for tests
	now func() time.Time
}

// NewCaching creates a caching token source backed by the given mint function.
func NewCaching(mint MintFunc) *Caching {
	return &Caching{mint: mint, now: time.Now}
}

// Token returns the held token, minting a new one if none is held or the
// held one is about to expire.
func (c *Caching) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != "" && (c.expiry.IsZero() || c.now().Add(refreshSkew).Before(c.expiry)) {
		return c.current, nil
	}
	return c.mintLocked(ctx)
}

// Refresh discards the held token and mints a new one unconditionally.
func (c *Caching) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = ""
	c.expiry = time.Time{}
	return c.mintLocked(ctx)
}

func (c *Caching) mintLocked(ctx context.Context) (string, error) {
	tok, err := c.mint(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to mint token: %w", err)
	}

	c.current = tok
	c.expiry = expiryOf(tok)
	return tok, nil
}

// expiryOf extracts the exp claim from a JWT without verifying it. Tokens
// that are not JWTs or carry no exp claim get a zero expiry, meaning they
// are reused until a 401 forces a refresh.
func expiryOf(tok string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		log.Printf("Token carries no usable exp claim, relying on 401-driven refresh")
		return time.Time{}
	}
	return exp.Time
}
