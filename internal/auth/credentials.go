package auth

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
)

// Mode names the active authorization mode.
type Mode string

const (
	ModeNone       Mode = "none"
	ModePrivateKey Mode = "private_key"
	ModeJWT        Mode = "jwt"
)

// Credentials holds mode-appropriate authorization material. Exactly one
// mode is active at a time; switching modes discards the material of the
// previous one.
type Credentials struct {
	mode   Mode
	key    *ecdsa.PrivateKey
	tokens *TokenManager
}

// NewCredentials returns read-only credentials.
func NewCredentials() *Credentials {
	return &Credentials{mode: ModeNone}
}

// InitializeWithPrivateKey switches to local-signing mode. Any prior bearer
// token state is cleared without a network call.
func (c *Credentials) InitializeWithPrivateKey(hexKey string) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return xerrors.Wrap(xerrors.CodeConfiguration, err, "invalid signing key")
	}
	c.mode = ModePrivateKey
	c.key = key
	if c.tokens != nil {
		c.tokens.clear()
		c.tokens = nil
	}
	return nil
}

// InitializeWithJWT switches to delegated-bearer mode and performs the
// initial grant. It reports failure as false rather than an error so the
// caller can degrade to read-only behaviour.
func (c *Credentials) InitializeWithJWT(ctx context.Context, tokens *TokenManager) bool {
	if tokens == nil {
		return false
	}
	c.mode = ModeJWT
	c.key = nil
	c.tokens = tokens
	if !tokens.Authenticate(ctx) {
		c.mode = ModeNone
		c.tokens = nil
		return false
	}
	return true
}

// Mode returns the active authorization mode.
func (c *Credentials) Mode() Mode {
	if c == nil || c.mode == "" {
		return ModeNone
	}
	return c.mode
}

// SigningKey returns the local key, non-nil only in private-key mode.
func (c *Credentials) SigningKey() *ecdsa.PrivateKey {
	if c == nil || c.mode != ModePrivateKey {
		return nil
	}
	return c.key
}

// Tokens returns the bearer token manager, non-nil only in JWT mode.
func (c *Credentials) Tokens() *TokenManager {
	if c == nil || c.mode != ModeJWT {
		return nil
	}
	return c.tokens
}

// Logout tears the session down: a best-effort token revocation in JWT mode,
// then a return to read-only.
func (c *Credentials) Logout(ctx context.Context) {
	if c == nil {
		return
	}
	if c.mode == ModeJWT && c.tokens != nil {
		c.tokens.Logout(ctx)
	}
	c.mode = ModeNone
	c.key = nil
	c.tokens = nil
}
