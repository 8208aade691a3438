package ports

import (
	"context"

	"github.com/acmebet/gatekeeper/core"
)

// PasswordHasher hashes and compares passwords at a fixed work factor.
// Both operations are CPU-bound and run through the implementation's own
// execution gate, so callers must pass a context.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, password, hash string) (bool, error)
}

// SignatureVerifier checks that a wallet signature was produced over the
// challenge message by the key controlling the challenge address. An empty
// or malformed signature is a verification failure, never a panic.
type SignatureVerifier interface {
	Verify(challenge core.Challenge, signature string) error
}

// ChallengeBuilder constructs the deterministic sign-in challenge for a
// wallet address. Pure function of (configured domain, address, clock).
type ChallengeBuilder interface {
	Build(address string) core.Challenge
	Domain() string
}
