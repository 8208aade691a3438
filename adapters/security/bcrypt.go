// Package security implements the credential verifier. bcrypt runs at a
// fixed cost so callers cannot trade verification strength for speed, and
// every hash or compare passes through a bounded gate so a burst of sign-ins
// cannot monopolize the scheduler with CPU-bound hashing.
package security

import (
	"context"
	"errors"
	"runtime"

	"github.com/acmebet/gatekeeper/ports"
	"golang.org/x/crypto/bcrypt"
)

// Cost is the fixed bcrypt work factor. Not configurable per call.
const Cost = 10

// BcryptHasher hashes and compares passwords behind a concurrency gate.
type BcryptHasher struct {
	gate chan struct{}
}

// NewBcryptHasher creates a hasher allowing at most width concurrent bcrypt
// operations. A non-positive width defaults to GOMAXPROCS.
func NewBcryptHasher(width int) *BcryptHasher {
	if width <= 0 {
		width = runtime.GOMAXPROCS(0)
	}
	return &BcryptHasher{gate: make(chan struct{}, width)}
}

var _ ports.PasswordHasher = (*BcryptHasher)(nil)

func (h *BcryptHasher) acquire(ctx context.Context) error {
	select {
	case h.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *BcryptHasher) release() { <-h.gate }

// Hash derives a bcrypt hash of the password at the fixed cost.
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether the password matches the stored hash. A mismatch
// is (false, nil); only unexpected failures return an error.
func (h *BcryptHasher) Compare(ctx context.Context, password, hash string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.release()

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	// Malformed stored hashes also read as a mismatch: the caller must not
	// learn whether the account exists or its hash is broken.
	if errors.Is(err, bcrypt.ErrHashTooShort) {
		return false, nil
	}
	return false, err
}
