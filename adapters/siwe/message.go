// Package siwe builds and verifies EIP-4361 sign-in messages. The challenge
// is deterministic: both the server and the wallet frontend rebuild it from
// the trust domain, the wallet address and the clock, so nothing is stored
// between building and verifying.
package siwe

import (
	"fmt"
	"net/url"
	"time"

	"github.com/acmebet/gatekeeper/core"
)

const (
	// Statement is the human-readable line embedded in every challenge.
	Statement = "Sign in to ACME Bet"

	// Version is the EIP-4361 message version.
	Version = "1"

	// SepoliaChainID is the chain the platform signs against.
	SepoliaChainID = 11155111
)

// Builder constructs challenge messages for a configured frontend origin.
type Builder struct {
	host    string
	origin  string
	chainID int
	now     func() time.Time
}

// NewBuilder parses the frontend origin the challenge is bound to.
func NewBuilder(frontendURL string, chainID int) (*Builder, error) {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return nil, fmt.Errorf("parse frontend url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("frontend url %q has no host", frontendURL)
	}
	if chainID == 0 {
		chainID = SepoliaChainID
	}
	return &Builder{
		host:    u.Host,
		origin:  u.Scheme + "://" + u.Host,
		chainID: chainID,
		now:     time.Now,
	}, nil
}

// WithClock overrides the time source; tests pin the hour boundary with it.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Domain returns the trust domain challenges are bound to.
func (b *Builder) Domain() string { return b.host }

// Build returns the challenge for an address. The nonce is the address
// itself and issuedAt is truncated to the top of the current hour, so every
// build within the same clock hour yields an identical message.
func (b *Builder) Build(address string) core.Challenge {
	return core.Challenge{
		Domain:    b.host,
		Address:   address,
		Statement: Statement,
		URI:       b.origin,
		Version:   Version,
		ChainID:   b.chainID,
		Nonce:     address,
		IssuedAt:  core.TruncateToHour(b.now()),
	}
}

// Render produces the canonical EIP-4361 string the wallet signs.
func Render(c core.Challenge) string {
	return fmt.Sprintf(
		"%s wants you to sign in with your Ethereum account:\n%s\n\n%s\n\nURI: %s\nVersion: %s\nChain ID: %d\nNonce: %s\nIssued At: %s",
		c.Domain,
		c.Address,
		c.Statement,
		c.URI,
		c.Version,
		c.ChainID,
		c.Nonce,
		c.IssuedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	)
}
