package siwe

import (
	"fmt"

	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Verifier checks wallet signatures over rendered challenge messages using
// EIP-191 personal-sign recovery.
type Verifier struct {
	domain string
}

// NewVerifier binds the verifier to the same trust domain the builder uses.
func NewVerifier(domain string) *Verifier {
	return &Verifier{domain: domain}
}

var _ ports.SignatureVerifier = (*Verifier)(nil)

// Verify recovers the signing address from the signature and requires it to
// equal the challenge address. The challenge domain must match the
// configured one. Empty or malformed signatures fail cleanly.
func (v *Verifier) Verify(challenge core.Challenge, signature string) error {
	if challenge.Domain != v.domain {
		return fmt.Errorf("challenge domain %q does not match %q: %w", challenge.Domain, v.domain, core.ErrInvalidSignature)
	}
	if signature == "" {
		return fmt.Errorf("empty signature: %w", core.ErrInvalidSignature)
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}

	// Wallets emit V as 27/28; go-ethereum recovery wants 0/1.
	recovery := make([]byte, crypto.SignatureLength)
	copy(recovery, sig)
	if recovery[crypto.RecoveryIDOffset] >= 27 {
		recovery[crypto.RecoveryIDOffset] -= 27
	}
	if recovery[crypto.RecoveryIDOffset] > 1 {
		return fmt.Errorf("invalid recovery id: %w", core.ErrInvalidSignature)
	}

	digest := accounts.TextHash([]byte(Render(challenge)))
	pub, err := crypto.SigToPub(digest, recovery)
	if err != nil {
		return fmt.Errorf("recover public key: %w", core.ErrInvalidSignature)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != common.HexToAddress(challenge.Address) {
		return core.ErrInvalidSignature
	}
	return nil
}
