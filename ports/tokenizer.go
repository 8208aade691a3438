package ports

import "github.com/acmebet/gatekeeper/core"

// Tokenizer converts between claim sets and signed tokens. Issuance is pure:
// it never touches the session store. Access and refresh tokens are signed
// with independent secrets and both carry the device binding when present.
type Tokenizer interface {
	Issue(claims core.ClaimSet) (core.TokenPair, error)
	DecodeAccess(token string) (core.ClaimSet, error)
	DecodeRefresh(token string) (core.ClaimSet, error)
}
