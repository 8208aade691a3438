package core

import "time"

// Challenge is the EIP-4361 message a wallet signs to prove address
// ownership. It is ephemeral and never persisted: both sides rebuild it from
// (domain, address, clock), so the nonce is the address itself and issuedAt
// is pinned to the top of the current hour. A captured signature therefore
// stays verifiable for the remainder of that hour.
type Challenge struct {
	Domain    string
	Address   string
	Statement string
	URI       string
	Version   string
	ChainID   int
	Nonce     string
	IssuedAt  time.Time
}

// TruncateToHour zeroes everything below the hour, the replay bound used for
// challenge issuedAt values.
func TruncateToHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}
