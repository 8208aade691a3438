package core

import "strings"

// ClaimSet is the data embedded in signed tokens. DeviceID and Platform bind
// a pair to a device; the rotation protocol re-validates them on refresh.
type ClaimSet struct {
	UserID      string
	Roles       []Role
	Status      Status
	SignAddress string
	DeviceID    string
	Platform    string
}

// TokenPair is one access/refresh issuance.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// JoinRoles serializes a role set for the token boundary.
func JoinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// SplitRoles parses the serialized role set back into a typed slice.
func SplitRoles(s string) []Role {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]Role, len(parts))
	for i, p := range parts {
		roles[i] = Role(p)
	}
	return roles
}
