package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims carries the identity claims of an access token. Roles travel
// as a joined string; they are split back into the typed set at decode time.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role        string `json:"role"`
	Status      string `json:"status"`
	SignAddress string `json:"signAddress,omitempty"`
	DeviceID    string `json:"deviceId,omitempty"`
	Platform    string `json:"platform,omitempty"`
}

// RefreshClaims adds the device binding the rotation protocol re-validates.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Role        string `json:"role"`
	Status      string `json:"status"`
	SignAddress string `json:"signAddress,omitempty"`
	DeviceID    string `json:"deviceId,omitempty"`
	Platform    string `json:"platform,omitempty"`
}
