package core

import "time"

const (
	// DefaultDeviceID is the sentinel device used for device-less sessions.
	DefaultDeviceID = "default"

	// DefaultPlatform is the sentinel platform used for device-less sessions.
	DefaultPlatform = "default"
)

// SessionKey identifies one logical session. Every session is keyed by the
// full (userId, deviceId, platform) triple; device-less flows use the
// canonical default sentinels, so a user holds at most one device-less row.
type SessionKey struct {
	UserID   string
	DeviceID string
	Platform string
}

// DefaultSessionKey returns the device-less key for a user.
func DefaultSessionKey(userID string) SessionKey {
	return SessionKey{UserID: userID, DeviceID: DefaultDeviceID, Platform: DefaultPlatform}
}

// Normalize fills empty device fields with the default sentinels.
func (k SessionKey) Normalize() SessionKey {
	if k.DeviceID == "" {
		k.DeviceID = DefaultDeviceID
	}
	if k.Platform == "" {
		k.Platform = DefaultPlatform
	}
	return k
}

// SessionRecord is the persisted state of one session.
type SessionRecord struct {
	UserID       string    `json:"userId"`
	DeviceID     string    `json:"deviceId"`
	Platform     string    `json:"platform"`
	RefreshToken string    `json:"refreshToken"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Key returns the logical key of the record.
func (r SessionRecord) Key() SessionKey {
	return SessionKey{UserID: r.UserID, DeviceID: r.DeviceID, Platform: r.Platform}.Normalize()
}

// Identity is the caller identity established by the access-token middleware.
// Logout and reset-password trust it instead of re-reading credentials.
type Identity struct {
	UserID   string
	DeviceID string
	Platform string
}
