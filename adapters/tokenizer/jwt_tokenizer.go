package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTTL is the default access token lifetime.
	DefaultAccessTTL = 24 * time.Hour

	// DefaultRefreshTTL is the default refresh token lifetime.
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// JWTTokenizer issues and decodes HS256 token pairs. Access and refresh
// tokens are signed with independent secrets so leaking one never
// compromises the other.
type JWTTokenizer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTTokenizer creates a tokenizer with the two signing secrets. Zero TTLs
// fall back to the defaults.
func NewJWTTokenizer(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *JWTTokenizer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &JWTTokenizer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// Issue mints an access/refresh pair from the claim set. Both tokens carry
// the device binding: the refresh token for rotation checks, the access
// token so the bearer middleware can derive the caller's session identity.
func (j *JWTTokenizer) Issue(claims core.ClaimSet) (core.TokenPair, error) {
	now := time.Now()

	access := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
		},
		Role:        core.JoinRoles(claims.Roles),
		Status:      string(claims.Status),
		SignAddress: claims.SignAddress,
		DeviceID:    claims.DeviceID,
		Platform:    claims.Platform,
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(j.accessSecret)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTTL)),
		},
		Role:        core.JoinRoles(claims.Roles),
		Status:      string(claims.Status),
		SignAddress: claims.SignAddress,
		DeviceID:    claims.DeviceID,
		Platform:    claims.Platform,
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(j.refreshSecret)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return core.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// DecodeAccess verifies an access token and rebuilds its claim set.
func (j *JWTTokenizer) DecodeAccess(token string) (core.ClaimSet, error) {
	var claims AccessClaims
	if err := j.parse(token, &claims, j.accessSecret); err != nil {
		return core.ClaimSet{}, err
	}
	return core.ClaimSet{
		UserID:      claims.Subject,
		Roles:       core.SplitRoles(claims.Role),
		Status:      core.Status(claims.Status),
		SignAddress: claims.SignAddress,
		DeviceID:    claims.DeviceID,
		Platform:    claims.Platform,
	}, nil
}

// DecodeRefresh verifies a refresh token and rebuilds its claim set,
// including the device binding.
func (j *JWTTokenizer) DecodeRefresh(token string) (core.ClaimSet, error) {
	var claims RefreshClaims
	if err := j.parse(token, &claims, j.refreshSecret); err != nil {
		return core.ClaimSet{}, err
	}
	return core.ClaimSet{
		UserID:      claims.Subject,
		Roles:       core.SplitRoles(claims.Role),
		Status:      core.Status(claims.Status),
		SignAddress: claims.SignAddress,
		DeviceID:    claims.DeviceID,
		Platform:    claims.Platform,
	}, nil
}

func (j *JWTTokenizer) parse(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("parse token: %w", core.ErrTokenExpired)
		}
		return fmt.Errorf("parse token: %w", core.ErrInvalidToken)
	}
	if !parsed.Valid {
		return core.ErrInvalidToken
	}
	return nil
}
