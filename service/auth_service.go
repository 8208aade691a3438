// Package service implements the session rotation protocol: sign-up,
// sign-in, token refresh, logout and password reset. Every operation runs to
// a single terminal success or tagged failure; nothing here takes a lock, so
// concurrent writers on the same session key race and the last write wins.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
)

// Options tune protocol behavior.
type Options struct {
	// StorePresentedRefreshToken restores byte-for-byte parity with the
	// legacy backend, which persisted the token presented at refresh rather
	// than the newly minted one. Off by default: the new row then holds the
	// new token, so the just-issued refresh token is resolvable by value on
	// the next rotation.
	StorePresentedRefreshToken bool
}

// AuthService orchestrates the user directory, session store, tokenizer and
// credential verifiers.
type AuthService struct {
	directory ports.UserDirectory
	sessions  ports.SessionStore
	tokens    ports.Tokenizer
	hasher    ports.PasswordHasher
	builder   ports.ChallengeBuilder
	verifier  ports.SignatureVerifier
	events    ports.EventPublisher
	opts      Options
}

// NewAuthService wires the protocol's collaborators.
func NewAuthService(
	directory ports.UserDirectory,
	sessions ports.SessionStore,
	tokens ports.Tokenizer,
	hasher ports.PasswordHasher,
	builder ports.ChallengeBuilder,
	verifier ports.SignatureVerifier,
	events ports.EventPublisher,
	opts Options,
) *AuthService {
	if events == nil {
		events = nopEvents{}
	}
	return &AuthService{
		directory: directory,
		sessions:  sessions,
		tokens:    tokens,
		hasher:    hasher,
		builder:   builder,
		verifier:  verifier,
		events:    events,
		opts:      opts,
	}
}

type nopEvents struct{}

func (nopEvents) PublishSignIn(ctx context.Context, userID string) error        { return nil }
func (nopEvents) PublishLogout(ctx context.Context, userID, devID string) error { return nil }

// SignUpInput carries a registration request.
type SignUpInput struct {
	Username    string
	Password    string
	SignAddress string
}

// SignInInput carries a login request. Password and Signature are the two
// credential proofs; whichever is supplied gets verified.
type SignInInput struct {
	Username    string
	Password    string
	SignAddress string
	Signature   string
	IPAddress   string
}

// RefreshInput carries a token rotation request.
type RefreshInput struct {
	DeviceID     string
	Platform     string
	RefreshToken string
}

// ResetPasswordInput carries a password change request.
type ResetPasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string
}

// AuthResult is the payload of every token-issuing operation: the pair plus
// the user record with the password hash stripped.
type AuthResult struct {
	Auth core.TokenPair `json:"auth"`
	User core.User      `json:"user"`
}

// ChallengeMessage returns the sign-in challenge a wallet must sign for the
// given address.
func (s *AuthService) ChallengeMessage(address string) core.Challenge {
	return s.builder.Build(address)
}

// SignUp creates a user, issues a token pair and upserts the device-less
// session. A username or address collision yields AlreadyExists; any other
// persistence failure during creation yields CreationFailed.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	existing, err := s.directory.FindByUsernameOrAddress(ctx, in.Username, in.SignAddress)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, core.WrapUnexpected(err)
	}
	if existing != nil {
		return nil, core.NewError(core.KindAlreadyExists, nil)
	}

	user := &core.User{
		Username:    in.Username,
		SignAddress: in.SignAddress,
		Roles:       []core.Role{core.RoleMember},
		Status:      core.StatusActive,
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(ctx, in.Password)
		if err != nil {
			return nil, core.NewError(core.KindCreationFailed, err)
		}
		user.PasswordHash = hash
	}

	created, err := s.directory.Create(ctx, user)
	if errors.Is(err, core.ErrDuplicateKey) {
		return nil, core.NewError(core.KindAlreadyExists, err)
	}
	if err != nil {
		return nil, core.NewError(core.KindCreationFailed, err)
	}

	pair, err := s.tokens.Issue(core.ClaimSet{
		UserID:      created.ID,
		Roles:       created.Roles,
		Status:      created.Status,
		SignAddress: created.SignAddress,
	})
	if err != nil {
		return nil, core.WrapUnexpected(err)
	}

	// New accounts start with a device-less session and no caller IP.
	if err := s.sessions.Upsert(ctx, core.DefaultSessionKey(created.ID), pair.RefreshToken, ""); err != nil {
		return nil, core.WrapUnexpected(err)
	}

	s.fanOutSignIn(ctx, created.ID)
	return &AuthResult{Auth: pair, User: created.Sanitize()}, nil
}

// SignIn authenticates a user by password, wallet signature or both, then
// overwrites the user's device-less session. Unknown usernames and wrong
// passwords are indistinguishable to the caller; a bound wallet address that
// differs from the presented one fails with AddressMismatch regardless of
// the password result.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	user, err := s.directory.FindByUsername(ctx, in.Username)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.NewError(core.KindInvalidCredentials, nil)
	}
	if err != nil {
		return nil, core.WrapUnexpected(err)
	}

	if user.SignAddress != "" && user.SignAddress != in.SignAddress {
		return nil, core.NewError(core.KindAddressMismatch, nil)
	}

	verified := false
	if in.Password != "" {
		ok, err := s.hasher.Compare(ctx, in.Password, user.PasswordHash)
		if err != nil {
			return nil, core.WrapUnexpected(err)
		}
		if !ok {
			return nil, core.NewError(core.KindInvalidCredentials, nil)
		}
		verified = true
	}
	if in.Signature != "" || !verified {
		challenge := s.builder.Build(in.SignAddress)
		if err := s.verifier.Verify(challenge, in.Signature); err != nil {
			return nil, core.NewError(core.KindSignatureInvalid, err)
		}
	}

	pair, err := s.tokens.Issue(core.ClaimSet{
		UserID:      user.ID,
		Roles:       user.Roles,
		Status:      user.Status,
		SignAddress: user.SignAddress,
	})
	if err != nil {
		return nil, core.WrapUnexpected(err)
	}

	// Device-less key: a later sign-in overwrites this row, IP and token
	// included. Under concurrency the last writer wins.
	if err := s.sessions.Upsert(ctx, core.DefaultSessionKey(user.ID), pair.RefreshToken, in.IPAddress); err != nil {
		return nil, core.WrapUnexpected(err)
	}

	s.fanOutSignIn(ctx, user.ID)
	return &AuthResult{Auth: pair, User: user.Sanitize()}, nil
}

// Refresh rotates a token pair for a device. The presented refresh token
// must resolve to a session row by value, verify cryptographically, and
// carry a deviceId claim equal to the supplied one. The new row is inserted
// under the (userId, deviceId, platform) triple; rows for other devices are
// left untouched. Two concurrent refreshes presenting the same token can
// both pass the lookup and both succeed; that weakness is documented, not
// hidden.
func (s *AuthService) Refresh(ctx context.Context, in RefreshInput) (*AuthResult, error) {
	key, err := s.sessions.FindByRefreshToken(ctx, in.RefreshToken)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.NewError(core.KindRefreshTokenInvalid, nil)
	}
	if err != nil {
		return nil, core.WrapUnexpected(err)
	}

	claims, err := s.tokens.DecodeRefresh(in.RefreshToken)
	if err != nil {
		return nil, core.NewError(core.KindUnauthorized, err)
	}

	if claims.DeviceID != in.DeviceID {
		return nil, core.NewError(core.KindForbidden, nil)
	}

	user, err := s.directory.FindByID(ctx, key.UserID)
	if err != nil {
		return nil, core.WrapUnexpected(err)
	}

	pair, err := s.tokens.Issue(core.ClaimSet{
		UserID:      user.ID,
		Roles:       user.Roles,
		Status:      user.Status,
		SignAddress: user.SignAddress,
		DeviceID:    in.DeviceID,
		Platform:    in.Platform,
	})
	if err != nil {
		return nil, core.WrapUnexpected(err)
	}

	stored := pair.RefreshToken
	if s.opts.StorePresentedRefreshToken {
		stored = in.RefreshToken
	}
	record := core.SessionRecord{
		UserID:       user.ID,
		DeviceID:     in.DeviceID,
		Platform:     in.Platform,
		RefreshToken: stored,
	}
	if err := s.sessions.Insert(ctx, record); err != nil {
		return nil, core.WrapUnexpected(err)
	}

	return &AuthResult{Auth: pair, User: user.Sanitize()}, nil
}

// Logout deletes the session row matching the caller's identity. The
// supplied deviceId must equal the identity-derived one; otherwise nothing
// is deleted. Deleting an already-gone row still succeeds.
func (s *AuthService) Logout(ctx context.Context, deviceID string, identity core.Identity) error {
	if deviceID != identity.DeviceID {
		return core.NewError(core.KindUnauthorized, nil)
	}

	key := core.SessionKey{
		UserID:   identity.UserID,
		DeviceID: deviceID,
		Platform: identity.Platform,
	}
	if err := s.sessions.Delete(ctx, key); err != nil {
		return core.WrapUnexpected(err)
	}

	if err := s.events.PublishLogout(ctx, identity.UserID, deviceID); err != nil {
		// The row is already gone; fan-out failure must not fail the logout.
		log.Printf("gatekeeper: publish logout event: %v", err)
	}
	return nil
}

// ResetPassword verifies the old password and persists a hash of the new
// one. Existing sessions stay valid.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	user, err := s.directory.FindByID(ctx, in.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewError(core.KindUnauthorized, fmt.Errorf("user %s: %w", in.UserID, err))
	}
	if err != nil {
		return core.WrapUnexpected(err)
	}

	ok, err := s.hasher.Compare(ctx, in.OldPassword, user.PasswordHash)
	if err != nil {
		return core.WrapUnexpected(err)
	}
	if !ok {
		return core.NewError(core.KindUnauthorized, nil)
	}

	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return core.WrapUnexpected(err)
	}
	if err := s.directory.UpdatePassword(ctx, user.ID, hash); err != nil {
		return core.WrapUnexpected(err)
	}
	return nil
}

// Identify validates an access token and derives the caller identity the
// logout and reset paths rely on.
func (s *AuthService) Identify(ctx context.Context, accessToken string) (core.Identity, error) {
	claims, err := s.tokens.DecodeAccess(accessToken)
	if err != nil {
		return core.Identity{}, core.NewError(core.KindUnauthorized, err)
	}
	return core.Identity{
		UserID:   claims.UserID,
		DeviceID: claims.DeviceID,
		Platform: claims.Platform,
	}, nil
}

func (s *AuthService) fanOutSignIn(ctx context.Context, userID string) {
	if err := s.events.PublishSignIn(ctx, userID); err != nil {
		log.Printf("gatekeeper: publish sign-in event: %v", err)
	}
}
