package service

import (
	"context"
	"sync"
	"testing"

	"github.com/acmebet/gatekeeper/adapters/directory"
	"github.com/acmebet/gatekeeper/adapters/security"
	"github.com/acmebet/gatekeeper/adapters/siwe"
	"github.com/acmebet/gatekeeper/adapters/store"
	"github.com/acmebet/gatekeeper/adapters/tokenizer"
	"github.com/acmebet/gatekeeper/core"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *AuthService
	users    *directory.MemoryDirectory
	sessions *store.MemoryStore
	builder  *siwe.Builder
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	users := directory.NewMemoryDirectory()
	sessions := store.NewMemoryStore()
	builder, err := siwe.NewBuilder("http://localhost:3000", 0)
	require.NoError(t, err)

	svc := NewAuthService(
		users,
		sessions,
		tokenizer.NewJWTTokenizer([]byte("access-secret"), []byte("refresh-secret"), 0, 0),
		security.NewBcryptHasher(4),
		builder,
		siwe.NewVerifier(builder.Domain()),
		nil,
		opts,
	)
	return &fixture{svc: svc, users: users, sessions: sessions, builder: builder}
}

func TestSignUpIssuesTokensAndDevicelessSession(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	result, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Auth.AccessToken)
	require.NotEmpty(t, result.Auth.RefreshToken)
	require.Empty(t, result.User.PasswordHash, "password never leaves the service")
	require.Equal(t, []core.Role{core.RoleMember}, result.User.Roles)
	require.Equal(t, core.StatusActive, result.User.Status)

	record, ok := f.sessions.Get(core.DefaultSessionKey(result.User.ID))
	require.True(t, ok)
	require.Equal(t, result.Auth.RefreshToken, record.RefreshToken)
	require.Empty(t, record.IPAddress, "sign-up stores no caller IP")
}

func TestSignUpDuplicateCaseVariant(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	for _, variant := range []string{"bob", "BOB", "Bob", "bOb"} {
		_, err := f.svc.SignUp(ctx, SignUpInput{Username: variant, Password: "Abc123!"})
		require.ErrorIs(t, err, core.NewError(core.KindAlreadyExists, nil), variant)
	}
}

func TestSignUpDuplicateAddress(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!", SignAddress: "0xAAA"})
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, SignUpInput{Username: "carol", Password: "Abc123!", SignAddress: "0xAAA"})
	require.ErrorIs(t, err, core.NewError(core.KindAlreadyExists, nil))
}

func TestSignInPassword(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	result, err := f.svc.SignIn(ctx, SignInInput{Username: "BOB", Password: "Abc123!", IPAddress: "1.2.3.4"})
	require.NoError(t, err)
	require.Equal(t, created.User.ID, result.User.ID)
	require.Empty(t, result.User.PasswordHash)

	record, ok := f.sessions.Get(core.DefaultSessionKey(created.User.ID))
	require.True(t, ok)
	require.Equal(t, result.Auth.RefreshToken, record.RefreshToken)
	require.Equal(t, "1.2.3.4", record.IPAddress)
}

func TestSignInInvalidCredentials(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	// Unknown user and wrong password are indistinguishable.
	_, err = f.svc.SignIn(ctx, SignInInput{Username: "nobody", Password: "Abc123!"})
	require.ErrorIs(t, err, core.NewError(core.KindInvalidCredentials, nil))

	_, err = f.svc.SignIn(ctx, SignInInput{Username: "bob", Password: "Wrong1!"})
	require.ErrorIs(t, err, core.NewError(core.KindInvalidCredentials, nil))
}

func TestSignInAddressMismatch(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!", SignAddress: "0xBBB"})
	require.NoError(t, err)

	// Fails even with a correct password, and no tokens are issued.
	_, err = f.svc.SignIn(ctx, SignInInput{Username: "bob", Password: "Abc123!", SignAddress: "0xAAA"})
	require.ErrorIs(t, err, core.NewError(core.KindAddressMismatch, nil))

	_, err = f.svc.SignIn(ctx, SignInInput{Username: "bob", Password: "Wrong1!", SignAddress: "0xAAA"})
	require.ErrorIs(t, err, core.NewError(core.KindAddressMismatch, nil),
		"address mismatch wins regardless of password result")
}

func TestSignInWalletSignature(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	_, err = f.svc.SignUp(ctx, SignUpInput{Username: "wallet-bob", SignAddress: address})
	require.NoError(t, err)

	challenge := f.builder.Build(address)
	sig, err := crypto.Sign(accounts.TextHash([]byte(siwe.Render(challenge))), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	result, err := f.svc.SignIn(ctx, SignInInput{
		Username:    "wallet-bob",
		SignAddress: address,
		Signature:   hexutil.Encode(sig),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Auth.RefreshToken)
}

func TestSignInWalletBadSignature(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	_, err = f.svc.SignUp(ctx, SignUpInput{Username: "wallet-bob", SignAddress: address})
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, SignInInput{Username: "wallet-bob", SignAddress: address, Signature: ""})
	require.ErrorIs(t, err, core.NewError(core.KindSignatureInvalid, nil))
}

func TestConcurrentSignInLastWriterWins(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	const callers = 2
	results := make([]*AuthResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.SignIn(ctx, SignInInput{Username: "bob", Password: "Abc123!"})
		}(i)
	}
	wg.Wait()
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}

	require.Equal(t, 1, f.sessions.Len(), "both callers share the device-less key")

	record, ok := f.sessions.Get(core.DefaultSessionKey(created.User.ID))
	require.True(t, ok)
	require.Contains(t,
		[]string{results[0].Auth.RefreshToken, results[1].Auth.RefreshToken},
		record.RefreshToken,
		"the surviving row holds whichever caller wrote last")
}

func TestRefreshUnknownToken(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Refresh(context.Background(), RefreshInput{RefreshToken: "nope"})
	require.ErrorIs(t, err, core.NewError(core.KindRefreshTokenInvalid, nil))
}

func TestRefreshDeviceMismatch(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	// The device-less refresh token carries no deviceId claim, so any
	// non-empty supplied deviceId must be refused, token validity aside.
	_, err = f.svc.Refresh(ctx, RefreshInput{
		DeviceID:     "d1",
		Platform:     "ios",
		RefreshToken: created.Auth.RefreshToken,
	})
	require.ErrorIs(t, err, core.NewError(core.KindForbidden, nil))
}

func TestRefreshRotatesAndStoresNewToken(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: created.Auth.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, created.Auth.RefreshToken, rotated.Auth.RefreshToken)
	require.Empty(t, rotated.User.PasswordHash)

	// Default behavior stores the newly minted token, so the fresh pair is
	// immediately usable for the next rotation.
	again, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: rotated.Auth.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, rotated.Auth.RefreshToken, again.Auth.RefreshToken)
}

func TestRefreshLegacyParityStoresPresentedToken(t *testing.T) {
	f := newFixture(t, Options{StorePresentedRefreshToken: true})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, RefreshInput{RefreshToken: created.Auth.RefreshToken})
	require.NoError(t, err)

	// Legacy parity: the row keeps the PRESENTED token, so the newly minted
	// refresh token is not resolvable by value.
	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: rotated.Auth.RefreshToken})
	require.ErrorIs(t, err, core.NewError(core.KindRefreshTokenInvalid, nil))

	// The presented one still is.
	_, err = f.svc.Refresh(ctx, RefreshInput{RefreshToken: created.Auth.RefreshToken})
	require.NoError(t, err)
}

func TestLogoutDeviceMismatch(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	identity := core.Identity{UserID: created.User.ID, DeviceID: "d2", Platform: "ios"}
	err = f.svc.Logout(ctx, "d1", identity)
	require.ErrorIs(t, err, core.NewError(core.KindUnauthorized, nil))
	require.Equal(t, 1, f.sessions.Len(), "nothing deleted on mismatch")
}

func TestLogoutDeletesExactRowAndIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	identity := core.Identity{
		UserID:   created.User.ID,
		DeviceID: core.DefaultDeviceID,
		Platform: core.DefaultPlatform,
	}
	require.NoError(t, f.svc.Logout(ctx, core.DefaultDeviceID, identity))
	require.Equal(t, 0, f.sessions.Len())

	// A second logout for the same key still succeeds.
	require.NoError(t, f.svc.Logout(ctx, core.DefaultDeviceID, identity))
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, ResetPasswordInput{
		UserID:      created.User.ID,
		OldPassword: "Wrong1!",
		NewPassword: "Def456!",
	})
	require.ErrorIs(t, err, core.NewError(core.KindUnauthorized, nil))

	require.NoError(t, f.svc.ResetPassword(ctx, ResetPasswordInput{
		UserID:      created.User.ID,
		OldPassword: "Abc123!",
		NewPassword: "Def456!",
	}))

	require.Equal(t, 1, f.sessions.Len(), "reset leaves sessions untouched")

	_, err = f.svc.SignIn(ctx, SignInInput{Username: "bob", Password: "Abc123!"})
	require.ErrorIs(t, err, core.NewError(core.KindInvalidCredentials, nil))

	_, err = f.svc.SignIn(ctx, SignInInput{Username: "bob", Password: "Def456!"})
	require.NoError(t, err)
}

func TestResetPasswordUnknownUser(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{
		UserID:      "missing",
		OldPassword: "x",
		NewPassword: "Def456!",
	})
	require.ErrorIs(t, err, core.NewError(core.KindUnauthorized, nil))
}

func TestIdentifyRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	created, err := f.svc.SignUp(ctx, SignUpInput{Username: "bob", Password: "Abc123!"})
	require.NoError(t, err)

	identity, err := f.svc.Identify(ctx, created.Auth.AccessToken)
	require.NoError(t, err)
	require.Equal(t, created.User.ID, identity.UserID)

	_, err = f.svc.Identify(ctx, "garbage")
	require.ErrorIs(t, err, core.NewError(core.KindUnauthorized, nil))
}
