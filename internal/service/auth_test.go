package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidents-platform/auth-service/internal/models"
	"github.com/incidents-platform/auth-service/internal/status"
	"github.com/incidents-platform/auth-service/internal/tokens"
)

func TestSignup_ThenSignin(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()

	res, err := env.Users.Signup(ctx, SignupInput{
		Email:     "a@x.com",
		Password:  "pw123456",
		Name:      "A",
		Surname:   "B",
		UserAgent: "device-a",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.Equal(t, []string{models.RoleUser}, res.User.Roles)
	assert.NotEmpty(t, res.Credentials.AccessToken)
	assert.NotEmpty(t, res.Credentials.RefreshToken)

	_, err = env.Users.Signin(ctx, "a@x.com", "wrong", "device-a")
	assert.ErrorIs(t, err, status.ErrUnauthorized)

	again, err := env.Users.Signin(ctx, "a@x.com", "pw123456", "device-a")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)
}

func TestSignup_DuplicateEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()

	in := SignupInput{Email: "a@x.com", Password: "pw123456", Name: "A", Surname: "B"}
	_, err := env.Users.Signup(ctx, in)
	require.NoError(t, err)

	_, err = env.Users.Signup(ctx, in)
	assert.ErrorIs(t, err, status.ErrConflict)

	count, err := env.Repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSignin_UnknownAndFederated(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()

	_, err := env.Users.Signin(ctx, "nobody@x.com", "pw123456", "device-a")
	assert.ErrorIs(t, err, status.ErrNotFound)

	federated := env.createUser(t, "g@x.com", "pw123456", []string{models.RoleUser})
	federated.Provider = models.ProviderGoogle
	federated.PasswordHash = ""
	require.NoError(t, env.Repo.SaveUser(ctx, federated))

	_, err = env.Users.Signin(ctx, "g@x.com", "pw123456", "device-a")
	assert.ErrorIs(t, err, status.ErrConflict)
}

func TestRefresh_RotatesAndIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()
	user := env.createUser(t, "a@x.com", "pw123456", []string{models.RoleUser})

	creds, err := env.Issuer.Issue(ctx, user, "device-a")
	require.NoError(t, err)

	next, err := env.Issuer.Refresh(ctx, creds.RefreshToken, "device-a")
	require.NoError(t, err)
	assert.NotEqual(t, creds.RefreshToken, next.RefreshToken)
	assert.NotEmpty(t, next.AccessToken)

	// consumed value is dead
	_, err = env.Issuer.Refresh(ctx, creds.RefreshToken, "device-a")
	assert.ErrorIs(t, err, status.ErrUnauthorized)

	// the rotated value still works
	_, err = env.Issuer.Refresh(ctx, next.RefreshToken, "device-a")
	assert.NoError(t, err)
}

func TestRefresh_DevicesIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()
	user := env.createUser(t, "a@x.com", "pw123456", []string{models.RoleUser})

	a, err := env.Issuer.Issue(ctx, user, "device-a")
	require.NoError(t, err)
	b, err := env.Issuer.Issue(ctx, user, "device-b")
	require.NoError(t, err)

	_, err = env.Issuer.Refresh(ctx, a.RefreshToken, "device-a")
	require.NoError(t, err)

	// device-b's token survives device-a's rotation
	_, err = env.Issuer.Refresh(ctx, b.RefreshToken, "device-b")
	assert.NoError(t, err)
}

func TestLogout_InvalidatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()
	user := env.createUser(t, "a@x.com", "pw123456", []string{models.RoleUser})

	creds, err := env.Issuer.Issue(ctx, user, "device-a")
	require.NoError(t, err)

	require.NoError(t, env.Users.Logout(ctx, creds.RefreshToken))

	err = env.Users.Logout(ctx, creds.RefreshToken)
	assert.ErrorIs(t, err, status.ErrUnauthorized)

	_, err = env.Issuer.Refresh(ctx, creds.RefreshToken, "device-a")
	assert.ErrorIs(t, err, status.ErrUnauthorized)
}

func TestMe_ByRefreshTokenAndDevice(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()
	user := env.createUser(t, "a@x.com", "pw123456", []string{models.RoleUser})

	creds, err := env.Issuer.Issue(ctx, user, "device-a")
	require.NoError(t, err)

	me, err := env.Users.Me(ctx, creds.RefreshToken, "device-a")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), me.ID)

	// same value presented from another device is rejected
	_, err = env.Users.Me(ctx, creds.RefreshToken, "device-b")
	assert.ErrorIs(t, err, status.ErrUnauthorized)
}

func TestAuthByProvider_LocalAccountConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()
	env.createUser(t, "a@x.com", "pw123456", []string{models.RoleUser})

	profile := ProviderProfile{Email: "a@x.com", Name: "A", Surname: "B", UserAgent: "device-a"}
	_, err := env.Users.AuthByProvider(ctx, profile, models.ProviderGoogle)
	assert.ErrorIs(t, err, status.ErrConflict)

	count, err := env.Repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestAuthByProvider_CreatesAndReuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()

	profile := ProviderProfile{Email: "g@x.com", Name: "G", Surname: "H", UserAgent: "device-a"}
	first, err := env.Users.AuthByProvider(ctx, profile, models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderGoogle, first.User.Provider)
	assert.NotEmpty(t, first.Credentials.RefreshToken)

	second, err := env.Users.AuthByProvider(ctx, profile, models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	// same email, other provider: no switching
	_, err = env.Users.AuthByProvider(ctx, profile, models.ProviderYandex)
	assert.ErrorIs(t, err, status.ErrConflict)
}

func TestAuthByProvider_BlockedAndBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()

	profile := ProviderProfile{Email: "g@x.com", Name: "G", Surname: "H"}
	res, err := env.Users.AuthByProvider(ctx, profile, models.ProviderGoogle)
	require.NoError(t, err)

	user, err := env.Repo.FindUserByEmail(ctx, res.User.Email)
	require.NoError(t, err)
	user.IsBlocked = true
	require.NoError(t, env.Repo.SaveUser(ctx, user))

	_, err = env.Users.AuthByProvider(ctx, profile, models.ProviderGoogle)
	assert.ErrorIs(t, err, status.ErrForbidden)

	_, err = env.Users.AuthByProvider(ctx, ProviderProfile{}, models.ProviderGoogle)
	assert.ErrorIs(t, err, status.ErrBadRequest)

	_, err = env.Users.AuthByProvider(ctx, profile, "github")
	assert.ErrorIs(t, err, status.ErrBadRequest)
}

func TestJWTAuth_SecondaryChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()
	user := env.createUser(t, "a@x.com", "pw123456", []string{models.RoleUser})

	claims := &tokens.AccessClaims{UserID: user.ID.String(), Email: user.Email, Roles: user.Roles}
	me, err := env.Users.JWTAuth(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), me.ID)

	// stale roles in the claim no longer match the account
	stale := &tokens.AccessClaims{UserID: user.ID.String(), Email: user.Email, Roles: []string{models.RoleAdmin}}
	_, err = env.Users.JWTAuth(ctx, stale)
	assert.ErrorIs(t, err, status.ErrNotFound)

	user.IsBlocked = true
	require.NoError(t, env.Repo.SaveUser(ctx, user))
	_, err = env.Users.JWTAuth(ctx, claims)
	assert.ErrorIs(t, err, status.ErrForbidden)
}

func TestDeleteUser_OwnerAndAdminRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()
	owner := env.createUser(t, "a@x.com", "pw123456", []string{models.RoleUser})
	stranger := env.createUser(t, "b@x.com", "pw123456", []string{models.RoleUser})
	admin := env.createUser(t, "root@x.com", "pw123456", []string{models.RoleUser, models.RoleAdmin})

	strangerToken, err := env.Issuer.IssueAccessToken(stranger)
	require.NoError(t, err)
	_, err = env.Users.DeleteUser(ctx, owner.ID, strangerToken)
	assert.ErrorIs(t, err, status.ErrForbidden)

	adminToken, err := env.Issuer.IssueAccessToken(admin)
	require.NoError(t, err)
	_, err = env.Users.DeleteUser(ctx, admin.ID, adminToken)
	assert.ErrorIs(t, err, status.ErrConflict)

	creds, err := env.Issuer.Issue(ctx, owner, "device-a")
	require.NoError(t, err)
	ownerToken, err := env.Issuer.IssueAccessToken(owner)
	require.NoError(t, err)

	deleted, err := env.Users.DeleteUser(ctx, owner.ID, ownerToken)
	require.NoError(t, err)
	assert.Equal(t, owner.ID.String(), deleted.ID)

	// cascade: refresh tokens are gone
	_, err = env.Issuer.Refresh(ctx, creds.RefreshToken, "device-a")
	assert.ErrorIs(t, err, status.ErrUnauthorized)

	_, err = env.Users.DeleteUser(ctx, owner.ID, adminToken)
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestSignup_DispatchesSideEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext()

	index := &fakeIndex{}
	notifier := &fakeNotifier{}
	events := &fakeEvents{}
	runner := newTestRunner()
	env.Users.Index = index
	env.Users.Notifier = notifier
	env.Users.Events = events
	env.Users.Tasks = runner

	res, err := env.Users.Signup(ctx, SignupInput{
		Email:    "a@x.com",
		Password: "pw123456",
		Name:     "A",
		Surname:  "B",
	})
	require.NoError(t, err)

	runner.Wait()

	require.Len(t, index.upserts, 1)
	assert.Equal(t, res.User.ID, index.upserts[0].ID)
	require.Len(t, notifier.welcomes, 1)
	assert.Equal(t, "a@x.com", notifier.welcomes[0])
	require.Len(t, events.created, 1)
	assert.Equal(t, res.User.ID, events.created[0])
}
