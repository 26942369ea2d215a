package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/persistence/persistencetest"
	"go.uber.org/zap"
)

type recordingMailer struct {
	to    string
	token string
	err   error
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, _ string, token string) error {
	m.to = to
	m.token = token
	return m.err
}

type authFixture struct {
	repo      identity.UserRepository
	service   *AuthService
	users     *UserService
	blacklist *auth.InMemoryTokenBlacklist
	mailer    *recordingMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repo := persistence.NewGormUserRepository(persistencetest.NewDB(t))
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "wms-test",
		MaxRefreshCount:        3,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	service := NewAuthService(repo, jwtService, blacklist, AuthServiceConfig{
		MaxLoginAttempts: 3,
		LockDuration:     time.Minute,
		ResetTokenTTL:    time.Hour,
	}, zap.NewNop())
	mailer := &recordingMailer{}
	service.SetMailer(mailer)

	return &authFixture{
		repo:      repo,
		service:   service,
		users:     NewUserService(repo, zap.NewNop()),
		blacklist: blacklist,
		mailer:    mailer,
	}
}

func (f *authFixture) seedUser(t *testing.T, username string, role identity.Role) *identity.User {
	t.Helper()
	user, err := identity.NewUser(username, username+"@example.com", "password123", role)
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(context.Background(), user))
	return user
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.service.Register(ctx, RegisterRequest{
		Username: "packer",
		Email:    "Packer@Example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "packer", resp.Username)
	assert.Equal(t, "packer@example.com", resp.Email)
	assert.Equal(t, "READONLY_USER", resp.Role)

	_, err = f.service.Register(ctx, RegisterRequest{Username: "packer", Email: "other@example.com", Password: "password123"})
	assert.True(t, shared.IsCode(err, shared.CodeAlreadyExists))

	_, err = f.service.Register(ctx, RegisterRequest{Username: "other", Email: "packer@example.com", Password: "password123"})
	assert.True(t, shared.IsCode(err, shared.CodeAlreadyExists))

	_, err = f.service.Register(ctx, RegisterRequest{Username: "weak", Email: "weak@example.com", Password: "passwordonly"})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "manager", identity.RoleWarehouseManager)

	resp, err := f.service.Login(ctx, LoginRequest{Username: "manager", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, user.ID, resp.User.ID)
	require.NotNil(t, resp.User.LastLogin)

	claims, err := f.service.ValidateAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleWarehouseManager, claims.GetRole())

	_, err = f.service.Login(ctx, LoginRequest{Username: "nobody", Password: "password123"})
	assert.True(t, errors.Is(err, shared.ErrInvalidCredentials))
}

func TestAuthService_LoginLockout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "staff", identity.RoleWarehouseStaff)

	for i := 0; i < 2; i++ {
		_, err := f.service.Login(ctx, LoginRequest{Username: "staff", Password: "wrong-pass1"})
		assert.True(t, shared.IsCode(err, shared.CodeInvalidCredentials))
	}
	_, err := f.service.Login(ctx, LoginRequest{Username: "staff", Password: "wrong-pass1"})
	assert.True(t, shared.IsCode(err, shared.CodeAccountLocked))

	// Correct password is still rejected while locked
	_, err = f.service.Login(ctx, LoginRequest{Username: "staff", Password: "password123"})
	assert.True(t, shared.IsCode(err, shared.CodeAccountLocked))

	stored, err := f.repo.FindByUsername(ctx, "staff")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.FailedAttempts)
	assert.True(t, stored.IsLocked())
}

func TestAuthService_LoginResetsFailureCount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "staff", identity.RoleWarehouseStaff)

	_, err := f.service.Login(ctx, LoginRequest{Username: "staff", Password: "wrong-pass1"})
	require.Error(t, err)
	_, err = f.service.Login(ctx, LoginRequest{Username: "staff", Password: "password123"})
	require.NoError(t, err)

	stored, err := f.repo.FindByUsername(ctx, "staff")
	require.NoError(t, err)
	assert.Zero(t, stored.FailedAttempts)
}

func TestAuthService_RefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "staff", identity.RoleWarehouseStaff)

	login, err := f.service.Login(ctx, LoginRequest{Username: "staff", Password: "password123"})
	require.NoError(t, err)

	// Promotion takes effect on the next refresh
	_, err = f.users.UpdateRole(ctx, user.ID, UpdateRoleRequest{Role: "WAREHOUSE_MANAGER"}, uuid.New())
	require.NoError(t, err)

	refreshed, err := f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)

	claims, err := f.service.ValidateAccessToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleWarehouseManager, claims.GetRole())

	_, err = f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: "garbage"})
	assert.True(t, shared.IsCode(err, shared.CodeTokenInvalid))

	_, err = f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: login.AccessToken})
	assert.True(t, shared.IsCode(err, shared.CodeTokenInvalid))
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "staff", identity.RoleWarehouseStaff)

	login, err := f.service.Login(ctx, LoginRequest{Username: "staff", Password: "password123"})
	require.NoError(t, err)
	claims, err := f.service.ValidateAccessToken(ctx, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, LogoutInput{
		UserID:   user.ID,
		TokenJTI: claims.ID,
		TokenTTL: claims.GetRemainingTTL(),
	}))

	_, err = f.service.ValidateAccessToken(ctx, login.AccessToken)
	assert.True(t, shared.IsCode(err, shared.CodeTokenRevoked))
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "staff", identity.RoleWarehouseStaff)

	login, err := f.service.Login(ctx, LoginRequest{Username: "staff", Password: "password123"})
	require.NoError(t, err)

	err = f.service.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "wrong-pass1", NewPassword: "newpass456"})
	assert.True(t, shared.IsCode(err, shared.CodeInvalidCredentials))

	require.NoError(t, f.service.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newpass456"}))

	// Sessions issued before the change are ended
	_, err = f.service.ValidateAccessToken(ctx, login.AccessToken)
	assert.True(t, shared.IsCode(err, shared.CodeTokenRevoked))
	_, err = f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.True(t, shared.IsCode(err, shared.CodeTokenRevoked))

	_, err = f.service.Login(ctx, LoginRequest{Username: "staff", Password: "password123"})
	assert.True(t, shared.IsCode(err, shared.CodeInvalidCredentials))
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "staff", identity.RoleWarehouseStaff)

	// Unknown addresses succeed without mailing anything
	require.NoError(t, f.service.RequestPasswordReset(ctx, PasswordResetRequest{Email: "ghost@example.com"}))
	assert.Empty(t, f.mailer.token)

	require.NoError(t, f.service.RequestPasswordReset(ctx, PasswordResetRequest{Email: "Staff@Example.com"}))
	assert.Equal(t, "staff@example.com", f.mailer.to)
	require.NotEmpty(t, f.mailer.token)

	err := f.service.ResetPassword(ctx, ConfirmPasswordResetRequest{Token: "not-the-token", NewPassword: "newpass456"})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	require.NoError(t, f.service.ResetPassword(ctx, ConfirmPasswordResetRequest{Token: f.mailer.token, NewPassword: "newpass456"}))

	// Tokens are single use
	err = f.service.ResetPassword(ctx, ConfirmPasswordResetRequest{Token: f.mailer.token, NewPassword: "another789"})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = f.service.Login(ctx, LoginRequest{Username: "staff", Password: "newpass456"})
	assert.NoError(t, err)
}

func TestAuthService_PasswordResetMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "staff", identity.RoleWarehouseStaff)
	f.mailer.err = errors.New("smtp down")

	err := f.service.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "staff@example.com"})
	assert.True(t, shared.IsCode(err, shared.CodeExternalService))
}

func TestUserService_UpdateRole(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin", identity.RoleAdmin)
	staff := f.seedUser(t, "staff", identity.RoleWarehouseStaff)

	_, err := f.users.UpdateRole(ctx, admin.ID, UpdateRoleRequest{Role: "WAREHOUSE_STAFF"}, admin.ID)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))

	_, err = f.users.UpdateRole(ctx, staff.ID, UpdateRoleRequest{Role: "SUPERUSER"}, admin.ID)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	resp, err := f.users.UpdateRole(ctx, staff.ID, UpdateRoleRequest{Role: "ADMIN"}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", resp.Role)

	// With a second administrator the first may step down
	resp, err = f.users.UpdateRole(ctx, admin.ID, UpdateRoleRequest{Role: "WAREHOUSE_MANAGER"}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "WAREHOUSE_MANAGER", resp.Role)

	_, err = f.users.UpdateRole(ctx, uuid.New(), UpdateRoleRequest{Role: "ADMIN"}, admin.ID)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestUserService_ListUsers(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "admin", identity.RoleAdmin)
	f.seedUser(t, "staff1", identity.RoleWarehouseStaff)
	f.seedUser(t, "staff2", identity.RoleWarehouseStaff)

	page, err := f.users.ListUsers(ctx, UserListFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.TotalPages)

	page, err = f.users.ListUsers(ctx, UserListFilter{Role: "warehouse_staff"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = f.users.ListUsers(ctx, UserListFilter{Role: "ROOT"})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}
