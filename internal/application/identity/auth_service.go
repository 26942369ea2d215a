package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
	ResetTokenTTL    time.Duration // How long a password reset token stays valid
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
		ResetTokenTTL:    time.Hour,
	}
}

// PasswordResetMailer delivers password reset tokens
type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, to, username, token string) error
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	mailer     PasswordResetMailer
	config     AuthServiceConfig
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	defaults := DefaultAuthServiceConfig()
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = defaults.ResetTokenTTL
	}
	if config.LockDuration <= 0 {
		config.LockDuration = defaults.LockDuration
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		config:     config,
		logger:     logger,
	}
}

// SetMailer sets the mailer for password reset tokens
func (s *AuthService) SetMailer(mailer PasswordResetMailer) {
	s.mailer = mailer
}

// Register creates a read-only account; administrators grant other roles later
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Username or email is already registered")
	}

	user, err := identity.NewUser(username, email, req.Password, identity.RoleReadOnly)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	resp := ToUserResponse(user)
	return &resp, nil
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)

	// Find user by username
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			s.logger.Warn("Login for unknown user", zap.String("username", username))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.IsLocked() {
		s.logger.Warn("Login attempt for locked account", zap.String("username", username))
		return nil, shared.NewDomainError(shared.CodeAccountLocked, "Account is locked. Please try again later").
			WithDetail("locked_until", user.LockedUntil.UTC().Format(time.RFC3339))
	}

	// Verify password
	if !user.VerifyPassword(req.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("username", username),
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError(shared.CodeAccountLocked, "Too many failed login attempts. Account has been locked")
		}

		s.logger.Warn("Invalid password attempt",
			zap.String("username", username),
			zap.Int("failed_attempts", user.FailedAttempts))
		return nil, shared.ErrInvalidCredentials
	}

	pair, err := s.jwtService.GenerateTokenPair(subjectOf(user))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError(shared.CodeInternal, "Failed to generate authentication tokens")
	}

	user.RecordLoginSuccess()
	if err := s.userRepo.Update(ctx, user); err != nil {
		// The tokens are valid either way
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role.String()))

	return &LoginResponse{TokenResponse: toTokenResponse(pair), User: ToUserResponse(user)}, nil
}

// RefreshToken issues a new token pair from a valid refresh token.
// The role is re-read from the user so role changes apply on refresh.
func (s *AuthService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeTokenInvalid, "Invalid user ID in token")
	}

	if err := s.checkUserRevoked(ctx, claims); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			return nil, shared.NewDomainError(shared.CodeTokenInvalid, "User no longer exists")
		}
		return nil, err
	}
	if user.IsLocked() {
		return nil, shared.NewDomainError(shared.CodeAccountLocked, "Account is locked")
	}

	pair, err := s.jwtService.RefreshTokenPair(req.RefreshToken, subjectOf(user))
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, tokenError(err)
	}

	resp := toTokenResponse(pair)
	return &resp, nil
}

// Logout revokes the presented access token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if s.blacklist == nil || input.TokenJTI == "" {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, input.TokenJTI, input.TokenTTL); err != nil {
		s.logger.Error("Failed to revoke token on logout",
			zap.String("user_id", input.UserID.String()),
			zap.Error(err))
		return shared.NewDomainError(shared.CodeInternal, "Failed to log out")
	}
	s.logger.Info("User logged out", zap.String("user_id", input.UserID.String()))
	return nil
}

// GetCurrentUser retrieves the authenticated user's profile
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ChangePassword changes a user's password and revokes their other sessions
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.ChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user after password change", zap.Error(err))
		return err
	}

	s.revokeSessions(ctx, user.ID)
	s.logger.Info("User password changed", zap.String("user_id", userID.String()))
	return nil
}

// RequestPasswordReset mails a reset token to the account owner.
// Unknown addresses succeed silently so the endpoint does not reveal which accounts exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := user.IssueResetToken(s.config.ResetTokenTTL)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if s.mailer == nil {
		s.logger.Warn("No mailer configured, password reset token not delivered",
			zap.String("user_id", user.ID.String()))
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, token); err != nil {
		s.logger.Error("Failed to send password reset mail",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return shared.NewDomainError(shared.CodeExternalService, "Failed to send password reset email")
	}

	s.logger.Info("Password reset token issued", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword sets a new password using a mailed reset token
func (s *AuthService) ResetPassword(ctx context.Context, req ConfirmPasswordResetRequest) error {
	invalid := shared.NewDomainError(shared.CodeValidation, "Invalid or expired reset token")

	token := strings.TrimSpace(req.Token)
	if token == "" {
		return invalid
	}
	user, err := s.userRepo.FindByResetTokenHash(ctx, identity.HashResetToken(token))
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			return invalid
		}
		return err
	}

	if err := user.ResetPassword(token, req.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	s.revokeSessions(ctx, user.ID)
	s.logger.Info("Password reset completed", zap.String("user_id", user.ID.String()))
	return nil
}

// ValidateAccessToken checks an access token against signature, expiry and revocations
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, tokenError(err)
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Error("Token blacklist lookup failed", zap.Error(err))
			return nil, shared.NewDomainError(shared.CodeInternal, "Failed to validate token")
		}
		if revoked {
			return nil, shared.NewDomainError(shared.CodeTokenRevoked, "Token has been revoked")
		}
	}
	if err := s.checkUserRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) checkUserRevoked(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil {
		return nil
	}
	revoked, err := s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		s.logger.Error("User revocation lookup failed", zap.Error(err))
		return shared.NewDomainError(shared.CodeInternal, "Failed to validate token")
	}
	if revoked {
		return shared.NewDomainError(shared.CodeTokenRevoked, "Session ended, please log in again")
	}
	return nil
}

// revokeSessions ends every session of the user; failures are logged only
func (s *AuthService) revokeSessions(ctx context.Context, userID uuid.UUID) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.RevokeUser(ctx, userID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Warn("Failed to revoke user sessions", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func subjectOf(user *identity.User) auth.TokenSubject {
	return auth.TokenSubject{UserID: user.ID, Username: user.Username, Role: user.Role}
}

func toTokenResponse(pair *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}

// tokenError maps JWT errors to domain errors
func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError(shared.CodeTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError(shared.CodeTokenMaxRefresh, "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return shared.NewDomainError(shared.CodeTokenRevoked, "Token has been revoked")
	default:
		return shared.NewDomainError(shared.CodeTokenInvalid, "Invalid token")
	}
}
