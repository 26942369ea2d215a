package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/wms/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Password cost for bcrypt
const bcryptCost = bcrypt.DefaultCost

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// User represents an operator of the warehouse back office
type User struct {
	shared.BaseAggregateRoot
	Username            string
	Email               string
	PasswordHash        string
	Role                Role
	LastLogin           *time.Time
	FailedAttempts      int
	LockedUntil         *time.Time
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time
}

// NewUser creates a new user with a hashed password
func NewUser(username, email, password string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unknown role")
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		Email:             email,
		PasswordHash:      passwordHash,
		Role:              role,
	}, nil
}

// ChangePassword verifies the old password and sets a new one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError(shared.CodeInvalidCredentials, "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword replaces the password hash
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

// VerifyPassword checks if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// SetRole changes the access level
func (u *User) SetRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, "Unknown role")
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

// IsLocked reports whether the account is temporarily locked
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// RecordLoginSuccess clears failure counters and stamps the login time
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLogin = &now
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = now
}

// RecordLoginFailure counts a failed attempt and locks the account once
// maxAttempts is reached. It returns true when the account became locked.
// The count survives the lock; an expired lock starts a new count.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	now := time.Now()
	if u.LockedUntil != nil && !now.Before(*u.LockedUntil) {
		u.LockedUntil = nil
		u.FailedAttempts = 0
	}
	u.FailedAttempts++
	u.UpdatedAt = now

	if maxAttempts > 0 && u.FailedAttempts >= maxAttempts {
		until := now.Add(lockDuration)
		u.LockedUntil = &until
		return true
	}

	return false
}

// IssueResetToken creates a one-time password reset token valid for ttl.
// Only its hash is kept on the user; the plain token is returned to be mailed.
func (u *User) IssueResetToken(ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", shared.NewDomainError(shared.CodeInternal, "Failed to generate reset token")
	}
	token := hex.EncodeToString(buf)
	hash := HashResetToken(token)
	expires := time.Now().Add(ttl)

	u.ResetTokenHash = &hash
	u.ResetTokenExpiresAt = &expires
	u.UpdatedAt = time.Now()

	return token, nil
}

// ResetPassword consumes a reset token and sets the new password
func (u *User) ResetPassword(token, newPassword string) error {
	invalid := shared.NewDomainError(shared.CodeValidation, "Invalid or expired reset token")
	if u.ResetTokenHash == nil || u.ResetTokenExpiresAt == nil {
		return invalid
	}
	if time.Now().After(*u.ResetTokenExpiresAt) {
		return invalid
	}
	if subtle.ConstantTimeCompare([]byte(HashResetToken(token)), []byte(*u.ResetTokenHash)) != 1 {
		return invalid
	}
	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	u.FailedAttempts = 0
	u.LockedUntil = nil
	return nil
}

// HashResetToken returns the stored form of a reset token
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validateUsername(username string) error {
	if username == "" {
		return shared.NewDomainError(shared.CodeValidation, "Username cannot be empty")
	}
	if len(username) < 3 || len(username) > 50 {
		return shared.NewDomainError(shared.CodeValidation, "Username must be between 3 and 50 characters")
	}
	if !usernamePattern.MatchString(username) {
		return shared.NewDomainError(shared.CodeValidation, "Username may contain only letters, digits, dots, underscores and hyphens")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return shared.NewDomainError(shared.CodeValidation, "Password cannot be empty")
	}
	if len(password) < 8 {
		return shared.NewDomainError(shared.CodeValidation, "Password must be at least 8 characters")
	}
	// bcrypt ignores input beyond 72 bytes
	if len(password) > 72 {
		return shared.NewDomainError(shared.CodeValidation, "Password cannot exceed 72 characters")
	}

	hasLetter := regexp.MustCompile(`[a-zA-Z]`).MatchString(password)
	hasNumber := regexp.MustCompile(`[0-9]`).MatchString(password)
	if !hasLetter || !hasNumber {
		return shared.NewDomainError(shared.CodeValidation, "Password must contain at least one letter and one number")
	}

	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError(shared.CodeValidation, "Email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return shared.NewDomainError(shared.CodeValidation, "Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError(shared.CodeInternal, "Failed to hash password")
	}
	return string(hash), nil
}
