package models

import (
	"time"

	"github.com/wms/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User aggregate root
type UserModel struct {
	BaseModel
	Username            string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	Email               string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash        string     `gorm:"type:varchar(255);not null"`
	Role                string     `gorm:"type:varchar(30);not null;index"`
	LastLogin           *time.Time `gorm:"column:last_login"`
	FailedAttempts      int        `gorm:"not null;default:0"`
	LockedUntil         *time.Time `gorm:"column:locked_until"`
	ResetTokenHash      *string    `gorm:"type:varchar(64);index"`
	ResetTokenExpiresAt *time.Time `gorm:"column:reset_token_expires_at"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot:   m.aggregateRoot(),
		Username:            m.Username,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		Role:                identity.Role(m.Role),
		LastLogin:           m.LastLogin,
		FailedAttempts:      m.FailedAttempts,
		LockedUntil:         m.LockedUntil,
		ResetTokenHash:      m.ResetTokenHash,
		ResetTokenExpiresAt: m.ResetTokenExpiresAt,
	}
}

// FromDomain populates the persistence model from a domain User entity
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainBaseEntity(u.BaseEntity)
	m.Username = u.Username
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Role = string(u.Role)
	m.LastLogin = u.LastLogin
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.ResetTokenHash = u.ResetTokenHash
	m.ResetTokenExpiresAt = u.ResetTokenExpiresAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
