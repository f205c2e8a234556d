// Package domain contains core types for resolving the caller of a request.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is the authenticated caller. Identity is owned by the identity
// subsystem; this engine only reads it.
type User struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin)
}

// Token is a row of auth_tokens. Only the sha256 of a token is stored.
type Token struct {
	TokenHash string     `gorm:"column:token_hash;primaryKey"`
	UserID    string     `gorm:"column:user_id;not null"`
	Role      string     `gorm:"column:role;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
}

// TableName sets the database table name.
func (Token) TableName() string { return "auth_tokens" }

// HashToken returns the stored form of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
