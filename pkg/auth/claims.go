// Package auth mints and verifies the HS256 access tokens callers present.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/datavend-backend/pkg/enums"
)

// AccessTokenPayload is the identity a token is minted for.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Tier     enums.UserTier
	Role     enums.Role
	JTI      string
}

func (p AccessTokenPayload) validate() error {
	return checkIdentity(p.UserID, p.Role, p.Tier)
}

// AccessTokenClaims is the verified content of a caller's token.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	TenantID uuid.UUID      `json:"tenant_id"`
	Tier     enums.UserTier `json:"tier"`
	Role     enums.Role     `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) validate() error {
	return checkIdentity(c.UserID, c.Role, c.Tier)
}

// IsAdmin reports whether the caller may use the admin surface.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.RoleAdmin
}

// checkIdentity accepts an empty tier; admins carry none.
func checkIdentity(userID uuid.UUID, role enums.Role, tier enums.UserTier) error {
	switch {
	case userID == uuid.Nil:
		return errors.New("user id is required")
	case !role.IsValid():
		return fmt.Errorf("invalid role %q", role)
	case tier != "" && !tier.IsValid():
		return fmt.Errorf("invalid tier %q", tier)
	}
	return nil
}
