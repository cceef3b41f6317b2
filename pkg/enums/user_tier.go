package enums

import "fmt"

// UserTier is the reseller hierarchy level used for commission rates.
type UserTier string

const (
	UserTierAgent       UserTier = "agent"
	UserTierSuperAgent  UserTier = "super_agent"
	UserTierDealer      UserTier = "dealer"
	UserTierSuperDealer UserTier = "super_dealer"
)

var validUserTiers = []UserTier{
	UserTierAgent,
	UserTierSuperAgent,
	UserTierDealer,
	UserTierSuperDealer,
}

// String implements fmt.Stringer.
func (t UserTier) String() string {
	return string(t)
}

// IsValid reports whether the value is a known UserTier.
func (t UserTier) IsValid() bool {
	for _, candidate := range validUserTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseUserTier converts raw input into a UserTier.
func ParseUserTier(value string) (UserTier, error) {
	for _, candidate := range validUserTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user tier %q", value)
}

// Role is the access role carried in access tokens.
type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

var validRoles = []Role{RoleAgent, RoleAdmin}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
