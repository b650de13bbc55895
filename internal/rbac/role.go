package rbac

import "fmt"

// Role is one of the fixed OneFlow roles. Values are persisted verbatim in users.role.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleTeamMember     Role = "TEAM_MEMBER"
	RoleSalesFinance   Role = "SALES_FINANCE"
)

// AllRoles returns every known role in display order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleProjectManager, RoleTeamMember, RoleSalesFinance}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleTeamMember, RoleSalesFinance:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a stored or user supplied value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RoleSet is an immutable set of roles used by authorization checks.
type RoleSet struct {
	roles map[Role]struct{}
}

func NewRoleSet(roles ...Role) RoleSet {
	set := RoleSet{roles: make(map[Role]struct{}, len(roles))}
	for _, r := range roles {
		set.roles[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(r Role) bool {
	_, ok := s.roles[r]
	return ok
}

// Roles returns the members of the set in AllRoles order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.roles))
	for _, r := range AllRoles() {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}
