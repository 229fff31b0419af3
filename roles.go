package partdime

// Role gates which screens and profile collections are reachable.
type Role string

const (
	// RoleUnset means no role has been chosen yet.
	RoleUnset Role = ""
	// RoleEmployer posts jobs and reviews applicants.
	RoleEmployer Role = "employer"
	// RoleEmployee browses jobs and applies to them.
	RoleEmployee Role = "employee"
)

// IsValid checks if the role is one of the two chosen roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployer, RoleEmployee:
		return true
	default:
		return false
	}
}

// Collection returns the profile collection backing this role.
func (r Role) Collection() string {
	switch r {
	case RoleEmployer:
		return CollectionEmployers
	case RoleEmployee:
		return CollectionEmployees
	default:
		return ""
	}
}

// ParseRole safely parses a string into a Role. Unknown values come back as
// RoleUnset with ok=false.
func ParseRole(s string) (Role, bool) {
	role := Role(s)
	if role.IsValid() {
		return role, true
	}
	return RoleUnset, false
}
