package auth

// Role is the authority carried by a bearer token
type Role string

const (
	RoleSeller    Role = "seller"
	RoleAdmin     Role = "admin"
	RoleInspector Role = "inspector"
	RoleSystem    Role = "system"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleSeller, RoleAdmin, RoleInspector, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who performed an action
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// System is the actor used by background jobs and service callbacks
func System(id string) Actor {
	return Actor{ID: id, Role: RoleSystem}
}

// Is reports whether the actor holds one of the given roles
func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Label renders the actor for activity log entries
func (a Actor) Label() string {
	if a.ID == "" {
		return string(a.Role)
	}
	return string(a.Role) + ":" + a.ID
}
