package domain

// Role is the business role of an acting user.
type Role string

const (
	RoleViewer    Role = "viewer"
	RoleStaff     Role = "staff"
	RolePurchaser Role = "purchaser"
	RoleWarehouse Role = "warehouse"
	RoleQuality   Role = "quality"
	RoleManager   Role = "manager"
	RoleDirector  Role = "director"
	RoleAdmin     Role = "admin"
	RoleSystem    Role = "system"
)

// Actor identifies who performs an operation.
type Actor struct {
	ID          string
	DisplayName string
	Role        Role
}

// SystemActor is used for engine-initiated steps such as auto-approval.
var SystemActor = Actor{ID: "system", DisplayName: "System", Role: RoleSystem}

// HasRole reports whether the actor's role is in the set. An empty set admits everyone.
func (a Actor) HasRole(roles []Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == a.Role {
			return true
		}
	}
	return false
}
