package identity

// Role is the access level of a user
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleWarehouseManager Role = "WAREHOUSE_MANAGER"
	RoleWarehouseStaff   Role = "WAREHOUSE_STAFF"
	RoleReadOnly         Role = "READONLY_USER"
)

// AllRoles lists the roles in descending order of privilege
var AllRoles = []Role{RoleAdmin, RoleWarehouseManager, RoleWarehouseStaff, RoleReadOnly}

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleWarehouseManager, RoleWarehouseStaff, RoleReadOnly:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// In reports whether r is one of roles
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// Role groups used by route guards
var (
	// ManagerRoles may change catalog, orders and run syncs
	ManagerRoles = []Role{RoleAdmin, RoleWarehouseManager}
	// OperatorRoles may additionally adjust stock and fulfill orders
	OperatorRoles = []Role{RoleAdmin, RoleWarehouseManager, RoleWarehouseStaff}
)
