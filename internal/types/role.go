// README: Role hierarchy as an ordered enum; minimum-role checks are a single comparison.
package types

type Role int

const (
	RoleTransporter Role = 1
	RoleDispatcher  Role = 2
	RoleSupervisor  Role = 3
	RoleManager     Role = 4
)

func (r Role) AtLeast(min Role) bool {
	return r >= min
}

func (r Role) String() string {
	switch r {
	case RoleTransporter:
		return "transporter"
	case RoleDispatcher:
		return "dispatcher"
	case RoleSupervisor:
		return "supervisor"
	case RoleManager:
		return "manager"
	default:
		return "unknown"
	}
}

// ParseRole maps a role name to its level. Unknown names resolve to zero,
// which fails every AtLeast check.
func ParseRole(s string) Role {
	switch s {
	case "transporter":
		return RoleTransporter
	case "dispatcher":
		return RoleDispatcher
	case "supervisor":
		return RoleSupervisor
	case "manager":
		return RoleManager
	default:
		return 0
	}
}
