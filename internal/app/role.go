// Path: internal/app/role.go
package app

import "fmt"

// Role selects which services a process runs.
type Role string

const (
	RolePlayer   Role = "player"
	RoleGame     Role = "game"
	RoleRequest  Role = "request"
	RoleRealtime Role = "realtime"
	RoleAll      Role = "all"
)

// ParseRole validates a --service flag value.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RolePlayer, RoleGame, RoleRequest, RoleRealtime, RoleAll:
		return r, nil
	}
	return "", fmt.Errorf("unknown service %q (want player, game, request, realtime or all)", s)
}

func (r Role) runs(other Role) bool {
	return r == RoleAll || r == other
}
