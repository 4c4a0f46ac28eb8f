// Package auth provides the capability hook the engine consults for
// role-gated operations. Real authorization (identity, sessions) is an
// external concern.
package auth

import "dispatch-engine/internal/ports"

// StaticRoleAuthorizer grants actions to a fixed set of roles.
type StaticRoleAuthorizer struct {
	// action -> roles allowed to perform it. Actions absent from the map are
	// open to any actor.
	Grants map[string][]string
}

// NewDefaultAuthorizer gates event deletion to elevated roles.
func NewDefaultAuthorizer() *StaticRoleAuthorizer {
	return &StaticRoleAuthorizer{
		Grants: map[string][]string{
			"dispatch.delete": {"admin", "terminal_manager"},
		},
	}
}

func (a *StaticRoleAuthorizer) Can(actor ports.Actor, action string) bool {
	roles, gated := a.Grants[action]
	if !gated {
		return true
	}
	for _, role := range roles {
		if actor.Role == role {
			return true
		}
	}
	return false
}
