// Package policy decides whether an authenticated actor may touch a resource.
package policy

import (
	"taskmanager/internal/model"

	"github.com/google/uuid"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allow Decision = iota
	ForbidNotOwner
	ForbidNotAdmin
)

func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case ForbidNotOwner:
		return "forbid_not_owner"
	case ForbidNotAdmin:
		return "forbid_not_admin"
	}
	return "unknown"
}

// CanAccess allows admins and the owner of the resource.
func CanAccess(actorRole model.Role, actorID, ownerID uuid.UUID) Decision {
	if actorRole == model.RoleAdmin {
		return Allow
	}
	if actorID != uuid.Nil && actorID == ownerID {
		return Allow
	}
	return ForbidNotOwner
}

// RequireAdmin allows admins only.
func RequireAdmin(actorRole model.Role) Decision {
	if actorRole == model.RoleAdmin {
		return Allow
	}
	return ForbidNotAdmin
}
