package identity

import (
	"github.com/google/uuid"

	"github.com/adhamNemr/nemr-store/pkg/enums"
)

// Actor is the authenticated caller as seen by the core services. Token
// parsing and session handling happen upstream; services only consume the
// resolved id and role.
type Actor struct {
	ID   uuid.UUID
	Role enums.Role
}

// Known reports whether the actor carries a usable identity.
func (a Actor) Known() bool {
	return a.ID != uuid.Nil && a.Role.IsValid()
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// IsSeller reports whether the actor holds the seller role.
func (a Actor) IsSeller() bool {
	return a.Role == enums.RoleSeller
}
