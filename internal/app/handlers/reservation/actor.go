package reservation

import (
	"errors"
	"strings"
)

var ErrForbidden = errors.New("reservation: actor is not allowed to perform this action")

const RoleAdmin = "admin"

// Actor identifies the authenticated principal requesting a transition. The
// identity layer supplies it; handlers only check ownership and roles.
type Actor struct {
	ID    string
	Roles []string
}

func (a Actor) IsAdmin() bool {
	for _, role := range a.Roles {
		if strings.EqualFold(role, RoleAdmin) {
			return true
		}
	}
	return false
}
