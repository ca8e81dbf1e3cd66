// Package users manages delegated accounts: invitation, activation,
// role assignment and per-user permission overrides.
package users

import (
	"time"

	"github.com/daniry/backoffice/internal/identity"
)

// RoleRef is a role assignment as seen from a user.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the management view of a delegated account.
type User struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Status    identity.Status `json:"status"`
	Roles     []RoleRef       `json:"roles"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Override is a per-user permission override as exposed over the API.
type Override struct {
	Slug    string `json:"slug"`
	Granted bool   `json:"granted"`
}

// Detail adds the override list to the management view.
type Detail struct {
	User
	Overrides []Override `json:"permissionOverrides"`
}

// Invitation is what a holder of an invitation token learns before
// setting a password.
type Invitation struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	RequiresTempPassword bool   `json:"requiresTempPassword"`
}
