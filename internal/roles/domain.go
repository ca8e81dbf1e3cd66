// Package roles manages the role catalog and the permission grants
// attached to each role.
package roles

import "time"

// Permission is one entry of the permission catalog.
type Permission struct {
	ID     int64  `json:"id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Module string `json:"module"`
}

// Role is the catalog view of a role.
type Role struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PermissionCount int64     `json:"permissionCount"`
	UserCount       int64     `json:"userCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Detail adds the granted permission slugs to the catalog view.
type Detail struct {
	Role
	Permissions []string `json:"permissions"`
}
