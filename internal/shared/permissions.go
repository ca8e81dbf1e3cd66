package shared

// Core platform permissions. Slugs follow the module.action convention.
const (
	PermProductsView   = "products.view"
	PermProductsCreate = "products.create"
	PermProductsEdit   = "products.edit"
	PermProductsDelete = "products.delete"

	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"
)

// Wildcard is the universal permission marker held by super admins.
const Wildcard = "*"
