package identity

import "time"

// Status is the lifecycle state of a delegated user account.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Admin is a super-admin account from the admins table.
type Admin struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User is a delegated account from the users table. PasswordHash is
// empty until the invitation flow activates the account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
