package models

import (
	"time"
)

type User struct {
	ID        string     `json:"id" db:"id"`
	TenantID  string     `json:"tenant_id" db:"tenant_id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	IsAdmin   bool       `json:"is_admin" db:"is_admin"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	LastLogin *time.Time `json:"last_login" db:"last_login"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Identity is the resolved caller of an authenticated request: the API
// key's user plus the tenant the key belongs to.
type Identity struct {
	User   User
	Tenant Tenant
}
