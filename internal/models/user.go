package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleModerator UserRole = "MODERATOR"
	RoleExpert    UserRole = "EXPERT"
)

// CanModerate reports whether the role may approve, reject or re-route.
func (r UserRole) CanModerate() bool {
	return r == RoleAdmin || r == RoleModerator
}

// User represents an application user stored in the users table.
// ReputationScore, Incentive and Penalty are monotonic accumulators mutated
// by review outcomes; IsBlocked gates further allocation.
type User struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	FullName        string     `db:"full_name" json:"full_name"`
	Role            UserRole   `db:"role" json:"role"`
	ReputationScore int        `db:"reputation_score" json:"reputation_score"`
	Incentive       int        `db:"incentive" json:"incentive"`
	Penalty         int        `db:"penalty" json:"penalty"`
	IsBlocked       bool       `db:"is_blocked" json:"is_blocked"`
	Active          bool       `db:"active" json:"active"`
	LastLogin       *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Blocked   *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
