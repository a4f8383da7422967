package model

import "time"

// Roles stored in users.role and in the "role" JWT claim.
const (
	RoleSuperuser   = "SUPERUSER"
	RoleCoordinator = "COORDINATOR"
	RoleStudent     = "STUDENT"
)

// User represents an identity record as stored in the `users` table.
// Students get one on their first verified login; coordinators are created
// by a superuser or auto-provisioned when an event is created without one.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name; the normalized email for students.
//	Email        – contact address, lower-cased.
//	PasswordHash – bcrypt hash. Students receive an unusable random secret.
//	Role         – one of SUPERUSER, COORDINATOR or STUDENT.
//	IsActive     – whether the account may sign in.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStaff reports whether the user can manage events.
func (u User) IsStaff() bool {
	return u.Role == RoleSuperuser || u.Role == RoleCoordinator
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
