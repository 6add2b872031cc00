package domain

import "time"

// Role levels: lower number means more privilege.
const (
	RoleLevelSuperAdmin = 1
	RoleLevelAdmin      = 2
	RoleLevelManager    = 3
	RoleLevelSupervisor = 4
	RoleLevelUser       = 5
)

// Role is a named privilege tier.
type Role struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	RoleLevel int    `json:"role_level"`
}

// Permission is a grantable action code shaped resource.action.
type Permission struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// User is an authenticated principal.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	RoleCode     string     `json:"role_code"`
	RoleLevel    int        `json:"role_level"`
	DepartmentID string     `json:"department_id,omitempty"`
	OrgID        string     `json:"org_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	CanApproveTS bool       `json:"can_approve_timesheet"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserClaims is the resolved identity attached to a request after JWT
// verification. Permissions is an advisory cache; a miss falls back to a
// live lookup so freshly granted permissions still work.
type UserClaims struct {
	UserID      string   `json:"sub"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	RoleCode    string   `json:"role"`
	RoleLevel   int      `json:"role_level"`
	Department  string   `json:"department,omitempty"`
	OrgID       string   `json:"org,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// IsSuperAdmin reports whether the claims bypass organization scoping.
func (c *UserClaims) IsSuperAdmin() bool {
	return c.RoleLevel == RoleLevelSuperAdmin
}

// HasLevel reports whether the claims meet the required role level
// (lower is more privileged).
func (c *UserClaims) HasLevel(required int) bool {
	return c.RoleLevel <= required
}

// Notification is a persisted per-user message.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}
