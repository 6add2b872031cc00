// Package rbac resolves roles and permissions for authenticated claims.
// Lower role_level means more privilege: 1=super_admin .. 5=user.
package rbac

import (
	"context"
	"log"
	"strings"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/repository"
)

// Resolver answers permission questions. The JWT claim payload carries a
// cached permission set; a miss falls back to a live DB lookup so
// permissions granted after token issue still take effect.
type Resolver struct {
	db     *database.DB
	users  *repository.UserRepository
	logger *log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(db *database.DB, users *repository.UserRepository) *Resolver {
	return &Resolver{
		db:     db,
		users:  users,
		logger: log.New(log.Writer(), "[RBAC] ", log.LstdFlags),
	}
}

// matches reports whether granted covers want: a literal match, the global
// wildcard "*", or a resource wildcard "resource.*".
func matches(granted, want string) bool {
	if granted == want || granted == "*" {
		return true
	}
	if res, ok := strings.CutSuffix(granted, ".*"); ok {
		return strings.HasPrefix(want, res+".")
	}
	return false
}

// HasPermission reports whether any cached grant covers code. It does not
// touch the database; use UserHasPermission for the fallback path.
func HasPermission(cached []string, code string) bool {
	for _, granted := range cached {
		if matches(granted, code) {
			return true
		}
	}
	return false
}

// UserHasPermission checks the cached claim set first, then falls back to
// a live lookup of the user's current grants.
func (r *Resolver) UserHasPermission(ctx context.Context, claims *domain.UserClaims, code string) (bool, error) {
	if HasPermission(claims.Permissions, code) {
		return true, nil
	}
	codes, err := r.users.ListPermissionCodes(ctx, r.db, claims.UserID)
	if err != nil {
		return false, err
	}
	return HasPermission(codes, code), nil
}

// RequirePermission returns a Forbidden error when the claims lack code.
func (r *Resolver) RequirePermission(ctx context.Context, claims *domain.UserClaims, code string) error {
	ok, err := r.UserHasPermission(ctx, claims, code)
	if err != nil {
		return err
	}
	if !ok {
		r.logger.Printf("denied %s for user %s", code, claims.UserID)
		return domain.ErrForbidden("missing permission " + code)
	}
	return nil
}

// RequireLevel returns a Forbidden error when the claims do not meet the
// required role level (lower is more privileged).
func RequireLevel(claims *domain.UserClaims, required int) error {
	if !claims.HasLevel(required) {
		return domain.ErrForbidden("requires role level <= " + levelName(required))
	}
	return nil
}

// ResolvePermissions loads the full grant set for a user, used when
// minting tokens.
func (r *Resolver) ResolvePermissions(ctx context.Context, userID string) ([]string, error) {
	return r.users.ListPermissionCodes(ctx, r.db, userID)
}

func levelName(level int) string {
	switch level {
	case domain.RoleLevelSuperAdmin:
		return "1 (super_admin)"
	case domain.RoleLevelAdmin:
		return "2 (admin)"
	case domain.RoleLevelManager:
		return "3 (manager)"
	case domain.RoleLevelSupervisor:
		return "4 (supervisor)"
	default:
		return "5 (user)"
	}
}
