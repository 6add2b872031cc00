package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assetflow/backend/internal/domain"
)

func TestHasPermission_LiteralMatch(t *testing.T) {
	assert.True(t, HasPermission([]string{"asset.read"}, "asset.read"))
	assert.False(t, HasPermission([]string{"asset.read"}, "asset.update"))
}

func TestHasPermission_GlobalWildcard(t *testing.T) {
	assert.True(t, HasPermission([]string{"*"}, "anything.at.all"))
}

func TestHasPermission_ResourceWildcard(t *testing.T) {
	granted := []string{"asset.*"}
	assert.True(t, HasPermission(granted, "asset.read"))
	assert.True(t, HasPermission(granted, "asset.transition"))
	assert.False(t, HasPermission(granted, "loan.read"))
	// The wildcard requires the dot boundary.
	assert.False(t, HasPermission(granted, "assets.read"))
}

func TestHasPermission_EmptyGrantSet(t *testing.T) {
	assert.False(t, HasPermission(nil, "asset.read"))
}

func TestRequireLevel(t *testing.T) {
	supervisor := &domain.UserClaims{RoleLevel: domain.RoleLevelSupervisor}

	assert.NoError(t, RequireLevel(supervisor, domain.RoleLevelSupervisor))
	assert.NoError(t, RequireLevel(supervisor, domain.RoleLevelUser))

	err := RequireLevel(supervisor, domain.RoleLevelManager)
	assert.Error(t, err)
	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}
