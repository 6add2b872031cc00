package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/domain"
)

func testService(secret string) *Service {
	return NewService(nil, nil, nil, secret, 1)
}

func testUser() *domain.User {
	return &domain.User{
		ID:        "user-1",
		Email:     "tech@example.com",
		Name:      "Field Tech",
		RoleCode:  "technician",
		RoleLevel: domain.RoleLevelUser,
		OrgID:     "org-1",
	}
}

func TestMintVerify_Roundtrip(t *testing.T) {
	svc := testService("test-secret")
	token, expiresAt, err := svc.mint(testUser(), []string{"asset.read", "workorder.*"})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tech@example.com", claims.Email)
	assert.Equal(t, "technician", claims.RoleCode)
	assert.Equal(t, domain.RoleLevelUser, claims.RoleLevel)
	assert.Equal(t, "org-1", claims.OrgID)
	assert.Equal(t, []string{"asset.read", "workorder.*"}, claims.Permissions)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, _, err := testService("secret-a").mint(testUser(), nil)
	require.NoError(t, err)

	_, err = testService("secret-b").Verify(token)
	assert.Error(t, err)
	var unauth *domain.UnauthorizedError
	assert.ErrorAs(t, err, &unauth)
}

func TestVerify_ExpiredToken(t *testing.T) {
	svc := testService("test-secret")
	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, _, err := svc.mint(testUser(), nil)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerify_Garbage(t *testing.T) {
	_, err := testService("test-secret").Verify("not.a.token")
	assert.Error(t, err)
}

func TestVerify_EmptyToken(t *testing.T) {
	_, err := testService("test-secret").Verify("")
	assert.Error(t, err)
}
