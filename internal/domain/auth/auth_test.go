package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1", EmployeeID: "e1", RoleName: RoleManager}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "e1", claims.EmployeeID)
	assert.Equal(t, RoleManager, claims.RoleName)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other", token)
	assert.Error(t, err)
}

func TestStaticPermissions(t *testing.T) {
	perms := StaticPermissions{}

	ok, err := perms.HasPermission(context.Background(), RoleHR, PermLeaveConfigure)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = perms.HasPermission(context.Background(), RoleEmployee, PermLeaveApprove)
	require.NoError(t, err)
	assert.False(t, ok)
}
