package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/leave/memory"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, Seed(ctx, store, "STANDARD"))
	require.NoError(t, Seed(ctx, store, "STANDARD"))

	types, err := store.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, len(defaultLeaveTypes))

	ents, err := store.ListEntitlements(ctx)
	require.NoError(t, err)
	assert.Len(t, ents, len(defaultEntitlements))

	sick, err := store.GetLeaveTypeByCode(ctx, "SICK")
	require.NoError(t, err)
	assert.True(t, sick.AllowPostLeave)

	cfg, err := store.FindApprovalConfigByCode(ctx, "STANDARD")
	require.NoError(t, err)
	assert.True(t, cfg.HROverride)
	require.Len(t, cfg.Levels, 2)
}
