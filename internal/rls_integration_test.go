//go:build integration

package internal

import (
	"context"
	"testing"

	"fieldserve-api/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDBConnSetsTenantSession(t *testing.T) {
	testutil.RequireIntegration(t)
	t.Setenv("RLS_ENABLED", "true")

	db := testutil.NewTestDB(t)
	tenantID := uuid.NewString()

	conn, ctx, err := withDBConn(context.Background(), db, tenantID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	defer conn.Close()

	// The session GUC is visible on the pinned connection
	var got string
	require.NoError(t, conn.QueryRowContext(ctx,
		"SELECT current_setting('app.current_tenant_id', true)").Scan(&got))
	assert.Equal(t, tenantID, got)

	// Handlers resolve the pinned connection from the context
	assert.Equal(t, conn, dbFrom(ctx, db))
}

func TestWithDBConnSkipsWithoutTenant(t *testing.T) {
	testutil.RequireIntegration(t)
	t.Setenv("RLS_ENABLED", "true")

	db := testutil.NewTestDB(t)

	conn, ctx, err := withDBConn(context.Background(), db, "")
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.Equal(t, db, dbFrom(ctx, db))
}
