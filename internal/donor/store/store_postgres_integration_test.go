//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bloodlink/internal/donor/service"
	"bloodlink/pkg/testutil/containers"
)

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)

	bs := &backendSuite{}
	bs.newBackend = func() (inspectable, service.StoreTx) {
		ctx := context.Background()
		s := NewPostgres(pg.DB)
		require.NoError(bs.T(), s.Migrate(ctx))
		require.NoError(bs.T(), pg.TruncateTables(ctx, "donor_history", "donations", "donors"))
		return s, NewSQLTx(s, 0)
	}
	suite.Run(t, bs)
}
