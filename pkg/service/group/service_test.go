package group

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxy-health/zkid-service/config"
	"github.com/praxy-health/zkid-service/internal/merkle"
	"github.com/praxy-health/zkid-service/pkg/service/registry"
	"github.com/praxy-health/zkid-service/pkg/testutil"
)

func link(t *testing.T, service *registry.Service, id, given, family, commitment string) {
	_, err := service.Link(context.Background(), registry.LinkRequest{
		CredentialID: id,
		GivenName:    given,
		FamilyName:   family,
		Commitment:   commitment,
	})
	require.NoError(t, err)
}

func TestCurrentGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("empty registry", func(t *testing.T) {
		registryService := testutil.NewTestRegistry(t, nil)
		service, err := NewGroupService(config.GroupServiceConfig{}, registryService)
		require.NoError(t, err)

		group, err := service.CurrentGroup(ctx)
		assert.True(t, errors.Is(err, ErrEmptyGroup))
		assert.Nil(t, group)
	})

	t.Run("single member root is the commitment", func(t *testing.T) {
		registryService := testutil.NewTestRegistry(t, nil)
		link(t, registryService, "MN-118951", "Claudia", "Gutierrez", "123456789")

		service, err := NewGroupService(config.GroupServiceConfig{}, registryService)
		require.NoError(t, err)

		group, err := service.CurrentGroup(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"123456789"}, group.Members)
		assert.Zero(t, group.Root.Cmp(big.NewInt(123456789)))
		assert.Zero(t, group.Depth)
	})

	t.Run("root matches the merkle tree over members in insertion order", func(t *testing.T) {
		registryService := testutil.NewTestRegistry(t, nil)
		link(t, registryService, "MN-118951", "Claudia", "Gutierrez", "5")
		link(t, registryService, "CA-220042", "Marcus", "Webb", "3")
		link(t, registryService, "NY-774410", "Priya", "Raman", "8")

		service, err := NewGroupService(config.GroupServiceConfig{}, registryService)
		require.NoError(t, err)

		group, err := service.CurrentGroup(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"5", "3", "8"}, group.Members)
		assert.Equal(t, 2, group.Depth)

		expected, err := merkle.Root([]*big.Int{big.NewInt(5), big.NewInt(3), big.NewInt(8)})
		require.NoError(t, err)
		assert.Zero(t, group.Root.Cmp(expected))
	})

	t.Run("root is deterministic across calls", func(t *testing.T) {
		registryService := testutil.NewTestRegistry(t, nil)
		link(t, registryService, "MN-118951", "Claudia", "Gutierrez", "5")
		link(t, registryService, "CA-220042", "Marcus", "Webb", "3")

		service, err := NewGroupService(config.GroupServiceConfig{}, registryService)
		require.NoError(t, err)

		first, err := service.CurrentGroup(ctx)
		require.NoError(t, err)
		second, err := service.CurrentGroup(ctx)
		require.NoError(t, err)
		assert.Zero(t, first.Root.Cmp(second.Root))
	})

	t.Run("group reflects revocation", func(t *testing.T) {
		registryService := testutil.NewTestRegistry(t, nil)
		link(t, registryService, "MN-118951", "Claudia", "Gutierrez", "5")
		link(t, registryService, "CA-220042", "Marcus", "Webb", "3")

		service, err := NewGroupService(config.GroupServiceConfig{}, registryService)
		require.NoError(t, err)

		before, err := service.CurrentGroup(ctx)
		require.NoError(t, err)

		deleted, err := registryService.Revoke(ctx, "CA-220042")
		require.NoError(t, err)
		require.True(t, deleted)

		after, err := service.CurrentGroup(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"5"}, after.Members)
		assert.NotZero(t, before.Root.Cmp(after.Root))
	})
}

func TestGroupCache(t *testing.T) {
	ctx := context.Background()

	t.Run("mutations invalidate the cache immediately", func(t *testing.T) {
		registryService := testutil.NewTestRegistry(t, nil)
		link(t, registryService, "MN-118951", "Claudia", "Gutierrez", "5")

		service, err := NewGroupService(config.GroupServiceConfig{CacheTTL: time.Minute}, registryService)
		require.NoError(t, err)

		before, err := service.CurrentGroup(ctx)
		require.NoError(t, err)

		link(t, registryService, "CA-220042", "Marcus", "Webb", "3")

		after, err := service.CurrentGroup(ctx)
		require.NoError(t, err)
		assert.Len(t, after.Members, 2)
		assert.NotZero(t, before.Root.Cmp(after.Root))
	})

	t.Run("staleness is bounded by the ttl", func(t *testing.T) {
		registryService := testutil.NewTestRegistry(t, nil)
		link(t, registryService, "MN-118951", "Claudia", "Gutierrez", "5")

		service, err := NewGroupService(config.GroupServiceConfig{CacheTTL: time.Minute}, registryService)
		require.NoError(t, err)
		mockClock := clock.NewMock()
		service.cache = newRootCache(mockClock, time.Minute)

		first, err := service.CurrentGroup(ctx)
		require.NoError(t, err)
		require.NotNil(t, service.cache.get())

		mockClock.Add(59 * time.Second)
		assert.NotNil(t, service.cache.get(), "within the ttl the cached group is served")

		mockClock.Add(2 * time.Second)
		assert.Nil(t, service.cache.get(), "past the ttl the cache misses and the group is recomputed")

		recomputed, err := service.CurrentGroup(ctx)
		require.NoError(t, err)
		assert.Zero(t, first.Root.Cmp(recomputed.Root))
	})
}
