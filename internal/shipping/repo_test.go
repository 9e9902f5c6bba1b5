package shipping

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
)

func TestRepositoryFindActive(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ghn, err := repo.Create(ctx, " ghn ", true)
	require.NoError(t, err)
	assert.Equal(t, "GHN", ghn.Name)
	retired, err := repo.Create(ctx, "vnpost", false)
	require.NoError(t, err)

	found, err := repo.FindActive(ctx, ghn.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ghn.ID, found.ID)

	found, err = repo.FindActive(ctx, retired.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindActive(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "GHN", all[0].Name)
}
