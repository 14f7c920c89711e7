package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

func TestRuleRepository(t *testing.T) {
	repo := NewRuleRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &domain.CustomRule{ID: "b", Enabled: true}))
	require.NoError(t, repo.Save(ctx, &domain.CustomRule{ID: "a", Enabled: false}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "b", enabled[0].ID)

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, repo.Delete(ctx, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "a"), domain.ErrNotFound)
	_, err = repo.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
