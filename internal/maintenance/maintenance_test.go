package maintenance

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/tailexit/internal/config"
	"github.com/woozymasta/tailexit/internal/fake"
	"github.com/woozymasta/tailexit/internal/favorites"
	"github.com/woozymasta/tailexit/internal/models"
	"github.com/woozymasta/tailexit/internal/storage"
)

func relay(id string, priority int) models.ExitNode {
	return models.ExitNode{
		ID: id, Name: "se-sto-" + id,
		Location: &models.Location{
			Country: "Sweden", CountryCode: "SE", City: "Stockholm", CityCode: "sto", Priority: priority,
		},
	}
}

func setup(t *testing.T) (*favorites.Manager, *fake.Daemon) {
	t.Helper()

	repo, err := storage.New(filepath.Join(t.TempDir(), "tailexit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	daemon := fake.NewDaemon(
		relay("A", 3), relay("B", 2),
		models.ExitNode{ID: "H", Name: "homelab"},
		models.ExitNode{ID: "N", Name: "nas"},
	)
	m := favorites.NewManager(repo, daemon)

	ctx := context.Background()
	for _, ref := range []string{"homelab", "nas"} {
		_, err := m.AddNode(ctx, ref)
		require.NoError(t, err)
	}
	_, err = m.AddGroup(ctx, "SE-sto")
	require.NoError(t, err)

	return m, daemon
}

func TestPruneStale(t *testing.T) {
	m, daemon := setup(t)
	daemon.SetNodes([]models.ExitNode{relay("B", 2), {ID: "N", Name: "nas"}})

	deleted, err := PruneStale(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	favs, err := m.Favorites()
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "nas", favs[0].Name)
	assert.Equal(t, 0, favs[0].Order)
	assert.Equal(t, "Stockholm, Sweden", favs[1].Name)
	assert.Equal(t, 1, favs[1].Order)
}

func TestResyncGroups(t *testing.T) {
	m, daemon := setup(t)
	daemon.SetNodes([]models.ExitNode{relay("C", 9), relay("A", 3), relay("B", 2)})

	updated, err := ResyncGroups(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	f, err := m.Resolve("Stockholm, Sweden")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, f.MemberNodeIDs)

	// nothing changed the second time
	updated, err = ResyncGroups(context.Background(), m)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestRunNoFlags(t *testing.T) {
	m, _ := setup(t)
	assert.False(t, Run(context.Background(), &config.Config{}, m))

	cfg := &config.Config{Storage: config.Storage{PruneStale: true}}
	assert.True(t, Run(context.Background(), cfg, m))
}
