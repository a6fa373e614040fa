package main

import (
	"bytes"
	"context"
	"os"
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

func newTestManager(t *testing.T) *favorites.Manager {
	t.Helper()

	repo, err := storage.New(filepath.Join(t.TempDir(), "tailexit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	loc := &models.Location{Country: "Germany", CountryCode: "DE", City: "Berlin", CityCode: "ber"}
	daemon := fake.NewDaemon(
		models.ExitNode{ID: "A", Name: "de-ber-wg-001", Location: loc, Online: true},
		models.ExitNode{ID: "B", Name: "de-ber-wg-002", Location: loc},
		models.ExitNode{ID: "H", Name: "homelab", Online: true},
	)

	return favorites.NewManager(repo, daemon)
}

func TestRunNodesAndGroups(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	var out bytes.Buffer
	require.NoError(t, runNodes(ctx, &out, m, false))
	assert.Contains(t, out.String(), "DE-ber")
	assert.Contains(t, out.String(), "homelab")
	assert.Contains(t, out.String(), "offline")

	out.Reset()
	require.NoError(t, runGroups(ctx, &out, m, false))
	assert.Contains(t, out.String(), "Berlin, Germany")
	assert.Contains(t, out.String(), "Tailnet exit nodes:")
}

func TestRunToggleAndList(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	cfg := &config.Config{}
	cfg.AddGroup.Args.Key = "DE-ber"
	require.NoError(t, run(ctx, cfg, config.CmdAddGroup, m))

	res, err := m.Toggle(ctx, "0")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printResult(&out, res))
	assert.Equal(t, "Using exit node A\n", out.String())

	out.Reset()
	require.NoError(t, runList(ctx, &out, m, false))
	assert.Contains(t, out.String(), "Berlin, Germany")
	assert.Contains(t, out.String(), "*")

	out.Reset()
	require.NoError(t, runStatus(ctx, &out, m))
	assert.Equal(t, "Using exit node A (favorite \"Berlin, Germany\")\n", out.String())

	res, err = m.Disable(ctx)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, printResult(&out, res))
	assert.Equal(t, "Exit node off\n", out.String())
}

func TestRunExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestManager(t)

	_, err := src.AddNode(ctx, "homelab")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "favorites.yaml")
	require.NoError(t, runExport(config.ExportCommand{Format: "yaml", Output: file}, src))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "primary_node_id: H")

	dst := newTestManager(t)
	cmd := config.ImportCommand{Format: "yaml"}
	cmd.Args.File = file
	require.NoError(t, runImport(cmd, dst))

	favs, err := dst.Favorites()
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "homelab", favs[0].Name)
}
