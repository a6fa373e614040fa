package fake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/tailexit/internal/location"
)

func TestGenerateNodesDeterministic(t *testing.T) {
	a := GenerateNodes(50, 7)
	b := GenerateNodes(50, 7)
	assert.Equal(t, a, b)
	assert.Len(t, a, 50)

	ids := make(map[string]struct{})
	for _, n := range a {
		_, dup := ids[n.ID]
		assert.False(t, dup, "duplicate id %s", n.ID)
		ids[n.ID] = struct{}{}
	}

	groups := location.Group(a)
	assert.NotEmpty(t, groups)
	assert.NotEmpty(t, location.TailnetNodes(a))
}

func TestDaemon(t *testing.T) {
	ctx := context.Background()
	nodes := GenerateNodes(5, 1)
	d := NewDaemon(nodes...)

	cur, err := d.CurrentExitNode(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur)

	require.NoError(t, d.SetExitNode(ctx, nodes[0].ID))
	cur, _ = d.CurrentExitNode(ctx)
	assert.Equal(t, nodes[0].ID, cur)

	assert.ErrorIs(t, d.SetExitNode(ctx, "missing"), ErrUnknownNode)

	require.NoError(t, d.DisableExitNode(ctx))
	cur, _ = d.CurrentExitNode(ctx)
	assert.Empty(t, cur)

	boom := errors.New("boom")
	d.Fail(boom)
	_, err = d.ExitNodes(ctx)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"set " + nodes[0].ID, "set missing", "disable"}, d.Calls())
}
