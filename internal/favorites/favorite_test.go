package favorites

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/tailexit/internal/models"
)

func TestNextNodeIDRoundRobin(t *testing.T) {
	f := New("NYC", "A", "A", "B", "C")
	require.True(t, f.IsGroup)
	require.Equal(t, 0, f.RotationCursor)

	assert.Equal(t, "A", f.NextNodeID())
	assert.Equal(t, 1, f.RotationCursor)
	assert.Equal(t, "B", f.NextNodeID())
	assert.Equal(t, 2, f.RotationCursor)
	assert.Equal(t, "C", f.NextNodeID())
	assert.Equal(t, 0, f.RotationCursor)
	assert.Equal(t, "A", f.NextNodeID())
}

func TestNextNodeIDVisitsEachMemberOnce(t *testing.T) {
	for n := 1; n <= 8; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("node-%d", i)
		}

		f := New("group", ids[0], ids...)
		var got []string
		for range n {
			got = append(got, f.NextNodeID())
			assert.GreaterOrEqual(t, f.RotationCursor, 0)
			assert.Less(t, f.RotationCursor, n)
		}

		assert.Equal(t, ids, got)
		assert.Equal(t, ids[0], f.NextNodeID(), "call n+1 repeats the first member")
	}
}

func TestNextNodeIDSingle(t *testing.T) {
	f := New("home", "H")
	assert.False(t, f.IsGroup)
	assert.Equal(t, []string{"H"}, f.MemberNodeIDs)

	for range 5 {
		assert.Equal(t, "H", f.NextNodeID())
	}
	assert.Equal(t, 0, f.RotationCursor)
}

func TestNewFromNode(t *testing.T) {
	f := NewFromNode(models.ExitNode{ID: "n1", Name: "homelab", DNSName: "homelab.ts.net."})
	assert.Equal(t, "homelab", f.Name)
	assert.Equal(t, "n1", f.PrimaryNodeID)
	assert.Equal(t, []string{"n1"}, f.MemberNodeIDs)
	assert.False(t, f.IsGroup)
	assert.Empty(t, f.LocationKey)
	assert.NotEmpty(t, f.ID)

	f = NewFromNode(models.ExitNode{ID: "n2", DNSName: "nameless.ts.net."})
	assert.Equal(t, "nameless.ts.net.", f.Name)
}

func TestNewFromGroup(t *testing.T) {
	g := models.LocationGroup{
		Key:         "US-nyc",
		DisplayName: "New York, USA",
		Members:     []models.ExitNode{{ID: "a"}, {ID: "b"}},
	}

	f := NewFromGroup(g)
	require.NotNil(t, f)
	assert.Equal(t, "New York, USA", f.Name)
	assert.Equal(t, "US-nyc", f.LocationKey)
	assert.Equal(t, "a", f.PrimaryNodeID)
	assert.Equal(t, []string{"a", "b"}, f.MemberNodeIDs)
	assert.True(t, f.IsGroup)

	g.Members = g.Members[:1]
	f = NewFromGroup(g)
	assert.False(t, f.IsGroup)
	assert.Equal(t, "US-nyc", f.LocationKey)

	assert.Nil(t, NewFromGroup(models.LocationGroup{Key: "empty"}))
}

func TestContains(t *testing.T) {
	single := New("home", "H")
	assert.True(t, single.Contains("H"))
	assert.False(t, single.Contains("X"))
	assert.False(t, single.Contains(""))

	group := New("NYC", "A", "A", "B")
	assert.True(t, group.Contains("A"))
	assert.True(t, group.Contains("B"))
	assert.False(t, group.Contains("C"))
}

func TestSetMembers(t *testing.T) {
	f := New("NYC", "A", "A", "B", "C")
	f.RotationCursor = 2

	f.SetMembers([]string{"D", "E", "F", "G"})
	assert.Equal(t, 2, f.RotationCursor)
	assert.Equal(t, "D", f.PrimaryNodeID)

	f.SetMembers([]string{"X"})
	assert.Equal(t, 0, f.RotationCursor)
	assert.False(t, f.IsGroup)

	f.SetMembers(nil)
	assert.Equal(t, []string{"X"}, f.MemberNodeIDs)
}

func TestNormalize(t *testing.T) {
	f := &Favorite{PrimaryNodeID: "A", RotationCursor: 7}
	f.Normalize()
	assert.Equal(t, []string{"A"}, f.MemberNodeIDs)
	assert.Equal(t, 0, f.RotationCursor)

	f = &Favorite{MemberNodeIDs: []string{"B", "C"}, RotationCursor: -1}
	f.Normalize()
	assert.Equal(t, "B", f.PrimaryNodeID)
	assert.Equal(t, 0, f.RotationCursor)
}

func TestDecide(t *testing.T) {
	group := New("NYC", "A", "A", "B")
	single := New("home", "H")

	assert.Equal(t, ActionActivate, Decide("", group))
	assert.Equal(t, ActionDisable, Decide("B", group))
	assert.Equal(t, ActionActivate, Decide("H", group))
	assert.Equal(t, ActionDisable, Decide("H", single))
	assert.Equal(t, ActionActivate, Decide("A", single))
}

func TestActionText(t *testing.T) {
	b, err := ActionDisable.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "disable", string(b))
	assert.Equal(t, "activate", ActionActivate.String())
	assert.Equal(t, "unknown", Action(9).String())
}
