package tailnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tailcfg"
	"tailscale.com/types/key"
)

func peer(id, host string, exit bool, loc *tailcfg.Location) *ipnstate.PeerStatus {
	return &ipnstate.PeerStatus{
		ID:             tailcfg.StableNodeID(id),
		HostName:       host,
		DNSName:        host + ".example.ts.net.",
		Online:         true,
		ExitNodeOption: exit,
		Location:       loc,
	}
}

func TestExitNodesFromStatus(t *testing.T) {
	st := &ipnstate.Status{
		Peer: map[key.NodePublic]*ipnstate.PeerStatus{
			key.NewNode().Public(): peer("n2", "us-nyc-wg-001", true, &tailcfg.Location{
				Country: "USA", CountryCode: "US", City: "New York", CityCode: "nyc",
				Latitude: 40.7, Longitude: -74, Priority: 50,
			}),
			key.NewNode().Public(): peer("n1", "homelab", true, nil),
			key.NewNode().Public(): peer("n3", "laptop", false, nil),
		},
	}

	nodes := ExitNodesFromStatus(st)
	require.Len(t, nodes, 2)

	assert.Equal(t, "n1", nodes[0].ID)
	assert.Equal(t, "homelab", nodes[0].Name)
	assert.Equal(t, "homelab.example.ts.net.", nodes[0].DNSName)
	assert.Nil(t, nodes[0].Location)

	assert.Equal(t, "n2", nodes[1].ID)
	require.NotNil(t, nodes[1].Location)
	assert.Equal(t, "US", nodes[1].Location.CountryCode)
	assert.Equal(t, "nyc", nodes[1].Location.CityCode)
	assert.Equal(t, 50, nodes[1].Location.Priority)
	assert.True(t, nodes[1].Location.HasCoordinates())
}

func TestExitNodesFromNilStatus(t *testing.T) {
	assert.Empty(t, ExitNodesFromStatus(nil))
}

func TestCurrentFromStatus(t *testing.T) {
	assert.Empty(t, CurrentFromStatus(nil))
	assert.Empty(t, CurrentFromStatus(&ipnstate.Status{}))

	st := &ipnstate.Status{
		ExitNodeStatus: &ipnstate.ExitNodeStatus{ID: "n2", Online: true},
	}
	assert.Equal(t, "n2", CurrentFromStatus(st))
}
