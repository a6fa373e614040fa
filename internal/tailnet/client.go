// Package tailnet talks to the local tailscaled over its LocalAPI.
package tailnet

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/models"
	"tailscale.com/client/local"
	"tailscale.com/ipn"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tailcfg"
)

// Client reads exit nodes from tailscaled and switches the active one.
type Client struct {
	lc      *local.Client
	timeout time.Duration
}

// New creates a LocalAPI client. An empty socket uses the platform default.
// Every request is bounded by timeout when it is positive.
func New(socket string, timeout time.Duration) *Client {
	lc := &local.Client{}
	if socket != "" {
		lc.Socket = socket
		lc.UseSocketOnly = true
	}

	return &Client{lc: lc, timeout: timeout}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) status(ctx context.Context) (*ipnstate.Status, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	st, err := c.lc.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("tailscaled status: %w", err)
	}

	return st, nil
}

// ExitNodes returns the peers that offer themselves as exit nodes.
func (c *Client) ExitNodes(ctx context.Context) ([]models.ExitNode, error) {
	st, err := c.status(ctx)
	if err != nil {
		return nil, err
	}

	nodes := ExitNodesFromStatus(st)
	log.Debug().Int("count", len(nodes)).Msg("Fetched exit nodes")

	return nodes, nil
}

// CurrentExitNode returns the stable id of the active exit node, or an empty
// string when none is in use.
func (c *Client) CurrentExitNode(ctx context.Context) (string, error) {
	st, err := c.status(ctx)
	if err != nil {
		return "", err
	}

	return CurrentFromStatus(st), nil
}

// SetExitNode routes traffic through the exit node with the given stable id.
func (c *Client) SetExitNode(ctx context.Context, id string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	mp := &ipn.MaskedPrefs{
		Prefs: ipn.Prefs{
			ExitNodeID: tailcfg.StableNodeID(id),
		},
		ExitNodeIDSet: true,
	}
	if _, err := c.lc.EditPrefs(ctx, mp); err != nil {
		return fmt.Errorf("set exit node: %w", err)
	}

	return nil
}

// DisableExitNode stops using any exit node.
func (c *Client) DisableExitNode(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	mp := &ipn.MaskedPrefs{
		ExitNodeIDSet: true,
		ExitNodeIPSet: true,
	}
	if _, err := c.lc.EditPrefs(ctx, mp); err != nil {
		return fmt.Errorf("clear exit node: %w", err)
	}

	return nil
}

// ExitNodesFromStatus converts the exit-node peers of a status snapshot,
// sorted by host name and id.
func ExitNodesFromStatus(st *ipnstate.Status) []models.ExitNode {
	if st == nil {
		return nil
	}

	var nodes []models.ExitNode
	for _, ps := range st.Peer {
		if ps == nil || !ps.ExitNodeOption {
			continue
		}

		nodes = append(nodes, models.ExitNode{
			ID:       string(ps.ID),
			Name:     ps.HostName,
			DNSName:  ps.DNSName,
			Online:   ps.Online,
			Location: convertLocation(ps.Location),
		})
	}

	slices.SortFunc(nodes, func(a, b models.ExitNode) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	return nodes
}

// CurrentFromStatus returns the active exit node id of a status snapshot.
func CurrentFromStatus(st *ipnstate.Status) string {
	if st == nil || st.ExitNodeStatus == nil {
		return ""
	}

	return string(st.ExitNodeStatus.ID)
}

func convertLocation(loc *tailcfg.Location) *models.Location {
	if loc == nil {
		return nil
	}

	return &models.Location{
		Country:     loc.Country,
		CountryCode: loc.CountryCode,
		City:        loc.City,
		CityCode:    loc.CityCode,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Priority:    loc.Priority,
	}
}
