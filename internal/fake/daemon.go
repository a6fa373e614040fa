package fake

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/models"
)

// ErrUnknownNode is returned by SetExitNode for an id not in the node list.
var ErrUnknownNode = errors.New("fake: unknown exit node")

// Daemon is an in-memory tailscaled. It satisfies favorites.Daemon.
type Daemon struct {
	err     error
	current string
	nodes   []models.ExitNode
	calls   []string
	mu      sync.Mutex
}

// NewDaemon creates a fake daemon offering the given exit nodes.
func NewDaemon(nodes ...models.ExitNode) *Daemon {
	return &Daemon{nodes: slices.Clone(nodes)}
}

// SetNodes replaces the offered exit nodes.
func (d *Daemon) SetNodes(nodes []models.ExitNode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nodes = slices.Clone(nodes)
}

// Fail makes every following request return err until Fail(nil) is called.
func (d *Daemon) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.err = err
}

// Calls returns the mutating requests received so far, as "set <id>" or "disable".
func (d *Daemon) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.calls)
}

// ExitNodes implements favorites.Daemon.
func (d *Daemon) ExitNodes(context.Context) ([]models.ExitNode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}

	return slices.Clone(d.nodes), nil
}

// CurrentExitNode implements favorites.Daemon.
func (d *Daemon) CurrentExitNode(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return "", d.err
	}

	return d.current, nil
}

// SetExitNode implements favorites.Daemon.
func (d *Daemon) SetExitNode(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, "set "+id)
	if d.err != nil {
		return d.err
	}

	known := slices.ContainsFunc(d.nodes, func(n models.ExitNode) bool { return n.ID == id })
	if !known {
		return ErrUnknownNode
	}

	log.Trace().Str("node", id).Msg("fake daemon: exit node set")
	d.current = id

	return nil
}

// DisableExitNode implements favorites.Daemon.
func (d *Daemon) DisableExitNode(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, "disable")
	if d.err != nil {
		return d.err
	}

	log.Trace().Msg("fake daemon: exit node disabled")
	d.current = ""

	return nil
}
