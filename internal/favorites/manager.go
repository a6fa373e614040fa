package favorites

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/location"
	"github.com/woozymasta/tailexit/internal/models"
)

var (
	// ErrNotFound is returned when a favorite reference matches nothing.
	ErrNotFound = errors.New("favorite not found")

	// ErrNoSuchNode is returned when a node reference matches no exit node.
	ErrNoSuchNode = errors.New("no such exit node")

	// ErrNoSuchGroup is returned when a key matches no location group.
	ErrNoSuchGroup = errors.New("no such location group")

	// ErrDaemon wraps every failed tailscaled request.
	ErrDaemon = errors.New("tailscaled request failed")
)

func daemonError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDaemon, err)
}

// Store persists favorites. Implementations must keep Order dense and
// return favorites sorted by it.
type Store interface {
	ListFavorites() ([]Favorite, error)
	CountFavorites() (int, error)
	// InsertFavorite appends f after the existing favorites and sets f.Order.
	InsertFavorite(f *Favorite) error
	// DeleteFavorite removes a favorite and renumbers the rest to 0..n-1.
	DeleteFavorite(id string) error
	UpdateCursor(id string, cursor int) error
	UpdateMembers(f *Favorite) error
}

// Daemon is the Tailscale daemon as seen by the favorites manager.
type Daemon interface {
	// ExitNodes returns the peers currently offered as exit nodes.
	ExitNodes(ctx context.Context) ([]models.ExitNode, error)
	// CurrentExitNode returns the active exit node id, empty when disabled.
	CurrentExitNode(ctx context.Context) (string, error)
	SetExitNode(ctx context.Context, id string) error
	DisableExitNode(ctx context.Context) error
}

// Manager coordinates favorites, the store and the daemon. All operations are
// serialized, so at most one daemon request is outstanding at a time.
type Manager struct {
	store  Store
	daemon Daemon

	subs    map[uint64]chan Event
	nextSub uint64
	subsMu  sync.Mutex

	mu sync.Mutex
}

// NewManager creates a Manager over the given store and daemon.
func NewManager(store Store, daemon Daemon) *Manager {
	return &Manager{
		store:  store,
		daemon: daemon,
		subs:   make(map[uint64]chan Event),
	}
}

// Favorites returns all favorites ordered by Order.
func (m *Manager) Favorites() ([]Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.ListFavorites()
}

// Nodes queries the daemon for the current exit nodes.
func (m *Manager) Nodes(ctx context.Context) ([]models.ExitNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodes, err := m.daemon.ExitNodes(ctx)
	if err != nil {
		return nil, daemonError("query exit nodes", err)
	}

	return nodes, nil
}

// Groups queries the daemon and groups its exit nodes by location.
func (m *Manager) Groups(ctx context.Context) ([]models.LocationGroup, error) {
	nodes, err := m.Nodes(ctx)
	if err != nil {
		return nil, err
	}

	return location.Group(nodes), nil
}

// Current returns the active exit node id as reported by the daemon.
func (m *Manager) Current(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.daemon.CurrentExitNode(ctx)
	if err != nil {
		return "", daemonError("query current exit node", err)
	}

	return id, nil
}

// AddNode favorites a single exit node referenced by id, host name or DNS name.
// It returns nil without error when the favorite limit is reached.
func (m *Manager) AddNode(ctx context.Context, ref string) (*Favorite, error) {
	nodes, err := m.Nodes(ctx)
	if err != nil {
		return nil, err
	}

	n, ok := findNode(nodes, ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchNode, ref)
	}

	return m.Add(NewFromNode(n))
}

// AddGroup favorites the location group with the given key.
// It returns nil without error when the favorite limit is reached.
func (m *Manager) AddGroup(ctx context.Context, key string) (*Favorite, error) {
	groups, err := m.Groups(ctx)
	if err != nil {
		return nil, err
	}

	g, ok := location.Find(groups, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchGroup, key)
	}

	return m.Add(NewFromGroup(g))
}

// Add persists a new favorite. Creating past MaxFavorites is a no-op that
// returns nil. Adding a node or group that is already a favorite returns the
// existing favorite.
func (m *Manager) Add(f *Favorite) (*Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.add(f)
}

func (m *Manager) add(f *Favorite) (*Favorite, error) {
	if f == nil {
		return nil, nil
	}

	existing, err := m.store.ListFavorites()
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	if len(existing) >= MaxFavorites {
		log.Warn().
			Int("limit", MaxFavorites).
			Str("name", f.Name).
			Msg("Favorite limit reached, not adding")
		return nil, nil
	}

	for i := range existing {
		if sameTarget(&existing[i], f) {
			return &existing[i], nil
		}
	}

	f.Normalize()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	if err := m.store.InsertFavorite(f); err != nil {
		return nil, fmt.Errorf("insert favorite: %w", err)
	}

	log.Info().
		Str("id", f.ID).
		Str("name", f.Name).
		Bool("group", f.IsGroup).
		Int("order", f.Order).
		Msg("Favorite added")

	m.publish(Event{Kind: EventFavorites, FavoriteID: f.ID})

	return f, nil
}

// Remove deletes the referenced favorite; remaining favorites are renumbered.
func (m *Manager) Remove(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.resolve(ref)
	if err != nil {
		return err
	}

	if err := m.store.DeleteFavorite(f.ID); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}

	log.Info().Str("id", f.ID).Str("name", f.Name).Msg("Favorite removed")
	m.publish(Event{Kind: EventFavorites, FavoriteID: f.ID})

	return nil
}

// Resolve finds a favorite by order index, id or name.
func (m *Manager) Resolve(ref string) (*Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.resolve(ref)
}

func (m *Manager) resolve(ref string) (*Favorite, error) {
	favs, err := m.store.ListFavorites()
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	if idx, err := strconv.Atoi(ref); err == nil {
		for i := range favs {
			if favs[i].Order == idx {
				return &favs[i], nil
			}
		}
	}

	for i := range favs {
		if favs[i].ID == ref {
			return &favs[i], nil
		}
	}

	for i := range favs {
		if strings.EqualFold(favs[i].Name, ref) {
			return &favs[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Toggle activates or deactivates the referenced favorite.
//
// If the current exit node belongs to the favorite, the exit node is disabled.
// Otherwise the favorite's rotation advances, the new cursor is persisted and
// the next node is activated. The daemon is re-queried afterwards and its
// answer returned in Result.Current. A failed request does not roll the
// cursor back.
func (m *Manager) Toggle(ctx context.Context, ref string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.resolve(ref)
	if err != nil {
		return Result{}, err
	}

	current, err := m.daemon.CurrentExitNode(ctx)
	if err != nil {
		return Result{}, daemonError("query current exit node", err)
	}

	res := Result{Action: Decide(current, f)}
	switch res.Action {
	case ActionDisable:
		log.Info().Str("favorite", f.Name).Str("current", current).Msg("Disabling exit node")
		if err := m.daemon.DisableExitNode(ctx); err != nil {
			return res, daemonError("disable exit node", err)
		}

	case ActionActivate:
		res.NodeID = f.NextNodeID()
		if f.IsGroup {
			if err := m.store.UpdateCursor(f.ID, f.RotationCursor); err != nil {
				return res, fmt.Errorf("save rotation cursor: %w", err)
			}
			m.publish(Event{Kind: EventFavorites, FavoriteID: f.ID})
		}

		log.Info().
			Str("favorite", f.Name).
			Str("node", res.NodeID).
			Int("cursor", f.RotationCursor).
			Msg("Activating exit node")

		if err := m.daemon.SetExitNode(ctx, res.NodeID); err != nil {
			return res, daemonError("set exit node "+res.NodeID, err)
		}
	}

	return m.settle(ctx, res)
}

// Disable turns the exit node off regardless of favorites.
func (m *Manager) Disable(ctx context.Context) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := Result{Action: ActionDisable}
	if err := m.daemon.DisableExitNode(ctx); err != nil {
		return res, daemonError("disable exit node", err)
	}

	return m.settle(ctx, res)
}

// settle re-queries the daemon for the authoritative exit node.
func (m *Manager) settle(ctx context.Context, res Result) (Result, error) {
	current, err := m.daemon.CurrentExitNode(ctx)
	if err != nil {
		return res, daemonError("query current exit node", err)
	}

	res.Current = current
	m.publish(Event{Kind: EventExitNode, NodeID: current})

	return res, nil
}

// ReplaceMembers updates the members of a favorite, keeping its cursor in range.
func (m *Manager) ReplaceMembers(id string, members []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.resolve(id)
	if err != nil {
		return err
	}

	f.SetMembers(members)
	if err := m.store.UpdateMembers(f); err != nil {
		return fmt.Errorf("update members: %w", err)
	}

	m.publish(Event{Kind: EventFavorites, FavoriteID: f.ID})

	return nil
}

// Import adds favorites in order, honoring MaxFavorites. With replace set,
// all existing favorites are removed first. It returns the number added.
func (m *Manager) Import(favs []Favorite, replace bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if replace {
		existing, err := m.store.ListFavorites()
		if err != nil {
			return 0, fmt.Errorf("list favorites: %w", err)
		}
		for _, f := range existing {
			if err := m.store.DeleteFavorite(f.ID); err != nil {
				return 0, fmt.Errorf("delete favorite: %w", err)
			}
		}
	}

	added := 0
	for i := range favs {
		f := favs[i]
		f.ID = ""
		f.IsGroup = f.IsGroup || len(f.MemberNodeIDs) > 1

		got, err := m.add(&f)
		if err != nil {
			return added, err
		}
		if got != nil && got.ID == f.ID {
			added++
		}
	}

	return added, nil
}

// sameTarget reports whether two favorites point at the same node or group.
func sameTarget(a, b *Favorite) bool {
	if a.LocationKey != "" || b.LocationKey != "" {
		return a.LocationKey == b.LocationKey
	}

	return !a.IsGroup && !b.IsGroup && a.PrimaryNodeID == b.PrimaryNodeID
}

// findNode matches ref against node id, host name and DNS name.
func findNode(nodes []models.ExitNode, ref string) (models.ExitNode, bool) {
	for _, n := range nodes {
		if n.ID == ref {
			return n, true
		}
	}

	fqdn := strings.TrimSuffix(ref, ".")
	for _, n := range nodes {
		if strings.EqualFold(n.Name, ref) || strings.EqualFold(strings.TrimSuffix(n.DNSName, "."), fqdn) {
			return n, true
		}
	}

	return models.ExitNode{}, false
}
