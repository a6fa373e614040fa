// Package favorites implements the user's favorite exit nodes: single nodes or
// whole location groups rotated round-robin on every activation.
package favorites

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/woozymasta/tailexit/internal/models"
)

// MaxFavorites is the maximum number of favorites kept at once.
const MaxFavorites = 15

// Favorite is a persisted, user-owned shortcut to an exit node or a location group.
type Favorite struct {
	CreatedAt time.Time `json:"created_at" yaml:"-"`

	// ID is the storage identity, stable across renumbering.
	ID string `json:"id" yaml:"-"`

	// Name is the display label, fixed at creation.
	Name string `json:"name" yaml:"name"`

	// PrimaryNodeID is the node activated for a single-node favorite,
	// or the first member of a group.
	PrimaryNodeID string `json:"primary_node_id" yaml:"primary_node_id"`

	// LocationKey matches the favorite against current location groups.
	LocationKey string `json:"location_key,omitempty" yaml:"location_key,omitempty"`

	// MemberNodeIDs is never empty.
	MemberNodeIDs []string `json:"member_node_ids" yaml:"member_node_ids"`

	// RotationCursor indexes MemberNodeIDs and is persisted across activations.
	RotationCursor int `json:"rotation_cursor" yaml:"rotation_cursor"`

	// Order is the dense 0..n-1 position among favorites.
	Order int `json:"order" yaml:"-"`

	IsGroup bool `json:"is_group" yaml:"is_group"`
}

// New creates a favorite for primary. Members default to the primary node alone.
func New(name, primary string, members ...string) *Favorite {
	if len(members) == 0 {
		members = []string{primary}
	}

	return &Favorite{
		ID:            uuid.NewString(),
		Name:          name,
		PrimaryNodeID: primary,
		MemberNodeIDs: slices.Clone(members),
		IsGroup:       len(members) > 1,
		CreatedAt:     time.Now().UTC(),
	}
}

// NewFromNode creates a single-node favorite.
func NewFromNode(n models.ExitNode) *Favorite {
	name := n.Name
	if name == "" {
		name = n.DNSName
	}

	return New(name, n.ID)
}

// NewFromGroup creates a favorite rotating across the group members in group order.
// It returns nil for a group without members.
func NewFromGroup(g models.LocationGroup) *Favorite {
	ids := g.MemberIDs()
	if len(ids) == 0 {
		return nil
	}

	f := New(g.DisplayName, ids[0], ids...)
	f.LocationKey = g.Key

	return f
}

// NextNodeID returns the node to activate next. For a group it returns the
// member under the cursor and advances the cursor, wrapping at the end.
func (f *Favorite) NextNodeID() string {
	if !f.IsGroup {
		return f.PrimaryNodeID
	}

	id := f.MemberNodeIDs[f.RotationCursor]
	f.RotationCursor = (f.RotationCursor + 1) % len(f.MemberNodeIDs)

	return id
}

// Contains reports whether id is one of the favorite's nodes.
func (f *Favorite) Contains(id string) bool {
	if id == "" {
		return false
	}
	if !f.IsGroup {
		return f.PrimaryNodeID == id
	}

	return slices.Contains(f.MemberNodeIDs, id)
}

// IsActive reports whether the current exit node belongs to this favorite.
func (f *Favorite) IsActive(currentID string) bool {
	return f.Contains(currentID)
}

// SetMembers replaces the member list, keeping the cursor position modulo the
// new size. An empty list is ignored.
func (f *Favorite) SetMembers(ids []string) {
	if len(ids) == 0 {
		return
	}

	f.MemberNodeIDs = slices.Clone(ids)
	f.PrimaryNodeID = ids[0]
	f.IsGroup = len(ids) > 1
	f.RotationCursor %= len(ids)
	f.Normalize()
}

// Normalize restores the member and cursor invariants on loaded or imported data.
func (f *Favorite) Normalize() {
	if len(f.MemberNodeIDs) == 0 {
		f.MemberNodeIDs = []string{f.PrimaryNodeID}
	}
	if f.PrimaryNodeID == "" {
		f.PrimaryNodeID = f.MemberNodeIDs[0]
	}
	if f.RotationCursor < 0 || f.RotationCursor >= len(f.MemberNodeIDs) {
		f.RotationCursor = 0
	}
}
