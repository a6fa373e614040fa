package favorites

// Action is what toggling a favorite asks of the daemon.
type Action int

const (
	// ActionActivate sets the exit node to the favorite's next node.
	ActionActivate Action = iota
	// ActionDisable turns the exit node off.
	ActionDisable
)

func (a Action) String() string {
	switch a {
	case ActionActivate:
		return "activate"
	case ActionDisable:
		return "disable"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Decide returns the action for toggling f while currentID is the active exit
// node (empty when exit nodes are disabled). Clicking an active favorite turns
// exit nodes off, clicking an inactive one rotates and activates.
func Decide(currentID string, f *Favorite) Action {
	if f.IsActive(currentID) {
		return ActionDisable
	}

	return ActionActivate
}

// Result reports the outcome of a toggle.
type Result struct {
	// NodeID is the node that was requested, empty for ActionDisable.
	NodeID string `json:"node_id,omitempty"`

	// Current is the exit node reported by the daemon after the request.
	Current string `json:"current,omitempty"`

	Action Action `json:"action"`
}
