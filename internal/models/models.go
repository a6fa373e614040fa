// Package models defines the data structures shared between the daemon client,
// location grouping, persistence and the HTTP API.
package models

// Location is the geographic tag the control plane attaches to location-based
// exit nodes (for example Mullvad relays).
type Location struct {
	Country     string  `json:"country,omitempty" yaml:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	City        string  `json:"city,omitempty" yaml:"city,omitempty"`
	CityCode    string  `json:"city_code,omitempty" yaml:"city_code,omitempty"`
	Latitude    float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Priority    int     `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// HasCoordinates reports whether the location can be placed on a map.
func (l *Location) HasCoordinates() bool {
	return l != nil && (l.Latitude != 0 || l.Longitude != 0)
}

// ExitNode is a peer offered as an exit node in one status snapshot.
type ExitNode struct {
	Location *Location `json:"location,omitempty"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	DNSName  string    `json:"dns_name"`
	Online   bool      `json:"online"`
}

// LocationGroup is the set of exit nodes sharing one country and city.
// It is derived from the node list and never persisted.
type LocationGroup struct {
	Key         string     `json:"key"`
	DisplayName string     `json:"display_name"`
	Members     []ExitNode `json:"members"`
	Location    Location   `json:"location"`
}

// MemberIDs returns the node ids of the group members in group order.
func (g LocationGroup) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.ID)
	}

	return ids
}
