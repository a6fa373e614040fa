// Package location groups exit nodes by the city and country they are tagged with.
package location

import (
	"cmp"
	"slices"

	"github.com/woozymasta/tailexit/internal/models"
)

// Key returns the grouping key "CC-city" for a location.
// It reports false when either the country or the city code is missing.
func Key(loc *models.Location) (string, bool) {
	if loc == nil || loc.CountryCode == "" || loc.CityCode == "" {
		return "", false
	}

	return loc.CountryCode + "-" + loc.CityCode, true
}

// DisplayName renders a location as "City, Country", or the best part of it
// that is known.
func DisplayName(loc *models.Location) string {
	if loc == nil {
		return ""
	}

	switch {
	case loc.City != "" && loc.Country != "":
		return loc.City + ", " + loc.Country
	case loc.Country != "":
		return loc.Country
	case loc.City != "":
		return loc.City
	}

	key, _ := Key(loc)
	return key
}

// Group collects nodes sharing a country and city into location groups.
// Nodes without both codes are left out (see TailnetNodes). Members are ordered
// by priority, highest first, and groups by display name.
func Group(nodes []models.ExitNode) []models.LocationGroup {
	byKey := make(map[string]*models.LocationGroup)
	for _, n := range nodes {
		key, ok := Key(n.Location)
		if !ok {
			continue
		}

		g, ok := byKey[key]
		if !ok {
			g = &models.LocationGroup{
				Key:         key,
				DisplayName: DisplayName(n.Location),
				Location:    *n.Location,
			}
			byKey[key] = g
		}
		g.Members = append(g.Members, n)
	}

	groups := make([]models.LocationGroup, 0, len(byKey))
	for _, g := range byKey {
		slices.SortFunc(g.Members, compareMembers)
		groups = append(groups, *g)
	}

	slices.SortFunc(groups, func(a, b models.LocationGroup) int {
		return cmp.Or(
			cmp.Compare(a.DisplayName, b.DisplayName),
			cmp.Compare(a.Key, b.Key),
		)
	})

	return groups
}

// compareMembers orders by descending priority, then name, then id.
func compareMembers(a, b models.ExitNode) int {
	return cmp.Or(
		cmp.Compare(b.Location.Priority, a.Location.Priority),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.ID, b.ID),
	)
}

// TailnetNodes returns the nodes that belong to no location group, in input order.
// These are the user's own exit nodes rather than location-tagged relays.
func TailnetNodes(nodes []models.ExitNode) []models.ExitNode {
	var out []models.ExitNode
	for _, n := range nodes {
		if _, ok := Key(n.Location); !ok {
			out = append(out, n)
		}
	}

	return out
}

// Find returns the group with the given key.
func Find(groups []models.LocationGroup, key string) (models.LocationGroup, bool) {
	for _, g := range groups {
		if g.Key == key {
			return g, true
		}
	}

	return models.LocationGroup{}, false
}

// CountryFlag takes a 2-character ASCII country code and returns the
// corresponding emoji flag. It returns the empty string on error.
func CountryFlag(code string) string {
	if len(code) != 2 {
		return ""
	}

	runes := make([]rune, 0, 2)
	for i := range 2 {
		b := code[i] | 32 // lowercase
		if b < 'a' || b > 'z' {
			return ""
		}
		// regional indicator symbols start at U+1F1E6
		runes = append(runes, 0x1F1E6+rune(b-'a'))
	}

	return string(runes)
}
