// Package fake provides an in-memory tailscaled stand-in populated with
// generated exit nodes, for development and tests.
package fake

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/woozymasta/tailexit/internal/models"
)

type city struct {
	country, countryCode string
	name, code           string
	lat, lon             float64
}

var cities = []city{
	{"USA", "US", "New York", "nyc", 40.7128, -74.0060},
	{"USA", "US", "Los Angeles", "lax", 34.0522, -118.2437},
	{"Germany", "DE", "Frankfurt", "fra", 50.1109, 8.6821},
	{"Germany", "DE", "Berlin", "ber", 52.5200, 13.4050},
	{"Sweden", "SE", "Stockholm", "sto", 59.3293, 18.0686},
	{"Japan", "JP", "Tokyo", "tyo", 35.6762, 139.6503},
	{"Netherlands", "NL", "Amsterdam", "ams", 52.3676, 4.9041},
	{"United Kingdom", "GB", "London", "lon", 51.5074, -0.1278},
}

var tailnetHosts = []string{"homelab", "nas", "raspberrypi", "office-gw", "vps-hetzner"}

// GenerateNodes returns count exit nodes built from seed. Roughly one in five
// is an untagged tailnet node, the rest are location-tagged relays spread
// over a fixed set of cities. The same seed yields the same nodes.
func GenerateNodes(count int, seed int64) []models.ExitNode {
	rng := rand.New(rand.NewSource(seed))
	perCity := make(map[string]int)

	nodes := make([]models.ExitNode, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("n%04dCNTRL", i+1)

		// 20% chance of a plain tailnet node
		if rng.Float32() < 0.2 {
			host := fmt.Sprintf("%s-%d", tailnetHosts[rng.Intn(len(tailnetHosts))], i+1)
			nodes = append(nodes, models.ExitNode{
				ID:      id,
				Name:    host,
				DNSName: host + ".tail0000.ts.net.",
				Online:  rng.Float32() < 0.9,
			})
			continue
		}

		c := cities[rng.Intn(len(cities))]
		perCity[c.code]++
		host := fmt.Sprintf("%s-%s-wg-%03d", strings.ToLower(c.countryCode), c.code, perCity[c.code])

		nodes = append(nodes, models.ExitNode{
			ID:      id,
			Name:    host,
			DNSName: host + ".mullvad.ts.net.",
			Online:  true,
			Location: &models.Location{
				Country:     c.country,
				CountryCode: c.countryCode,
				City:        c.name,
				CityCode:    c.code,
				Latitude:    c.lat,
				Longitude:   c.lon,
				Priority:    rng.Intn(100),
			},
		})
	}

	return nodes
}
