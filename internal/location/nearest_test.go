package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/tailexit/internal/models"
)

func TestDistance(t *testing.T) {
	london := Point{51.5074, -0.1278}
	paris := Point{48.8566, 2.3522}

	assert.InDelta(t, 343.5, Distance(london, paris), 1.0)
	assert.InDelta(t, 0, Distance(paris, paris), 1e-9)
	assert.InDelta(t, Distance(london, paris), Distance(paris, london), 1e-9)
}

func TestNearest(t *testing.T) {
	noCoords := node("s1", "se-got-wg-001", &models.Location{
		Country: "Sweden", CountryCode: "SE", City: "Gothenburg", CityCode: "got",
	})
	groups := Group(append(sampleNodes(), noCoords))
	require.Len(t, groups, 3)

	warsaw := Point{52.23, 21.01}
	ranked := Nearest(warsaw, groups, 0)
	require.Len(t, ranked, 2)
	assert.Equal(t, "DE-ber", ranked[0].Group.Key)
	assert.Equal(t, "US-nyc", ranked[1].Group.Key)
	assert.Less(t, ranked[0].DistanceKm, ranked[1].DistanceKm)

	top := Nearest(warsaw, groups, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "DE-ber", top[0].Group.Key)
}
