package favorites

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatYAML, "YML": FormatYAML, "yaml": FormatYAML, "Json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("toml")
	assert.Error(t, err)

	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "application/yaml", FormatYAML.ContentType())
}

func TestExportDecode(t *testing.T) {
	nyc := New("New York, USA", "A", "A", "B", "C")
	nyc.LocationKey = "US-nyc"
	nyc.RotationCursor = 2
	favs := []Favorite{*New("home", "H"), *nyc}

	for _, format := range []Format{FormatYAML, FormatJSON} {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, favs, format))

		got, err := Decode(&buf, format)
		require.NoError(t, err, format)
		require.Len(t, got, 2, format)

		assert.Equal(t, "home", got[0].Name)
		assert.Equal(t, []string{"H"}, got[0].MemberNodeIDs)
		assert.False(t, got[0].IsGroup)

		assert.Equal(t, "US-nyc", got[1].LocationKey)
		assert.Equal(t, []string{"A", "B", "C"}, got[1].MemberNodeIDs)
		assert.Equal(t, 2, got[1].RotationCursor)
		assert.True(t, got[1].IsGroup)
	}
}

func TestExportYAMLOmitsStorageFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, []Favorite{*New("home", "H")}, FormatYAML))

	out := buf.String()
	assert.Contains(t, out, "primary_node_id: H")
	assert.NotContains(t, out, "created_at")
	assert.NotContains(t, out, "order")
}

func TestDecodeSkipsEmptyAndFixesCursor(t *testing.T) {
	in := `
favorites:
  - name: broken
  - name: nyc
    member_node_ids: [A, B]
    is_group: true
    rotation_cursor: 9
`
	got, err := Decode(strings.NewReader(in), FormatYAML)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].PrimaryNodeID)
	assert.Equal(t, 0, got[0].RotationCursor)

	_, err = Decode(strings.NewReader("{"), FormatJSON)
	assert.Error(t, err)
}
