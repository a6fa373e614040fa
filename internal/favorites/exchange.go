package favorites

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format is a serialization format for exported favorites.
type Format string

// Supported export formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" and "json" (case-insensitive).
// An empty string selects YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// ContentType returns the MIME type used when serving the format over HTTP.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}

	return "application/yaml"
}

type document struct {
	Favorites []Favorite `json:"favorites" yaml:"favorites"`
}

// Export writes favorites to w.
func Export(w io.Writer, favs []Favorite, format Format) error {
	if favs == nil {
		favs = []Favorite{}
	}
	doc := document{Favorites: favs}

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	return yaml.NewEncoder(w).Encode(doc)
}

// Decode reads favorites written by Export. Entries without any node are skipped.
func Decode(r io.Reader, format Format) ([]Favorite, error) {
	var doc document

	var err error
	if format == FormatJSON {
		err = json.NewDecoder(r).Decode(&doc)
	} else {
		err = yaml.NewDecoder(r).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}

	out := make([]Favorite, 0, len(doc.Favorites))
	for _, f := range doc.Favorites {
		if f.PrimaryNodeID == "" && len(f.MemberNodeIDs) == 0 {
			continue
		}
		f.Normalize()
		out = append(out, f)
	}

	return out, nil
}
