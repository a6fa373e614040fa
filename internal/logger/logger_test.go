package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSONFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	path := filepath.Join(t.TempDir(), "tailexit.log")
	Setup(Config{Level: "debug", Format: "json", Output: path})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Debug().Str("node", "n1").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"node":"n1"`)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestSetupBadLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	Setup(Config{Level: "loud", Format: "console", Output: "stderr"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestOpenOutputFallback(t *testing.T) {
	w := openOutput(filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Equal(t, os.Stderr, w)
	assert.Equal(t, os.Stdout, openOutput("stdout"))
}
