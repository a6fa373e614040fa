// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/tailexit/internal/logger"
	"github.com/woozymasta/tailexit/internal/vars"
)

// Command names.
const (
	CmdNodes    = "nodes"
	CmdGroups   = "groups"
	CmdNearest  = "nearest"
	CmdList     = "list"
	CmdAdd      = "add"
	CmdAddGroup = "add-group"
	CmdRemove   = "remove"
	CmdToggle   = "toggle"
	CmdOff      = "off"
	CmdStatus   = "status"
	CmdExport   = "export"
	CmdImport   = "import"
	CmdServe    = "serve"
)

// ErrNoCommand is returned when neither a command nor --version was given.
var ErrNoCommand = errors.New("no command specified")

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Daemon    Daemon        `group:"Daemon Options" namespace:"daemon" env-namespace:"TAILEXIT_DAEMON"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"TAILEXIT_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"TAILEXIT_GEOIP"`
	Server    Server        `group:"Server Options" namespace:"server" env-namespace:"TAILEXIT_SERVER"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"TAILEXIT_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"TAILEXIT_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`

	Nodes    NodesCommand    `command:"nodes" description:"List exit nodes offered by the tailnet"`
	Groups   GroupsCommand   `command:"groups" description:"List location groups of exit nodes"`
	Nearest  NearestCommand  `command:"nearest" description:"Rank location groups by distance from an IP address"`
	List     ListCommand     `command:"list" description:"List favorites"`
	Add      AddCommand      `command:"add" description:"Favorite a single exit node (id, host name or DNS name)"`
	AddGroup AddGroupCommand `command:"add-group" description:"Favorite a location group by key, e.g. US-nyc"`
	Remove   RemoveCommand   `command:"remove" alias:"rm" description:"Remove a favorite (index, id or name)"`
	Toggle   ToggleCommand   `command:"toggle" description:"Activate the next node of a favorite, or turn it off when active"`
	Off      OffCommand      `command:"off" description:"Stop using an exit node"`
	Status   StatusCommand   `command:"status" description:"Show the active exit node"`
	Export   ExportCommand   `command:"export" description:"Export favorites as YAML or JSON"`
	Import   ImportCommand   `command:"import" description:"Import favorites from a YAML or JSON file"`
	Serve    ServeCommand    `command:"serve" description:"Serve the HTTP API for menu-bar front ends"`
}

// Daemon holds tailscaled connection configuration.
type Daemon struct {
	// betteralign:ignore

	Socket    string        `long:"socket" env:"SOCKET" description:"Path to the tailscaled LocalAPI socket (platform default when empty)"`
	Timeout   time.Duration `long:"timeout" env:"TIMEOUT" description:"Timeout for a single tailscaled request" default:"10s"`
	FakeNodes int           `long:"fake-nodes" env:"FAKE_NODES" hidden:"true"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path         string `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"tailexit.db"`
	PruneStale   bool   `long:"prune-stale" description:"Delete favorites whose nodes are all gone from the tailnet and exit"`
	ResyncGroups bool   `long:"resync-groups" description:"Refresh group favorites from current location groups and exit"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to GeoLite2-City MMDB file" default:"tailexit-city.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-City.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"168h"`
}

// Server holds HTTP API configuration.
type Server struct {
	// betteralign:ignore

	Address      string        `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:"127.0.0.1:8321"`
	AuthToken    string        `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"API bearer token (required for serve)"`
	NodeCacheTTL time.Duration `long:"node-cache-ttl" env:"NODE_CACHE_TTL" description:"How long a fetched exit node list is reused" default:"5s"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	Count  int           `long:"count" env:"COUNT" description:"Requests allowed per client within the window" default:"60"`
	Window time.Duration `long:"window" env:"WINDOW" description:"Rate limit window duration" default:"1m"`
}

// NodesCommand lists exit nodes.
type NodesCommand struct {
	JSON bool `long:"json" description:"Print JSON"`
}

// GroupsCommand lists location groups.
type GroupsCommand struct {
	JSON bool `long:"json" description:"Print JSON"`
}

// NearestCommand ranks groups by distance from an IP address.
type NearestCommand struct {
	Args struct {
		IP string `positional-arg-name:"ip" description:"IP address to measure from"`
	} `positional-args:"yes" required:"yes"`
	Limit int `short:"n" long:"limit" description:"Number of groups to show (0 for all)" default:"5"`
}

// ListCommand lists favorites.
type ListCommand struct {
	JSON bool `long:"json" description:"Print JSON"`
}

// AddCommand favorites a single node.
type AddCommand struct {
	Args struct {
		Node string `positional-arg-name:"node" description:"Node id, host name or DNS name"`
	} `positional-args:"yes" required:"yes"`
}

// AddGroupCommand favorites a location group.
type AddGroupCommand struct {
	Args struct {
		Key string `positional-arg-name:"key" description:"Location group key, e.g. US-nyc"`
	} `positional-args:"yes" required:"yes"`
}

// FavoriteArgs references one favorite.
type FavoriteArgs struct {
	Favorite string `positional-arg-name:"favorite" description:"Favorite index, id or name"`
}

// RemoveCommand removes a favorite.
type RemoveCommand struct {
	Args FavoriteArgs `positional-args:"yes" required:"yes"`
}

// ToggleCommand toggles a favorite.
type ToggleCommand struct {
	Args FavoriteArgs `positional-args:"yes" required:"yes"`
}

// OffCommand disables the exit node.
type OffCommand struct{}

// StatusCommand shows the current exit node.
type StatusCommand struct{}

// ExportCommand writes favorites to a file or stdout.
type ExportCommand struct {
	Format string `short:"f" long:"format" description:"Output format (yaml or json)" default:"yaml"`
	Output string `short:"o" long:"output" description:"Output file, - for stdout" default:"-"`
}

// ImportCommand reads favorites from a file.
type ImportCommand struct {
	Args struct {
		File string `positional-arg-name:"file" description:"File to import, - for stdin"`
	} `positional-args:"yes" required:"yes"`
	Format  string `short:"f" long:"format" description:"Input format (yaml or json)" default:"yaml"`
	Replace bool   `long:"replace" description:"Replace all favorites instead of appending"`
}

// ServeCommand runs the HTTP API.
type ServeCommand struct{}

// Parse reads the configuration from flags and environment variables and
// returns it with the selected command name.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() (*Config, string) {
	cfg, cmd, err := ParseArgs(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		if !errors.As(err, &flagsErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg, cmd
}

// ParseArgs parses args without exiting the process.
func ParseArgs(args []string) (*Config, string, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, "", err
	}

	if cfg.Version {
		return &cfg, "", nil
	}

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		return nil, "", ErrNoCommand
	}
	cmd := parser.Active.Name

	if err := cfg.validate(cmd); err != nil {
		return nil, "", err
	}

	return &cfg, cmd, nil
}

func (c *Config) validate(cmd string) error {
	if cmd == CmdServe && c.Server.AuthToken == "" {
		return errors.New("required flag `-t, --server-auth-token' or environment variable `TAILEXIT_SERVER_AUTH_TOKEN' was not specified")
	}

	if c.RateLimit.Count <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit count and window must be positive")
	}

	return nil
}
