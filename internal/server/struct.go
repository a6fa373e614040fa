package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/woozymasta/tailexit/internal/favorites"
	"github.com/woozymasta/tailexit/internal/models"
)

// Server holds the dependencies, configuration, and runtime state required
// to serve the HTTP API.
type Server struct {
	// manager owns favorites and every request to tailscaled.
	manager *favorites.Manager

	// nodeCache keeps the last exit node list for nodeCacheTTL so a menu
	// refresh does not hit tailscaled on every open. The current exit node
	// is never cached.
	nodeCache *ttlcache.Cache[string, *nodeSnapshot]

	// shutdown is closed to stop background goroutines and event streams.
	shutdown chan struct{}

	// authToken is the bearer token required on /api endpoints.
	authToken string

	// wg waits for background goroutines on shutdown.
	wg sync.WaitGroup

	// rateCount is the number of requests allowed per client within rateWindow.
	rateCount int

	// rateWindow is the time window duration for the rate limiter.
	rateWindow time.Duration

	stopOnce sync.Once
	started  atomic.Bool
}

// nodeSnapshot is one fetched exit node list with its encoded body and ETag.
type nodeSnapshot struct {
	etag  string
	body  []byte
	nodes []models.ExitNode
}

// addFavoriteRequest is the body of POST /api/favorites.
// Exactly one of Node and Group must be set.
type addFavoriteRequest struct {
	Node  string `json:"node,omitempty"`
	Group string `json:"group,omitempty"`
}

// favoriteView is a favorite with its active state.
type favoriteView struct {
	favorites.Favorite
	Active bool `json:"active"`
}

// groupsResponse is the body of GET /api/groups.
type groupsResponse struct {
	Groups  []models.LocationGroup `json:"groups"`
	Tailnet []models.ExitNode      `json:"tailnet"`
}

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	Current  string `json:"current,omitempty"`
	Favorite string `json:"favorite,omitempty"`
}
