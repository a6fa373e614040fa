// Package server implements the HTTP API used by menu-bar front ends:
// exit nodes, location groups, favorites and the toggle action.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/config"
	"github.com/woozymasta/tailexit/internal/favorites"
)

const nodesCacheKey = "nodes"

// New creates a new Server over the favorites manager with the provided configuration.
func New(m *favorites.Manager, cfg *config.Config) *Server {
	ttl := cfg.Server.NodeCacheTTL
	if ttl <= 0 {
		ttl = time.Nanosecond
	}

	return &Server{
		manager:    m,
		authToken:  cfg.Server.AuthToken,
		rateCount:  cfg.RateLimit.Count,
		rateWindow: cfg.RateLimit.Window,
		nodeCache: ttlcache.New(
			ttlcache.WithTTL[string, *nodeSnapshot](ttl),
			ttlcache.WithDisableTouchOnHit[string, *nodeSnapshot](),
		),
		shutdown: make(chan struct{}),
	}
}

// StartWorkers starts the cache expiry loop and the change-event logger.
func (s *Server) StartWorkers() {
	s.started.Store(true)
	s.wg.Add(2)

	go func() {
		defer s.wg.Done()
		s.nodeCache.Start()
	}()

	events, cancel := s.manager.Subscribe()
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.logEvents(events)
	}()
}

// StopWorkers stops background goroutines and open event streams.
func (s *Server) StopWorkers() {
	s.stopOnce.Do(func() {
		close(s.shutdown)
		if s.started.Load() {
			s.nodeCache.Stop()
		}
	})
	s.wg.Wait()
}

// Handler configures the HTTP routes and returns the main handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	api := func(h http.HandlerFunc) http.Handler {
		return AdminAuthMiddleware(s.authToken, h)
	}

	mux.Handle("GET /api/nodes", api(s.handleNodes))
	mux.Handle("GET /api/groups", api(s.handleGroups))
	mux.Handle("GET /api/favorites", api(s.handleListFavorites))
	mux.Handle("POST /api/favorites", api(s.handleAddFavorite))
	mux.Handle("DELETE /api/favorites/{ref}", api(s.handleDeleteFavorite))
	mux.Handle("POST /api/favorites/{ref}/toggle", api(s.handleToggle))
	mux.Handle("POST /api/exit-node/off", api(s.handleOff))
	mux.Handle("GET /api/status", api(s.handleStatus))
	mux.Handle("GET /api/export", api(s.handleExport))
	mux.Handle("POST /api/import", api(s.handleImport))
	mux.Handle("GET /api/events", api(s.handleEvents))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	return s.LoggingMiddleware(s.RateLimitMiddleware(mux))
}

// snapshot returns the cached exit node list, fetching it when expired.
func (s *Server) snapshot(ctx context.Context) (*nodeSnapshot, error) {
	if item := s.nodeCache.Get(nodesCacheKey); item != nil {
		return item.Value(), nil
	}

	nodes, err := s.manager.Nodes(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(nodes)
	if err != nil {
		return nil, err
	}

	snap := &nodeSnapshot{
		nodes: nodes,
		body:  body,
		etag:  fmt.Sprintf(`"%016x"`, xxhash.Sum64(body)),
	}
	s.nodeCache.Set(nodesCacheKey, snap, ttlcache.DefaultTTL)

	return snap, nil
}

// invalidateNodes drops the cached node list.
func (s *Server) invalidateNodes() {
	s.nodeCache.Delete(nodesCacheKey)
}

// logEvents writes manager change events to the log until the stream ends
// or the server shuts down.
func (s *Server) logEvents(events <-chan favorites.Event) {
	for {
		select {
		case <-s.shutdown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			log.Debug().
				Str("kind", string(ev.Kind)).
				Str("favorite", ev.FavoriteID).
				Str("node", ev.NodeID).
				Msg("State changed")
		}
	}
}
