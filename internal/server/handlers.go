package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/favorites"
	"github.com/woozymasta/tailexit/internal/location"
	"github.com/woozymasta/tailexit/internal/vars"
)

// maxImportBody limits the size of an uploaded favorites document.
const maxImportBody = 1 << 20

// respond writes v as JSON with the given status.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage writes a {"error": msg} body.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

// writeError maps manager errors to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, favorites.ErrNotFound),
		errors.Is(err, favorites.ErrNoSuchNode),
		errors.Is(err, favorites.ErrNoSuchGroup):
		status = http.StatusNotFound
	case errors.Is(err, favorites.ErrDaemon):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}

	writeMessage(w, status, err.Error())
}

// handleNodes returns the exit nodes offered by the tailnet.
// The list is cached for the configured TTL; ?refresh=true bypasses the cache.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		s.invalidateNodes()
	}

	snap, err := s.snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("ETag", snap.etag)
	if r.Header.Get("If-None-Match") == snap.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(snap.body)
}

// handleGroups returns location groups and the ungrouped tailnet nodes.
func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, groupsResponse{
		Groups:  location.Group(snap.nodes),
		Tailnet: location.TailnetNodes(snap.nodes),
	})
}

// handleListFavorites returns favorites in order, marking the active one.
// When tailscaled is unreachable the list is still returned without active flags.
func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.manager.Favorites()
	if err != nil {
		writeError(w, r, err)
		return
	}

	current, err := s.manager.Current(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Listing favorites without active state")
		current = ""
	}

	out := make([]favoriteView, 0, len(favs))
	for i := range favs {
		out = append(out, favoriteView{Favorite: favs[i], Active: favs[i].IsActive(current)})
	}

	respond(w, http.StatusOK, out)
}

// handleAddFavorite favorites a node or a location group.
// Body: {"node": "<id|name>"} or {"group": "<key>"}
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if (req.Node == "") == (req.Group == "") {
		writeMessage(w, http.StatusBadRequest, "exactly one of node or group is required")
		return
	}

	var (
		f   *favorites.Favorite
		err error
	)
	if req.Node != "" {
		f, err = s.manager.AddNode(r.Context(), req.Node)
	} else {
		f, err = s.manager.AddGroup(r.Context(), req.Group)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if f == nil {
		respond(w, http.StatusOK, map[string]string{
			"status":  "ignored",
			"message": "favorite limit of " + strconv.Itoa(favorites.MaxFavorites) + " reached",
		})
		return
	}

	respond(w, http.StatusCreated, f)
}

// handleDeleteFavorite removes a favorite by index, id or name.
func (s *Server) handleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Remove(r.PathValue("ref")); err != nil {
		writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleToggle activates the favorite's next node, or disables the exit node
// when the favorite is already active.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	res, err := s.manager.Toggle(r.Context(), r.PathValue("ref"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, res)
}

// handleOff stops using an exit node.
func (s *Server) handleOff(w http.ResponseWriter, r *http.Request) {
	res, err := s.manager.Disable(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, res)
}

// handleStatus reports the active exit node and the favorite it belongs to.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	current, err := s.manager.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := statusResponse{Current: current}
	if current != "" {
		favs, err := s.manager.Favorites()
		if err != nil {
			writeError(w, r, err)
			return
		}
		for i := range favs {
			if favs[i].IsActive(current) {
				resp.Favorite = favs[i].Name
				break
			}
		}
	}

	respond(w, http.StatusOK, resp)
}

// handleExport writes all favorites.
// Query params: ?format=yaml|json
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := favorites.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	favs, err := s.manager.Favorites()
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if err := favorites.Export(w, favs, format); err != nil {
		log.Error().Err(err).Msg("Failed to export favorites")
	}
}

// handleImport adds favorites from an uploaded document.
// Query params: ?format=yaml|json&replace=true
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	format, err := favorites.ParseFormat(query.Get("format"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	replace, _ := strconv.ParseBool(query.Get("replace"))

	favs, err := favorites.Decode(io.LimitReader(r.Body, maxImportBody), format)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.manager.Import(favs, replace)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Info().Int("added", added).Bool("replace", replace).Msg("Favorites imported")
	respond(w, http.StatusOK, map[string]int{"added": added})
}

// handleVersion returns build information. It requires no authentication.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, vars.Info())
}
