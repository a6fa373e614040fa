// Package maintenance provides tools to clean up and refresh stored favorites
// against the current tailnet.
package maintenance

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/config"
	"github.com/woozymasta/tailexit/internal/favorites"
	"github.com/woozymasta/tailexit/internal/location"
)

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(ctx context.Context, cfg *config.Config, m *favorites.Manager) bool {
	if !cfg.Storage.PruneStale && !cfg.Storage.ResyncGroups {
		return false
	}

	// resync first so a group whose members changed is not pruned
	if cfg.Storage.ResyncGroups {
		log.Info().Msg("Resyncing group favorites...")
		count, err := ResyncGroups(ctx, m)
		if err != nil {
			log.Error().Err(err).Msg("Failed to resync group favorites")
		} else {
			log.Info().Int("updated", count).Msg("Resync finished")
		}
	}

	if cfg.Storage.PruneStale {
		log.Info().Msg("Pruning stale favorites...")
		count, err := PruneStale(ctx, m)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune favorites")
		} else {
			log.Info().Int("deleted", count).Msg("Prune finished")
		}
	}

	return true
}

// PruneStale deletes favorites none of whose nodes is offered as an exit node anymore.
func PruneStale(ctx context.Context, m *favorites.Manager) (int, error) {
	nodes, err := m.Nodes(ctx)
	if err != nil {
		return 0, err
	}

	present := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		present[n.ID] = struct{}{}
	}

	favs, err := m.Favorites()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, f := range favs {
		alive := slices.ContainsFunc(f.MemberNodeIDs, func(id string) bool {
			_, ok := present[id]
			return ok
		})
		if alive {
			continue
		}

		if err := m.Remove(f.ID); err != nil {
			return deleted, err
		}
		log.Debug().Str("name", f.Name).Msg("Stale favorite deleted")
		deleted++
	}

	return deleted, nil
}

// ResyncGroups replaces the members of every group favorite with the current
// members of the location group with the same key. Favorites whose group
// disappeared are left untouched.
func ResyncGroups(ctx context.Context, m *favorites.Manager) (int, error) {
	groups, err := m.Groups(ctx)
	if err != nil {
		return 0, err
	}

	favs, err := m.Favorites()
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, f := range favs {
		if f.LocationKey == "" {
			continue
		}

		g, ok := location.Find(groups, f.LocationKey)
		if !ok {
			log.Debug().Str("name", f.Name).Str("key", f.LocationKey).Msg("Location group not offered anymore")
			continue
		}

		ids := g.MemberIDs()
		if slices.Equal(ids, f.MemberNodeIDs) {
			continue
		}

		if err := m.ReplaceMembers(f.ID, ids); err != nil {
			return updated, err
		}
		log.Debug().Str("name", f.Name).Int("members", len(ids)).Msg("Group favorite updated")
		updated++
	}

	return updated, nil
}
