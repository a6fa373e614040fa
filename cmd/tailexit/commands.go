package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/config"
	"github.com/woozymasta/tailexit/internal/favorites"
	"github.com/woozymasta/tailexit/internal/geoip"
	"github.com/woozymasta/tailexit/internal/location"
	"github.com/woozymasta/tailexit/internal/models"
)

// run executes the selected command.
func run(ctx context.Context, cfg *config.Config, cmd string, m *favorites.Manager) error {
	switch cmd {
	case config.CmdNodes:
		return runNodes(ctx, os.Stdout, m, cfg.Nodes.JSON)
	case config.CmdGroups:
		return runGroups(ctx, os.Stdout, m, cfg.Groups.JSON)
	case config.CmdNearest:
		return runNearest(ctx, os.Stdout, cfg, m)
	case config.CmdList:
		return runList(ctx, os.Stdout, m, cfg.List.JSON)
	case config.CmdAdd:
		f, err := m.AddNode(ctx, cfg.Add.Args.Node)
		return printAdded(os.Stdout, f, err)
	case config.CmdAddGroup:
		f, err := m.AddGroup(ctx, cfg.AddGroup.Args.Key)
		return printAdded(os.Stdout, f, err)
	case config.CmdRemove:
		return m.Remove(cfg.Remove.Args.Favorite)
	case config.CmdToggle:
		res, err := m.Toggle(ctx, cfg.Toggle.Args.Favorite)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, res)
	case config.CmdOff:
		res, err := m.Disable(ctx)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, res)
	case config.CmdStatus:
		return runStatus(ctx, os.Stdout, m)
	case config.CmdExport:
		return runExport(cfg.Export, m)
	case config.CmdImport:
		return runImport(cfg.Import, m)
	case config.CmdServe:
		return runServe(ctx, cfg, m)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func onlineMark(n models.ExitNode) string {
	if n.Online {
		return "online"
	}
	return "offline"
}

func runNodes(ctx context.Context, out io.Writer, m *favorites.Manager, asJSON bool) error {
	nodes, err := m.Nodes(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(out, nodes)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tName\tLocation\tStatus\t")
	for _, n := range nodes {
		loc := "-"
		if key, ok := location.Key(n.Location); ok {
			loc = location.CountryFlag(n.Location.CountryCode) + " " + key
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", n.ID, n.Name, loc, onlineMark(n))
	}

	return w.Flush()
}

func runGroups(ctx context.Context, out io.Writer, m *favorites.Manager, asJSON bool) error {
	nodes, err := m.Nodes(ctx)
	if err != nil {
		return err
	}
	groups := location.Group(nodes)
	tailnet := location.TailnetNodes(nodes)

	if asJSON {
		return printJSON(out, map[string]any{"groups": groups, "tailnet": tailnet})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "Key\tLocation\tNodes\t")
	for _, g := range groups {
		_, _ = fmt.Fprintf(w, "%s\t%s %s\t%d\t\n",
			g.Key, location.CountryFlag(g.Location.CountryCode), g.DisplayName, len(g.Members))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(tailnet) > 0 {
		_, _ = fmt.Fprintln(out, "\nTailnet exit nodes:")
		for _, n := range tailnet {
			_, _ = fmt.Fprintf(out, "  %s (%s)\n", n.Name, n.ID)
		}
	}

	return nil
}

func runNearest(ctx context.Context, out io.Writer, cfg *config.Config, m *favorites.Manager) error {
	if err := geoip.EnsureDB(ctx, cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
		log.Warn().Err(err).Msg("Failed to update GeoIP database")
	}

	provider, err := geoip.Open(cfg.GeoIP.Path)
	if err != nil {
		return fmt.Errorf("open GeoIP database: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing GeoIP provider")
		}
	}()

	origin, err := provider.Locate(cfg.Nearest.Args.IP)
	if err != nil {
		return err
	}

	groups, err := m.Groups(ctx)
	if err != nil {
		return err
	}

	ranked := location.Nearest(
		location.Point{Latitude: origin.Latitude, Longitude: origin.Longitude},
		groups, cfg.Nearest.Limit,
	)

	_, _ = fmt.Fprintf(out, "From %s\n\n", location.DisplayName(origin))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "Key\tLocation\tDistance\tNodes\t")
	for _, r := range ranked {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s km\t%d\t\n",
			r.Group.Key, r.Group.DisplayName, humanize.Comma(int64(r.DistanceKm)), len(r.Group.Members))
	}

	return w.Flush()
}

func runList(ctx context.Context, out io.Writer, m *favorites.Manager, asJSON bool) error {
	favs, err := m.Favorites()
	if err != nil {
		return err
	}

	current, err := m.Current(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Listing favorites without active state")
	}

	if asJSON {
		return printJSON(out, favs)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tName\tNodes\tNext\tActive\t")
	for i := range favs {
		f := &favs[i]
		next := f.MemberNodeIDs[f.RotationCursor]
		active := ""
		if f.IsActive(current) {
			active = "*"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t\n", f.Order, f.Name, len(f.MemberNodeIDs), next, active)
	}

	return w.Flush()
}

func printAdded(out io.Writer, f *favorites.Favorite, err error) error {
	if err != nil {
		return err
	}
	if f == nil {
		_, _ = fmt.Fprintf(out, "Favorite limit of %d reached, nothing added\n", favorites.MaxFavorites)
		return nil
	}

	_, _ = fmt.Fprintf(out, "%d\t%s\n", f.Order, f.Name)
	return nil
}

func printResult(out io.Writer, res favorites.Result) error {
	switch {
	case res.Current == "":
		_, err := fmt.Fprintln(out, "Exit node off")
		return err
	case res.NodeID != "" && res.NodeID != res.Current:
		_, err := fmt.Fprintf(out, "Requested %s, tailscaled reports %s\n", res.NodeID, res.Current)
		return err
	default:
		_, err := fmt.Fprintf(out, "Using exit node %s\n", res.Current)
		return err
	}
}

func runStatus(ctx context.Context, out io.Writer, m *favorites.Manager) error {
	current, err := m.Current(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		_, err := fmt.Fprintln(out, "Exit node off")
		return err
	}

	favs, err := m.Favorites()
	if err != nil {
		return err
	}
	for i := range favs {
		if favs[i].IsActive(current) {
			_, err := fmt.Fprintf(out, "Using exit node %s (favorite %q)\n", current, favs[i].Name)
			return err
		}
	}

	_, err = fmt.Fprintf(out, "Using exit node %s\n", current)
	return err
}

func runExport(cmd config.ExportCommand, m *favorites.Manager) error {
	format, err := favorites.ParseFormat(cmd.Format)
	if err != nil {
		return err
	}

	favs, err := m.Favorites()
	if err != nil {
		return err
	}

	if cmd.Output == "-" {
		return favorites.Export(os.Stdout, favs, format)
	}

	f, err := os.Create(cmd.Output)
	if err != nil {
		return err
	}
	if err := favorites.Export(f, favs, format); err != nil {
		_ = f.Close()
		return err
	}

	log.Info().Int("count", len(favs)).Str("file", cmd.Output).Msg("Favorites exported")
	return f.Close()
}

func runImport(cmd config.ImportCommand, m *favorites.Manager) error {
	format, err := favorites.ParseFormat(cmd.Format)
	if err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if cmd.Args.File != "-" {
		f, err := os.Open(cmd.Args.File)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	favs, err := favorites.Decode(in, format)
	if err != nil {
		return err
	}

	added, err := m.Import(favs, cmd.Replace)
	if err != nil {
		return err
	}

	log.Info().Int("added", added).Int("read", len(favs)).Bool("replace", cmd.Replace).Msg("Favorites imported")
	return nil
}
