package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/watchx/internal/formatter"
	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
	"github.com/desertthunder/watchx/internal/watchlist"
)

// mediaArgs reads the <movie|tv> <id> positional arguments.
func mediaArgs(cmd *cli.Command) (models.MediaType, int, error) {
	rawType, rawID := cmd.StringArg("type"), cmd.StringArg("id")
	if rawType == "" || rawID == "" {
		return "", 0, fmt.Errorf("%w: expected <movie|tv> <id>", shared.ErrMissingArgument)
	}

	mediaType, err := models.ParseMediaType(rawType)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", shared.ErrInvalidMediaType, err)
	}

	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("%w: id must be a positive integer, got %q", shared.ErrInvalidArgument, rawID)
	}
	return mediaType, id, nil
}

// WatchlistAdd saves a movie or show.
func (r *Runner) WatchlistAdd(ctx context.Context, cmd *cli.Command) error {
	mediaType, id, err := mediaArgs(cmd)
	if err != nil {
		return err
	}
	r.restoreSession()

	ref := models.MediaReference{
		ID:          id,
		MediaType:   mediaType,
		PosterPath:  cmd.String("poster"),
		VoteAverage: cmd.Float("rating"),
	}
	if mediaType == models.TV {
		ref.Name = cmd.String("title")
		ref.FirstAirDate = cmd.String("date")
	} else {
		ref.Title = cmd.String("title")
		ref.ReleaseDate = cmd.String("date")
	}

	if !r.store.AddItem(ref) {
		return r.writePlain("• %s is already on your watchlist\n", describe(ref))
	}
	return r.writePlain("✓ Added %s\n", describe(ref))
}

// WatchlistRemove drops a saved item.
func (r *Runner) WatchlistRemove(ctx context.Context, cmd *cli.Command) error {
	mediaType, id, err := mediaArgs(cmd)
	if err != nil {
		return err
	}
	r.restoreSession()

	key := models.MediaKey(id, mediaType)
	if !r.store.RemoveItem(id, mediaType) {
		return r.writePlain("• %s is not on your watchlist\n", key)
	}
	return r.writePlain("✓ Removed %s\n", key)
}

// WatchlistCheck reports whether an item is saved.
func (r *Runner) WatchlistCheck(ctx context.Context, cmd *cli.Command) error {
	mediaType, id, err := mediaArgs(cmd)
	if err != nil {
		return err
	}

	key := models.MediaKey(id, mediaType)
	if r.store.IsInWatchlist(id, mediaType) {
		return r.writePlain("✓ %s is on your watchlist\n", key)
	}
	return r.writePlain("✗ %s is not on your watchlist\n", key)
}

// WatchlistList prints saved items, optionally fuzzy-filtered by title.
func (r *Runner) WatchlistList(ctx context.Context, cmd *cli.Command) error {
	r.restoreSession()

	items := watchlist.Filter(r.store.Items(), cmd.String("filter"))

	if raw := cmd.String("type"); raw != "" {
		mediaType, err := models.ParseMediaType(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		kept := items[:0]
		for _, item := range items {
			if item.MediaType == mediaType {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	if len(items) == 0 {
		if r.store.Len() == 0 {
			return r.writePlain("Your watchlist is empty. Add something with: watchx watchlist add movie <id>\n")
		}
		return r.writePlain("No items match.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Watchlist (%d of %d)", len(items), r.store.Len()))
	for i, item := range items {
		r.writePlain("%3d. %-40s %-5s %s\n", i+1, truncate(displayName(item), 40), item.MediaType, item.Key())
	}
	return nil
}

// WatchlistClear empties local state after confirmation.
func (r *Runner) WatchlistClear(ctx context.Context, cmd *cli.Command) error {
	n := r.store.Len()
	if n == 0 {
		return r.writePlain("Your watchlist is already empty.\n")
	}
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: clearing removes %d items from this device; pass --yes to confirm", shared.ErrMissingArgument, n)
	}

	r.store.ClearWatchlist()
	return r.writePlain("✓ Cleared %d items (your cloud watchlist was not changed)\n", n)
}

// WatchlistSync reconciles with the cloud copy and reports the outcome.
func (r *Runner) WatchlistSync(ctx context.Context, cmd *cli.Command) error {
	_, before := r.store.LastSync()
	user := r.restoreSession()
	if user == nil {
		return fmt.Errorf("%w: run `watchx auth login` first", shared.ErrNotAuthenticated)
	}

	// Restoring the session syncs; report that run instead of reading the remote again.
	res, after := r.store.LastSync()
	if after == before {
		res = r.store.SyncWithCloud(ctx)
	}
	if res.Err != nil {
		return fmt.Errorf("sync failed: %w", res.Err)
	}
	return r.writePlain("✓ %s (%d items)\n", describeOutcome(res), res.Items)
}

// WatchlistExport renders the watchlist with the formatter package.
func (r *Runner) WatchlistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	r.restoreSession()

	owner := ""
	if u := r.session.CurrentUser(); u != nil {
		owner = u.String()
	}
	export := formatter.NewExport(owner, r.store.Items())

	output := cmd.String("output")
	if output == "-" {
		data, err := formatter.Render(export, format)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	path, err := formatter.WriteExport(export, format, output)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d items to %s\n", len(export.Items), path)
}

func describe(ref models.MediaReference) string {
	if title := ref.DisplayTitle(); title != "" {
		return fmt.Sprintf("%s (%s)", title, ref.Key())
	}
	return ref.Key()
}

func displayName(ref models.MediaReference) string {
	name := ref.DisplayTitle()
	if name == "" {
		name = "untitled"
	}
	if year := ref.Year(); year != "" {
		name += " (" + year + ")"
	}
	return name
}

func describeOutcome(res watchlist.SyncResult) string {
	switch {
	case res.Coalesced:
		return "Sync already running"
	case res.Outcome == watchlist.PushedInitial:
		return "Created cloud watchlist"
	case res.Outcome == watchlist.Merged && res.Pushed:
		return "Merged and uploaded"
	case res.Outcome == watchlist.Merged:
		return "Merged cloud watchlist"
	default:
		return "Nothing to sync"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
