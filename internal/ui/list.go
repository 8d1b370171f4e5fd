package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/sahilm/fuzzy"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/watchlist"
)

var _ list.Item = mediaItem{}

// mediaItem wraps [models.MediaReference] to implement [list.Item].
type mediaItem struct {
	ref models.MediaReference
}

func (i mediaItem) FilterValue() string { return i.ref.DisplayTitle() }

func (i mediaItem) Title() string {
	if year := i.ref.Year(); year != "" {
		return fmt.Sprintf("%s (%s)", i.ref.DisplayTitle(), year)
	}
	return i.ref.DisplayTitle()
}

func (i mediaItem) Description() string {
	parts := []string{mediaLabel(i.ref.MediaType)}
	if i.ref.VoteAverage > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", i.ref.VoteAverage))
	}
	parts = append(parts, i.ref.Key())
	return strings.Join(parts, " • ")
}

func mediaLabel(t models.MediaType) string {
	if t == models.TV {
		return "TV"
	}
	return "Movie"
}

func toListItems(refs []models.MediaReference) []list.Item {
	items := make([]list.Item, len(refs))
	for i, ref := range refs {
		items[i] = mediaItem{ref: ref}
	}
	return items
}

// fuzzyFilter ranks list targets ignoring case and diacritics.
func fuzzyFilter(term string, targets []string) []list.Rank {
	folded := make([]string, len(targets))
	for i, t := range targets {
		folded[i] = watchlist.FoldTitle(t)
	}

	matches := fuzzy.Find(watchlist.FoldTitle(term), folded)
	ranks := make([]list.Rank, len(matches))
	for i, m := range matches {
		ranks[i] = list.Rank{Index: m.Index, MatchedIndexes: m.MatchedIndexes}
	}
	return ranks
}
