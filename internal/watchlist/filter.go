package watchlist

import (
	"slices"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"github.com/sahilm/fuzzy"

	"github.com/desertthunder/watchx/internal/models"
)

// titleIndex implements [fuzzy.Source] over folded display titles.
type titleIndex []string

func (t titleIndex) String(i int) string { return t[i] }
func (t titleIndex) Len() int            { return len(t) }

// Filter returns the items whose display title fuzzy-matches query, best match first.
//
// Matching ignores case and diacritics. A blank query returns a copy of items.
func Filter(items []models.MediaReference, query string) []models.MediaReference {
	query = FoldTitle(strings.TrimSpace(query))
	if query == "" {
		return slices.Clone(items)
	}

	idx := make(titleIndex, len(items))
	for i, item := range items {
		idx[i] = FoldTitle(item.DisplayTitle())
	}

	matches := fuzzy.FindFrom(query, idx)
	out := make([]models.MediaReference, 0, len(matches))
	for _, m := range matches {
		out = append(out, items[m.Index])
	}
	return out
}

// FoldTitle transliterates s to ASCII and lowercases it, so "Amélie" and
// "amelie" compare equal.
func FoldTitle(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}
