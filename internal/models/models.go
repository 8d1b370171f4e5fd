// package models defines the data model for the watchlist sync client and document service
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MediaType identifies the kind of media a [MediaReference] points at.
type MediaType string

const (
	Movie MediaType = "movie"
	TV    MediaType = "tv"
)

// ParseMediaType converts user input (case-insensitive) into a [MediaType].
//
// "series" and "show" are accepted as aliases for [TV].
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film":
		return Movie, nil
	case "tv", "series", "show":
		return TV, nil
	default:
		return "", fmt.Errorf("unknown media type %q", s)
	}
}

// Valid reports whether m is one of the supported media types.
func (m MediaType) Valid() bool {
	return m == Movie || m == TV
}

func (m MediaType) String() string {
	return string(m)
}

// MediaReference identifies a watchlist entry.
//
// ID and MediaType form the composite key; the remaining fields are display metadata carried opaquely.
type MediaReference struct {
	ID           int       `json:"id"`
	MediaType    MediaType `json:"mediaType"`
	Title        string    `json:"title,omitempty"`
	Name         string    `json:"name,omitempty"` // TV shows use name instead of title
	PosterPath   string    `json:"posterPath,omitempty"`
	VoteAverage  float64   `json:"voteAverage,omitempty"`
	ReleaseDate  string    `json:"releaseDate,omitempty"`
	FirstAirDate string    `json:"firstAirDate,omitempty"`

	// Extra holds fields this client does not model, kept verbatim so that
	// writing a record back never drops metadata another client stored.
	Extra map[string]json.RawMessage `json:"-"`
}

// mediaFields has the same layout as [MediaReference] without its JSON methods.
type mediaFields MediaReference

var modeledFields = map[string]struct{}{
	"id": {}, "mediatype": {}, "title": {}, "name": {}, "posterpath": {},
	"voteaverage": {}, "releasedate": {}, "firstairdate": {},
}

// MarshalJSON writes the modeled fields followed by [MediaReference.Extra] in key order.
func (m MediaReference) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(mediaFields(m))
	if err != nil || len(m.Extra) == 0 {
		return data, err
	}

	buf := bytes.NewBuffer(data[:len(data)-1])
	for _, key := range slices.Sorted(maps.Keys(m.Extra)) {
		if _, ok := modeledFields[strings.ToLower(key)]; ok {
			continue
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		if err := json.Compact(buf, m.Extra[key]); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the modeled fields and keeps the rest in [MediaReference.Extra].
func (m *MediaReference) UnmarshalJSON(data []byte) error {
	var fields mediaFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if _, ok := modeledFields[strings.ToLower(key)]; ok {
			delete(raw, key)
		}
	}

	fields.Extra = nil
	if len(raw) > 0 {
		fields.Extra = raw
	}
	*m = MediaReference(fields)
	return nil
}

// Key returns the composite identity of the reference, e.g. "movie:550".
func (m MediaReference) Key() string {
	return MediaKey(m.ID, m.MediaType)
}

// MediaKey builds the composite key for an id and media type without a full reference.
func MediaKey(id int, mediaType MediaType) string {
	return string(mediaType) + ":" + strconv.Itoa(id)
}

// DisplayTitle returns Title, falling back to Name for TV entries.
func (m MediaReference) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// Year returns the four digit year of the release or first air date, or an empty string.
func (m MediaReference) Year() string {
	date := m.ReleaseDate
	if date == "" {
		date = m.FirstAirDate
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// Validate checks the composite key fields.
func (m MediaReference) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("id must be positive, got %d", m.ID)
	}
	if !m.MediaType.Valid() {
		return fmt.Errorf("unknown media type %q", m.MediaType)
	}
	return nil
}

// WatchlistDocument is the remote per-user record.
//
// Revision and UpdatedAt are assigned by the document service and ignored on writes.
type WatchlistDocument struct {
	Watchlist []MediaReference `json:"watchlist"`
	Revision  string           `json:"revision,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt,omitzero"`
}

// User is an authenticated principal.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Token string `json:"token,omitempty"`
}

// String returns a short label for logs and CLI output.
func (u *User) String() string {
	if u == nil {
		return "<anonymous>"
	}
	if u.Name != "" {
		return fmt.Sprintf("%s (%s)", u.Name, u.ID)
	}
	return u.ID
}
