// package formatter exports a watchlist to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

// PosterBaseURL prefixes poster paths in Markdown exports.
const PosterBaseURL = "https://image.tmdb.org/t/p/w185"

// Format names an export format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// ParseFormat accepts a format name; "md" and "text" are aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: format %q (want json, csv, markdown or txt)", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

// Export is a watchlist snapshot ready for rendering.
type Export struct {
	Owner      string                  `json:"owner,omitempty"`
	ExportedAt time.Time               `json:"exportedAt"`
	Items      []models.MediaReference `json:"items"`
}

// NewExport snapshots items for owner at the current time.
func NewExport(owner string, items []models.MediaReference) *Export {
	if items == nil {
		items = []models.MediaReference{}
	}
	return &Export{Owner: owner, ExportedAt: time.Now().UTC(), Items: items}
}

// Render encodes export in format.
func Render(export *Export, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return ExportToJSON(export)
	case CSV:
		return ExportToCSV(export)
	case Markdown:
		return ExportToMarkdown(export)
	case Text:
		return ExportToText(export)
	default:
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToJSON renders the export as indented JSON.
func ExportToJSON(export *Export) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts an export to CSV with columns: Key, ID, Type, Title, Year, Rating, Poster
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Key", "ID", "Type", "Title", "Year", "Rating", "Poster"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range export.Items {
		record := []string{
			item.Key(),
			strconv.Itoa(item.ID),
			item.MediaType.String(),
			item.DisplayTitle(),
			item.Year(),
			formatRating(item.VoteAverage),
			item.PosterPath,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the export as a heading, a summary and a table.
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	title := "Watchlist"
	if export.Owner != "" {
		title = fmt.Sprintf("Watchlist: %s", export.Owner)
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)

	movies, shows := countByType(export.Items)
	fmt.Fprintf(&buf, "**Items**: %d (%d movies, %d TV)\n", len(export.Items), movies, shows)
	fmt.Fprintf(&buf, "**Exported**: %s\n\n", export.ExportedAt.Format(time.RFC3339))

	if len(export.Items) == 0 {
		buf.WriteString("_Nothing saved yet._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Poster | Title | Type | Year | Rating |\n")
	buf.WriteString("|---|--------|-------|------|------|--------|\n")
	for i, item := range export.Items {
		poster := ""
		if item.PosterPath != "" {
			poster = fmt.Sprintf("![](%s%s)", PosterBaseURL, item.PosterPath)
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s |\n",
			i+1, poster, escapeCell(item.DisplayTitle()), item.MediaType, item.Year(), formatRating(item.VoteAverage))
	}

	return buf.Bytes(), nil
}

// ExportToText renders the export as a numbered plain-text list.
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("Watchlist")
	if export.Owner != "" {
		fmt.Fprintf(&buf, " for %s", export.Owner)
	}
	fmt.Fprintf(&buf, "\nItems: %d\n\n", len(export.Items))

	for i, item := range export.Items {
		line := fmt.Sprintf("%d. [%s] %s", i+1, item.MediaType, item.DisplayTitle())
		if year := item.Year(); year != "" {
			line += fmt.Sprintf(" (%s)", year)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// WriteExport renders export and writes it to path.
//
// An empty path defaults to watchlist.<ext> in the current directory; a path
// naming an existing directory gets that default filename inside it.
func WriteExport(export *Export, format Format, path string) (string, error) {
	name := "watchlist." + format.Extension()
	if path == "" {
		path = name
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, name)
	}

	data, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s export: %w", format, err)
	}

	return path, nil
}

func countByType(items []models.MediaReference) (movies, shows int) {
	for _, item := range items {
		switch item.MediaType {
		case models.Movie:
			movies++
		case models.TV:
			shows++
		}
	}
	return movies, shows
}

func formatRating(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
