// Package cli provides output helpers for the kashf command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseFormat maps a flag value to an output format.
func ParseFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(s); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for i, result := range response.Results {
			fmt.Fprintf(w, "%d. [%.4f] %s | %s | %s\n", i+1, result.SimilarityScore,
				result.Collection, result.Title, TruncateWords(oneLine(result.Content), 12))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.TotalResults, response.Query, response.QueryTime)
	for i, result := range response.Results {
		writeOneResult(w, i+1, result)
	}
}

func writeOneResult(w io.Writer, rank int, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s\n", rank, result.SimilarityScore, result.Collection)
	if result.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", result.Title)
	}
	if result.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", result.Source)
	}
	if link := firstNonEmpty(result.YoutubeLink, result.SourceURL); link != "" {
		fmt.Fprintf(w, "Link: %s\n", link)
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Content, 200))
	fmt.Fprintln(w)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// WriteVerses writes a verse range lookup to w.
func WriteVerses(w io.Writer, response *models.VerseRangeResponse, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if len(response.Verses) == 0 {
		fmt.Fprintf(w, "No verses found for %s\n", response.RangeRequested)
		return nil
	}
	for _, v := range response.Verses {
		if format == OutputCompact {
			fmt.Fprintf(w, "[%s] %s\n", v.Ref, oneLine(v.English))
			continue
		}
		if v.Subtitle != "" {
			fmt.Fprintf(w, "\n## %s\n", v.Subtitle)
		}
		fmt.Fprintf(w, "[%s] %s\n", v.Ref, v.English)
		if v.Arabic != "" {
			fmt.Fprintf(w, "      %s\n", v.Arabic)
		}
		if v.Footnote != "" {
			fmt.Fprintf(w, "      * %s\n", v.Footnote)
		}
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
