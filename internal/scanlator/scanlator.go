// Package scanlator holds the plugin contract every scraping source
// implements, the registry that resolves a stored identifier to a concrete
// plugin, and the shared extraction protocol the plugins run.
package scanlator

import (
	"context"
	"time"

	"mangatrack/internal/browser"
	"mangatrack/pkg/utils"
)

// SearchResult is one candidate returned by a title search.
type SearchResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	CoverURL string `json:"cover_url,omitempty"`
}

// Chapter is one extracted chapter, already normalized.
type Chapter struct {
	Number      string    `json:"number"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Scanlator is the capability contract for a source plugin.
//
// Implementations must be idempotent under unchanged remote state and must
// never propagate transient failures: a timeout or a missing selector
// degrades to an empty result, logged at error level.
type Scanlator interface {
	// Name returns the plugin's display name.
	Name() string

	// Search runs a best-effort title search. Empty on failure.
	Search(ctx context.Context, title string) []SearchResult

	// ExtractChapters extracts every chapter on the manga's page, ordered
	// oldest to newest. Empty on failure.
	ExtractChapters(ctx context.Context, mangaURL string) []Chapter

	// ParseChapterNumber normalizes raw chapter text ("Chapter 42.5",
	// "Cap. 3") into a bare number string, "0" if none is found.
	ParseChapterNumber(raw string) string
}

// Factory builds a plugin bound to one page. The page's lifetime is managed
// by the caller.
type Factory func(page browser.Page, cfg utils.TrackerConfig) Scanlator
