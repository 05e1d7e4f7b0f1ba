package models

import "time"

// Chapter is one discovered chapter belonging to a Mapping.
//
// Number stays a string: it preserves decimal chapters ("42.5") and the odd
// non-numeric format a site invents, while the DB casts it for numeric sort.
// Unique per (mapping id, number); the schema enforces that, not the tracker.
type Chapter struct {
	ID          int64      `json:"id"`
	MappingID   int64      `json:"mapping_id"`
	Number      string     `json:"chapter_number"`
	Title       string     `json:"title,omitempty"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	DetectedAt  time.Time  `json:"detected_at"`
	Read        bool       `json:"read"`
}

// ChapterWithDetails joins the manga title and source identifier in for
// list endpoints so the UI does not have to chase foreign keys.
type ChapterWithDetails struct {
	Chapter
	MangaTitle string `json:"manga_title"`
	SourceImpl string `json:"source_impl"`
}
