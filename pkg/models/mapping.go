package models

import "time"

// Mapping is the verified association of a Manga to a Source, carrying the
// site-specific URL the tracker scrapes. Unique per (manga, source).
type Mapping struct {
	ID        int64     `json:"id"`
	MangaID   int64     `json:"manga_id"`
	SourceID  int64     `json:"source_id"`
	MangaURL  string    `json:"manga_url"`
	Verified  bool      `json:"verified"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrackedMapping is the joined row the orchestrator works from: one eligible
// mapping plus the manga and source columns it needs while processing.
type TrackedMapping struct {
	MappingID  int64  `json:"mapping_id"`
	MangaID    int64  `json:"manga_id"`
	MangaTitle string `json:"manga_title"`
	SourceID   int64  `json:"source_id"`
	SourceImpl string `json:"source_impl"`
	MangaURL   string `json:"manga_url"`
}
