// Package notify delivers new-chapter notifications. The tracker hands it a
// batch of payloads after a job completes; how they are formatted and where
// they go is this package's business alone.
package notify

import "time"

// NewChapter is the notification payload contract: one entry per chapter the
// tracker persisted during a job.
type NewChapter struct {
	MangaTitle    string    `json:"manga_title"`
	ChapterNumber string    `json:"chapter_number"`
	ChapterTitle  string    `json:"chapter_title,omitempty"`
	URL           string    `json:"url"`
	SourceName    string    `json:"source_name"`
	DetectedAt    time.Time `json:"detected_at"`
}
