package events

import "time"

// Event types broadcast over the feed.
const (
	TypeJobStarted   = "job.started"
	TypeJobCompleted = "job.completed"
	TypeJobFailed    = "job.failed"
	TypeNewChapter   = "chapter.new"
)

type JobEvent struct {
	Type             string    `json:"type"`
	JobID            string    `json:"job_id"`
	TotalMappings    int       `json:"total_mappings,omitempty"`
	NewChaptersFound int       `json:"new_chapters_found,omitempty"`
	At               time.Time `json:"at"`
}

type ChapterEvent struct {
	Type          string    `json:"type"`
	JobID         string    `json:"job_id"`
	MangaTitle    string    `json:"manga_title"`
	ChapterNumber string    `json:"chapter_number"`
	URL           string    `json:"url"`
	SourceName    string    `json:"source_name"`
	At            time.Time `json:"at"`
}
