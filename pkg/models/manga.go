package models

import "time"

// Manga publication status values.
const (
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusHiatus    = "hiatus"
	StatusCancelled = "cancelled"
	StatusUnknown   = "unknown"
)

// Manga is a tracked title, independent of any scraping source.
type Manga struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	AltTitles   []string   `json:"alt_titles"`
	CoverURL    string     `json:"cover_url,omitempty"`
	Status      string     `json:"status"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NormalizeStatus maps free-form site status text onto our enum.
func NormalizeStatus(s string) string {
	switch s {
	case StatusOngoing, StatusCompleted, StatusHiatus, StatusCancelled:
		return s
	case "canceled":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}
