package models

import "time"

// Source is a scanlation site we track chapters from.
//
// ImplName is the canonical identifier the scanlator registry resolves to a
// concrete plugin. The display name is not stored: it is derived from the
// registered plugin, so the two can never drift apart.
type Source struct {
	ID        int64     `json:"id"`
	ImplName  string    `json:"impl_name"`
	Name      string    `json:"name"` // derived from the registry, not persisted
	BaseURL   string    `json:"base_url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
