// Package browser defines the page-automation capability the scanlator
// plugins are written against, plus a static-HTML implementation for sites
// that render their chapter lists server-side.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNavigation marks an unreachable page or a navigation timeout.
	ErrNavigation = errors.New("browser: navigation failed")
	// ErrNoSuchElement marks a selector that never appeared.
	ErrNoSuchElement = errors.New("browser: no such element")
	// ErrNotInteractable marks a control the engine cannot activate.
	ErrNotInteractable = errors.New("browser: element not interactable")
)

// Engine owns pages. One engine is acquired per tracking job and must be
// closed when the job finishes.
type Engine interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browsing context. One page is opened per mapping and must
// be closed when that mapping is done, on every exit path.
type Page interface {
	// Goto navigates to url, bounded by timeout.
	Goto(ctx context.Context, url string, timeout time.Duration) error
	// WaitForSelector blocks until selector is present, bounded by timeout.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// IsVisible reports whether selector currently matches a visible element.
	IsVisible(selector string) bool
	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string) error
	// ExtractEntries performs one batched DOM-to-struct extraction of every
	// element matching spec.Item.
	ExtractEntries(spec EntrySpec) ([]RawEntry, error)
	Close() error
}

// EntrySpec describes how to lift structured entries out of a page in a
// single batch call. Item is the per-entry selector; the rest are resolved
// relative to each item and may be empty.
type EntrySpec struct {
	Item  string // one chapter / search hit
	Title string // title text; empty means the item's own text
	Link  string // anchor element; empty means the item itself or its first <a>
	Date  string // raw date text
	Cover string // cover <img>
}

// RawEntry is one extracted entry before any normalization.
type RawEntry struct {
	Title    string
	URL      string
	DateText string
	CoverURL string
}
