package scanlator

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"mangatrack/internal/browser"
	"mangatrack/pkg/utils"
)

// ProtocolSpec is the per-site wiring for the shared extraction protocol:
// where the chapter list lives, what reveals more of it, and how to lift the
// entries out.
type ProtocolSpec struct {
	ListSelector     string // primary chapter-listing container to wait for
	LoadMoreSelector string // incremental reveal control; empty = none
	Entries          browser.EntrySpec
}

// ExtractWithReveal runs the extraction protocol every plugin shares:
//
//  1. navigate to the manga page and wait for the chapter list
//  2. activate the "load more" control until it disappears or the
//     configured click bound is hit
//  3. one batch extraction of all visible entries
//  4. normalize numbers and dates per entry
//  5. sort ascending by (numeric chapter value, date)
//
// Failures degrade to an empty slice; this never returns an error to keep
// the plugin contract's soft-failure guarantee in one place.
func ExtractWithReveal(
	ctx context.Context,
	page browser.Page,
	mangaURL string,
	spec ProtocolSpec,
	cfg utils.TrackerConfig,
	parseNumber func(string) string,
	log *logrus.Entry,
) []Chapter {
	if err := page.Goto(ctx, mangaURL, cfg.NavTimeout); err != nil {
		log.Errorf("failed to load %s: %v", mangaURL, err)
		return nil
	}

	if err := page.WaitForSelector(ctx, spec.ListSelector, cfg.WaitTimeout); err != nil {
		log.Errorf("chapter list %q never appeared on %s: %v", spec.ListSelector, mangaURL, err)
		return nil
	}

	revealAll(ctx, page, spec.LoadMoreSelector, cfg, log)

	raw, err := page.ExtractEntries(spec.Entries)
	if err != nil {
		log.Errorf("batch extraction failed on %s: %v", mangaURL, err)
		return nil
	}

	chapters := make([]Chapter, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, e := range raw {
		if _, dup := seen[e.URL]; dup {
			continue
		}
		seen[e.URL] = struct{}{}

		chapters = append(chapters, Chapter{
			Number:      parseNumber(e.Title),
			Title:       e.Title,
			URL:         e.URL,
			PublishedAt: ParseDate(e.DateText),
		})
	}

	SortChapters(chapters)
	log.Infof("extracted %d chapters from %s", len(chapters), mangaURL)
	return chapters
}

// revealAll clicks the incremental reveal control until it goes away. The
// click bound keeps a malformed page from looping forever; hitting it is a
// warning, not a failure.
func revealAll(ctx context.Context, page browser.Page, selector string, cfg utils.TrackerConfig, log *logrus.Entry) {
	if selector == "" {
		return
	}

	clicks := 0
	for page.IsVisible(selector) {
		if clicks >= cfg.MaxRevealClicks {
			log.Warnf("reveal control %q still visible after %d clicks, stopping", selector, clicks)
			return
		}
		if err := page.Click(ctx, selector); err != nil {
			log.Debugf("reveal control %q not clickable: %v", selector, err)
			return
		}
		clicks++

		// content-settle delay
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.SettleDelay):
		}
	}
	if clicks > 0 {
		log.Debugf("revealed full list after %d clicks", clicks)
	}
}

// SortChapters orders chapters oldest to newest by (numeric chapter value,
// date), so downstream diffing is deterministic regardless of DOM order.
func SortChapters(chapters []Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		vi, vj := numericValue(chapters[i].Number), numericValue(chapters[j].Number)
		if vi != vj {
			return vi < vj
		}
		return chapters[i].PublishedAt.Before(chapters[j].PublishedAt)
	})
}
