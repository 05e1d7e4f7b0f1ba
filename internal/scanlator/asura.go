package scanlator

import (
	"context"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"mangatrack/internal/browser"
	"mangatrack/pkg/utils"
)

// ImplAsuraScans is the implementation identifier stored on Source rows.
const ImplAsuraScans = "AsuraScans"

func init() {
	Register(ImplAsuraScans, "Asura Scans", NewAsuraScans)
}

// AsuraScans scrapes asuracomic.net, a popular English manhwa/manhua site.
type AsuraScans struct {
	page    browser.Page
	cfg     utils.TrackerConfig
	baseURL string
	log     *logrus.Entry
}

func NewAsuraScans(page browser.Page, cfg utils.TrackerConfig) Scanlator {
	return &AsuraScans{
		page:    page,
		cfg:     cfg,
		baseURL: "https://asuracomic.net",
		log:     logrus.WithField("scanlator", "Asura Scans"),
	}
}

func (a *AsuraScans) Name() string { return "Asura Scans" }

func (a *AsuraScans) Search(ctx context.Context, title string) []SearchResult {
	searchURL := a.baseURL + "/series?name=" + url.QueryEscape(title)

	if err := a.page.Goto(ctx, searchURL, a.cfg.NavTimeout); err != nil {
		a.log.Errorf("search page failed: %v", err)
		return nil
	}
	if err := a.page.WaitForSelector(ctx, ".grid", a.cfg.WaitTimeout); err != nil {
		a.log.Errorf("search results never appeared: %v", err)
		return nil
	}

	raw, err := a.page.ExtractEntries(browser.EntrySpec{
		Item:  `a[href*="series/"]`,
		Title: "h3",
		Cover: "img",
	})
	if err != nil {
		a.log.Errorf("search extraction failed: %v", err)
		return nil
	}

	results := make([]SearchResult, 0, len(raw))
	for _, e := range raw {
		// the grid mixes genre badges into anchor text; skip obvious ones
		switch strings.ToUpper(e.Title) {
		case "MANHWA", "MANGA", "MANHUA", "WEBTOON":
			continue
		}
		results = append(results, SearchResult{Title: e.Title, URL: e.URL, CoverURL: e.CoverURL})
	}

	a.log.Infof("found %d results for %q", len(results), title)
	return results
}

func (a *AsuraScans) ExtractChapters(ctx context.Context, mangaURL string) []Chapter {
	return ExtractWithReveal(ctx, a.page, mangaURL, ProtocolSpec{
		ListSelector: `a[href*="/chapter"]`,
		// the "All" tab that replaces the weekly/monthly subset
		LoadMoreSelector: `[role="tab"]:not([aria-selected="true"])`,
		Entries: browser.EntrySpec{
			Item:  `a[href*="/chapter"]`,
			Title: "h3",
			Date:  "h3 + h3, span.chapter-date",
		},
	}, a.cfg, a.ParseChapterNumber, a.log)
}

func (a *AsuraScans) ParseChapterNumber(raw string) string {
	// Asura labels openers "First Chapter"
	if strings.Contains(strings.ToLower(raw), "first") {
		return "1"
	}
	return ParseNumber(raw)
}
