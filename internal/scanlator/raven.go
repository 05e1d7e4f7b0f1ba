package scanlator

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"

	"mangatrack/internal/browser"
	"mangatrack/pkg/utils"
)

// ImplRavenScans is the implementation identifier stored on Source rows.
const ImplRavenScans = "RavenScans"

func init() {
	Register(ImplRavenScans, "Raven Scans", NewRavenScans)
}

// RavenScans scrapes ravenscans.org. The chapter list is fully rendered on
// the manga page (.chbox containers), so there is no reveal control to work
// through.
type RavenScans struct {
	page    browser.Page
	cfg     utils.TrackerConfig
	baseURL string
	log     *logrus.Entry
}

func NewRavenScans(page browser.Page, cfg utils.TrackerConfig) Scanlator {
	return &RavenScans{
		page:    page,
		cfg:     cfg,
		baseURL: "https://ravenscans.org",
		log:     logrus.WithField("scanlator", "Raven Scans"),
	}
}

func (r *RavenScans) Name() string { return "Raven Scans" }

func (r *RavenScans) Search(ctx context.Context, title string) []SearchResult {
	searchURL := r.baseURL + "/?s=" + url.QueryEscape(title)

	if err := r.page.Goto(ctx, searchURL, r.cfg.NavTimeout); err != nil {
		r.log.Errorf("search page failed: %v", err)
		return nil
	}
	if err := r.page.WaitForSelector(ctx, "article.item-thumb, .c-tabs-item__content", r.cfg.WaitTimeout); err != nil {
		r.log.Errorf("search results never appeared: %v", err)
		return nil
	}

	raw, err := r.page.ExtractEntries(browser.EntrySpec{
		Item:  "article.item-thumb, .manga-item",
		Link:  "a",
		Cover: "img",
	})
	if err != nil {
		r.log.Errorf("search extraction failed: %v", err)
		return nil
	}

	results := make([]SearchResult, 0, len(raw))
	for _, e := range raw {
		results = append(results, SearchResult{Title: e.Title, URL: e.URL, CoverURL: e.CoverURL})
	}

	r.log.Infof("found %d results for %q", len(results), title)
	return results
}

func (r *RavenScans) ExtractChapters(ctx context.Context, mangaURL string) []Chapter {
	return ExtractWithReveal(ctx, r.page, mangaURL, ProtocolSpec{
		ListSelector: ".chbox",
		Entries: browser.EntrySpec{
			Item: ".chbox",
			// anchor text carries "Chapter N" and the date together
			Title: ".eph-num a",
			Link:  ".eph-num a",
			Date:  ".chapterdate",
		},
	}, r.cfg, r.ParseChapterNumber, r.log)
}

func (r *RavenScans) ParseChapterNumber(raw string) string {
	return ParseNumber(raw)
}
