package scanlator

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"

	"mangatrack/internal/browser"
	"mangatrack/pkg/utils"
)

// ImplMadaraScans is the implementation identifier stored on Source rows.
const ImplMadaraScans = "MadaraScans"

func init() {
	Register(ImplMadaraScans, "Madara Scans", NewMadaraScans)
}

// MadaraScans scrapes madarascans.com, a WordPress/Madara-theme site. The
// selectors here are the stock Madara ones, so this plugin doubles as the
// reference for other Madara deployments.
type MadaraScans struct {
	page    browser.Page
	cfg     utils.TrackerConfig
	baseURL string
	log     *logrus.Entry
}

func NewMadaraScans(page browser.Page, cfg utils.TrackerConfig) Scanlator {
	return &MadaraScans{
		page:    page,
		cfg:     cfg,
		baseURL: "https://madarascans.com",
		log:     logrus.WithField("scanlator", "Madara Scans"),
	}
}

func (m *MadaraScans) Name() string { return "Madara Scans" }

func (m *MadaraScans) Search(ctx context.Context, title string) []SearchResult {
	searchURL := m.baseURL + "/?s=" + url.QueryEscape(title) + "&post_type=wp-manga"

	if err := m.page.Goto(ctx, searchURL, m.cfg.NavTimeout); err != nil {
		m.log.Errorf("search page failed: %v", err)
		return nil
	}
	if err := m.page.WaitForSelector(ctx, "div.c-tabs-item__content", m.cfg.WaitTimeout); err != nil {
		m.log.Errorf("search results never appeared: %v", err)
		return nil
	}

	raw, err := m.page.ExtractEntries(browser.EntrySpec{
		Item:  "div.c-tabs-item__content",
		Title: "div.post-title a",
		Link:  "div.post-title a",
		Cover: "img",
	})
	if err != nil {
		m.log.Errorf("search extraction failed: %v", err)
		return nil
	}

	results := make([]SearchResult, 0, len(raw))
	for _, e := range raw {
		results = append(results, SearchResult{Title: e.Title, URL: e.URL, CoverURL: e.CoverURL})
	}

	m.log.Infof("found %d results for %q", len(results), title)
	return results
}

func (m *MadaraScans) ExtractChapters(ctx context.Context, mangaURL string) []Chapter {
	return ExtractWithReveal(ctx, m.page, mangaURL, ProtocolSpec{
		ListSelector:     "li.wp-manga-chapter",
		LoadMoreSelector: "div.chapter-readmore a",
		Entries: browser.EntrySpec{
			Item:  "li.wp-manga-chapter",
			Title: "a",
			Link:  "a",
			Date:  "span.chapter-release-date",
		},
	}, m.cfg, m.ParseChapterNumber, m.log)
}

func (m *MadaraScans) ParseChapterNumber(raw string) string {
	return ParseNumber(raw)
}
