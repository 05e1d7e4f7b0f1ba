package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// StaticEngine fetches pages over plain HTTP and parses them with goquery.
// It covers sources that render chapter lists server-side; a page loaded this
// way never mutates, so waits resolve immediately and only href-bearing
// controls can be "clicked" (followed as navigation).
type StaticEngine struct {
	client *http.Client
}

func NewStaticEngine(timeout time.Duration) *StaticEngine {
	return &StaticEngine{
		client: &http.Client{Timeout: timeout},
	}
}

func (e *StaticEngine) NewPage(ctx context.Context) (Page, error) {
	return &staticPage{client: e.client}, nil
}

func (e *StaticEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

type staticPage struct {
	client *http.Client
	doc    *goquery.Document
	base   *url.URL
}

func (p *staticPage) Goto(ctx context.Context, target string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, target, err)
	}
	req.Header.Set("User-Agent", "mangatrack/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s: HTTP %d", ErrNavigation, target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: parse: %v", ErrNavigation, target, err)
	}

	base, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, target, err)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL // follow redirects for relative links
	}

	p.doc = doc
	p.base = base
	return nil
}

func (p *staticPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	// A static document never changes after load, so there is nothing to
	// wait for: the selector is either there or it is not.
	if p.doc == nil {
		return fmt.Errorf("%w: %s: no page loaded", ErrNoSuchElement, selector)
	}
	if p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
	}
	return nil
}

func (p *staticPage) IsVisible(selector string) bool {
	if p.doc == nil {
		return false
	}
	return p.doc.Find(selector).Length() > 0
}

// Click follows the href of the matched element. Script-driven controls have
// no href in static HTML and surface as ErrNotInteractable, which the
// extraction protocol treats as the control going away.
func (p *staticPage) Click(ctx context.Context, selector string) error {
	if p.doc == nil {
		return fmt.Errorf("%w: %s: no page loaded", ErrNoSuchElement, selector)
	}
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
	}

	href, ok := sel.Attr("href")
	if !ok || strings.TrimSpace(href) == "" || strings.HasPrefix(href, "javascript:") {
		return fmt.Errorf("%w: %s", ErrNotInteractable, selector)
	}

	logrus.Debugf("[browser] following %s -> %s", selector, href)
	return p.Goto(ctx, p.resolve(href), p.client.Timeout)
}

func (p *staticPage) ExtractEntries(spec EntrySpec) ([]RawEntry, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("%w: no page loaded", ErrNoSuchElement)
	}

	var out []RawEntry
	p.doc.Find(spec.Item).Each(func(_ int, item *goquery.Selection) {
		var e RawEntry

		if spec.Title != "" {
			e.Title = cleanText(item.Find(spec.Title).First().Text())
		}
		if e.Title == "" {
			e.Title = cleanText(item.Text())
		}

		link := item
		if spec.Link != "" {
			link = item.Find(spec.Link).First()
		}
		if !link.Is("a") {
			link = link.Find("a").First()
		}
		if href, ok := link.Attr("href"); ok {
			e.URL = p.resolve(href)
		}

		if spec.Date != "" {
			e.DateText = cleanText(item.Find(spec.Date).First().Text())
		}

		if spec.Cover != "" {
			img := item.Find(spec.Cover).First()
			if src, ok := img.Attr("src"); ok && src != "" {
				e.CoverURL = p.resolve(src)
			} else if src, ok := img.Attr("data-src"); ok {
				e.CoverURL = p.resolve(src)
			}
		}

		if e.Title != "" && e.URL != "" {
			out = append(out, e)
		}
	})
	return out, nil
}

func (p *staticPage) Close() error {
	p.doc = nil
	return nil
}

func (p *staticPage) resolve(href string) string {
	if p.base == nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return p.base.ResolveReference(ref).String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
