package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mangatrack/pkg/utils"
)

func sampleChapter(n int) NewChapter {
	return NewChapter{
		MangaTitle:    "Solo Leveling",
		ChapterNumber: fmt.Sprintf("%d", n),
		ChapterTitle:  fmt.Sprintf("Arise %d", n),
		URL:           fmt.Sprintf("https://example.com/c/%d", n),
		SourceName:    "Asura Scans",
		DetectedAt:    time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC),
	}
}

func captureWebhook(t *testing.T) (*webhookPayload, *httptest.Server, *int) {
	t.Helper()
	var got webhookPayload
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return &got, srv, &calls
}

func TestDiscordPayloadShape(t *testing.T) {
	payload, srv, _ := captureWebhook(t)
	d := NewDiscord(utils.NotifyConfig{WebhookURL: srv.URL})

	chapters := []NewChapter{sampleChapter(1), sampleChapter(2)}
	if err := d.NotifyNewChapters(context.Background(), chapters); err != nil {
		t.Fatalf("NotifyNewChapters: %v", err)
	}

	if payload.Content != "**2 new chapter(s) detected!**" {
		t.Errorf("content = %q", payload.Content)
	}
	if len(payload.Embeds) != 2 {
		t.Fatalf("got %d embeds, want 2", len(payload.Embeds))
	}
	e := payload.Embeds[0]
	if e.Title != "Solo Leveling - Chapter 1" {
		t.Errorf("embed title = %q", e.Title)
	}
	if e.URL != "https://example.com/c/1" {
		t.Errorf("embed url = %q", e.URL)
	}
	if e.Description != "Arise 1" {
		t.Errorf("embed description = %q", e.Description)
	}
	if e.Footer == nil || e.Footer.Text != "Source: Asura Scans" {
		t.Errorf("embed footer = %+v", e.Footer)
	}
	if e.Timestamp != "2026-04-01T09:30:00Z" {
		t.Errorf("embed timestamp = %q", e.Timestamp)
	}
}

func TestDiscordEmbedCapWithSummary(t *testing.T) {
	payload, srv, _ := captureWebhook(t)
	d := NewDiscord(utils.NotifyConfig{WebhookURL: srv.URL})

	var chapters []NewChapter
	for i := 1; i <= 14; i++ {
		chapters = append(chapters, sampleChapter(i))
	}
	if err := d.NotifyNewChapters(context.Background(), chapters); err != nil {
		t.Fatalf("NotifyNewChapters: %v", err)
	}

	if len(payload.Embeds) != maxEmbeds+1 {
		t.Fatalf("got %d embeds, want %d plus summary", len(payload.Embeds), maxEmbeds)
	}
	last := payload.Embeds[len(payload.Embeds)-1]
	if last.Title != "And more..." {
		t.Errorf("summary title = %q", last.Title)
	}
	if last.Description != "4 additional chapters detected" {
		t.Errorf("summary description = %q", last.Description)
	}
}

func TestDiscordEmptyBatchIsNoop(t *testing.T) {
	_, srv, calls := captureWebhook(t)
	d := NewDiscord(utils.NotifyConfig{WebhookURL: srv.URL})

	if err := d.NotifyNewChapters(context.Background(), nil); err != nil {
		t.Fatalf("NotifyNewChapters: %v", err)
	}
	if *calls != 0 {
		t.Errorf("empty batch hit the webhook %d times", *calls)
	}
}

func TestDiscordUnconfiguredWebhook(t *testing.T) {
	d := NewDiscord(utils.NotifyConfig{})
	// missing configuration disables delivery without surfacing an error
	if err := d.NotifyNewChapters(context.Background(), []NewChapter{sampleChapter(1)}); err != nil {
		t.Errorf("unconfigured webhook returned %v", err)
	}
}

func TestDiscordWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDiscord(utils.NotifyConfig{WebhookURL: srv.URL})
	if err := d.NotifyNewChapters(context.Background(), []NewChapter{sampleChapter(1)}); err == nil {
		t.Error("expected an error for a non-2xx webhook response")
	}
}

func TestDiscordMissingChapterTitle(t *testing.T) {
	payload, srv, _ := captureWebhook(t)
	d := NewDiscord(utils.NotifyConfig{WebhookURL: srv.URL})

	ch := sampleChapter(1)
	ch.ChapterTitle = ""
	if err := d.NotifyNewChapters(context.Background(), []NewChapter{ch}); err != nil {
		t.Fatalf("NotifyNewChapters: %v", err)
	}
	if payload.Embeds[0].Description != "New chapter available" {
		t.Errorf("description = %q", payload.Embeds[0].Description)
	}
}
