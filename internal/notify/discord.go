package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"mangatrack/pkg/utils"
)

// Discord limits webhook messages to 10 embeds; overflow gets a summary line.
const maxEmbeds = 10

type Discord struct {
	webhookURL string
	client     *http.Client
}

func NewDiscord(cfg utils.NotifyConfig) *Discord {
	return &Discord{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type webhookPayload struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

// NotifyNewChapters posts one webhook message for the batch. An unconfigured
// webhook URL is not an error: delivery is simply disabled.
func (d *Discord) NotifyNewChapters(ctx context.Context, chapters []NewChapter) error {
	if len(chapters) == 0 {
		return nil
	}
	if d.webhookURL == "" {
		logrus.Warn("[notify] Discord webhook URL not configured, skipping notification")
		return nil
	}

	payload := webhookPayload{
		Content: fmt.Sprintf("**%d new chapter(s) detected!**", len(chapters)),
	}

	for i, ch := range chapters {
		if i == maxEmbeds {
			payload.Embeds = append(payload.Embeds, embed{
				Title:       "And more...",
				Description: fmt.Sprintf("%d additional chapters detected", len(chapters)-maxEmbeds),
				Color:       0x0099ff,
			})
			break
		}
		desc := ch.ChapterTitle
		if desc == "" {
			desc = "New chapter available"
		}
		payload.Embeds = append(payload.Embeds, embed{
			Title:       fmt.Sprintf("%s - Chapter %s", ch.MangaTitle, ch.ChapterNumber),
			URL:         ch.URL,
			Description: desc,
			Color:       0x00ff00,
			Timestamp:   ch.DetectedAt.UTC().Format(time.RFC3339),
			Footer:      &embedFooter{Text: "Source: " + ch.SourceName},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logrus.Infof("[notify] Discord notification sent for %d chapters", len(chapters))
	return nil
}
