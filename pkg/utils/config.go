package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// TrackerConfig holds the tunable knobs of the extraction protocol. These are
// politeness/robustness bounds, not invariants; all come from the environment.
type TrackerConfig struct {
	NavTimeout      time.Duration // page navigation deadline
	WaitTimeout     time.Duration // wait-for-selector deadline
	SettleDelay     time.Duration // pause after each "load more" click
	MaxRevealClicks int           // hard stop for the pagination-reveal loop
	PolitenessDelay time.Duration // pause between mappings within one job
}

func LoadTrackerConfig() TrackerConfig {
	return TrackerConfig{
		NavTimeout:      envDuration("MANGATRACK_NAV_TIMEOUT", 30*time.Second),
		WaitTimeout:     envDuration("MANGATRACK_WAIT_TIMEOUT", 10*time.Second),
		SettleDelay:     envDuration("MANGATRACK_SETTLE_DELAY", 2*time.Second),
		MaxRevealClicks: envInt("MANGATRACK_MAX_REVEAL_CLICKS", 30),
		PolitenessDelay: envDuration("MANGATRACK_POLITENESS_DELAY", time.Second),
	}
}

// NotifyConfig configures the Discord webhook notifier. An empty WebhookURL
// disables delivery.
type NotifyConfig struct {
	WebhookURL string
}

func LoadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		WebhookURL: os.Getenv("MANGATRACK_DISCORD_WEBHOOK_URL"),
	}
}

// SetupLogging configures the process-wide logrus level from
// MANGATRACK_LOG_LEVEL (default info).
func SetupLogging() {
	lvl := os.Getenv("MANGATRACK_LOG_LEVEL")
	if lvl == "" {
		lvl = "info"
	}
	parsed, err := logrus.ParseLevel(lvl)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.Warnf("invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}
