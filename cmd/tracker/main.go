// One-shot tracking run: processes every eligible mapping once and prints
// the job result. Useful from cron or while developing a plugin, without the
// API server.
package main

import (
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"mangatrack/internal/browser"
	"mangatrack/internal/chapter"
	"mangatrack/internal/manga"
	"mangatrack/internal/mapping"
	"mangatrack/internal/notify"
	"mangatrack/internal/tracker"
	"mangatrack/pkg/database"
	"mangatrack/pkg/utils"
)

func main() {
	mangaID := flag.Int64("manga", 0, "restrict to one manga id")
	sourceID := flag.Int64("source", 0, "restrict to one source id")
	doNotify := flag.Bool("notify", false, "send notifications for new chapters")
	flag.Parse()

	utils.SetupLogging()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("db migrate failed: %v", err)
	}

	trackerCfg := utils.LoadTrackerConfig()
	svc := tracker.NewService(
		tracker.NewTable(),
		mapping.NewRepo(db),
		chapter.NewRepo(db),
		manga.NewRepo(db),
		notify.NewDiscord(utils.LoadNotifyConfig()),
		nil,
		func() (browser.Engine, error) {
			return browser.NewStaticEngine(trackerCfg.NavTimeout), nil
		},
		trackerCfg,
	)

	jobID := svc.Trigger(optional(*mangaID), optional(*sourceID), *doNotify)

	for {
		st, ok := svc.JobStatus(jobID)
		if !ok {
			logrus.Fatalf("job %s disappeared", jobID)
		}
		if st.Status == tracker.StatusCompleted || st.Status == tracker.StatusFailed {
			logrus.Infof("job %s %s: %d/%d mappings, %d new chapters, %d errors",
				jobID, st.Status, st.ProcessedMappings, st.TotalMappings, st.NewChaptersFound, len(st.Errors))
			for _, e := range st.Errors {
				logrus.Warn(e)
			}
			if *doNotify && st.NewChaptersFound > 0 {
				// the notification goes out after the job turns terminal;
				// give the webhook post a moment before the process exits
				time.Sleep(2 * time.Second)
			}
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func optional(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
