// Package tracker runs chapter-tracking jobs: it resolves eligible mappings,
// drives scanlator plugins against the browser capability, diffs results
// against persisted chapters and keeps a queryable job table.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mangatrack/internal/browser"
	"mangatrack/internal/events"
	"mangatrack/internal/notify"
	"mangatrack/internal/scanlator"
	"mangatrack/pkg/models"
	"mangatrack/pkg/utils"
)

// The service talks to persistence through these small interfaces so tests
// can run it against in-memory fakes.

type MappingStore interface {
	ListTracked(ctx context.Context, mangaID, sourceID *int64) ([]models.TrackedMapping, error)
}

type ChapterStore interface {
	InsertIfNew(ctx context.Context, mappingID int64, ch scanlator.Chapter, detectedAt time.Time) (bool, error)
}

type MangaStore interface {
	TouchLastChecked(ctx context.Context, mangaID int64, t time.Time) error
}

type Notifier interface {
	NotifyNewChapters(ctx context.Context, chapters []notify.NewChapter) error
}

type Publisher interface {
	BroadcastJSON(v any)
}

// EngineFactory builds the browser engine a job owns for its lifetime.
type EngineFactory func() (browser.Engine, error)

type Service struct {
	table     *Table
	mappings  MappingStore
	chapters  ChapterStore
	mangas    MangaStore
	notifier  Notifier  // nil disables notifications
	publisher Publisher // nil disables the event feed
	newEngine EngineFactory
	cfg       utils.TrackerConfig
	log       *logrus.Entry
}

func NewService(
	table *Table,
	mappings MappingStore,
	chapters ChapterStore,
	mangas MangaStore,
	notifier Notifier,
	publisher Publisher,
	newEngine EngineFactory,
	cfg utils.TrackerConfig,
) *Service {
	return &Service{
		table:     table,
		mappings:  mappings,
		chapters:  chapters,
		mangas:    mangas,
		notifier:  notifier,
		publisher: publisher,
		newEngine: newEngine,
		cfg:       cfg,
		log:       logrus.WithField("component", "tracker"),
	}
}

// Trigger queues a tracking job and returns its id immediately. The caller
// polls JobStatus; nothing network-bound happens before this returns.
func (s *Service) Trigger(mangaID, sourceID *int64, doNotify bool) string {
	jobID := uuid.NewString()
	s.table.Create(jobID)

	go s.run(jobID, mangaID, sourceID, doNotify)

	s.log.Infof("tracking job %s queued (manga_id=%v, source_id=%v)", jobID, ptrStr(mangaID), ptrStr(sourceID))
	return jobID
}

func (s *Service) JobStatus(jobID string) (JobStatus, bool) {
	return s.table.Status(jobID)
}

func (s *Service) ListJobs(limit int) []JobSummary {
	return s.table.List(limit)
}

// Search runs a title search against one plugin. Unlike tracking this is
// synchronous: the caller waits out the page round-trip. The plugin contract
// makes the search itself soft-failing, so the only errors here are an
// unknown implementation or a browser acquisition failure.
func (s *Service) Search(ctx context.Context, impl, title string) ([]scanlator.SearchResult, error) {
	factory, ok := scanlator.Resolve(impl)
	if !ok {
		return nil, fmt.Errorf("no scanlator registered for %q", impl)
	}

	engine, err := s.newEngine()
	if err != nil {
		return nil, fmt.Errorf("acquire browser engine: %w", err)
	}
	defer engine.Close()

	page, err := engine.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	plugin := factory(page, s.cfg)
	return plugin.Search(ctx, title), nil
}

// run executes the job. Jobs have no overall deadline: a stuck mapping is
// bounded by the per-navigation timeouts, never the job as a whole.
func (s *Service) run(jobID string, mangaID, sourceID *int64, doNotify bool) {
	ctx := context.Background()

	defer func() {
		// Defensive outer boundary: nothing below should panic past the
		// per-mapping recover, but if it does the job fails instead of
		// taking the process down.
		if r := recover(); r != nil {
			s.log.Errorf("job %s: fatal: %v", jobID, r)
			s.finish(jobID, StatusFailed, fmt.Sprintf("job failed: %v", r))
		}
	}()

	now := time.Now()
	s.table.Update(jobID, func(j *Job) {
		j.transition(StatusRunning)
		j.StartedAt = &now
	})
	s.publish(events.JobEvent{Type: events.TypeJobStarted, JobID: jobID, At: now})

	mappings, err := s.mappings.ListTracked(ctx, mangaID, sourceID)
	if err != nil {
		s.log.Errorf("job %s: resolving mappings: %v", jobID, err)
		s.finish(jobID, StatusFailed, fmt.Sprintf("job failed: %v", err))
		return
	}

	s.table.Update(jobID, func(j *Job) { j.TotalMappings = len(mappings) })
	s.log.Infof("job %s: processing %d mappings", jobID, len(mappings))

	engine, err := s.newEngine()
	if err != nil {
		s.log.Errorf("job %s: acquiring browser engine: %v", jobID, err)
		s.finish(jobID, StatusFailed, fmt.Sprintf("job failed: %v", err))
		return
	}
	defer engine.Close()

	// Sequential on purpose: bounds load on the browser engine, keeps per-site
	// politeness, and avoids interleaved writes to the same manga row.
	for i, m := range mappings {
		if err := s.processMapping(ctx, jobID, engine, m); err != nil {
			msg := fmt.Sprintf("error processing mapping %d: %v", m.MappingID, err)
			s.log.Error("job " + jobID + ": " + msg)
			s.table.Update(jobID, func(j *Job) { j.Errors = append(j.Errors, msg) })
			continue
		}
		s.table.Update(jobID, func(j *Job) { j.ProcessedMappings++ })

		if i < len(mappings)-1 && s.cfg.PolitenessDelay > 0 {
			time.Sleep(s.cfg.PolitenessDelay)
		}
	}

	s.finish(jobID, StatusCompleted, "")

	st, _ := s.table.Status(jobID)
	s.log.Infof("job %s: completed, found %d new chapters", jobID, st.NewChaptersFound)

	if doNotify && s.notifier != nil {
		if pending := s.table.takePending(jobID); len(pending) > 0 {
			// The job is already terminal; a delivery failure is logged, never
			// reflected in job status.
			if err := s.notifier.NotifyNewChapters(ctx, pending); err != nil {
				s.log.Errorf("job %s: notification failed: %v", jobID, err)
			}
		}
	}
}

// processMapping is the per-mapping soft-failure boundary: any error or
// panic inside it is reported on the job and the loop moves on. One broken
// source must never abort the rest of the job.
func (s *Service) processMapping(ctx context.Context, jobID string, engine browser.Engine, m models.TrackedMapping) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	s.log.Infof("job %s: tracking %q on %s", jobID, m.MangaTitle, m.SourceImpl)

	factory, ok := scanlator.Resolve(m.SourceImpl)
	if !ok {
		return fmt.Errorf("no scanlator registered for %q", m.SourceImpl)
	}

	page, err := engine.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	plugin := factory(page, s.cfg)
	chapters := plugin.ExtractChapters(ctx, m.MangaURL)

	sourceName := scanlator.DisplayName(m.SourceImpl)
	for _, ch := range chapters {
		detectedAt := time.Now()
		inserted, err := s.chapters.InsertIfNew(ctx, m.MappingID, ch, detectedAt)
		if err != nil {
			return fmt.Errorf("persist chapter %s: %w", ch.Number, err)
		}
		if !inserted {
			continue
		}

		payload := notify.NewChapter{
			MangaTitle:    m.MangaTitle,
			ChapterNumber: ch.Number,
			ChapterTitle:  ch.Title,
			URL:           ch.URL,
			SourceName:    sourceName,
			DetectedAt:    detectedAt,
		}
		s.table.Update(jobID, func(j *Job) {
			j.NewChaptersFound++
			j.pending = append(j.pending, payload)
		})
		s.publish(events.ChapterEvent{
			Type:          events.TypeNewChapter,
			JobID:         jobID,
			MangaTitle:    m.MangaTitle,
			ChapterNumber: ch.Number,
			URL:           ch.URL,
			SourceName:    sourceName,
			At:            detectedAt,
		})
		s.log.Infof("job %s: new chapter %q #%s", jobID, m.MangaTitle, ch.Number)
	}

	if err := s.mangas.TouchLastChecked(ctx, m.MangaID, time.Now()); err != nil {
		return fmt.Errorf("update last_checked: %w", err)
	}
	return nil
}

// finish moves the job to a terminal state, recording the end time and, for
// failures, the fault message.
func (s *Service) finish(jobID string, status Status, errMsg string) {
	now := time.Now()
	var newFound int
	s.table.Update(jobID, func(j *Job) {
		if j.transition(status) {
			j.CompletedAt = &now
			if errMsg != "" {
				j.Errors = append(j.Errors, errMsg)
			}
		}
		newFound = j.NewChaptersFound
	})

	evType := events.TypeJobCompleted
	if status == StatusFailed {
		evType = events.TypeJobFailed
	}
	s.publish(events.JobEvent{Type: evType, JobID: jobID, NewChaptersFound: newFound, At: now})
}

func (s *Service) publish(v any) {
	if s.publisher != nil {
		s.publisher.BroadcastJSON(v)
	}
}

func ptrStr(v *int64) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%d", *v)
}
