package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"mangatrack/internal/browser"
	"mangatrack/internal/notify"
	"mangatrack/internal/scanlator"
	"mangatrack/pkg/models"
	"mangatrack/pkg/utils"
)

// The fake source resolves through the real registry; its chapters come from
// the engine the job was given, keyed by manga URL. A script that panics
// exercises the per-mapping failure boundary.
const fakeImpl = "FakeSource"

func init() {
	scanlator.Register(fakeImpl, "Fake Source", func(page browser.Page, _ utils.TrackerConfig) scanlator.Scanlator {
		return &fakePlugin{page: page.(*fakePage)}
	})
}

type fakeEngine struct {
	mu      sync.Mutex
	scripts map[string]func() []scanlator.Chapter
	closed  bool
}

func (e *fakeEngine) NewPage(ctx context.Context) (browser.Page, error) {
	return &fakePage{engine: e}, nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) script(url string) func() []scanlator.Chapter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scripts[url]
}

func (e *fakeEngine) setScript(url string, fn func() []scanlator.Chapter) {
	e.mu.Lock()
	e.scripts[url] = fn
	e.mu.Unlock()
}

type fakePage struct {
	engine *fakeEngine
}

func (p *fakePage) Goto(ctx context.Context, url string, d time.Duration) error {
	return nil
}

func (p *fakePage) WaitForSelector(ctx context.Context, s string, d time.Duration) error {
	return nil
}

func (p *fakePage) IsVisible(s string) bool { return false }

func (p *fakePage) Click(ctx context.Context, s string) error {
	return nil
}

func (p *fakePage) ExtractEntries(spec browser.EntrySpec) ([]browser.RawEntry, error) {
	return nil, nil
}

func (p *fakePage) Close() error { return nil }

type fakePlugin struct {
	page *fakePage
}

func (f *fakePlugin) Name() string { return "Fake Source" }
func (f *fakePlugin) Search(ctx context.Context, title string) []scanlator.SearchResult {
	return []scanlator.SearchResult{{Title: title, URL: "https://fake/search/" + title}}
}
func (f *fakePlugin) ExtractChapters(ctx context.Context, url string) []scanlator.Chapter {
	fn := f.page.engine.script(url)
	if fn == nil {
		return nil
	}
	return fn()
}
func (f *fakePlugin) ParseChapterNumber(raw string) string { return scanlator.ParseNumber(raw) }

type chapterKey struct {
	mappingID int64
	number    string
}

type fakeChapterStore struct {
	mu   sync.Mutex
	rows map[chapterKey]scanlator.Chapter
}

func newFakeChapterStore() *fakeChapterStore {
	return &fakeChapterStore{rows: make(map[chapterKey]scanlator.Chapter)}
}

func (s *fakeChapterStore) InsertIfNew(ctx context.Context, mappingID int64, ch scanlator.Chapter, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chapterKey{mappingID, ch.Number}
	if _, exists := s.rows[key]; exists {
		return false, nil
	}
	s.rows[key] = ch
	return true, nil
}

func (s *fakeChapterStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeMappingStore struct {
	rows []models.TrackedMapping
}

func (s *fakeMappingStore) ListTracked(ctx context.Context, mangaID, sourceID *int64) ([]models.TrackedMapping, error) {
	var out []models.TrackedMapping
	for _, m := range s.rows {
		if mangaID != nil && m.MangaID != *mangaID {
			continue
		}
		if sourceID != nil && m.SourceID != *sourceID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type fakeMangaStore struct {
	mu      sync.Mutex
	touched map[int64]int
}

func newFakeMangaStore() *fakeMangaStore {
	return &fakeMangaStore{touched: make(map[int64]int)}
}

func (s *fakeMangaStore) TouchLastChecked(ctx context.Context, mangaID int64, _ time.Time) error {
	s.mu.Lock()
	s.touched[mangaID]++
	s.mu.Unlock()
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	batches [][]notify.NewChapter
	fail    bool
}

func (n *fakeNotifier) NotifyNewChapters(ctx context.Context, chapters []notify.NewChapter) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, chapters)
	if n.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func newTestService(mappings []models.TrackedMapping, engine *fakeEngine, notifier Notifier) (*Service, *fakeChapterStore, *fakeMangaStore) {
	chapters := newFakeChapterStore()
	mangas := newFakeMangaStore()
	svc := NewService(
		NewTable(),
		&fakeMappingStore{rows: mappings},
		chapters,
		mangas,
		notifier,
		nil,
		func() (browser.Engine, error) { return engine, nil },
		utils.TrackerConfig{MaxRevealClicks: 5},
	)
	return svc, chapters, mangas
}

func waitTerminal(t *testing.T, svc *Service, jobID string) JobStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, ok := svc.JobStatus(jobID)
		if !ok {
			t.Fatalf("job %s not found", jobID)
		}
		if st.Status == StatusCompleted || st.Status == StatusFailed {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return JobStatus{}
}

func chapterList(numbers ...string) []scanlator.Chapter {
	out := make([]scanlator.Chapter, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, scanlator.Chapter{
			Number:      n,
			Title:       "Ch." + n,
			URL:         "https://fake/c/" + n,
			PublishedAt: time.Now(),
		})
	}
	return out
}

func TestTrackingDiffPersistsOnlyNewChapters(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1", "2") })

	mappings := []models.TrackedMapping{
		{MappingID: 1, MangaID: 10, MangaTitle: "Solo", SourceID: 100, SourceImpl: fakeImpl, MangaURL: "https://fake/m1"},
	}
	svc, chapters, mangas := newTestService(mappings, engine, nil)

	// first run discovers both chapters
	st := waitTerminal(t, svc, svc.Trigger(nil, nil, false))
	if st.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", st.Status)
	}
	if st.NewChaptersFound != 2 || chapters.count() != 2 {
		t.Fatalf("first run: found %d, stored %d, want 2/2", st.NewChaptersFound, chapters.count())
	}
	if st.ProcessedMappings != 1 || st.TotalMappings != 1 {
		t.Errorf("counters: processed=%d total=%d", st.ProcessedMappings, st.TotalMappings)
	}

	// source now exposes one more chapter; only it is persisted
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1", "2", "3") })
	st = waitTerminal(t, svc, svc.Trigger(nil, nil, false))
	if st.NewChaptersFound != 1 || chapters.count() != 3 {
		t.Fatalf("second run: found %d, stored %d, want 1/3", st.NewChaptersFound, chapters.count())
	}

	mangas.mu.Lock()
	touches := mangas.touched[10]
	mangas.mu.Unlock()
	if touches != 2 {
		t.Errorf("last_checked touched %d times, want 2", touches)
	}
}

func TestTrackingIdempotentUnderUnchangedSource(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1", "2") })

	mappings := []models.TrackedMapping{
		{MappingID: 1, MangaID: 10, MangaTitle: "Solo", SourceImpl: fakeImpl, MangaURL: "https://fake/m1"},
	}
	svc, chapters, _ := newTestService(mappings, engine, nil)

	waitTerminal(t, svc, svc.Trigger(nil, nil, false))
	st := waitTerminal(t, svc, svc.Trigger(nil, nil, false))

	if st.NewChaptersFound != 0 {
		t.Errorf("second run over unchanged source found %d new chapters, want 0", st.NewChaptersFound)
	}
	if chapters.count() != 2 {
		t.Errorf("store has %d chapters, want 2", chapters.count())
	}
}

func TestSoftFailureIsolation(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1") })
	engine.setScript("https://fake/m2", func() []scanlator.Chapter { panic("site exploded") })
	engine.setScript("https://fake/m3", func() []scanlator.Chapter { return chapterList("7") })

	mappings := []models.TrackedMapping{
		{MappingID: 1, MangaID: 10, MangaTitle: "A", SourceImpl: fakeImpl, MangaURL: "https://fake/m1"},
		{MappingID: 2, MangaID: 11, MangaTitle: "B", SourceImpl: fakeImpl, MangaURL: "https://fake/m2"},
		{MappingID: 3, MangaID: 12, MangaTitle: "C", SourceImpl: fakeImpl, MangaURL: "https://fake/m3"},
	}
	svc, chapters, _ := newTestService(mappings, engine, nil)

	st := waitTerminal(t, svc, svc.Trigger(nil, nil, false))

	if st.Status != StatusCompleted {
		t.Fatalf("one bad mapping must not fail the job; status = %s", st.Status)
	}
	if len(st.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", st.Errors)
	}
	if st.ProcessedMappings != 2 {
		t.Errorf("processed = %d, want 2", st.ProcessedMappings)
	}
	if chapters.count() != 2 {
		t.Errorf("stored %d chapters from healthy mappings, want 2", chapters.count())
	}
}

func TestPluginResolutionFailure(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1") })

	mappings := []models.TrackedMapping{
		{MappingID: 1, MangaID: 10, MangaTitle: "A", SourceImpl: fakeImpl, MangaURL: "https://fake/m1"},
		{MappingID: 2, MangaID: 11, MangaTitle: "B", SourceImpl: "Nonexistent", MangaURL: "https://fake/m2"},
	}
	svc, chapters, _ := newTestService(mappings, engine, nil)

	st := waitTerminal(t, svc, svc.Trigger(nil, nil, false))

	if st.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", st.Status)
	}
	if len(st.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one resolution failure", st.Errors)
	}
	if chapters.count() != 1 {
		t.Errorf("stored %d chapters, want 1", chapters.count())
	}
}

func TestTriggerScoping(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1") })
	engine.setScript("https://fake/m2", func() []scanlator.Chapter { return chapterList("2") })

	mappings := []models.TrackedMapping{
		{MappingID: 1, MangaID: 10, MangaTitle: "A", SourceID: 100, SourceImpl: fakeImpl, MangaURL: "https://fake/m1"},
		{MappingID: 2, MangaID: 11, MangaTitle: "B", SourceID: 101, SourceImpl: fakeImpl, MangaURL: "https://fake/m2"},
	}
	svc, chapters, _ := newTestService(mappings, engine, nil)

	mangaID := int64(10)
	st := waitTerminal(t, svc, svc.Trigger(&mangaID, nil, false))

	if st.TotalMappings != 1 {
		t.Errorf("total = %d, want scope of 1", st.TotalMappings)
	}
	if chapters.count() != 1 {
		t.Errorf("stored %d chapters, want 1", chapters.count())
	}
}

func TestNotificationDelivery(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1", "2") })

	mappings := []models.TrackedMapping{
		{MappingID: 1, MangaID: 10, MangaTitle: "Solo", SourceImpl: fakeImpl, MangaURL: "https://fake/m1"},
	}
	notifier := &fakeNotifier{}
	svc, _, _ := newTestService(mappings, engine, notifier)

	waitTerminal(t, svc, svc.Trigger(nil, nil, true))

	// the run goroutine notifies after reaching terminal state
	deadline := time.Now().Add(time.Second)
	for {
		notifier.mu.Lock()
		n := len(notifier.batches)
		notifier.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.batches) != 1 {
		t.Fatalf("got %d notification batches, want 1", len(notifier.batches))
	}
	if len(notifier.batches[0]) != 2 {
		t.Errorf("batch has %d payloads, want 2", len(notifier.batches[0]))
	}
	p := notifier.batches[0][0]
	if p.MangaTitle != "Solo" || p.SourceName != "Fake Source" {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestNotificationSkippedWithoutNewChapters(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1") })

	mappings := []models.TrackedMapping{
		{MappingID: 1, MangaID: 10, MangaTitle: "Solo", SourceImpl: fakeImpl, MangaURL: "https://fake/m1"},
	}
	notifier := &fakeNotifier{}
	svc, _, _ := newTestService(mappings, engine, notifier)

	waitTerminal(t, svc, svc.Trigger(nil, nil, true))
	// run again: no new chapters, so no notification this time
	waitTerminal(t, svc, svc.Trigger(nil, nil, true))
	time.Sleep(20 * time.Millisecond)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.batches) != 1 {
		t.Errorf("got %d batches, want 1 (no empty notifications)", len(notifier.batches))
	}
}

func TestSearchDelegatesToPlugin(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	svc, _, _ := newTestService(nil, engine, nil)

	got, err := svc.Search(context.Background(), fakeImpl, "solo")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "solo" {
		t.Errorf("unexpected results: %+v", got)
	}
}

func TestSearchUnknownImplementation(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	svc, _, _ := newTestService(nil, engine, nil)

	if _, err := svc.Search(context.Background(), "Nonexistent", "solo"); err == nil {
		t.Error("unknown implementation must fail the search")
	}
}

func TestNotifierFailureDoesNotChangeJobStatus(t *testing.T) {
	engine := &fakeEngine{scripts: map[string]func() []scanlator.Chapter{}}
	engine.setScript("https://fake/m1", func() []scanlator.Chapter { return chapterList("1") })

	mappings := []models.TrackedMapping{
		{MappingID: 1, MangaID: 10, MangaTitle: "Solo", SourceImpl: fakeImpl, MangaURL: "https://fake/m1"},
	}
	svc, _, _ := newTestService(mappings, engine, &fakeNotifier{fail: true})

	jobID := svc.Trigger(nil, nil, true)
	st := waitTerminal(t, svc, jobID)
	time.Sleep(20 * time.Millisecond)

	st, _ = svc.JobStatus(jobID)
	if st.Status != StatusCompleted {
		t.Errorf("notifier failure leaked into job status: %s", st.Status)
	}
	if len(st.Errors) != 0 {
		t.Errorf("notifier failure recorded as job error: %v", st.Errors)
	}
}
