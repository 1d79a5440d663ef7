package applier

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/emotags/internal/models"
)

// fakeStore keeps documents in memory, keyed by path.
type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	renameErr error
	renames   int
	onRename  func()
}

func newFakeStore(docs ...*models.Document) *fakeStore {
	s := &fakeStore{docs: make(map[string]*models.Document)}
	for _, d := range docs {
		s.docs[d.Path] = d
	}
	return s
}

func (s *fakeStore) Load(path string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[path]
	if !ok {
		return nil, &notExistError{path}
	}
	cp := *d
	return &cp, nil
}

func (s *fakeStore) Rename(_ context.Context, doc *models.Document, newTitle string) (*models.Document, error) {
	if s.onRename != nil {
		s.onRename()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renameErr != nil {
		return nil, s.renameErr
	}
	s.renames++
	cp := *doc
	cp.Title = newTitle
	cp.Path = filepath.Join(doc.Dir, newTitle+doc.Ext)
	cp.ID = "id:" + cp.Path
	delete(s.docs, doc.Path)
	s.docs[cp.Path] = &cp
	return &cp, nil
}

type notExistError struct{ path string }

func (e *notExistError) Error() string { return e.path + ": no such file" }
func (e *notExistError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// fakeJournal collects records.
type fakeJournal struct {
	mu   sync.Mutex
	recs []*models.RenameRecord
	err  error
}

func (j *fakeJournal) RecordRename(_ context.Context, rec *models.RenameRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs = append(j.recs, rec)
	return j.err
}

func (j *fakeJournal) ListRenames(context.Context, int, int) ([]*models.RenameRecord, error) {
	return j.recs, nil
}

func (j *fakeJournal) CountRenames(context.Context, models.RenameStatus) (int64, error) {
	return int64(len(j.recs)), nil
}

func (j *fakeJournal) Close() error { return nil }

func note(title string, tags ...string) *models.Document {
	path := filepath.Join("/vault", title+".md")
	return &models.Document{
		ID:      "id:" + path,
		Path:    path,
		Dir:     "/vault",
		Title:   title,
		Ext:     ".md",
		Tags:    tags,
		ModTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestApplyAll_Sync(t *testing.T) {
	docs := []*models.Document{
		note("Old Stuff", "#🔥urgent"),
		note("🔥 Done", "#🔥urgent"),
		note("Plain", "#work"),
	}
	store := newFakeStore(docs...)
	journal := &fakeJournal{}
	a := New(store, WithJournal(journal))

	report := a.ApplyAll(context.Background(), docs, SyncHeaders, Run{Operation: models.OperationApply})

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Renamed)
	assert.Equal(t, 2, report.Unchanged)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, "🔥 Old Stuff", report.Changes[0].NewTitle)
	assert.Equal(t, filepath.Join("/vault", "🔥 Old Stuff.md"), report.Changes[0].NewPath)
	assert.False(t, report.Canceled)

	require.Len(t, journal.recs, 1)
	rec := journal.recs[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.RenameApplied, rec.Status)
	assert.Equal(t, models.OperationApply, rec.Operation)
	assert.Equal(t, "Old Stuff", rec.OldTitle)
}

func TestApplyAll_Strip(t *testing.T) {
	docs := []*models.Document{note("🔥 Old 🚗 Stuff", "#🔥urgent"), note("Plain")}
	store := newFakeStore(docs...)
	a := New(store)

	report := a.ApplyAll(context.Background(), docs, StripHeaders, Run{Operation: models.OperationStrip})

	require.Len(t, report.Changes, 1)
	assert.Equal(t, "Old  Stuff", report.Changes[0].NewTitle)
	assert.Equal(t, 1, report.Unchanged)
}

func TestApplyAll_DryRun(t *testing.T) {
	docs := []*models.Document{note("Old Stuff", "#🔥urgent")}
	store := newFakeStore(docs...)
	journal := &fakeJournal{}
	a := New(store, WithJournal(journal))

	report := a.ApplyAll(context.Background(), docs, SyncHeaders, Run{Operation: models.OperationApply, DryRun: true})

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Renamed)
	assert.Equal(t, filepath.Join("/vault", "🔥 Old Stuff.md"), report.Changes[0].NewPath)
	assert.Zero(t, store.renames)
	assert.Empty(t, journal.recs)
}

func TestApplyAll_FailuresDoNotStopBatch(t *testing.T) {
	docs := []*models.Document{note("One", "#🔥a"), note("Two", "#🔥b")}
	store := newFakeStore(docs...)
	store.renameErr = errors.New("destination already exists")
	journal := &fakeJournal{}
	a := New(store, WithJournal(journal))

	report := a.ApplyAll(context.Background(), docs, SyncHeaders, Run{Operation: models.OperationApply})

	assert.Equal(t, 2, report.Scanned)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "🔥 One", report.Failures[0].NewTitle)
	assert.Contains(t, report.Failures[0].Error, "destination already exists")
	require.Len(t, journal.recs, 2)
	assert.Equal(t, models.RenameFailed, journal.recs[0].Status)
	assert.Empty(t, journal.recs[0].NewPath)
}

func TestApplyAll_JournalErrorKeepsRename(t *testing.T) {
	docs := []*models.Document{note("One", "#🔥a")}
	a := New(newFakeStore(docs...), WithJournal(&fakeJournal{err: errors.New("disk full")}))

	report := a.ApplyAll(context.Background(), docs, SyncHeaders, Run{Operation: models.OperationApply})

	assert.Equal(t, 1, report.Renamed)
	assert.Empty(t, report.Failures)
}

func TestApplyAll_SkipsWithoutLocation(t *testing.T) {
	doc := note("Loose", "#🔥a")
	doc.Dir = ""
	a := New(newFakeStore(doc))

	report := a.ApplyAll(context.Background(), []*models.Document{doc}, SyncHeaders, Run{Operation: models.OperationApply})

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, ErrNoLocation.Error(), report.Skipped[0].Reason)
	assert.Zero(t, report.Renamed)
}

func TestApplyAll_Canceled(t *testing.T) {
	docs := []*models.Document{note("One", "#🔥a"), note("Two", "#🔥b")}
	ctx, cancel := context.WithCancel(context.Background())
	store := newFakeStore(docs...)
	store.onRename = cancel
	a := New(store)

	report := a.ApplyAll(ctx, docs, SyncHeaders, Run{Operation: models.OperationApply})

	assert.True(t, report.Canceled)
	assert.Equal(t, 1, report.Scanned)
}

func TestApplyAll_SkipsInFlight(t *testing.T) {
	doc := note("One", "#🔥a")
	a := New(newFakeStore(doc))
	require.True(t, a.inflight.acquire(doc.ID))

	report := a.ApplyAll(context.Background(), []*models.Document{doc}, SyncHeaders, Run{Operation: models.OperationApply})

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, reasonInFlight, report.Skipped[0].Reason)
	a.inflight.release(doc.ID)
	assert.False(t, a.InFlight(doc.ID))
}

func TestNotify_RenamesAndIgnoresEcho(t *testing.T) {
	doc := note("Old Stuff", "#🔥urgent")
	store := newFakeStore(doc)
	journal := &fakeJournal{}
	a := New(store, WithJournal(journal))
	ctx := context.Background()

	require.NoError(t, a.Notify(ctx, doc.Path))
	newPath := filepath.Join("/vault", "🔥 Old Stuff.md")
	_, err := store.Load(newPath)
	require.NoError(t, err)
	require.Len(t, journal.recs, 1)
	assert.Equal(t, models.OperationSync, journal.recs[0].Operation)

	// The watcher reports the renamed file; that must not count as an edit.
	require.NoError(t, a.Notify(ctx, newPath))
	assert.Equal(t, 1, store.renames)
	assert.False(t, a.InFlight(doc.ID))
}

func TestNotify_AfterEditReapplies(t *testing.T) {
	doc := note("Old Stuff", "#🔥urgent")
	store := newFakeStore(doc)
	a := New(store)
	ctx := context.Background()

	require.NoError(t, a.Notify(ctx, doc.Path))
	newPath := filepath.Join("/vault", "🔥 Old Stuff.md")

	// The user edits the note: tags change and so does the mtime.
	store.mu.Lock()
	edited := store.docs[newPath]
	edited.Tags = []string{"#🏠home"}
	edited.ModTime = edited.ModTime.Add(time.Second)
	store.mu.Unlock()

	require.NoError(t, a.Notify(ctx, newPath))
	_, err := store.Load(filepath.Join("/vault", "🏠 Old Stuff.md"))
	assert.NoError(t, err)
}

func TestNotify_MissingFileIgnored(t *testing.T) {
	a := New(&missingStore{})
	assert.NoError(t, a.Notify(context.Background(), "/vault/gone.md"))
}

func TestNotify_CoalescesWhileInFlight(t *testing.T) {
	doc := note("Old Stuff", "#🔥urgent")
	store := newFakeStore(doc)
	a := New(store)
	ctx := context.Background()

	require.True(t, a.inflight.acquire(doc.ID))
	require.NoError(t, a.Notify(ctx, doc.Path))
	assert.Zero(t, store.renames, "notification must not run while the document is held")

	// The holder finishes and runs the coalesced pass.
	a.settle(ctx, doc.ID, doc.Path)
	assert.Equal(t, 1, store.renames)
	assert.False(t, a.InFlight(doc.ID))
}

type missingStore struct{ fakeStore }

func (m *missingStore) Load(path string) (*models.Document, error) {
	return nil, &notExistError{path}
}

func TestEchoes(t *testing.T) {
	e := newEchoes()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	mod := now.Add(-time.Hour)

	e.add("/v/a.md", mod)
	assert.False(t, e.consume("/v/b.md", mod))
	assert.False(t, e.consume("/v/a.md", mod.Add(time.Second)), "different mtime is an edit")
	assert.False(t, e.consume("/v/a.md", mod), "entries are consumed once")

	e.add("/v/a.md", mod)
	now = now.Add(2 * echoTTL)
	assert.False(t, e.consume("/v/a.md", mod), "expired entries do not match")
}

func TestInflight(t *testing.T) {
	f := newInflight()
	require.True(t, f.acquire("x"))
	assert.False(t, f.acquire("x"))
	assert.False(t, f.acquire("x"))
	assert.True(t, f.finish("x"), "pending notifications collapse into one more pass")
	assert.False(t, f.finish("x"))
	assert.False(t, f.held("x"))
}

func TestDescribe(t *testing.T) {
	d := Describe([]string{"#🔥urgent", "#home"}, "Old Stuff")
	assert.Equal(t, "rename", d.Action)
	assert.Equal(t, "🔥 Old Stuff", d.NewTitle)
	assert.Equal(t, []string{"🔥"}, d.Emoji)

	assert.Empty(t, d.Header)

	d = Describe([]string{"#🎉party"}, "🔥 Old Stuff")
	assert.Equal(t, "🔥", d.Header)
	assert.Equal(t, "🎉 Old Stuff", d.NewTitle)

	d = Describe([]string{"#work"}, "Plain")
	assert.Equal(t, "noop", d.Action)
	assert.Empty(t, d.NewTitle)
	assert.NotNil(t, d.Emoji)
}
