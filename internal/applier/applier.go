// Package applier runs header decisions against the document store: in bulk
// for the apply/strip commands, and per document for change notifications.
package applier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/emotags/internal/header"
	"github.com/hyperjump/emotags/internal/models"
	"github.com/hyperjump/emotags/internal/storage"
	"github.com/hyperjump/emotags/internal/title"
	"go.uber.org/zap"
)

// ErrNoLocation is returned by Apply for documents without a known directory.
// Bulk runs count them as skipped.
var ErrNoLocation = errors.New("document location unknown")

const reasonInFlight = "in flight"

// Store is the document store the applier reads from and renames through.
type Store interface {
	Load(path string) (*models.Document, error)
	Rename(ctx context.Context, doc *models.Document, newTitle string) (*models.Document, error)
}

// DecideFunc computes the action for one document.
type DecideFunc func(doc *models.Document) header.Action

// SyncHeaders is the "apply emoji headers" decision.
func SyncHeaders(doc *models.Document) header.Action {
	return header.Decide(doc.Tags, doc.Title)
}

// StripHeaders is the "strip emoji headers" decision.
func StripHeaders(doc *models.Document) header.Action {
	return header.DecideStrip(doc.Title)
}

// Run describes one invocation.
type Run struct {
	Operation models.Operation
	DryRun    bool
}

// Change is a rename that was made, or planned in a dry run.
type Change struct {
	DocumentID string           `json:"document_id"`
	OldPath    string           `json:"old_path"`
	NewPath    string           `json:"new_path"`
	OldTitle   string           `json:"old_title"`
	NewTitle   string           `json:"new_title"`
	Document   *models.Document `json:"-"`
}

// Failure is a document whose rename failed.
type Failure struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	NewTitle   string `json:"new_title,omitempty"`
	Error      string `json:"error"`
}

// Skip is a document that was not processed.
type Skip struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	Reason     string `json:"reason"`
}

// Report summarizes a bulk run.
type Report struct {
	Operation  models.Operation `json:"operation"`
	DryRun     bool             `json:"dry_run"`
	Scanned    int              `json:"scanned"`
	Renamed    int              `json:"renamed"`
	Unchanged  int              `json:"unchanged"`
	Changes    []Change         `json:"changes,omitempty"`
	Skipped    []Skip           `json:"skipped,omitempty"`
	Failures   []Failure        `json:"failures,omitempty"`
	Canceled   bool             `json:"canceled,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// Applier applies header decisions through a Store.
type Applier struct {
	store    Store
	journal  storage.Journal
	logger   *zap.Logger
	newID    func() string
	inflight *inflight
	echoes   *echoes
}

// Option configures an Applier.
type Option func(*Applier)

// WithJournal records every rename attempt in j.
func WithJournal(j storage.Journal) Option {
	return func(a *Applier) { a.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Applier) { a.logger = l }
}

// New creates an applier over store.
func New(store Store, opts ...Option) *Applier {
	a := &Applier{
		store:    store,
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
		inflight: newInflight(),
		echoes:   newEchoes(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply decides for doc and renames it when needed. It returns the change,
// or nil when the title is already right.
func (a *Applier) Apply(ctx context.Context, doc *models.Document, decide DecideFunc, run Run) (*Change, error) {
	action := decide(doc)
	if action.IsNoOp() {
		return nil, nil
	}
	if !doc.HasLocation() {
		return nil, ErrNoLocation
	}
	change := &Change{
		DocumentID: doc.ID,
		OldPath:    doc.Path,
		OldTitle:   doc.Title,
		NewTitle:   action.NewTitle,
	}
	if run.DryRun {
		change.NewPath = filepath.Join(doc.Dir, action.NewTitle+doc.Ext)
		return change, nil
	}

	renamed, err := a.store.Rename(ctx, doc, action.NewTitle)
	if err != nil {
		a.record(ctx, run, change, err)
		return nil, fmt.Errorf("failed to rename %q: %w", doc.Path, err)
	}
	change.NewPath = renamed.Path
	change.Document = renamed
	a.echoes.add(renamed.Path, renamed.ModTime)
	a.record(ctx, run, change, nil)
	a.logger.Info("note renamed",
		zap.String("operation", string(run.Operation)),
		zap.String("from", change.OldTitle),
		zap.String("to", change.NewTitle))
	return change, nil
}

// ApplyAll runs decide over docs one at a time. Failures and skipped
// documents are collected in the report and never stop the batch; only
// context cancellation does.
func (a *Applier) ApplyAll(ctx context.Context, docs []*models.Document, decide DecideFunc, run Run) *Report {
	start := time.Now()
	report := &Report{Operation: run.Operation, DryRun: run.DryRun}
	for _, doc := range docs {
		if ctx.Err() != nil {
			report.Canceled = true
			break
		}
		report.Scanned++
		if !a.inflight.acquire(doc.ID) {
			report.Skipped = append(report.Skipped, Skip{DocumentID: doc.ID, Path: doc.Path, Reason: reasonInFlight})
			continue
		}
		change, err := a.Apply(ctx, doc, decide, run)
		switch {
		case errors.Is(err, ErrNoLocation):
			report.Skipped = append(report.Skipped, Skip{DocumentID: doc.ID, Path: doc.Path, Reason: err.Error()})
		case err != nil:
			a.logger.Warn("rename failed", zap.String("path", doc.Path), zap.Error(err))
			report.Failures = append(report.Failures, Failure{
				DocumentID: doc.ID,
				Path:       doc.Path,
				NewTitle:   decide(doc).NewTitle,
				Error:      err.Error(),
			})
		case change == nil:
			report.Unchanged++
		default:
			report.Renamed++
			report.Changes = append(report.Changes, *change)
		}
		a.settle(ctx, doc.ID, currentPath(doc, change))
	}
	report.DurationMS = time.Since(start).Milliseconds()
	a.logger.Info("bulk run finished",
		zap.String("operation", string(run.Operation)),
		zap.Bool("dry_run", run.DryRun),
		zap.Int("scanned", report.Scanned),
		zap.Int("renamed", report.Renamed),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failures)),
		zap.Bool("canceled", report.Canceled))
	return report
}

// Notify handles a change notification for the note at path. Notifications
// for a document that is already being processed are coalesced into one more
// pass by the current holder. Notifications caused by our own renames are
// dropped.
func (a *Applier) Notify(ctx context.Context, path string) error {
	doc, err := a.store.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %q: %w", path, err)
	}
	if a.echoes.consume(doc.Path, doc.ModTime) {
		a.logger.Debug("ignoring notification for own rename", zap.String("path", doc.Path))
		return nil
	}
	if !a.inflight.acquire(doc.ID) {
		a.logger.Debug("notification coalesced", zap.String("path", doc.Path))
		return nil
	}
	change, err := a.Apply(ctx, doc, SyncHeaders, Run{Operation: models.OperationSync})
	a.settle(ctx, doc.ID, currentPath(doc, change))
	if errors.Is(err, ErrNoLocation) {
		return nil
	}
	return err
}

// settle finishes work on id. While notifications arrived during the work,
// the note is reloaded from path and synced again before id is released.
func (a *Applier) settle(ctx context.Context, id, path string) {
	for a.inflight.finish(id) {
		doc, err := a.store.Load(path)
		if err != nil {
			a.inflight.release(id)
			return
		}
		change, err := a.Apply(ctx, doc, SyncHeaders, Run{Operation: models.OperationSync})
		if err != nil {
			a.logger.Warn("coalesced sync failed", zap.String("path", path), zap.Error(err))
		}
		path = currentPath(doc, change)
	}
}

// InFlight reports whether the document with id is being processed.
func (a *Applier) InFlight(id string) bool {
	return a.inflight.held(id)
}

func currentPath(doc *models.Document, change *Change) string {
	if change != nil && change.Document != nil {
		return change.Document.Path
	}
	return doc.Path
}

func (a *Applier) record(ctx context.Context, run Run, change *Change, renameErr error) {
	if a.journal == nil {
		return
	}
	rec := &models.RenameRecord{
		ID:         a.newID(),
		DocumentID: change.DocumentID,
		Operation:  run.Operation,
		OldPath:    change.OldPath,
		NewPath:    change.NewPath,
		OldTitle:   change.OldTitle,
		NewTitle:   change.NewTitle,
		Status:     models.RenameApplied,
	}
	if renameErr != nil {
		rec.Status = models.RenameFailed
		rec.Error = renameErr.Error()
	}
	// Journal failures must not turn a successful rename into a failed one.
	if err := a.journal.RecordRename(context.WithoutCancel(ctx), rec); err != nil {
		a.logger.Warn("failed to journal rename", zap.String("path", change.OldPath), zap.Error(err))
	}
}

// Describe computes the decision for an ad-hoc title and tag list.
func Describe(tags []string, current string) *models.Decision {
	action := header.Decide(tags, current)
	d := &models.Decision{
		Title:  current,
		Header: title.Header(current),
		Action: action.Kind.String(),
		Emoji:  header.CollectEmoji(tags),
	}
	if d.Emoji == nil {
		d.Emoji = []string{}
	}
	if !action.IsNoOp() {
		d.NewTitle = action.NewTitle
	}
	return d
}
