// Package vault is the document store for a directory tree of markdown notes.
// It lists notes, reads their titles and tags, and renames them.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperjump/emotags/internal/fileid"
	"github.com/hyperjump/emotags/internal/models"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrExists is returned when the rename destination is taken by another file.
	ErrExists = errors.New("destination already exists")
	// ErrNoLocation is returned when a document has no known directory.
	ErrNoLocation = errors.New("document location unknown")
	// ErrInvalidTitle is returned for titles that cannot be used as a file name.
	ErrInvalidTitle = errors.New("invalid title")
)

// DefaultExtensions are the note extensions used when none are configured.
var DefaultExtensions = []string{".md"}

// Vault reads and renames notes under a set of root directories.
type Vault struct {
	mu         sync.RWMutex
	roots      []string
	extensions []string
	recursive  bool
	logger     *zap.Logger
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets a logger for skipped files and renames.
func WithLogger(l *zap.Logger) Option {
	return func(v *Vault) { v.logger = l }
}

// New creates a vault over roots. extensions filters note files; when empty,
// DefaultExtensions is used.
func New(roots []string, extensions []string, recursive bool, opts ...Option) *Vault {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	v := &Vault{
		roots:      append([]string(nil), roots...),
		extensions: append([]string(nil), extensions...),
		recursive:  recursive,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Roots returns a copy of the root directories.
func (v *Vault) Roots() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.roots...)
}

// SetRoots replaces the root directories.
func (v *Vault) SetRoots(roots []string) {
	v.mu.Lock()
	v.roots = append([]string(nil), roots...)
	v.mu.Unlock()
}

// Extensions returns the note extensions.
func (v *Vault) Extensions() []string {
	return append([]string(nil), v.extensions...)
}

// IsNote reports whether path has a note extension.
func (v *Vault) IsNote(path string) bool {
	return MatchExtension(path, v.extensions)
}

// List loads every note under the roots. Missing roots and unreadable files
// are logged and skipped.
func (v *Vault) List(ctx context.Context) ([]*models.Document, error) {
	var docs []*models.Document
	for _, root := range v.Roots() {
		root = filepath.Clean(root)
		if _, err := os.Stat(root); err != nil {
			v.logger.Warn("vault root unavailable", zap.String("root", root), zap.Error(err))
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				v.logger.Warn("vault walk error", zap.String("path", path), zap.Error(err))
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != root && (IsHidden(path) || !v.recursive) {
					return filepath.SkipDir
				}
				return nil
			}
			if !v.IsNote(path) || IsHidden(path) {
				return nil
			}
			doc, err := v.Load(path)
			if err != nil {
				v.logger.Warn("skipping unreadable note", zap.String("path", path), zap.Error(err))
				return nil
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return docs, fmt.Errorf("failed to list %s: %w", root, err)
		}
	}
	return docs, nil
}

// Load reads the note at path.
func (v *Vault) Load(path string) (*models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", abs)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	tags, err := ParseTags(content)
	if err != nil {
		v.logger.Warn("ignoring frontmatter", zap.String("path", abs), zap.Error(err))
	}
	ext := filepath.Ext(abs)
	return &models.Document{
		ID:      fileid.DocID(abs),
		Path:    abs,
		Dir:     filepath.Dir(abs),
		Title:   norm.NFC.String(strings.TrimSuffix(filepath.Base(abs), ext)),
		Ext:     ext,
		Tags:    tags,
		ModTime: info.ModTime(),
	}, nil
}

// Rename moves doc to <Dir>/<newTitle><Ext> and returns the renamed document.
// An existing destination that is not the same file yields ErrExists.
func (v *Vault) Rename(ctx context.Context, doc *models.Document, newTitle string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !doc.HasLocation() {
		return nil, ErrNoLocation
	}
	if err := ValidateTitle(newTitle); err != nil {
		return nil, err
	}
	dest := filepath.Join(doc.Dir, newTitle+doc.Ext)
	if dest == doc.Path {
		return doc, nil
	}
	if destInfo, err := os.Lstat(dest); err == nil {
		srcInfo, srcErr := os.Lstat(doc.Path)
		if srcErr != nil || !os.SameFile(srcInfo, destInfo) {
			return nil, fmt.Errorf("rename to %q: %w", dest, ErrExists)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to check destination: %w", err)
	}
	if err := os.Rename(doc.Path, dest); err != nil {
		return nil, fmt.Errorf("failed to rename %q: %w", doc.Path, err)
	}
	v.logger.Debug("note renamed", zap.String("from", doc.Path), zap.String("to", dest))

	renamed := *doc
	renamed.ID = fileid.DocID(dest)
	renamed.Path = dest
	renamed.Title = newTitle
	return &renamed, nil
}

// ValidateTitle rejects titles that cannot be used as a file base name.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	switch {
	case trimmed == "", trimmed == ".", trimmed == "..":
		return fmt.Errorf("%w: %q", ErrInvalidTitle, title)
	case trimmed != title:
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidTitle, title)
	case strings.ContainsRune(title, '/'), strings.ContainsRune(title, filepath.Separator), strings.ContainsRune(title, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidTitle, title)
	}
	return nil
}

// MatchExtension reports whether path ends with one of extensions, ignoring
// case and the leading dot. An empty list matches everything.
func MatchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// IsHidden reports whether the last element of path starts with a dot, as
// the .obsidian, .trash and .git directories do.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 1 && strings.HasPrefix(base, ".") && base != ".."
}
