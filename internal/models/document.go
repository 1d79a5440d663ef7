// Package models defines core data structures for vault documents and rename records.
package models

import "time"

// Document is a note in the vault as seen by the header sync.
type Document struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Dir     string    `json:"dir"`   // containing directory; empty when unknown
	Title   string    `json:"title"` // base name without directory or extension
	Ext     string    `json:"ext"`
	Tags    []string  `json:"tags"`
	ModTime time.Time `json:"mod_time"`
}

// HasLocation reports whether the document's directory is known.
func (d *Document) HasLocation() bool {
	return d != nil && d.Dir != ""
}

// Operation names the action that produced a rename.
type Operation string

const (
	// OperationApply is a bulk "apply emoji headers" run.
	OperationApply Operation = "apply"
	// OperationStrip is a bulk "strip emoji headers" run.
	OperationStrip Operation = "strip"
	// OperationSync is a rename triggered by a change notification.
	OperationSync Operation = "sync"
)

// RenameStatus is the result of a rename attempt.
type RenameStatus string

const (
	RenameApplied RenameStatus = "applied"
	RenameFailed  RenameStatus = "failed"
)

// RenameRecord is one journal entry.
type RenameRecord struct {
	ID         string       `json:"id" db:"id"`
	DocumentID string       `json:"document_id" db:"document_id"`
	Operation  Operation    `json:"operation" db:"operation"`
	OldPath    string       `json:"old_path" db:"old_path"`
	NewPath    string       `json:"new_path,omitempty" db:"new_path"`
	OldTitle   string       `json:"old_title" db:"old_title"`
	NewTitle   string       `json:"new_title" db:"new_title"`
	Status     RenameStatus `json:"status" db:"status"`
	Error      string       `json:"error,omitempty" db:"error"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}
