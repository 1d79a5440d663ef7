// Package header decides how a note title should change so that it starts
// with the emoji found in the note's tags.
package header

import (
	"strings"

	"github.com/hyperjump/emotags/internal/emoji"
	"github.com/hyperjump/emotags/internal/title"
)

// Kind is the type of a rename decision.
type Kind int

const (
	// NoOp means the title already has the desired form.
	NoOp Kind = iota
	// Rename means the document should be renamed to Action.NewTitle.
	Rename
)

// String returns the lowercase name used in logs and API responses.
func (k Kind) String() string {
	switch k {
	case Rename:
		return "rename"
	default:
		return "noop"
	}
}

// Action is the outcome of a decision.
type Action struct {
	Kind     Kind
	NewTitle string
}

// NoChange is the NoOp action.
var NoChange = Action{Kind: NoOp}

// RenameTo returns a Rename action for newTitle.
func RenameTo(newTitle string) Action {
	return Action{Kind: Rename, NewTitle: newTitle}
}

// IsNoOp reports whether a is a NoOp.
func (a Action) IsNoOp() bool { return a.Kind == NoOp }

// EmojiSet is an ordered list of distinct emoji in first-seen order.
type EmojiSet []string

// Add appends e unless it is already present.
func (s EmojiSet) Add(e string) EmojiSet {
	if s.Has(e) {
		return s
	}
	return append(s, e)
}

// Has reports whether e is in the set.
func (s EmojiSet) Has(e string) bool {
	for _, x := range s {
		if x == e {
			return true
		}
	}
	return false
}

// CollectEmoji scans tags in order, and each tag left to right, and returns
// the distinct emoji they contain.
func CollectEmoji(tags []string) EmojiSet {
	var set EmojiSet
	for _, tag := range tags {
		for _, e := range emoji.Find(tag) {
			set = set.Add(e)
		}
	}
	return set
}

// Decide returns the action that brings current in line with tags.
//
// With tags carrying emoji, the title becomes the distinct tag emoji followed
// by the base title. Tags without any emoji leave the title alone, even when
// it still has a header. Without tags, every emoji is removed from the title.
// The base title is trimmed, and a title made only of emoji becomes the bare
// header.
func Decide(tags []string, current string) Action {
	if len(tags) == 0 {
		return DecideStrip(current)
	}
	set := CollectEmoji(tags)
	if len(set) == 0 {
		return NoChange
	}
	base := strings.TrimSpace(title.StripLeadingEmoji(current))
	return renameIfChanged(current, strings.TrimSpace(title.Compose(set, base)))
}

// DecideStrip returns the action that removes every emoji from current,
// regardless of tags.
func DecideStrip(current string) Action {
	return renameIfChanged(current, title.StripAllEmoji(current))
}

func renameIfChanged(current, next string) Action {
	if next == current {
		return NoChange
	}
	return RenameTo(next)
}
