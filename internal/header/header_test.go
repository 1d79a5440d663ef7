package header

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		tags  []string
		title string
		want  Action
	}{
		{
			name:  "adds header from tag",
			tags:  []string{"#🔥urgent"},
			title: "Old Stuff",
			want:  RenameTo("🔥 Old Stuff"),
		},
		{
			name:  "already synced",
			tags:  []string{"#🔥urgent"},
			title: "🔥 Old Stuff",
			want:  NoChange,
		},
		{
			name:  "first-seen order across tags",
			tags:  []string{"#a🔥", "#b🔥🎉", "#c🎉"},
			title: "Plan",
			want:  RenameTo("🔥🎉 Plan"),
		},
		{
			name:  "replaces stale header",
			tags:  []string{"#🎉party"},
			title: "🔥 Plan",
			want:  RenameTo("🎉 Plan"),
		},
		{
			name:  "no tags strips header",
			tags:  nil,
			title: "🔥🎉 Groceries",
			want:  RenameTo("Groceries"),
		},
		{
			name:  "no tags strips emoji anywhere",
			tags:  []string{},
			title: "Groceries 🛒 list",
			want:  RenameTo("Groceries  list"),
		},
		{
			name:  "untagged plain title unchanged",
			tags:  nil,
			title: "Groceries",
			want:  NoChange,
		},
		{
			name:  "tags without emoji keep existing header",
			tags:  []string{"#groceries", "#urgent"},
			title: "🔥 Groceries",
			want:  NoChange,
		},
		{
			name:  "selector forced emoji counts",
			tags:  []string{"#☀\uFE0Fsummer"},
			title: "Beach",
			want:  RenameTo("☀\uFE0F Beach"),
		},
		{
			name:  "text default symbol ignored",
			tags:  []string{"#☀summer"},
			title: "Beach",
			want:  NoChange,
		},
		{
			name:  "malformed tag tolerated",
			tags:  []string{"#\xff\xfe", "#🚀"},
			title: "Launch",
			want:  RenameTo("🚀 Launch"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.tags, tt.title)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decide(%q, %q) mismatch (-want +got):\n%s", tt.tags, tt.title, diff)
			}
		})
	}
}

func TestDecide_Idempotent(t *testing.T) {
	cases := []struct {
		tags  []string
		title string
	}{
		{[]string{"#🔥urgent"}, "Old Stuff"},
		{[]string{"#a🔥", "#b🔥🎉", "#c🎉"}, "🎉 Party"},
		{[]string{"#👍🏽ok", "#❤\uFE0F"}, "Notes"},
		{nil, "🔥 Groceries 🛒"},
		{[]string{"#🔥urgent"}, " Old Stuff"},
		{[]string{"#🔥urgent"}, "🔥"},
		{[]string{"#🔥urgent"}, "🎉  Party "},
	}
	for _, c := range cases {
		first := Decide(c.tags, c.title)
		current := c.title
		if first.Kind == Rename {
			current = first.NewTitle
		}
		if second := Decide(c.tags, current); !second.IsNoOp() {
			t.Errorf("second Decide(%q, %q) = %+v, want NoOp", c.tags, current, second)
		}
	}
}

func TestDecide_TrimsBase(t *testing.T) {
	tests := []struct {
		tags  []string
		title string
		want  Action
	}{
		{[]string{"#🔥urgent"}, " Old Stuff", RenameTo("🔥 Old Stuff")},
		{[]string{"#🔥urgent"}, "🎉", RenameTo("🔥")},
		{[]string{"#🔥urgent"}, "🔥", NoChange},
		{[]string{"#🔥a", "#🎉b"}, "🔥", RenameTo("🔥🎉")},
	}
	for _, tt := range tests {
		if got := Decide(tt.tags, tt.title); got != tt.want {
			t.Errorf("Decide(%q, %q) = %+v, want %+v", tt.tags, tt.title, got, tt.want)
		}
	}
}

func TestCollectEmoji_Dedup(t *testing.T) {
	got := CollectEmoji([]string{"#🔥", "#work🔥", "#🎉x", "#🔥🎉"})
	want := EmojiSet{"🔥", "🎉"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CollectEmoji mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideStrip(t *testing.T) {
	if got := DecideStrip("🔥 Plan"); got != RenameTo("Plan") {
		t.Errorf("DecideStrip = %+v", got)
	}
	if got := DecideStrip("Plan"); !got.IsNoOp() {
		t.Errorf("DecideStrip(plain) = %+v, want NoOp", got)
	}
}

func TestKindString(t *testing.T) {
	if NoOp.String() != "noop" || Rename.String() != "rename" {
		t.Errorf("unexpected kind names: %s %s", NoOp, Rename)
	}
}
