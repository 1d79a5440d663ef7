package vault

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "inline tags in order",
			content: "Buy milk #🔥urgent and #home\nlater #🛒shopping",
			want:    []string{"#🔥urgent", "#home", "#🛒shopping"},
		},
		{
			name:    "frontmatter list before inline",
			content: "---\ntags:\n  - 🔥work\n  - '#home'\n---\nbody #extra\n",
			want:    []string{"#🔥work", "#home", "#extra"},
		},
		{
			name:    "frontmatter string separated by commas and spaces",
			content: "---\ntags: 🎉party, work home\n---\n",
			want:    []string{"#🎉party", "#work", "#home"},
		},
		{
			name:    "singular tag key",
			content: "---\ntag: 🚀\n---\n",
			want:    []string{"#🚀"},
		},
		{
			name:    "duplicates dropped keeping first",
			content: "---\ntags: [a]\n---\n#b #a #b",
			want:    []string{"#a", "#b"},
		},
		{
			name:    "headings are not tags",
			content: "# Title\n## Section\ntext",
			want:    nil,
		},
		{
			name:    "code is ignored",
			content: "```\n#notatag\n```\nuse `#nope` here #yes",
			want:    []string{"#yes"},
		},
		{
			name:    "double backtick code span",
			content: "``x #🔥secret`` and #open",
			want:    []string{"#open"},
		},
		{
			name:    "padded double backtick code span",
			content: "`` #🔥secret ``",
			want:    nil,
		},
		{
			name:    "longer fence not closed by shorter one",
			content: "````\n```\n#🔥fenced\n````\n#after",
			want:    []string{"#after"},
		},
		{
			name:    "tilde fence and indented code",
			content: "~~~\n#🔥tilde\n~~~\n\n    #🔥indented\n\ntext #kept",
			want:    []string{"#kept"},
		},
		{
			name:    "tags inside emphasis and links",
			content: "*#🔥bold* and [see #🎉link](http://x.org/#frag)",
			want:    []string{"#🔥bold", "#🎉link"},
		},
		{
			name:    "numeric tags ignored",
			content: "issue #123 and #v2",
			want:    []string{"#v2"},
		},
		{
			name:    "anchors in words are not tags",
			content: "see page#section and http://x.org/#frag",
			want:    nil,
		},
		{
			name:    "invalid frontmatter reported but body kept",
			content: "---\ntags: [unclosed\n---\n#body",
			want:    []string{"#body"},
			wantErr: true,
		},
		{
			name:    "unterminated frontmatter is body",
			content: "---\n#inline",
			want:    []string{"#inline"},
		},
		{
			name:    "no tags",
			content: "just text",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTags([]byte(tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTags error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitFrontmatter(t *testing.T) {
	fm, body := splitFrontmatter([]byte("---\r\ntitle: x\r\n---\r\nhello"))
	if string(fm) != "title: x\r\n" {
		t.Errorf("frontmatter = %q", fm)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q", body)
	}

	fm, body = splitFrontmatter([]byte("no frontmatter"))
	if fm != nil || string(body) != "no frontmatter" {
		t.Errorf("unexpected split: fm=%q body=%q", fm, body)
	}
}
