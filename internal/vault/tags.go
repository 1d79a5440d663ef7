package vault

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// TagMarker prefixes every tag name.
const TagMarker = "#"

var (
	inlineTag = regexp.MustCompile("(?:^|[\\s,])(#[^\\s#.,;:!?()\\[\\]{}\"'`]+)")
	markdown  = goldmark.New()
)

type frontmatter struct {
	Tags any `yaml:"tags"`
	Tag  any `yaml:"tag"`
}

// ParseTags returns the tags of a note in document order: frontmatter tags
// first, then inline tags from the body. Every tag carries the # marker and
// duplicates are dropped. A frontmatter block that is not valid YAML is
// reported as an error, but inline tags are still returned.
func ParseTags(content []byte) ([]string, error) {
	fm, body := splitFrontmatter(content)

	var tags []string
	seen := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || name == TagMarker {
			return
		}
		if !strings.HasPrefix(name, TagMarker) {
			name = TagMarker + name
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}

	var fmErr error
	if fm != nil {
		var meta frontmatter
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			fmErr = fmt.Errorf("failed to parse frontmatter: %w", err)
		} else {
			for _, name := range frontmatterTags(meta.Tags) {
				add(name)
			}
			for _, name := range frontmatterTags(meta.Tag) {
				add(name)
			}
		}
	}

	for _, name := range inlineTags(body) {
		add(name)
	}
	return tags, fmErr
}

// splitFrontmatter separates a leading "---" block from the body. fm is nil
// when the note has no frontmatter.
func splitFrontmatter(content []byte) (fm, body []byte) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	firstEnd := bytes.IndexByte(content, '\n')
	if firstEnd < 0 || string(bytes.TrimRight(content[:firstEnd], "\r")) != "---" {
		return nil, content
	}
	rest := content[firstEnd+1:]
	offset := 0
	for offset <= len(rest) {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		if lineEnd < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+lineEnd]
		}
		trimmed := string(bytes.TrimRight(line, "\r \t"))
		if trimmed == "---" || trimmed == "..." {
			if lineEnd < 0 {
				return rest[:offset], nil
			}
			return rest[:offset], rest[offset+lineEnd+1:]
		}
		if lineEnd < 0 {
			break
		}
		offset += lineEnd + 1
	}
	// Unterminated block: treat everything as body.
	return nil, content
}

func frontmatterTags(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return strings.FieldsFunc(val, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
	case []any:
		var out []string
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, strings.TrimSpace(fmt.Sprint(item)))
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}

// inlineTags parses body as CommonMark and scans the prose for tags. Code
// spans, code blocks and raw HTML are left out.
func inlineTags(body []byte) []string {
	var prose strings.Builder
	doc := markdown.Parser().Parse(text.NewReader(body))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.CodeSpan, *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML, *ast.AutoLink:
			if entering {
				prose.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				prose.Write(node.Segment.Value(body))
				if node.SoftLineBreak() || node.HardLineBreak() {
					prose.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				prose.Write(node.Value)
			}
		}
		if !entering && n.Type() == ast.TypeBlock {
			prose.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})

	var tags []string
	for _, m := range inlineTag.FindAllStringSubmatch(prose.String(), -1) {
		if isNumeric(m[1][1:]) {
			continue
		}
		tags = append(tags, m[1])
	}
	return tags
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
