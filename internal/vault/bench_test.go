package vault

import (
	"strings"
	"testing"
)

func BenchmarkParseTags(b *testing.B) {
	var body strings.Builder
	body.WriteString("---\ntags: [🔥urgent, home]\n---\n")
	for i := 0; i < 200; i++ {
		body.WriteString("Some text with #tag and `#code` here.\n")
	}
	content := []byte(body.String())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseTags(content)
	}
}
