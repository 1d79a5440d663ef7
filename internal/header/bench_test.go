package header

import (
	"fmt"
	"testing"
)

func BenchmarkDecide(b *testing.B) {
	tags := []string{"#🔥urgent", "#home", "#🎉party", "#work/🚀launch"}
	titles := make([]string, 100)
	for i := range titles {
		titles[i] = fmt.Sprintf("🔥 Note number %d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Decide(tags, titles[i%len(titles)])
	}
}

func BenchmarkDecideStrip(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = DecideStrip("🔥🎉 Groceries 🚗 and more")
	}
}
