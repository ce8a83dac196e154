package feed

import (
	"container/heap"

	"github.com/hitoshi/bitmeme/internal/model"
)

// newer は a が b より新しい場合に true を返す。作成日時が同じ場合はIDの降順。
func newer(a, b *model.Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// cursor は1本のストリーム内の読み取り位置。
type cursor struct {
	stream []*model.Post
	pos    int
}

func (c *cursor) head() *model.Post { return c.stream[c.pos] }

// cursorHeap は先頭の投稿が新しい順に並ぶ最大ヒープ。
type cursorHeap []*cursor

func (h cursorHeap) Len() int           { return len(h) }
func (h cursorHeap) Less(i, j int) bool { return newer(h[i].head(), h[j].head()) }
func (h cursorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)        { *h = append(*h, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// mergeNewestFirst は新しい順に並んだ複数のストリームを1本にマージする。
// 同じIDの投稿は1回だけ出力し、limit件に達した時点で打ち切る。
func mergeNewestFirst(streams [][]*model.Post, limit int) []*model.Post {
	h := make(cursorHeap, 0, len(streams))
	for _, s := range streams {
		if len(s) > 0 {
			h = append(h, &cursor{stream: s})
		}
	}
	heap.Init(&h)

	out := make([]*model.Post, 0, limit)
	seen := make(map[string]struct{}, limit)
	for h.Len() > 0 && len(out) < limit {
		c := h[0]
		p := c.head()
		if _, dup := seen[p.ID]; !dup {
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
		c.pos++
		if c.pos < len(c.stream) {
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}
	}
	return out
}
