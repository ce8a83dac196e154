package feed

import (
	"testing"

	"github.com/hitoshi/bitmeme/internal/model"
)

func TestMergeNewestFirst_EmptyStreams(t *testing.T) {
	if got := mergeNewestFirst(nil, 10); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if got := mergeNewestFirst([][]*model.Post{{}, {}}, 10); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

// 複数ストリームに同じ投稿が含まれても1回だけ出力されること
func TestMergeNewestFirst_DropsDuplicates(t *testing.T) {
	shared := post("s", "A", 5)
	streams := [][]*model.Post{
		{shared, post("a", "A", 1)},
		{shared, post("b", "B", 2)},
	}

	got := mergeNewestFirst(streams, 10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "s" || got[1].ID != "b" || got[2].ID != "a" {
		t.Errorf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}
