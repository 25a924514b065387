// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"slices"
	"testing"
)

func TestSplitList(t *testing.T) {
	if got := splitList(" alice, ,bob,"); !slices.Equal(got, []string{"alice", "bob"}) {
		t.Fatalf("want [alice bob], got %v", got)
	}
	if got := splitList(""); len(got) != 0 {
		t.Fatalf("want empty list, got %v", got)
	}
}

func TestJoinInt64s(t *testing.T) {
	if got := joinInt64s([]int64{12, -34}); got != "12,-34" {
		t.Fatalf("want 12,-34, got %q", got)
	}
	if got := joinInt64s(nil); got != "" {
		t.Fatalf("want empty string, got %q", got)
	}
}
