package domain

import (
	"testing"
	"time"
)

func mustIntervals(t *testing.T, pairs ...[2]int) []Interval {
	t.Helper()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	out := make([]Interval, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Interval{
			Start: base.Add(time.Duration(p[0]) * time.Hour),
			End:   base.Add(time.Duration(p[1]) * time.Hour),
		})
	}
	return out
}

func assertIntervals(t *testing.T, got, want []Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (got %v)", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("interval[%d] = [%v, %v), want [%v, %v)", i, got[i].Start, got[i].End, want[i].Start, want[i].End)
		}
	}
}

func TestNormalizeIntervals(t *testing.T) {
	t.Run("merges overlapping and adjacent", func(t *testing.T) {
		got := NormalizeIntervals(mustIntervals(t, [2]int{4, 6}, [2]int{1, 3}, [2]int{2, 4}, [2]int{8, 9}))
		assertIntervals(t, got, mustIntervals(t, [2]int{1, 6}, [2]int{8, 9}))
	})

	t.Run("drops empty intervals", func(t *testing.T) {
		got := NormalizeIntervals(mustIntervals(t, [2]int{3, 3}, [2]int{5, 4}))
		if len(got) != 0 {
			t.Fatalf("len = %d, want 0", len(got))
		}
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := mustIntervals(t, [2]int{4, 6}, [2]int{1, 3})
		first := in[0]
		_ = NormalizeIntervals(in)
		if !in[0].Start.Equal(first.Start) || !in[0].End.Equal(first.End) {
			t.Fatalf("input mutated: %v", in[0])
		}
	})
}

func TestSubtractIntervals(t *testing.T) {
	t.Run("splits interval around carve", func(t *testing.T) {
		got := SubtractIntervals(mustIntervals(t, [2]int{1, 8}), mustIntervals(t, [2]int{3, 5}))
		assertIntervals(t, got, mustIntervals(t, [2]int{1, 3}, [2]int{5, 8}))
	})

	t.Run("removes fully covered interval", func(t *testing.T) {
		got := SubtractIntervals(mustIntervals(t, [2]int{3, 5}), mustIntervals(t, [2]int{1, 8}))
		if len(got) != 0 {
			t.Fatalf("len = %d, want 0 (got %v)", len(got), got)
		}
	})

	t.Run("ignores non-overlapping carve", func(t *testing.T) {
		got := SubtractIntervals(mustIntervals(t, [2]int{1, 3}), mustIntervals(t, [2]int{3, 5}))
		assertIntervals(t, got, mustIntervals(t, [2]int{1, 3}))
	})
}

func TestUnionIntervals(t *testing.T) {
	got := UnionIntervals(mustIntervals(t, [2]int{1, 3}), mustIntervals(t, [2]int{2, 5}, [2]int{7, 8}))
	assertIntervals(t, got, mustIntervals(t, [2]int{1, 5}, [2]int{7, 8}))
}

func TestClipIntervals(t *testing.T) {
	window := mustIntervals(t, [2]int{2, 6})[0]
	got := ClipIntervals(mustIntervals(t, [2]int{0, 3}, [2]int{4, 9}, [2]int{7, 8}), window)
	assertIntervals(t, got, mustIntervals(t, [2]int{2, 3}, [2]int{4, 6}))
}

func TestComplementIntervals(t *testing.T) {
	window := mustIntervals(t, [2]int{0, 10})[0]

	t.Run("fills gaps and edges", func(t *testing.T) {
		got := ComplementIntervals(mustIntervals(t, [2]int{2, 4}, [2]int{6, 8}), window)
		assertIntervals(t, got, mustIntervals(t, [2]int{0, 2}, [2]int{4, 6}, [2]int{8, 10}))
	})

	t.Run("full coverage leaves nothing", func(t *testing.T) {
		got := ComplementIntervals(mustIntervals(t, [2]int{0, 10}), window)
		if len(got) != 0 {
			t.Fatalf("len = %d, want 0 (got %v)", len(got), got)
		}
	})

	t.Run("empty set complements to the window", func(t *testing.T) {
		got := ComplementIntervals(nil, window)
		assertIntervals(t, got, []Interval{window})
	})

	t.Run("empty window yields nothing", func(t *testing.T) {
		got := ComplementIntervals(nil, Interval{Start: window.Start, End: window.Start})
		if len(got) != 0 {
			t.Fatalf("len = %d, want 0", len(got))
		}
	})
}

func TestIntervalIntersect(t *testing.T) {
	a := mustIntervals(t, [2]int{1, 5})[0]
	b := mustIntervals(t, [2]int{3, 8})[0]

	got := a.Intersect(b)
	want := mustIntervals(t, [2]int{3, 5})[0]
	if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
		t.Fatalf("intersect = [%v, %v), want [%v, %v)", got.Start, got.End, want.Start, want.End)
	}

	disjoint := a.Intersect(mustIntervals(t, [2]int{5, 6})[0])
	if !disjoint.Empty() {
		t.Fatalf("expected empty intersection, got %v", disjoint)
	}
}
