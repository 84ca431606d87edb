package store

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryZIncrByIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.ZIncrBy(ctx, "scores", "bob", 1); err != nil {
				t.Errorf("zincrby: %v", err)
			}
		}()
	}
	wg.Wait()

	score, found, _ := m.ZScore(ctx, "scores", "bob")
	if !found || score != 50 {
		t.Fatalf("expected 50, got %d (found=%v)", score, found)
	}
}

func TestMemoryZRangeOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.ZAdd(ctx, "s", "alice", 5)
	_ = m.ZAdd(ctx, "s", "bob", 9)
	_ = m.ZAdd(ctx, "s", "carol", 1)

	top, _ := m.ZRange(ctx, "s", 0, 1, true)
	if len(top) != 2 || top[0].Member != "bob" || top[1].Member != "alice" {
		t.Fatalf("unexpected desc range %+v", top)
	}

	all, _ := m.ZRange(ctx, "s", 0, -1, false)
	if len(all) != 3 || all[0].Member != "carol" {
		t.Fatalf("unexpected asc range %+v", all)
	}

	if out, _ := m.ZRange(ctx, "s", 5, 10, false); len(out) != 0 {
		t.Fatalf("out of range must be empty, got %+v", out)
	}

	mid, _ := m.ZRangeByScore(ctx, "s", 2, 9)
	if len(mid) != 2 || mid[0].Member != "alice" {
		t.Fatalf("unexpected range by score %+v", mid)
	}
}

func TestMemorySetNXAndIncr(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ok, _ := m.SetNX(ctx, "k", "1")
	if !ok {
		t.Fatalf("first SetNX must succeed")
	}
	ok, _ = m.SetNX(ctx, "k", "2")
	if ok {
		t.Fatalf("second SetNX must fail")
	}

	v, err := m.IncrBy(ctx, "counter", -1)
	if err != nil || v != -1 {
		t.Fatalf("expected -1, got %d (%v)", v, err)
	}
	_ = m.Set(ctx, "bad", "abc")
	if _, err := m.IncrBy(ctx, "bad", 1); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestMemoryDelPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Set(ctx, "awarded:normal:t1_a", "1")
	_ = m.Set(ctx, "awarded:normal:t1_b", "1")
	_ = m.Set(ctx, "awarded:mod:t1_a", "1")

	n, _ := m.DelPrefix(ctx, "awarded:normal:")
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if ok, _ := m.Exists(ctx, "awarded:mod:t1_a"); !ok {
		t.Fatalf("mod key must survive")
	}
}

func TestRankBounds(t *testing.T) {
	cases := []struct {
		start, stop, n int
		lo, hi         int
		ok             bool
	}{
		{0, -1, 3, 0, 3, true},
		{-2, -1, 3, 1, 3, true},
		{0, 10, 3, 0, 3, true},
		{2, 1, 3, 0, 0, false},
		{0, 0, 0, 0, 0, false},
	}
	for _, c := range cases {
		lo, hi, ok := rankBounds(c.start, c.stop, c.n)
		if lo != c.lo || hi != c.hi || ok != c.ok {
			t.Fatalf("rankBounds(%d,%d,%d) = %d,%d,%v", c.start, c.stop, c.n, lo, hi, ok)
		}
	}
}
