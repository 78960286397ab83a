package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type payload struct {
	Topic string `json:"topic"`
	Score int    `json:"score"`
}

func TestMemory_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemoryWithClock(clk.now)

	if err := m.Set(ctx, "k", payload{"recursion", 9}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got payload
	if ok, err := m.Get(ctx, "k", &got); err != nil || !ok || got.Topic != "recursion" || got.Score != 9 {
		t.Fatalf("Get = %v %v %+v", ok, err, got)
	}

	clk.t = clk.t.Add(59 * time.Second)
	if ok, _ := m.Get(ctx, "k", &got); !ok {
		t.Fatal("entry expired early")
	}
	clk.t = clk.t.Add(time.Second)
	if ok, _ := m.Get(ctx, "k", &got); ok {
		t.Fatal("entry should expire exactly at its TTL")
	}
}

func TestMemory_NoTTLAndDelete(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(0, 0)}
	m := NewMemoryWithClock(clk.now)
	_ = m.Set(ctx, "a", 1, 0)
	_ = m.Set(ctx, "b", 2, 0)
	clk.t = clk.t.Add(1000 * time.Hour)

	var n int
	if ok, _ := m.Get(ctx, "a", &n); !ok || n != 1 {
		t.Fatalf("a = %v %d", ok, n)
	}
	_ = m.Delete(ctx, "a", "b", "missing")
	if ok, _ := m.Get(ctx, "b", &n); ok {
		t.Fatal("b should be deleted")
	}
	if _, err := m.Get(ctx, "a", nil); !errors.Is(err, ErrNilDestination) {
		t.Fatalf("nil dst err = %v", err)
	}
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	calls := 0
	load := func(context.Context) ([]payload, error) {
		calls++
		return []payload{{"loops", calls}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(ctx, m, "insights", time.Hour, load)
		if err != nil || len(got) != 1 || got[0].Score != 1 {
			t.Fatalf("call %d: %+v %v", i, got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times", calls)
	}

	boom := errors.New("boom")
	_, err := GetOrLoad(ctx, m, "other", time.Hour, func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	var n int
	if ok, _ := m.Get(ctx, "other", &n); ok {
		t.Fatal("failed loads must not be cached")
	}
}
