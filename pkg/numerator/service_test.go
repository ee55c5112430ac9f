package numerator

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNext_Format(t *testing.T) {
	svc := New(DefaultConfig())
	ctx := context.Background()
	period := time.Date(2026, 10, 14, 9, 5, 7, 0, time.UTC)

	ref, err := svc.Next(ctx, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "BR-20261014-090507" {
		t.Errorf("expected BR-20261014-090507, got %s", ref)
	}
}

func TestNext_SameSecondNeverRepeats(t *testing.T) {
	svc := New(DefaultConfig())
	ctx := context.Background()
	period := time.Date(2026, 10, 14, 9, 5, 7, 0, time.UTC)

	first, _ := svc.Next(ctx, period)
	second, _ := svc.Next(ctx, period)
	third, _ := svc.Next(ctx, period)

	if first == second || second == third {
		t.Fatalf("consecutive references collided: %s %s %s", first, second, third)
	}
	if second != "BR-20261014-090507-2" {
		t.Errorf("expected collision suffix -2, got %s", second)
	}

	// A new second resets the suffix.
	next, _ := svc.Next(ctx, period.Add(time.Second))
	if next != "BR-20261014-090508" {
		t.Errorf("expected BR-20261014-090508, got %s", next)
	}
}

func TestNext_Location(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	svc := New(Config{Prefix: "BR", Location: loc})

	ref, err := svc.Next(context.Background(), time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "BR-20261015-040000" {
		t.Errorf("expected local day in token, got %s", ref)
	}
}

func TestNext_Concurrent(t *testing.T) {
	svc := New(DefaultConfig())
	ctx := context.Background()
	period := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	const n = 50
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := svc.Next(ctx, period)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[ref] {
				t.Errorf("duplicate reference %s", ref)
			}
			seen[ref] = true
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("expected %d unique references, got %d", n, len(seen))
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("BR-20261014-090507-3", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 10, 14, 9, 5, 7, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if _, err := Parse("garbage", time.UTC); err == nil {
		t.Error("expected error for malformed reference")
	}
}
