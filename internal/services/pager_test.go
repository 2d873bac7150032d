package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

// sliceGetter serves items in pages and records each request.
type sliceGetter struct {
	items   []int
	failAt  int
	offsets []int
}

func (g *sliceGetter) GetPage(ctx context.Context, endpoint string, limit, offset int, out any) error {
	g.offsets = append(g.offsets, offset)
	if g.failAt > 0 && len(g.offsets) == g.failAt {
		return errors.New("page failed")
	}

	page := out.(*Page[int])
	if offset >= len(g.items) {
		return nil
	}
	end := min(offset+limit, len(g.items))
	page.Data = g.items[offset:end]
	return nil
}

func seq(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestFetchAll(t *testing.T) {
	t.Run("Request Count", func(t *testing.T) {
		tests := []struct {
			total, pageSize int
			wantRequests    int
		}{
			{total: 0, pageSize: 10, wantRequests: 1},
			{total: 9, pageSize: 10, wantRequests: 1},
			{total: 10, pageSize: 10, wantRequests: 2},
			{total: 25, pageSize: 10, wantRequests: 3},
			{total: 30, pageSize: 10, wantRequests: 4},
			{total: 5, pageSize: 1, wantRequests: 6},
		}

		for _, tt := range tests {
			t.Run(fmt.Sprintf("%d items by %d", tt.total, tt.pageSize), func(t *testing.T) {
				g := &sliceGetter{items: seq(tt.total)}

				items, err := FetchAll[int](context.Background(), g, "/v1/me/library/songs", tt.pageSize)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}

				if len(g.offsets) != tt.wantRequests {
					t.Errorf("expected %d requests, got %d", tt.wantRequests, len(g.offsets))
				}
				if len(items) != tt.total {
					t.Fatalf("expected %d items, got %d", tt.total, len(items))
				}
				for i, v := range items {
					if v != i {
						t.Fatalf("item %d out of order: got %d", i, v)
					}
				}
				for i, off := range g.offsets {
					if off != i*tt.pageSize {
						t.Errorf("request %d used offset %d, want %d", i, off, i*tt.pageSize)
					}
				}
			})
		}
	})

	t.Run("Empty Result Is Not Nil", func(t *testing.T) {
		items, err := FetchAll[int](context.Background(), &sliceGetter{}, "/x", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if items == nil {
			t.Error("expected empty slice, got nil")
		}
	})

	t.Run("Invalid Page Size", func(t *testing.T) {
		for _, size := range []int{0, -1} {
			g := &sliceGetter{items: seq(3)}
			_, err := FetchAll[int](context.Background(), g, "/x", size)

			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("page size %d: expected ErrInvalidArgument, got %v", size, err)
			}
			if len(g.offsets) != 0 {
				t.Errorf("page size %d: expected no requests, got %d", size, len(g.offsets))
			}
		}
	})

	t.Run("Failing Page Aborts", func(t *testing.T) {
		g := &sliceGetter{items: seq(50), failAt: 2}

		items, err := FetchAll[int](context.Background(), g, "/x", 10)
		if err == nil {
			t.Fatal("expected error")
		}
		if items != nil {
			t.Errorf("expected no items, got %d", len(items))
		}
		if len(g.offsets) != 2 {
			t.Errorf("expected fetch to stop after failing page, got %d requests", len(g.offsets))
		}
	})
}

func TestFetchAllObserver(t *testing.T) {
	g := &sliceGetter{items: seq(25)}

	var seen []int
	ctx := WithPageObserver(context.Background(), func(endpoint string, loaded int) {
		if endpoint != "/v1/me/library/songs" {
			t.Errorf("unexpected endpoint %s", endpoint)
		}
		seen = append(seen, loaded)
	})

	if _, err := FetchAll[int](ctx, g, "/v1/me/library/songs", 10); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []int{10, 20, 25}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("expected running counts %v, got %v", want, seen)
	}
}
