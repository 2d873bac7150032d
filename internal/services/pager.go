package services

import (
	"context"
	"fmt"

	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

// Page is the vendor response envelope.
type Page[T any] struct {
	Data []T    `json:"data"`
	Next string `json:"next,omitempty"`
}

// PageObserver receives the running item count after each page of endpoint arrives.
type PageObserver func(endpoint string, loaded int)

type pageObserverKey struct{}

// WithPageObserver returns a context whose fetches report page progress to fn.
func WithPageObserver(ctx context.Context, fn PageObserver) context.Context {
	return context.WithValue(ctx, pageObserverKey{}, fn)
}

func pageObserver(ctx context.Context) PageObserver {
	fn, _ := ctx.Value(pageObserverKey{}).(PageObserver)
	return fn
}

// FetchAll requests endpoint page by page, starting at offset 0, until a page holds fewer than
// pageSize items, and returns every item in request order.
//
// Pages are requested strictly one after another. A failing page aborts the fetch and the items
// gathered so far are discarded.
func FetchAll[T any](ctx context.Context, getter PageGetter, endpoint string, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", shared.ErrInvalidArgument, pageSize)
	}

	observe := pageObserver(ctx)
	items := make([]T, 0, pageSize)
	for offset := 0; ; offset += pageSize {
		var page Page[T]
		if err := getter.GetPage(ctx, endpoint, pageSize, offset, &page); err != nil {
			return nil, fmt.Errorf("fetching %s at offset %d: %w", endpoint, offset, err)
		}

		items = append(items, page.Data...)
		if observe != nil {
			observe(endpoint, len(items))
		}

		if len(page.Data) < pageSize {
			return items, nil
		}
	}
}
