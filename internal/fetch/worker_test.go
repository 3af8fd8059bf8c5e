package fetch_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRangeFetcher(pages *fakePages, sleeps *sleepLog, opts ...fetch.RangeOption) *fetch.RangeFetcher {
	opts = append([]fetch.RangeOption{
		fetch.WithRangeSleeper(sleeps.sleep),
		fetch.WithRangeRand(half),
	}, opts...)
	return fetch.NewRangeFetcher(pages, opts...)
}

func TestRangeFetcher_AdvancesByReturnedCount(t *testing.T) {
	pages := &fakePages{fn: dataset(10_000, 200)}
	f := newRangeFetcher(pages, &sleepLog{})

	records, err := f.Fetch(context.Background(), "u", "w", domain.FetchRange{Start: 0, End: 500, WorkerID: 1}, false)
	require.NoError(t, err)
	assert.Len(t, records, 500)

	calls := pages.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []int{0, 200, 400}, []int{calls[0].Offset, calls[1].Offset, calls[2].Offset})
	assert.Equal(t, []int{500, 300, 100}, []int{calls[0].Limit, calls[1].Limit, calls[2].Limit})
}

func TestRangeFetcher_TrimsRecordsPastRangeEnd(t *testing.T) {
	// La API ignora el limit y devuelve 300 por página.
	pages := &fakePages{fn: dataset(10_000, 300)}
	f := newRangeFetcher(pages, &sleepLog{})

	r := domain.FetchRange{Start: 250, End: 750, WorkerID: 2}
	records, err := f.Fetch(context.Background(), "u", "w", r, false)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(records), r.End-r.Start)
	assert.Len(t, records, 500)
	assert.Equal(t, "749", records[len(records)-1].String("id"))
	assert.Len(t, pages.calls(), 2)
}

func TestRangeFetcher_LastWorkerRunsToEndOfData(t *testing.T) {
	pages := &fakePages{fn: dataset(1_200, 0)}
	f := newRangeFetcher(pages, &sleepLog{})

	records, err := f.Fetch(context.Background(), "u", "w", domain.FetchRange{Start: 500, End: 750, WorkerID: 3}, true)
	require.NoError(t, err)

	assert.Len(t, records, 700)
	calls := pages.calls()
	require.Len(t, calls, 3, "two data pages and one empty page")
	assert.Equal(t, 500, calls[0].Limit, "last worker does not clamp")
}

func TestRangeFetcher_RetriesRateLimitSameOffset(t *testing.T) {
	attempts := 0
	pages := &fakePages{fn: func(req domain.PageRequest) domain.PageResult {
		if req.Offset == 0 && attempts < 4 {
			attempts++
			return rateLimited(req)
		}
		return dataset(100, 0)(req)
	}}
	f := newRangeFetcher(pages, &sleepLog{})

	records, err := f.Fetch(context.Background(), "u", "w", domain.FetchRange{Start: 0, End: 100, WorkerID: 1}, false)
	require.NoError(t, err)
	assert.Len(t, records, 100)

	calls := pages.calls()
	require.Len(t, calls, 5)
	for i, c := range calls {
		assert.Equal(t, 0, c.Offset)
		assert.Equal(t, i, c.RetryCount)
	}
}

func TestRangeFetcher_RateLimitCapHalts(t *testing.T) {
	pages := &fakePages{fn: func(req domain.PageRequest) domain.PageResult {
		if req.Offset >= 100 {
			return rateLimited(req)
		}
		return dataset(1000, 100)(req)
	}}
	f := newRangeFetcher(pages, &sleepLog{})

	records, err := f.Fetch(context.Background(), "u", "w", domain.FetchRange{Start: 0, End: 500, WorkerID: 1}, false)
	require.NoError(t, err)
	assert.Len(t, records, 100)
	assert.Len(t, pages.calls(), 1+5)
}

func TestRangeFetcher_OtherErrorHalts(t *testing.T) {
	pages := &fakePages{fn: func(req domain.PageRequest) domain.PageResult {
		if req.Offset >= 100 {
			return domain.PageResult{Offset: req.Offset, Err: "500"}
		}
		return dataset(1000, 100)(req)
	}}
	f := newRangeFetcher(pages, &sleepLog{})

	records, err := f.Fetch(context.Background(), "u", "w", domain.FetchRange{Start: 0, End: 500, WorkerID: 1}, false)
	require.NoError(t, err)
	assert.Len(t, records, 100)
	assert.Len(t, pages.calls(), 2)
}

func TestRangeFetcher_Delays(t *testing.T) {
	pages := &fakePages{fn: dataset(1000, 100)}
	sleeps := &sleepLog{}
	f := newRangeFetcher(pages, sleeps)

	_, err := f.Fetch(context.Background(), "u", "w", domain.FetchRange{Start: 0, End: 200, WorkerID: 2}, false)
	require.NoError(t, err)

	delays := sleeps.all()
	require.Len(t, delays, 2, "startup delay and one inter-page delay")
	assert.Equal(t, 600*time.Millisecond, delays[0], "U(0.1,0.5)×2 with rand=0.5")
	assert.Equal(t, 500*time.Millisecond, delays[1], "0.3+0.1×2 with zero jitter")
}

func TestRangeFetcher_InvalidRange(t *testing.T) {
	f := newRangeFetcher(&fakePages{fn: dataset(0, 0)}, &sleepLog{})

	_, err := f.Fetch(context.Background(), "u", "w", domain.FetchRange{Start: 10, End: 5, WorkerID: 1}, false)
	assert.Error(t, err)
}
