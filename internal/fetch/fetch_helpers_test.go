package fetch_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// fakePages es un PageFetcher programable que registra cada request.
type fakePages struct {
	mu       sync.Mutex
	fn       func(req domain.PageRequest) domain.PageResult
	requests []domain.PageRequest
}

func (f *fakePages) FetchPage(_ context.Context, req domain.PageRequest) domain.PageResult {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakePages) calls() []domain.PageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PageRequest(nil), f.requests...)
}

// dataset sirve total records con ids secuenciales. perPage > 0 ignora el
// limit pedido y devuelve siempre hasta perPage records.
func dataset(total, perPage int) func(req domain.PageRequest) domain.PageResult {
	return func(req domain.PageRequest) domain.PageResult {
		n := req.Limit
		if perPage > 0 {
			n = perPage
		}
		end := min(req.Offset+n, total)
		var data []domain.Record
		for i := req.Offset; i < end; i++ {
			data = append(data, domain.Record{"id": strconv.Itoa(i), "type": "TRADE"})
		}
		return domain.PageResult{Offset: req.Offset, Data: data, Success: true}
	}
}

func ok(offset int, data ...domain.Record) domain.PageResult {
	return domain.PageResult{Offset: offset, Data: data, Success: true}
}

func rateLimited(req domain.PageRequest) domain.PageResult {
	return domain.PageResult{Offset: req.Offset, Err: domain.ErrRateLimited, RetryCount: req.RetryCount}
}

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

func (s *sleepLog) all() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func ids(records []domain.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.String("id")
	}
	return out
}

func half() float64 { return 0.5 }
