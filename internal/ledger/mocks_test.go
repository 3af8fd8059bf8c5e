package ledger_test

import (
	"context"
	"errors"
	"sync"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/fetch"
)

// mockMarkets implementa ports.MarketProvider.
type mockMarkets struct {
	mu      sync.Mutex
	meta    map[string]domain.MarketMetadata
	failOn  map[string]bool // falla el batch que contenga alguno de estos slugs
	batches [][]string
}

func (m *mockMarkets) FetchMarketMetadata(_ context.Context, slugs []string) (map[string]domain.MarketMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), slugs...))
	out := make(map[string]domain.MarketMetadata)
	for _, s := range slugs {
		if m.failOn[s] {
			return nil, errors.New("gamma unavailable")
		}
		if md, ok := m.meta[s]; ok {
			out[s] = md
		}
	}
	return out, nil
}

// mockTrades implementa ports.TradeProvider.
type mockTrades struct {
	fills  []domain.Fill
	err    error
	wallet string
	ids    []string
}

func (m *mockTrades) FetchUserFills(_ context.Context, wallet string, ids []string) ([]domain.Fill, error) {
	m.wallet = wallet
	m.ids = ids
	return m.fills, m.err
}

// mockRanges reemplaza al Coordinator.
type mockRanges struct {
	mu       sync.Mutex
	byURL    map[string][]domain.Record
	err      error
	requests map[string]int // endpoint → workers
}

func (m *mockRanges) FetchAll(_ context.Context, endpoint, _ string, workers, _ int) (fetch.CoordinatorResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requests == nil {
		m.requests = map[string]int{}
	}
	m.requests[endpoint] = workers
	if m.err != nil {
		return fetch.CoordinatorResult{}, m.err
	}
	return fetch.CoordinatorResult{Records: m.byURL[endpoint], Workers: workers}, nil
}

// mockPositions implementa ports.PositionProvider.
type mockPositions struct {
	balances []domain.SubgraphPosition
	closed   []domain.Record
	active   []domain.Record
	gotIDs   []string
}

func (m *mockPositions) FetchPositionsByMarkets(_ context.Context, _ string, ids []string, closed bool) ([]domain.Record, error) {
	m.gotIDs = ids
	if closed {
		return m.closed, nil
	}
	return m.active, nil
}

func (m *mockPositions) FetchSubgraphPositions(context.Context, string, bool) ([]domain.SubgraphPosition, error) {
	return m.balances, nil
}

func ptr[T any](v T) *T { return &v }
