package fetch_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "0x00000000000000000000000000000000000000aa"
	walletB = "0x00000000000000000000000000000000000000bb"
	walletC = "0x00000000000000000000000000000000000000cc"
)

// fakeSource devuelve records fijos por wallet y registra el orden de visita.
type fakeSource struct {
	mu       sync.Mutex
	trades   map[string][]domain.Record
	activity map[string][]domain.Record
	visited  []string
}

func (f *fakeSource) FetchTrades(_ context.Context, wallet string, seen *domain.SeenSet) []domain.Record {
	f.mu.Lock()
	f.visited = append(f.visited, wallet)
	f.mu.Unlock()
	return filterSeen(f.trades[wallet], seen)
}

func (f *fakeSource) FetchActivity(_ context.Context, wallet string, seen *domain.SeenSet) []domain.Record {
	return filterSeen(f.activity[wallet], seen)
}

func filterSeen(records []domain.Record, seen *domain.SeenSet) []domain.Record {
	var out []domain.Record
	for _, r := range records {
		if seen.Add(domain.DedupKeyOf(r)) {
			out = append(out, r)
		}
	}
	return out
}

func TestExpander_FollowsProxyWallets(t *testing.T) {
	src := &fakeSource{
		trades: map[string][]domain.Record{
			walletA: {{"transactionHash": "t1", "type": "TRADE", "proxyWallet": strings.ToUpper(walletB[2:])}},
			walletB: {{"transactionHash": "t2", "type": "TRADE", "proxyWallet": walletA}},
		},
		activity: map[string][]domain.Record{
			walletB: {{"transactionHash": "r1", "type": "REDEEM", "proxy_wallet": walletC}},
		},
	}
	e := fetch.NewExpander(src, 0)

	trades, actions, err := e.FetchAll(context.Background(), strings.ToUpper(walletA[:2])+walletA[2:])
	require.NoError(t, err)

	assert.Equal(t, []string{walletA, walletB, walletC}, src.visited)
	assert.Len(t, trades, 2)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActivityRedeem, actions[0].Type())
}

func TestExpander_DedupsAcrossWallets(t *testing.T) {
	shared := domain.Record{"transactionHash": "t1", "type": "TRADE", "proxyWallet": walletB}
	src := &fakeSource{
		trades: map[string][]domain.Record{
			walletA: {shared},
			walletB: {shared},
		},
	}
	e := fetch.NewExpander(src, 0)

	trades, actions, err := e.FetchAll(context.Background(), walletA)
	require.NoError(t, err)

	assert.Len(t, trades, 1)
	assert.Empty(t, actions)
}

func TestExpander_TruncatesToMaxRecordsKeepingTrades(t *testing.T) {
	src := &fakeSource{
		trades: map[string][]domain.Record{
			walletA: {
				{"transactionHash": "t1", "type": "TRADE"},
				{"transactionHash": "t2", "type": "TRADE", "proxyWallet": walletB},
			},
			walletB: {{"transactionHash": "t3", "type": "TRADE"}},
		},
		activity: map[string][]domain.Record{
			walletA: {
				{"transactionHash": "m1", "type": "MERGE"},
				{"transactionHash": "m2", "type": "MERGE"},
			},
		},
	}
	e := fetch.NewExpander(src, 3)

	trades, actions, err := e.FetchAll(context.Background(), walletA)
	require.NoError(t, err)

	assert.Len(t, trades, 2)
	assert.Len(t, actions, 1)
	assert.Equal(t, []string{walletA}, src.visited, "cap stops before the proxy wallet")
}

func TestExpander_EmptyWallet(t *testing.T) {
	e := fetch.NewExpander(&fakeSource{}, 0)

	trades, actions, err := e.FetchAll(context.Background(), walletA)
	require.NoError(t, err)
	assert.NotNil(t, trades)
	assert.NotNil(t, actions)
	assert.Empty(t, trades)
	assert.Empty(t, actions)
}

func TestExpander_InvalidSeed(t *testing.T) {
	e := fetch.NewExpander(&fakeSource{}, 0)

	_, _, err := e.FetchAll(context.Background(), "not-a-wallet")
	assert.Error(t, err)
}

func TestExpander_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{}
	e := fetch.NewExpander(src, 0)

	_, _, err := e.FetchAll(ctx, walletA)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.visited)
}
