package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// walletSource es lo que Expander necesita de Unbounded.
type walletSource interface {
	FetchTrades(ctx context.Context, wallet string, seen *domain.SeenSet) []domain.Record
	FetchActivity(ctx context.Context, wallet string, seen *domain.SeenSet) []domain.Record
}

// Expander recorre una wallet semilla y las wallets proxy que aparecen en sus
// records, en orden FIFO, hasta vaciar la cola o llegar a maxRecords.
type Expander struct {
	source     walletSource
	maxRecords int
}

// NewExpander crea un Expander. maxRecords <= 0 usa el default de 100000.
func NewExpander(source walletSource, maxRecords int) *Expander {
	if maxRecords <= 0 {
		maxRecords = 100_000
	}
	return &Expander{source: source, maxRecords: maxRecords}
}

// FetchAll devuelve trades (type TRADE) y el resto de acciones de la wallet y
// sus proxies, deduplicados globalmente. len(trades)+len(actions) nunca supera
// maxRecords. Una wallet sin datos devuelve slices vacíos sin error.
func (e *Expander) FetchAll(ctx context.Context, wallet string) (trades, actions []domain.Record, err error) {
	seed, ok := normalizeWallet(wallet)
	if !ok {
		return nil, nil, fmt.Errorf("fetch.Expander: invalid wallet address %q", wallet)
	}

	trades = []domain.Record{}
	actions = []domain.Record{}
	global := domain.NewSeenSet()

	queue := []string{seed}
	queued := map[string]bool{seed: true}
	processed := map[string]bool{}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			trades, actions = e.truncate(trades, actions)
			return trades, actions, err
		}

		w := queue[0]
		queue = queue[1:]
		delete(queued, w)
		if processed[w] {
			continue
		}
		processed[w] = true
		slog.Info("processing wallet", "wallet", w, "remaining", len(queue))

		// Cada fetch deduplica por su cuenta; global colapsa entre wallets.
		records := e.source.FetchTrades(ctx, w, domain.NewSeenSet())
		records = append(records, e.source.FetchActivity(ctx, w, domain.NewSeenSet())...)

		for _, rec := range records {
			if proxy, ok := normalizeWallet(rec.ProxyWallet()); ok && !processed[proxy] && !queued[proxy] {
				queue = append(queue, proxy)
				queued[proxy] = true
				slog.Debug("proxy wallet queued", "proxy", proxy, "from", w)
			}

			if !global.Add(domain.DedupKeyOf(rec)) {
				continue
			}
			if rec.Type() == domain.ActivityTrade {
				trades = append(trades, rec)
			} else {
				actions = append(actions, rec)
			}
		}

		if len(trades)+len(actions) >= e.maxRecords {
			slog.Warn("reached global max records", "max", e.maxRecords, "wallets", len(processed))
			break
		}
	}

	trades, actions = e.truncate(trades, actions)
	slog.Info("wallet expansion complete",
		"wallets", len(processed),
		"trades", len(trades),
		"actions", len(actions),
	)
	return trades, actions, nil
}

// truncate recorta para que trades+actions no supere maxRecords,
// priorizando trades.
func (e *Expander) truncate(trades, actions []domain.Record) ([]domain.Record, []domain.Record) {
	if len(trades)+len(actions) <= e.maxRecords {
		return trades, actions
	}
	if len(trades) >= e.maxRecords {
		return trades[:e.maxRecords], actions[:0]
	}
	return trades, actions[:e.maxRecords-len(trades)]
}

// normalizeWallet valida una dirección hex y la devuelve en minúsculas.
func normalizeWallet(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), true
}
