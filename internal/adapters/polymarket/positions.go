package polymarket

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const (
	closedPositionsPath = "/closed-positions"
	activePositionsPath = "/positions"

	positionMarketsPerRequest = 50
	positionBatchWorkers      = 4
	positionBatchLimit        = 25
	positionSingleLimit       = 500
	positionOffsetCap         = 10_000
	positionMaxRetries        = 5
	positionErrorWait         = 2 * time.Second
)

// fatalPositionStatus son los status que cortan el batch sin reintentar.
var fatalPositionStatus = map[int]bool{
	http.StatusBadRequest:   true,
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
}

// FetchPositionsByMarkets pide las posiciones de la wallet para los condition
// ids dados: batches de 50 mercados en paralelo (4 workers), y luego uno por
// uno los mercados que no devolvieron nada. Los fallos cortan solo su batch.
func (c *Client) FetchPositionsByMarkets(ctx context.Context, wallet string, conditionIDs []string, closed bool) ([]domain.Record, error) {
	endpoint := c.dataBase + activePositionsPath
	if closed {
		endpoint = c.dataBase + closedPositionsPath
	}
	start := time.Now()

	var (
		mu  sync.Mutex
		all []domain.Record
	)
	p := pool.New().WithMaxGoroutines(positionBatchWorkers)
	for i := 0; i < len(conditionIDs); i += positionMarketsPerRequest {
		end := min(i+positionMarketsPerRequest, len(conditionIDs))
		batch := conditionIDs[i:end]
		batchNum := i/positionMarketsPerRequest + 1

		p.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("position batch panicked", "batch", batchNum, "panic", r)
				}
			}()
			records := c.fetchPositionBatch(ctx, endpoint, wallet, strings.Join(batch, ","), positionBatchLimit)
			mu.Lock()
			all = append(all, records...)
			mu.Unlock()
		})
	}
	p.Wait()

	missing := missingConditions(conditionIDs, all)
	for _, id := range missing {
		if ctx.Err() != nil {
			break
		}
		all = append(all, c.fetchPositionBatch(ctx, endpoint, wallet, id, positionSingleLimit)...)
	}

	slog.Info("positions fetched by market",
		"endpoint", endpointLabel(endpoint),
		"markets", len(conditionIDs),
		"missing_refetched", len(missing),
		"records", len(all),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return all, ctx.Err()
}

// fetchPositionBatch pagina un filtro market con un loop acotado: offset
// máximo 10000 y hasta 5 reintentos consecutivos.
func (c *Client) fetchPositionBatch(ctx context.Context, endpoint, wallet, market string, limit int) []domain.Record {
	var out []domain.Record
	offset, retries := 0, 0

	for {
		if err := c.dataLimiter.Wait(ctx); err != nil {
			return out
		}

		q := url.Values{}
		q.Set("user", wallet)
		q.Set("market", market)
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset))

		var raw json.RawMessage
		status, err := c.do(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil, &raw)

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return out
			}
			retries++
			if retries >= positionMaxRetries {
				slog.Warn("position batch gave up", "offset", offset, "err", err)
				return out
			}
			c.sleepFn(ctx, positionErrorWait)

		case status >= 200 && status <= 299:
			records, err := decodePage(raw)
			if err != nil || len(records) == 0 {
				return out
			}
			out = append(out, records...)
			if len(records) < limit {
				return out
			}
			offset += limit
			if offset >= positionOffsetCap {
				slog.Warn("position batch hit offset cap", "cap", positionOffsetCap)
				return out
			}
			retries = 0

		case status == http.StatusTooManyRequests:
			delay := c.backoff(retries)
			retries++
			if retries >= positionMaxRetries {
				slog.Warn("position batch rate limited too many times", "offset", offset)
				return out
			}
			c.sleepFn(ctx, delay)

		case fatalPositionStatus[status]:
			slog.Warn("position batch rejected", "status", status, "offset", offset)
			return out

		default:
			retries++
			if retries >= positionMaxRetries {
				slog.Warn("position batch gave up", "status", status, "offset", offset)
				return out
			}
			c.sleepFn(ctx, c.backoff(retries))
		}
	}
}

// backoff es min(base×2^retry, max) sin jitter.
func (c *Client) backoff(retry int) time.Duration {
	d := time.Duration(float64(c.rateLimitBase) * math.Pow(2, float64(retry)))
	if d > c.rateLimitMax || d <= 0 {
		return c.rateLimitMax
	}
	return d
}

// missingConditions devuelve los condition ids sin ningún record.
func missingConditions(ids []string, records []domain.Record) []string {
	found := make(map[string]bool, len(records))
	for _, r := range records {
		found[r.String("conditionId")] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
