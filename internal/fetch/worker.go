package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/ports"
)

const (
	defaultPageLimit  = 500
	defaultMaxRetries = 5

	minInterRequestDelay = 100 * time.Millisecond
)

// Sleeper bloquea d respetando el contexto.
type Sleeper func(ctx context.Context, d time.Duration)

// RangeFetcher recorre el rango de offsets de un worker contra un endpoint
// paginado. Cada worker tiene sus propias esperas: no hay limiter compartido.
type RangeFetcher struct {
	pages      ports.PageFetcher
	limit      int
	maxRetries int
	sleep      Sleeper
	rand       func() float64
}

// RangeOption configura un RangeFetcher.
type RangeOption func(*RangeFetcher)

// WithPageLimit cambia el tamaño máximo de página (default 500).
func WithPageLimit(n int) RangeOption {
	return func(f *RangeFetcher) {
		if n > 0 {
			f.limit = n
		}
	}
}

// WithMaxRetries cambia los reintentos por offset ante 429 (default 5).
func WithMaxRetries(n int) RangeOption {
	return func(f *RangeFetcher) {
		if n > 0 {
			f.maxRetries = n
		}
	}
}

// WithRangeSleeper reemplaza las esperas de arranque y entre páginas.
func WithRangeSleeper(s Sleeper) RangeOption {
	return func(f *RangeFetcher) { f.sleep = s }
}

// WithRangeRand reemplaza la fuente de jitter, en [0, 1).
func WithRangeRand(r func() float64) RangeOption {
	return func(f *RangeFetcher) { f.rand = r }
}

// NewRangeFetcher crea un RangeFetcher sobre el PageFetcher dado.
func NewRangeFetcher(pages ports.PageFetcher, opts ...RangeOption) *RangeFetcher {
	f := &RangeFetcher{
		pages:      pages,
		limit:      defaultPageLimit,
		maxRetries: defaultMaxRetries,
		sleep:      sleepCtx,
		rand:       rand.Float64,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch pide las páginas de r.Start a r.End avanzando el offset por la
// cantidad de records recibidos. Un worker que no es el último nunca emite
// más de r.Size() records; el último sigue hasta el fin de los datos.
// Solo devuelve error si el rango es inválido.
func (f *RangeFetcher) Fetch(ctx context.Context, endpoint, wallet string, r domain.FetchRange, isLast bool) ([]domain.Record, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("fetch.RangeFetcher: %w", err)
	}

	log := slog.With("worker", r.WorkerID, "start", r.Start, "end", r.End, "last", isLast)
	log.Debug("range worker starting")

	// Desincroniza workers que arrancan a la vez contra el mismo endpoint.
	f.sleep(ctx, f.uniform(0.1, 0.5)*time.Duration(r.WorkerID))
	baseDelay := 300*time.Millisecond + 100*time.Millisecond*time.Duration(r.WorkerID)

	var all []domain.Record
	offset := r.Start

	for isLast || offset < r.End {
		if ctx.Err() != nil {
			log.Warn("range worker cancelled", "offset", offset, "records", len(all))
			return all, nil
		}

		limit := f.limit
		if !isLast {
			limit = min(limit, r.End-offset)
		}

		res, ok := f.pageWithRetry(ctx, endpoint, wallet, offset, limit, r.WorkerID)
		if !ok {
			log.Warn("range worker halted", "offset", offset, "err", res.Err, "retries", res.RetryCount, "records", len(all))
			return all, nil
		}
		if len(res.Data) == 0 {
			log.Debug("range worker reached end of data", "offset", offset)
			break
		}

		all = append(all, res.Data...)
		offset += len(res.Data)

		if !isLast && offset > r.End {
			excess := offset - r.End
			if excess > len(all) {
				excess = len(all)
			}
			all = all[:len(all)-excess]
			offset = r.End
			log.Warn("trimmed records past range end", "excess", excess)
		}

		if !isLast && offset >= r.End {
			break
		}

		f.sleep(ctx, max(minInterRequestDelay, baseDelay+f.uniform(-0.1, 0.1)))
	}

	log.Debug("range worker done", "records", len(all))
	return all, nil
}

// pageWithRetry reintenta el mismo offset solo ante 429, hasta maxRetries.
// El backoff lo aplica el PageFetcher.
func (f *RangeFetcher) pageWithRetry(ctx context.Context, endpoint, wallet string, offset, limit, workerID int) (domain.PageResult, bool) {
	var res domain.PageResult
	for retry := 0; retry < f.maxRetries; retry++ {
		res = f.pages.FetchPage(ctx, domain.PageRequest{
			URL:        endpoint,
			Wallet:     wallet,
			Offset:     offset,
			Limit:      limit,
			RetryCount: retry,
			WorkerID:   workerID,
		})
		if res.Success {
			return res, true
		}
		if !res.RateLimited() || ctx.Err() != nil {
			return res, false
		}
	}
	res.RetryCount = f.maxRetries
	return res, false
}

// uniform devuelve una duración U(lo, hi) en segundos.
func (f *RangeFetcher) uniform(lo, hi float64) time.Duration {
	return time.Duration((lo + (hi-lo)*f.rand()) * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
