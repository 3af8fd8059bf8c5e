package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/metrics"
	"github.com/alejandrodnm/polyledger/internal/ports"
)

// takerVariants son los valores de takerOnly con los que se repite el fetch de
// trades. La API trata distinto "True" y "true"; "" omite el parámetro.
var takerVariants = []string{"True", "False", "true", "false", ""}

// UnboundedConfig controla el fetch sin total conocido.
type UnboundedConfig struct {
	Limit      int           // tamaño de página
	Sleep      time.Duration // pausa fija entre páginas
	MaxPages   int           // páginas máximas por loop
	MaxRecords int           // tope global de records acumulados
	MaxRetries int           // reintentos por página ante 429
}

// Unbounded pagina endpoints sin total conocido (/activity, /trades)
// hasta que una página no aporta records nuevos.
type Unbounded struct {
	pages       ports.PageFetcher
	cfg         UnboundedConfig
	tradesURL   string
	activityURL string
}

// NewUnbounded crea un Unbounded. Los campos en cero de cfg toman defaults.
func NewUnbounded(pages ports.PageFetcher, tradesURL, activityURL string, cfg UnboundedConfig) *Unbounded {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultPageLimit
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1000
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 100_000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Unbounded{
		pages:       pages,
		cfg:         cfg,
		tradesURL:   tradesURL,
		activityURL: activityURL,
	}
}

// FetchActivity devuelve los eventos de /activity cuyo type pertenece al enum,
// deduplicados contra seen.
func (u *Unbounded) FetchActivity(ctx context.Context, wallet string, seen *domain.SeenSet) []domain.Record {
	var out []domain.Record
	u.loop(ctx, u.activityURL, wallet, nil, seen, &out, func(r domain.Record) bool {
		return r.Type().IsKnown()
	})

	slog.Info("activity fetched", "wallet", wallet, "records", len(out))
	return out
}

// FetchTrades repite el loop para cada variante de takerOnly compartiendo
// seen, así los duplicados entre variantes se descartan. Cada record queda
// etiquetado como TRADE.
func (u *Unbounded) FetchTrades(ctx context.Context, wallet string, seen *domain.SeenSet) []domain.Record {
	var out []domain.Record
	for _, variant := range takerVariants {
		var extra url.Values
		if variant != "" {
			extra = url.Values{"takerOnly": {variant}}
		}
		capped := u.loop(ctx, u.tradesURL, wallet, extra, seen, &out, func(r domain.Record) bool {
			r["type"] = string(domain.ActivityTrade)
			return true
		})
		if capped || ctx.Err() != nil {
			break
		}
	}

	slog.Info("trades fetched", "wallet", wallet, "records", len(out))
	return out
}

// loop pagina un endpoint con offset creciente y corta cuando: la página no
// trae records nuevos, la página es corta, el total único no creció, o se
// llegó a MaxPages/MaxRecords. Devuelve true si cortó por MaxRecords.
func (u *Unbounded) loop(
	ctx context.Context,
	endpoint, wallet string,
	extra url.Values,
	seen *domain.SeenSet,
	out *[]domain.Record,
	accept func(domain.Record) bool,
) bool {
	label := endpointLabel(endpoint)
	limiter := pacing(u.cfg.Sleep)
	lastTotal := -1

	for page, offset := 0, 0; page < u.cfg.MaxPages; page, offset = page+1, offset+u.cfg.Limit {
		if err := limiter.Wait(ctx); err != nil {
			return false
		}

		res, ok := u.page(ctx, endpoint, wallet, offset, extra)
		if !ok {
			slog.Warn("page failed, stopping", "endpoint", label, "wallet", wallet, "offset", offset, "err", res.Err)
			return false
		}
		if len(res.Data) == 0 {
			return false
		}

		newFound := 0
		for _, rec := range res.Data {
			if !accept(rec) {
				continue
			}
			if seen.Add(domain.DedupKeyOf(rec)) {
				*out = append(*out, rec)
				newFound++
			}
		}
		metrics.DuplicatesDropped.WithLabelValues(label).Add(float64(len(res.Data) - newFound))

		slog.Info("page fetched",
			"endpoint", label,
			"wallet", wallet,
			"taker_only", extra.Get("takerOnly"),
			"offset", offset,
			"got", len(res.Data),
			"new", newFound,
		)

		if newFound == 0 || len(res.Data) < u.cfg.Limit || len(*out) == lastTotal {
			return false
		}
		lastTotal = len(*out)

		if len(*out) >= u.cfg.MaxRecords {
			slog.Warn("max records reached", "endpoint", label, "wallet", wallet, "records", len(*out))
			return true
		}
	}
	return false
}

// page pide una página reintentando solo los 429.
func (u *Unbounded) page(ctx context.Context, endpoint, wallet string, offset int, extra url.Values) (domain.PageResult, bool) {
	var res domain.PageResult
	for retry := 0; retry < u.cfg.MaxRetries; retry++ {
		res = u.pages.FetchPage(ctx, domain.PageRequest{
			URL:        endpoint,
			Wallet:     wallet,
			Offset:     offset,
			Limit:      u.cfg.Limit,
			RetryCount: retry,
			WorkerID:   1,
			Extra:      extra,
		})
		if res.Success {
			return res, true
		}
		if !res.RateLimited() || ctx.Err() != nil {
			break
		}
	}
	return res, false
}

// pacing devuelve un limiter que deja pasar una página cada interval.
func pacing(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// endpointLabel reduce una URL a su último segmento para métricas y logs.
func endpointLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return path.Base(u.Path)
}
