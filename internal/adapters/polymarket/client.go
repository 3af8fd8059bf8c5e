package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const (
	defaultDataBase  = "https://data-api.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Gamma /markets: 300/10s → 180/10s → 18/s
	gammaRatePerSec = 18
	// Data API /positions, /closed-positions, /trades usados por los fetchers batch.
	// 200/10s → 120/10s → 12/s
	dataRatePerSec = 12
	// El subgraph no documenta límite; 5/s equivale a la pausa de 200ms entre páginas.
	subgraphRatePerSec = 5

	defaultTimeout       = 30 * time.Second
	defaultRateLimitBase = 2 * time.Second
	defaultRateLimitMax  = 60 * time.Second

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Config contiene los base URLs y tiempos del cliente.
type Config struct {
	DataBase      string
	GammaBase     string
	SubgraphURL   string
	Timeout       time.Duration
	RateLimitBase time.Duration
	RateLimitMax  time.Duration
	MarketBatch   int // condition ids por request de /trades
}

// Sleeper bloquea d respetando el contexto. Se inyecta en tests.
type Sleeper func(ctx context.Context, d time.Duration)

// Option configura un Client.
type Option func(*Client)

// WithSleeper reemplaza las esperas de backoff.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleepFn = s }
}

// WithRand reemplaza la fuente de jitter, que debe devolver valores en [0, 1).
func WithRand(f func() float64) Option {
	return func(c *Client) { c.randFn = f }
}

// Client es el HTTP client de Polymarket (Data API, Gamma y subgraph de posiciones).
type Client struct {
	http            *resty.Client
	dataBase        string
	gammaBase       string
	subgraphURL     string
	dataLimiter     *rate.Limiter
	gammaLimiter    *rate.Limiter
	subgraphLimiter *rate.Limiter
	rateLimitBase   time.Duration
	rateLimitMax    time.Duration
	fillsBatch      int
	sleepFn         Sleeper
	randFn          func() float64
}

// NewClient crea un Client. Los campos vacíos de cfg usan los valores de producción.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.DataBase == "" {
		cfg.DataBase = defaultDataBase
	}
	if cfg.GammaBase == "" {
		cfg.GammaBase = defaultGammaBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimitBase <= 0 {
		cfg.RateLimitBase = defaultRateLimitBase
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = defaultRateLimitMax
	}
	if cfg.MarketBatch <= 0 {
		cfg.MarketBatch = fillsMarketBatch
	}

	c := &Client{
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetRetryCount(0).
			SetHeader("User-Agent", "polyledger/1.0"),
		dataBase:        strings.TrimRight(cfg.DataBase, "/"),
		gammaBase:       strings.TrimRight(cfg.GammaBase, "/"),
		subgraphURL:     cfg.SubgraphURL,
		dataLimiter:     rate.NewLimiter(dataRatePerSec, 5),
		gammaLimiter:    rate.NewLimiter(gammaRatePerSec, 10),
		subgraphLimiter: rate.NewLimiter(subgraphRatePerSec, 1),
		rateLimitBase:   cfg.RateLimitBase,
		rateLimitMax:    cfg.RateLimitMax,
		fillsBatch:      cfg.MarketBatch,
		sleepFn:         sleepCtx,
		randFn:          rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close libera las conexiones del cliente.
func (c *Client) Close() error {
	return c.http.Close()
}

// Endpoint devuelve la URL completa de un path de la Data API (ej. "/trades").
func (c *Client) Endpoint(path string) string {
	return c.dataBase + path
}

// statusError es un status no-2xx devuelto por la API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// do ejecuta un único request y decodifica el JSON en out si el status es 2xx.
// Devuelve el status code y solo errores de transporte o decodificación.
func (c *Client) do(ctx context.Context, method, url string, body, out any) (int, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
	if out != nil {
		req.SetResult(out)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	var (
		resp *resty.Response
		err  error
	)
	switch method {
	case http.MethodPost:
		resp, err = req.Post(url)
	default:
		resp, err = req.Get(url)
	}
	if resp != nil && resp.StatusCode() != 0 && (resp.StatusCode() < 200 || resp.StatusCode() > 299) {
		return resp.StatusCode(), nil
	}
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, http.MethodGet, url, nil, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	return c.doWithRetry(ctx, limiter, http.MethodPost, url, body, out)
}

// doWithRetry ejecuta el request con backoff exponencial ante 429, 5xx y
// errores de red. Los 4xx restantes no se reintentan.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, method, url string, body, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		status, err := c.do(ctx, method, url, body, out)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		switch {
		case status == http.StatusTooManyRequests:
			slog.Warn("rate limited by API", "attempt", attempt+1, "url", url)
			c.sleep(ctx, attempt)
			continue
		case status >= 500:
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", status, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		case status >= 400:
			return &statusError{code: status}
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	c.sleepFn(ctx, wait)
}

// rateLimitDelay es la espera tras un 429 de la Data API:
// min(base×2^retry, max) + U(0.1, 0.5)×workerID.
func (c *Client) rateLimitDelay(retry, workerID int) time.Duration {
	if workerID < 1 {
		workerID = 1
	}
	backoff := time.Duration(float64(c.rateLimitBase) * math.Pow(2, float64(retry)))
	if backoff > c.rateLimitMax || backoff <= 0 {
		backoff = c.rateLimitMax
	}
	jitter := (0.1 + 0.4*c.randFn()) * float64(workerID)
	return backoff + time.Duration(jitter*float64(time.Second))
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
