package polymarket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/metrics"
)

// FetchPage hace un GET paginado (user, limit, offset + req.Extra).
// Nunca devuelve error: 429, status no-2xx, fallos de red y de JSON quedan en
// el PageResult. Ante un 429 bloquea el backoff antes de devolver.
func (c *Client) FetchPage(ctx context.Context, req domain.PageRequest) domain.PageResult {
	res := domain.PageResult{Offset: req.Offset, RetryCount: req.RetryCount}
	label := endpointLabel(req.URL)

	var raw json.RawMessage
	status, err := c.do(ctx, http.MethodGet, pageURL(req), nil, &raw)
	switch {
	case err != nil:
		res.Err = err.Error()
		metrics.PagesFetched.WithLabelValues(label, "error").Inc()
		slog.Debug("page request failed", "endpoint", label, "offset", req.Offset, "err", err)
		return res

	case status == http.StatusTooManyRequests:
		res.Err = domain.ErrRateLimited
		metrics.PagesFetched.WithLabelValues(label, "429").Inc()
		metrics.RateLimited.WithLabelValues(label).Inc()
		delay := c.rateLimitDelay(req.RetryCount, req.WorkerID)
		slog.Warn("rate limited, backing off",
			"endpoint", label,
			"worker", req.WorkerID,
			"offset", req.Offset,
			"retry", req.RetryCount,
			"delay", delay,
		)
		c.sleepFn(ctx, delay)
		return res

	case status < 200 || status > 299:
		res.Err = strconv.Itoa(status)
		metrics.PagesFetched.WithLabelValues(label, res.Err).Inc()
		slog.Debug("page request rejected", "endpoint", label, "offset", req.Offset, "status", status)
		return res
	}

	records, err := decodePage(raw)
	if err != nil {
		res.Err = err.Error()
		metrics.PagesFetched.WithLabelValues(label, "error").Inc()
		return res
	}

	metrics.PagesFetched.WithLabelValues(label, "200").Inc()
	metrics.RecordsFetched.WithLabelValues(label).Add(float64(len(records)))
	res.Data = records
	res.Success = true
	return res
}

// pageURL arma la URL con los parámetros de paginación.
func pageURL(req domain.PageRequest) string {
	q := url.Values{}
	for k, vs := range req.Extra {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("user", req.Wallet)
	q.Set("limit", strconv.Itoa(req.Limit))
	q.Set("offset", strconv.Itoa(req.Offset))

	sep := "?"
	if strings.Contains(req.URL, "?") {
		sep = "&"
	}
	return req.URL + sep + q.Encode()
}

// endpointLabel reduce una URL a su último segmento para métricas y logs.
func endpointLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return path.Base(u.Path)
}
