package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/metrics"
	"github.com/alejandrodnm/polyledger/internal/ports"
)

// Columnas que agrega Join.
const (
	ColumnTags      = "tags"
	ColumnStartTime = "start_time"
	ColumnVolume    = "volume"
)

const defaultJoinBatch = 100

// Joiner agrega la metadata de Gamma a cada fila según su slug.
// La metadata queda cacheada por slug durante ttl.
type Joiner struct {
	markets ports.MarketProvider
	cache   *cache.Cache
}

// NewJoiner crea un Joiner. ttl <= 0 usa 30 minutos.
func NewJoiner(markets ports.MarketProvider, ttl time.Duration) *Joiner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Joiner{
		markets: markets,
		cache:   cache.New(ttl, 2*ttl),
	}
}

// Join hace un left join de la metadata sobre table: mismas filas, en el mismo
// orden, con las columnas tags, start_time y volume. Un batch que falla deja
// sus slugs con la metadata vacía y el resto sigue. table no se modifica.
func (j *Joiner) Join(ctx context.Context, table *Table, batchSize int) (*Table, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("ledger.Joiner: batch size must be >= 1, got %d", batchSize)
	}
	if table == nil {
		return nil, nil
	}
	if !table.HasColumn("slug") {
		return nil, fmt.Errorf("ledger.Joiner: table has no slug column")
	}

	slugs := uniqueValues(table, "slug")
	meta := make(map[string]domain.MarketMetadata, len(slugs))
	var pending []string
	for _, s := range slugs {
		if m, ok := j.cache.Get(s); ok {
			meta[s] = m.(domain.MarketMetadata)
			continue
		}
		pending = append(pending, s)
	}

	start := time.Now()
	var failed int
	for batch := range slices.Chunk(pending, batchSize) {
		if ctx.Err() != nil {
			break
		}
		got, err := j.markets.FetchMarketMetadata(ctx, batch)
		if err != nil {
			failed++
			metrics.MetadataBatches.WithLabelValues("failed").Inc()
			slog.Warn("metadata batch failed, using defaults", "slugs", len(batch), "err", err)
			continue
		}
		metrics.MetadataBatches.WithLabelValues("ok").Inc()
		for _, s := range batch {
			m, ok := got[s]
			if !ok {
				m = domain.EmptyMetadata(s)
			}
			meta[s] = m
			j.cache.SetDefault(s, m)
		}
	}

	out := table.Clone()
	out.AddColumn(ColumnTags)
	out.AddColumn(ColumnStartTime)
	out.AddColumn(ColumnVolume)
	withTags := 0
	for _, row := range out.Rows {
		slug, _ := row["slug"].(string)
		m, ok := meta[slug]
		if !ok {
			m = domain.EmptyMetadata(slug)
		}
		row[ColumnTags] = slices.Clone(m.Tags)
		if m.StartTime != nil {
			row[ColumnStartTime] = *m.StartTime
		} else {
			row[ColumnStartTime] = nil
		}
		if m.Volume != nil {
			row[ColumnVolume] = *m.Volume
		} else {
			row[ColumnVolume] = nil
		}
		if len(m.Tags) > 0 {
			withTags++
		}
	}

	slog.Info("market metadata joined",
		"rows", out.Len(),
		"slugs", len(slugs),
		"fetched", len(pending),
		"failed_batches", failed,
		"rows_with_tags", withTags,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return out, ctx.Err()
}

// uniqueValues devuelve los valores string no vacíos de column en orden de
// primera aparición.
func uniqueValues(t *Table, column string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		s, _ := row[column].(string)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
