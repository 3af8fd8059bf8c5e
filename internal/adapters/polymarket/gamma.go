package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const gammaMarketsPath = "/markets"

// FetchMarketMetadata obtiene tags, gameStartTime y volume de Gamma para los
// slugs dados en un único request. Los slugs que Gamma no devuelve no
// aparecen en el mapa; el caller decide el default.
func (c *Client) FetchMarketMetadata(ctx context.Context, slugs []string) (map[string]domain.MarketMetadata, error) {
	if len(slugs) == 0 {
		return map[string]domain.MarketMetadata{}, nil
	}

	q := url.Values{}
	for _, s := range slugs {
		q.Add("slug", s)
	}
	q.Set("include_tag", "true")
	q.Set("limit", strconv.Itoa(len(slugs)))
	endpoint := c.gammaBase + gammaMarketsPath + "?" + q.Encode()

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("gamma.FetchMarketMetadata: %w", err)
	}

	result := make(map[string]domain.MarketMetadata, len(resp))
	for _, gm := range resp {
		if gm.Slug == "" {
			continue
		}
		result[gm.Slug] = mapGammaMarket(gm)
	}

	slog.Debug("gamma metadata fetched",
		"requested", len(slugs),
		"found", len(result),
	)
	return result, nil
}
