package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const (
	tradesPath       = "/trades"
	fillsPerPage     = 500
	fillsMaxPages    = 20
	fillsMarketBatch = 50
)

// FetchUserFills obtiene los trades de la wallet en los mercados dados.
// Los condition ids se agrupan (50 por defecto) en el parámetro market.
func (c *Client) FetchUserFills(ctx context.Context, wallet string, conditionIDs []string) ([]domain.Fill, error) {
	var all []domain.Fill

	for i := 0; i < len(conditionIDs); i += c.fillsBatch {
		end := min(i+c.fillsBatch, len(conditionIDs))
		market := strings.Join(conditionIDs[i:end], ",")

		for page := 0; page < fillsMaxPages; page++ {
			q := url.Values{}
			q.Set("user", wallet)
			q.Set("market", market)
			q.Set("limit", strconv.Itoa(fillsPerPage))
			q.Set("offset", strconv.Itoa(page*fillsPerPage))

			var resp []rawDataTrade
			if err := c.get(ctx, c.dataLimiter, c.dataBase+tradesPath+"?"+q.Encode(), &resp); err != nil {
				return all, fmt.Errorf("data-api.FetchUserFills: %w", err)
			}
			if len(resp) == 0 {
				break
			}

			for _, rt := range resp {
				if f, ok := mapDataTrade(rt); ok {
					all = append(all, f)
				}
			}

			slog.Debug("fetched fills page",
				"markets", end-i,
				"page", page,
				"count", len(resp),
				"total", len(all),
			)

			if len(resp) < fillsPerPage {
				break
			}
		}
	}

	return all, nil
}
