package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const subgraphPageSize = 1000

const userBalancesQuery = `query UserBalances($userAddress: String!, $first: Int!, $skip: Int!) {
  userBalances(first: $first, skip: $skip, where: {user: $userAddress%s}) {
    id
    user
    balance
    asset {
      id
      outcomeIndex
      condition {
        id
      }
    }
  }
}`

// FetchSubgraphPositions pagina userBalances (first/skip de 1000) hasta una
// página corta. closedOnly filtra los balances en cero.
func (c *Client) FetchSubgraphPositions(ctx context.Context, wallet string, closedOnly bool) ([]domain.SubgraphPosition, error) {
	if c.subgraphURL == "" {
		return nil, errors.New("subgraph.FetchSubgraphPositions: subgraph url not configured")
	}

	filter := ""
	if closedOnly {
		filter = `, balance: "0"`
	}
	query := fmt.Sprintf(userBalancesQuery, filter)

	var all []domain.SubgraphPosition
	for skip := 0; ; skip += subgraphPageSize {
		body := graphQLRequest{
			Query: query,
			Variables: map[string]any{
				"userAddress": strings.ToLower(wallet),
				"first":       subgraphPageSize,
				"skip":        skip,
			},
		}

		var resp userBalancesResponse
		if err := c.post(ctx, c.subgraphLimiter, c.subgraphURL, body, &resp); err != nil {
			return all, fmt.Errorf("subgraph.FetchSubgraphPositions: skip %d: %w", skip, err)
		}
		if msg := resp.errorMessage(); msg != "" {
			return all, fmt.Errorf("subgraph.FetchSubgraphPositions: skip %d: %s", skip, msg)
		}
		if resp.Data == nil || len(resp.Data.UserBalances) == 0 {
			break
		}

		for _, ub := range resp.Data.UserBalances {
			all = append(all, mapUserBalance(ub))
		}

		slog.Debug("subgraph page fetched",
			"skip", skip,
			"count", len(resp.Data.UserBalances),
			"total", len(all),
		)

		if len(resp.Data.UserBalances) < subgraphPageSize {
			break
		}
	}

	return all, nil
}

func (r userBalancesResponse) errorMessage() string {
	if r.Error != "" {
		return r.Error
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
