package ports

import (
	"context"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// PositionProvider obtiene posiciones agregadas por mercado.
type PositionProvider interface {
	// FetchPositionsByMarkets pide /closed-positions (closed=true) o /positions
	// filtrando por condition ids.
	FetchPositionsByMarkets(ctx context.Context, wallet string, conditionIDs []string, closed bool) ([]domain.Record, error)

	// FetchSubgraphPositions lista los balances de la wallet en el subgraph
	// de posiciones.
	FetchSubgraphPositions(ctx context.Context, wallet string, closedOnly bool) ([]domain.SubgraphPosition, error)
}
