package ports

import (
	"context"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// TradeProvider obtiene los fills de una wallet en un conjunto de mercados.
type TradeProvider interface {
	FetchUserFills(ctx context.Context, wallet string, conditionIDs []string) ([]domain.Fill, error)
}
