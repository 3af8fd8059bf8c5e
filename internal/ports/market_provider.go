package ports

import (
	"context"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// MarketProvider obtiene metadata de mercados desde Gamma.
type MarketProvider interface {
	// FetchMarketMetadata devuelve la metadata de los slugs dados en un solo
	// request. Los slugs que Gamma no conoce no aparecen en el mapa.
	FetchMarketMetadata(ctx context.Context, slugs []string) (map[string]domain.MarketMetadata, error)
}
