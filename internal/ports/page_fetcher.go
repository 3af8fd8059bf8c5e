package ports

import (
	"context"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// PageFetcher pide una página de un endpoint paginado de la Data API.
type PageFetcher interface {
	// FetchPage hace un único GET. Los fallos (429, status no-2xx, red, JSON)
	// vuelven en PageResult, nunca como error. Ante un 429 bloquea el backoff
	// antes de devolver.
	FetchPage(ctx context.Context, req domain.PageRequest) domain.PageResult
}
