package ports

import (
	"context"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Notifier presenta el resumen de una corrida al usuario.
type Notifier interface {
	// Notify muestra el reporte. En la implementación de consola, imprime tablas.
	Notify(ctx context.Context, report domain.Report) error
}
