package domain

import (
	"fmt"
	"net/url"
)

// ErrRateLimited es el texto de error de una página rechazada con 429.
const ErrRateLimited = "Rate limited"

// PageRequest describe una página de un endpoint paginado por user/limit/offset.
type PageRequest struct {
	URL        string
	Wallet     string
	Offset     int
	Limit      int
	RetryCount int
	WorkerID   int
	Extra      url.Values // takerOnly, market, etc.
}

// PageResult es el resultado de pedir una página. Los fallos upstream nunca
// son errores de Go: quedan en Success/Err.
type PageResult struct {
	Offset     int
	Data       []Record
	Success    bool
	Err        string
	RetryCount int
}

// RateLimited indica si la página falló por throttling.
func (p PageResult) RateLimited() bool {
	return !p.Success && p.Err == ErrRateLimited
}

// FetchRange es el rango [Start, End) de offsets asignado a un worker.
type FetchRange struct {
	Start    int
	End      int
	WorkerID int
}

// Validate rechaza rangos imposibles.
func (r FetchRange) Validate() error {
	if r.Start < 0 {
		return fmt.Errorf("domain.FetchRange: negative start %d", r.Start)
	}
	if r.End <= r.Start {
		return fmt.Errorf("domain.FetchRange: end %d must be greater than start %d", r.End, r.Start)
	}
	if r.WorkerID < 1 {
		return fmt.Errorf("domain.FetchRange: worker id must be >= 1, got %d", r.WorkerID)
	}
	return nil
}

// Size es la cantidad máxima de records que el rango admite.
func (r FetchRange) Size() int { return r.End - r.Start }
