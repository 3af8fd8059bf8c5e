package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/metrics"
)

// CoordinatorResult es la salida agregada de una corrida paralela.
type CoordinatorResult struct {
	Records []domain.Record
	Elapsed time.Duration
	Workers int
	Failed  int
}

// Coordinator reparte un endpoint en rangos contiguos y los corre en paralelo.
type Coordinator struct {
	ranges *RangeFetcher
}

// NewCoordinator crea un Coordinator que usa ranges para cada worker.
func NewCoordinator(ranges *RangeFetcher) *Coordinator {
	return &Coordinator{ranges: ranges}
}

type workerResult struct {
	workerID int
	records  []domain.Record
	err      error
}

// FetchAll asigna a cada worker i el rango [i×perWorker, (i+1)×perWorker)
// con id i+1; el worker `workers` es el último y sigue hasta el fin de datos.
// Los resultados se concatenan en orden de llegada. Un worker que falla o
// entra en pánico se descarta y se loguea.
func (c *Coordinator) FetchAll(ctx context.Context, endpoint, wallet string, workers, perWorker int) (CoordinatorResult, error) {
	if workers < 1 {
		return CoordinatorResult{}, fmt.Errorf("fetch.Coordinator: workers must be >= 1, got %d", workers)
	}
	if perWorker < 1 {
		return CoordinatorResult{}, fmt.Errorf("fetch.Coordinator: records per worker must be >= 1, got %d", perWorker)
	}

	start := time.Now()
	label := endpointLabel(endpoint)
	resultCh := make(chan workerResult, workers)

	p := pool.New().WithMaxGoroutines(workers)
	for i := 0; i < workers; i++ {
		r := domain.FetchRange{Start: i * perWorker, End: (i + 1) * perWorker, WorkerID: i + 1}
		isLast := r.WorkerID == workers

		p.Go(func() {
			res := workerResult{workerID: r.WorkerID}
			defer func() {
				if rec := recover(); rec != nil {
					res.records = nil
					res.err = fmt.Errorf("worker panic: %v", rec)
				}
				resultCh <- res
			}()

			workerStart := time.Now()
			res.records, res.err = c.ranges.Fetch(ctx, endpoint, wallet, r, isLast)
			metrics.WorkerDuration.WithLabelValues(label).Observe(time.Since(workerStart).Seconds())
		})
	}

	go func() {
		p.Wait()
		close(resultCh)
	}()

	out := CoordinatorResult{Workers: workers}
	for res := range resultCh {
		if res.err != nil {
			out.Failed++
			slog.Error("range worker failed", "worker", res.workerID, "endpoint", label, "err", res.err)
			continue
		}
		out.Records = append(out.Records, res.records...)
		slog.Debug("range worker finished", "worker", res.workerID, "records", len(res.records))
	}
	out.Elapsed = time.Since(start)

	slog.Info("parallel fetch complete",
		"endpoint", label,
		"workers", workers,
		"failed", out.Failed,
		"records", len(out.Records),
		"elapsed", out.Elapsed.Round(time.Millisecond),
	)
	return out, nil
}
