package orchestrator

import (
	"context"
	"sync"
	"time"

	"campaign-engine/internal/model"
)

// BatchStats is returned alongside batch results so callers can see throughput.
type BatchStats struct {
	Requests       int   `json:"requests"`
	DurationMillis int64 `json:"duration_ms"`
}

// RunBatch fans requests out over a bounded worker pool. Results keep the
// order of reqs. A cancelled context stops dispatching; undispatched slots stay nil.
func (c *Controller) RunBatch(ctx context.Context, reqs []*model.OrchestrationRequest) ([]*model.OrchestrationResult, *BatchStats, error) {
	start := time.Now()
	results := make([]*model.OrchestrationResult, len(reqs))
	if len(reqs) == 0 {
		return results, &BatchStats{}, nil
	}

	type job struct {
		idx int
		req *model.OrchestrationRequest
	}
	jobs := make(chan job)
	var wg sync.WaitGroup

	for i := 0; i < workerCount(len(reqs)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = c.Run(ctx, j.req)
			}
		}()
	}

	for i, r := range reqs {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results, nil, ctx.Err()
		case jobs <- job{idx: i, req: r}:
		}
	}
	close(jobs)
	wg.Wait()

	return results, &BatchStats{
		Requests:       len(reqs),
		DurationMillis: time.Since(start).Milliseconds(),
	}, nil
}

func workerCount(n int) int {
	switch {
	case n <= 0:
		return 1
	case n > 8:
		return 8
	default:
		return n
	}
}
