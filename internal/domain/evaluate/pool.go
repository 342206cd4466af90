package evaluate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/driftmark/internal/domain/model"
	"github.com/okian/driftmark/internal/domain/types"
	"github.com/okian/driftmark/pkg/metrics"
)

// groupJob pairs a subject group with its slot in the merged output.
type groupJob struct {
	idx   int
	group model.Group
}

// computeParallel spreads group computation over a fixed worker pool fed by
// a bounded job channel. Each job owns its result slot exclusively and the
// merge walks slots in group order, so output is identical to the sequential
// path. A cancelled context fails the whole call; no partial output escapes.
func (e *GroupEvaluator) computeParallel(ctx context.Context, groups []model.Group, threshold float64, method Method) ([][]types.Change, error) {
	metrics.RecordParallelEvaluation()

	workerCount := e.parallelism
	if workerCount > len(groups) {
		workerCount = len(groups)
	}

	results := make([][]types.Change, len(groups))
	jobs := make(chan groupJob, workerCount*2)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					// Drain without computing; the call fails below.
					continue
				default:
				}
				start := time.Now()
				results[job.idx] = computeGroup(job.group, threshold, method)
				metrics.RecordGroupLatency(float64(time.Since(start).Milliseconds()))
			}
		}()
	}

feed:
	for i, g := range groups {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- groupJob{idx: i, group: g}:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation cancelled: %w", err)
	}
	return results, nil
}
