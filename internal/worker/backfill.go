package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arcscan/bridge-indexer/pkg/common/constant"
	"github.com/arcscan/bridge-indexer/pkg/store/cursorstore"
)

const backfillWorkerCount = 3

// BackfillWorker drains pending backfill ranges. On first run it seeds the
// configured historical window so a fresh deployment indexes recent history.
type BackfillWorker struct {
	*BaseWorker
	blockRanges []cursorstore.BackfillRange
	progressMu  sync.Mutex
}

func NewBackfillWorker(ctx context.Context, deps WorkerDeps) *BackfillWorker {
	worker := newWorkerWithMode(ctx, deps, ModeBackfill)
	bw := &BackfillWorker{BaseWorker: worker}
	bw.blockRanges = bw.loadRanges()
	return bw
}

func (bw *BackfillWorker) Start() {
	totalBlocks := uint64(0)
	for _, r := range bw.blockRanges {
		totalBlocks += r.End - r.Start + 1
	}

	bw.logger.Info("Starting backfill worker",
		"chain", bw.deps.Chain.Key,
		"ranges", len(bw.blockRanges),
		"total_blocks", totalBlocks,
		"parallel_workers", backfillWorkerCount,
	)
	go bw.run(bw.processRangesParallel)
}

func (bw *BackfillWorker) loadRanges() []cursorstore.BackfillRange {
	ranges, err := bw.deps.Cursor.GetBackfillRanges(bw.deps.Chain.Key)
	if err != nil {
		bw.logger.Warn("Failed to load backfill ranges", "err", err)
		return nil
	}
	if len(ranges) > 0 {
		bw.logger.Info("Loaded backfill ranges", "ranges", len(ranges))
		return ranges
	}
	return bw.seedHistoricalWindow()
}

// seedHistoricalWindow queues the configured sync window behind the chain
// head. Only runs once: seeded ranges persist until drained.
func (bw *BackfillWorker) seedHistoricalWindow() []cursorstore.BackfillRange {
	if bw.deps.Config.SyncWindow <= 0 {
		return nil
	}

	if cursor, err := bw.deps.Cursor.GetLatestBlock(bw.deps.Chain.Key); err == nil && cursor > 0 {
		// a cursor exists, so history was already seeded on a prior run
		return nil
	}

	head, err := bw.deps.Indexer.GetLatestBlockNumber(bw.ctx)
	if err != nil || head <= 1 {
		return nil
	}

	window := bw.deps.Chain.BlocksForWindow(bw.deps.Config.SyncWindow)
	start := uint64(1)
	if head > window {
		start = head - window
	}

	bw.logger.Info("Seeding historical window",
		"chain", bw.deps.Chain.Key,
		"window", bw.deps.Config.SyncWindow,
		"start", start,
		"end", head,
	)

	ranges := cursorstore.SplitRange(
		cursorstore.BackfillRange{Start: start, End: head, Current: start - 1},
		constant.MaxBackfillChunkBlocks,
	)
	for _, r := range ranges {
		if err := bw.deps.Cursor.SaveBackfillRange(bw.deps.Chain.Key, r); err != nil {
			bw.logger.Error("Failed to save backfill range",
				"range", fmt.Sprintf("%d-%d", r.Start, r.End),
				"err", err,
			)
		}
	}
	return ranges
}

func (bw *BackfillWorker) processRangesParallel() error {
	if len(bw.blockRanges) == 0 {
		bw.blockRanges = bw.loadRanges()
		if len(bw.blockRanges) == 0 {
			return nil
		}
	}

	rangeChan := make(chan cursorstore.BackfillRange, len(bw.blockRanges))
	for _, r := range bw.blockRanges {
		rangeChan <- r
	}
	close(rangeChan)

	var wg sync.WaitGroup
	for i := 0; i < backfillWorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for r := range rangeChan {
				if err := bw.processRange(r, workerID); err != nil {
					bw.logger.Error("Failed to process backfill range",
						"worker_id", workerID,
						"range", fmt.Sprintf("%d-%d", r.Start, r.End),
						"err", err,
					)
				}
			}
		}(i)
	}
	wg.Wait()

	remaining, err := bw.deps.Cursor.GetBackfillRanges(bw.deps.Chain.Key)
	if err == nil {
		bw.blockRanges = remaining
	}
	return nil
}

func (bw *BackfillWorker) processRange(r cursorstore.BackfillRange, workerID int) error {
	startTime := time.Now()
	current := r.Current + 1
	if current > r.End {
		return bw.completeRange(r)
	}

	batchSize := bw.deps.Config.BatchSize
	if batchSize == 0 {
		batchSize = 1
	}

	for current <= r.End {
		select {
		case <-bw.ctx.Done():
			bw.saveProgress(r, current-1)
			return bw.ctx.Err()
		default:
		}

		end := min(current+batchSize-1, r.End)
		result, err := bw.deps.Indexer.GetTransfers(bw.ctx, current, end)
		if err != nil {
			bw.recordFailedRange(current, end)
			bw.logger.Warn("Backfill scan failed, skipping range",
				"worker_id", workerID,
				"range", fmt.Sprintf("%d-%d", current, end),
				"err", err,
			)
			current = end + 1
			bw.saveProgress(r, end)
			continue
		}

		if err := bw.handleRangeResult(result); err != nil {
			bw.saveProgress(r, current-1)
			return fmt.Errorf("handle range %d-%d: %w", current, end, err)
		}

		current = end + 1
		bw.saveProgress(r, end)
	}

	bw.logger.Info("Backfill range completed",
		"worker_id", workerID,
		"range", fmt.Sprintf("%d-%d", r.Start, r.End),
		"blocks", r.End-r.Start+1,
		"elapsed", time.Since(startTime).Truncate(time.Second),
	)
	return bw.completeRange(r)
}

func (bw *BackfillWorker) saveProgress(r cursorstore.BackfillRange, current uint64) {
	bw.progressMu.Lock()
	defer bw.progressMu.Unlock()
	_ = bw.deps.Cursor.SaveBackfillRange(bw.deps.Chain.Key, cursorstore.BackfillRange{
		Start:   r.Start,
		End:     r.End,
		Current: min(current, r.End),
	})
}

func (bw *BackfillWorker) completeRange(r cursorstore.BackfillRange) error {
	bw.progressMu.Lock()
	defer bw.progressMu.Unlock()
	return bw.deps.Cursor.DeleteBackfillRange(bw.deps.Chain.Key, r.Start, r.End)
}
