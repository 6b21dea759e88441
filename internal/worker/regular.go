package worker

import (
	"context"
	"fmt"

	"github.com/arcscan/bridge-indexer/pkg/common/constant"
	"github.com/arcscan/bridge-indexer/pkg/store/cursorstore"
)

// RegularWorker follows the chain head, scanning new blocks for bridge
// transfers in BatchSize steps.
type RegularWorker struct {
	*BaseWorker
	currentBlock uint64
}

func NewRegularWorker(ctx context.Context, deps WorkerDeps) *RegularWorker {
	worker := newWorkerWithMode(ctx, deps, ModeRegular)
	rw := &RegularWorker{BaseWorker: worker}
	rw.currentBlock = rw.determineStartingBlock()
	return rw
}

func (rw *RegularWorker) Start() {
	rw.logger.Info("Starting regular worker",
		"chain", rw.deps.Chain.Key,
		"start_block", rw.currentBlock,
	)
	go rw.run(rw.processNewBlocks)
}

func (rw *RegularWorker) Stop() {
	if rw.currentBlock > 1 {
		_ = rw.deps.Cursor.SaveLatestBlock(rw.deps.Chain.Key, rw.currentBlock-1)
	}
	rw.BaseWorker.Stop()
}

func (rw *RegularWorker) processNewBlocks() error {
	latest, err := rw.deps.Indexer.GetLatestBlockNumber(rw.ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}
	if latest > rw.deps.Config.Confirmations {
		latest -= rw.deps.Config.Confirmations
	} else {
		latest = 0
	}

	if rw.currentBlock > latest {
		rw.logger.Debug("Waiting for new blocks", "current", rw.currentBlock, "latest", latest)
		return nil
	}

	batchSize := rw.deps.Config.BatchSize
	if batchSize == 0 {
		batchSize = 1
	}
	end := min(rw.currentBlock+batchSize-1, latest)

	result, err := rw.deps.Indexer.GetTransfers(rw.ctx, rw.currentBlock, end)
	if err != nil {
		// record the blocks and move on so one bad range does not
		// stall the head follower
		rw.recordFailedRange(rw.currentBlock, end)
		rw.logger.Error("Failed to scan range",
			"from", rw.currentBlock,
			"to", end,
			"err", err,
		)
		rw.advance(end)
		return nil
	}

	if err := rw.handleRangeResult(result); err != nil {
		return fmt.Errorf("handle range %d-%d: %w", result.From, result.To, err)
	}

	rw.advance(end)
	return nil
}

func (rw *RegularWorker) advance(processed uint64) {
	rw.currentBlock = processed + 1
	_ = rw.deps.Cursor.SaveLatestBlock(rw.deps.Chain.Key, processed)
}

// determineStartingBlock resumes from the stored cursor when one exists,
// queueing the gap up to the chain head as backfill ranges. Without a cursor
// the worker starts at the head and leaves history to the backfill worker.
func (rw *RegularWorker) determineStartingBlock() uint64 {
	head, headErr := rw.deps.Indexer.GetLatestBlockNumber(rw.ctx)
	stored, storedErr := rw.deps.Cursor.GetLatestBlock(rw.deps.Chain.Key)

	if headErr != nil {
		if storedErr == nil && stored > 0 {
			rw.logger.Warn("Chain RPC failed, resuming from stored cursor",
				"chain", rw.deps.Chain.Key,
				"cursor", stored,
			)
			return stored + 1
		}
		rw.logger.Warn("Cannot determine chain head, starting from block 1",
			"chain", rw.deps.Chain.Key,
		)
		return 1
	}

	if storedErr != nil || stored == 0 {
		rw.logger.Info("No cursor found, starting from chain head",
			"chain", rw.deps.Chain.Key,
			"head", head,
		)
		return head + 1
	}

	if head > stored {
		rw.queueGap(stored+1, head)
	}
	return head + 1
}

func (rw *RegularWorker) queueGap(start, end uint64) {
	ranges := cursorstore.SplitRange(
		cursorstore.BackfillRange{Start: start, End: end, Current: start - 1},
		constant.MaxBackfillChunkBlocks,
	)
	for _, r := range ranges {
		if err := rw.deps.Cursor.SaveBackfillRange(rw.deps.Chain.Key, r); err != nil {
			rw.logger.Error("Failed to queue backfill range",
				"range", fmt.Sprintf("%d-%d", r.Start, r.End),
				"err", err,
			)
		}
	}
	rw.logger.Info("Queued gap for backfill",
		"chain", rw.deps.Chain.Key,
		"gap", fmt.Sprintf("%d-%d", start, end),
		"ranges", len(ranges),
	)
}
