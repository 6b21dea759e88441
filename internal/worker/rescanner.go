package worker

import (
	"context"
	"fmt"
)

const rescanBatchLimit = 50

// RescanWorker retries blocks that failed scanning, grouping contiguous
// block numbers into ranges to keep RPC calls cheap.
type RescanWorker struct {
	*BaseWorker
}

func NewRescanWorker(ctx context.Context, deps WorkerDeps) *RescanWorker {
	return &RescanWorker{BaseWorker: newWorkerWithMode(ctx, deps, ModeRescan)}
}

func (rw *RescanWorker) Start() {
	rw.logger.Info("Starting rescan worker", "chain", rw.deps.Chain.Key)
	go rw.run(rw.processRescan)
}

func (rw *RescanWorker) processRescan() error {
	blocks, err := rw.deps.Cursor.GetFailedBlocks(rw.deps.Chain.Key)
	if err != nil {
		return fmt.Errorf("get failed blocks: %w", err)
	}
	if len(blocks) == 0 {
		return nil
	}
	if len(blocks) > rescanBatchLimit {
		blocks = blocks[:rescanBatchLimit]
	}

	rw.logger.Info("Rescanning failed blocks",
		"chain", rw.deps.Chain.Key,
		"blocks", len(blocks),
	)

	for _, r := range groupContiguous(blocks) {
		result, err := rw.deps.Indexer.GetTransfers(rw.ctx, r[0], r[1])
		if err != nil {
			rw.logger.Warn("Rescan failed, will retry next tick",
				"range", fmt.Sprintf("%d-%d", r[0], r[1]),
				"err", err,
			)
			continue
		}
		if err := rw.handleRangeResult(result); err != nil {
			return fmt.Errorf("handle rescanned range %d-%d: %w", r[0], r[1], err)
		}

		recovered := make([]uint64, 0, r[1]-r[0]+1)
		for b := r[0]; b <= r[1]; b++ {
			recovered = append(recovered, b)
		}
		if err := rw.deps.Cursor.RemoveFailedBlocks(rw.deps.Chain.Key, recovered); err != nil {
			rw.logger.Warn("Failed to clear recovered blocks", "err", err)
		}
	}
	return nil
}

// groupContiguous turns a sorted block list into [start, end] ranges.
func groupContiguous(blocks []uint64) [][2]uint64 {
	var ranges [][2]uint64
	for i := 0; i < len(blocks); {
		j := i
		for j+1 < len(blocks) && blocks[j+1] == blocks[j]+1 {
			j++
		}
		ranges = append(ranges, [2]uint64{blocks[i], blocks[j]})
		i = j + 1
	}
	return ranges
}
