package worker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/arcscan/bridge-indexer/internal/chains"
	"github.com/arcscan/bridge-indexer/internal/indexer"
	"github.com/arcscan/bridge-indexer/pkg/common/logger"
	"github.com/arcscan/bridge-indexer/pkg/common/types"
	"github.com/arcscan/bridge-indexer/pkg/events"
	"github.com/arcscan/bridge-indexer/pkg/retry"
	"github.com/arcscan/bridge-indexer/pkg/store/cursorstore"
)

type WorkerMode string

const (
	ModeRegular  WorkerMode = "regular"
	ModeBackfill WorkerMode = "backfill"
	ModeRescan   WorkerMode = "rescan"
)

// Worker is the interface implemented by all worker types.
type Worker interface {
	Start()
	Stop()
}

// TransferStore persists decoded transfers. Implemented by the storage layer.
type TransferStore interface {
	SaveTransfers(ctx context.Context, transfers []types.TokenTransfer) error
}

// Config carries the sync tuning shared by all workers of one chain.
type Config struct {
	PollInterval time.Duration
	BatchSize    uint64
	SyncWindow   time.Duration
	// Confirmations is how far the head follower trails the chain tip so
	// shallow reorgs settle before a block is scanned.
	Confirmations uint64
}

// WorkerDeps groups the dependencies shared by block-range workers.
type WorkerDeps struct {
	Indexer   indexer.Indexer
	Chain     chains.Chain
	Config    Config
	Cursor    cursorstore.Store
	Transfers TransferStore
	Emitter   events.Emitter
}

// BaseWorker holds the common state and loop logic shared by all workers.
type BaseWorker struct {
	ctx    context.Context
	cancel context.CancelFunc
	mode   WorkerMode
	logger *slog.Logger

	deps WorkerDeps
}

func newWorkerWithMode(ctx context.Context, deps WorkerDeps, mode WorkerMode) *BaseWorker {
	ctx, cancel := context.WithCancel(ctx)
	log := logger.With(
		slog.String("mode", strings.ToUpper(string(mode))),
		slog.String("chain", deps.Chain.Key),
	)

	return &BaseWorker{
		ctx:    ctx,
		cancel: cancel,
		mode:   mode,
		logger: log,
		deps:   deps,
	}
}

// Stop cancels the worker's context.
func (bw *BaseWorker) Stop() {
	bw.cancel()
	bw.logger.Info("Worker stopped", "chain", bw.deps.Chain.Key)
}

// run executes the job repeatedly at PollInterval with retry on failure.
func (bw *BaseWorker) run(job func() error) {
	ticker := time.NewTicker(bw.deps.Config.PollInterval)
	defer ticker.Stop()

	const retryInterval = 2 * time.Second

	for {
		select {
		case <-bw.ctx.Done():
			bw.logger.Info("Context done, stopping worker loop")
			return
		case <-ticker.C:
			if err := retry.Exponential(job, retry.ExponentialConfig{
				InitialInterval: retryInterval,
				MaxElapsedTime:  bw.deps.Config.PollInterval * 4,
				OnRetry: func(err error, next time.Duration) {
					bw.logger.Debug("Retrying job", "err", err, "next_retry_in", next)
				},
			}); err != nil {
				bw.logger.Error("Job error", "err", err)
				if bw.deps.Emitter != nil {
					_ = bw.deps.Emitter.EmitError(bw.deps.Chain.Key, err)
				}
			}
		}
	}
}

// handleRangeResult persists and emits the transfers of one scanned range.
func (bw *BaseWorker) handleRangeResult(result indexer.RangeResult) error {
	if len(result.Transfers) == 0 {
		return nil
	}

	if err := bw.deps.Transfers.SaveTransfers(bw.ctx, result.Transfers); err != nil {
		return err
	}

	if bw.deps.Emitter != nil {
		for _, t := range result.Transfers {
			if err := bw.deps.Emitter.EmitTransfer(t); err != nil {
				bw.logger.Warn("Failed to emit transfer",
					"tx_hash", t.TxHash,
					"err", err,
				)
			}
		}
	}

	bw.logger.Info("Processed range",
		"from", result.From,
		"to", result.To,
		"transfers", len(result.Transfers),
	)
	return nil
}

// recordFailedRange marks every block of a failed range for later rescan.
func (bw *BaseWorker) recordFailedRange(from, to uint64) {
	for b := from; b <= to; b++ {
		if err := bw.deps.Cursor.SaveFailedBlock(bw.deps.Chain.Key, b); err != nil {
			bw.logger.Warn("Failed to record failed block", "block", b, "err", err)
		}
	}
}
