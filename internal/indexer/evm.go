package indexer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arcscan/bridge-indexer/internal/chains"
	"github.com/arcscan/bridge-indexer/internal/rpc"
)

// maxLogRange bounds a single eth_getLogs call; most providers reject wider
// windows. Wider requests are chunked and fetched concurrently.
const maxLogRange = 1000

const maxConcurrentChunks = 4

type EVMIndexer struct {
	chain    chains.Chain
	failover *rpc.Failover
	decoder  *decoder
}

func NewEVMIndexer(chain chains.Chain, registry *chains.Registry, failover *rpc.Failover) *EVMIndexer {
	return &EVMIndexer{
		chain:    chain,
		failover: failover,
		decoder:  newDecoder(chain, registry),
	}
}

func (e *EVMIndexer) GetName() string {
	return strings.ToUpper(e.chain.Key)
}

func (e *EVMIndexer) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	var latest uint64
	err := e.failover.ExecuteWithRetry(ctx, func(c *rpc.EVMClient) error {
		n, err := c.BlockNumber(ctx)
		latest = n
		return err
	})
	return latest, err
}

func (e *EVMIndexer) IsHealthy(ctx context.Context) bool {
	_, err := e.GetLatestBlockNumber(ctx)
	return err == nil
}

// GetTransfers scans [from, to] for bridge events on the chain's bridge
// contract and decodes them into transfer records.
func (e *EVMIndexer) GetTransfers(ctx context.Context, from, to uint64) (RangeResult, error) {
	result := RangeResult{From: from, To: to}
	if to < from {
		return result, fmt.Errorf("invalid range %d-%d", from, to)
	}

	logs, err := e.fetchLogs(ctx, from, to)
	if err != nil {
		result.Error = &Error{ErrorType: classifyError(err), Message: err.Error()}
		return result, err
	}
	if len(logs) == 0 {
		return result, nil
	}

	blockTimes, err := e.fetchBlockTimes(ctx, logs)
	if err != nil {
		result.Error = &Error{ErrorType: classifyError(err), Message: err.Error()}
		return result, err
	}

	for _, log := range logs {
		blockNumber, perr := rpc.ParseHexUint64(log.BlockNumber)
		if perr != nil {
			continue
		}
		transfer, ok, derr := e.decoder.DecodeLog(log, blockTimes[blockNumber])
		if derr != nil {
			// malformed event payloads are skipped, not fatal
			continue
		}
		if ok {
			result.Transfers = append(result.Transfers, transfer)
		}
	}

	sort.Slice(result.Transfers, func(i, j int) bool {
		a, b := result.Transfers[i], result.Transfers[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})
	return result, nil
}

func (e *EVMIndexer) fetchLogs(ctx context.Context, from, to uint64) ([]rpc.Log, error) {
	type chunk struct{ from, to uint64 }
	var chunks []chunk
	for start := from; start <= to; start += maxLogRange {
		end := min(start+maxLogRange-1, to)
		chunks = append(chunks, chunk{start, end})
	}

	var mu sync.Mutex
	var all []rpc.Log

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunks)
	for _, ch := range chunks {
		ch := ch
		g.Go(func() error {
			var logs []rpc.Log
			err := e.failover.ExecuteWithRetry(gctx, func(c *rpc.EVMClient) error {
				var err error
				logs, err = c.GetLogs(gctx, rpc.LogFilter{
					FromBlock: rpc.HexUint64(ch.from),
					ToBlock:   rpc.HexUint64(ch.to),
					Address:   []string{e.chain.BridgeContract},
					Topics:    [][]string{{TopicDepositForBurn, TopicMintAndWithdraw}},
				})
				return err
			})
			if err != nil {
				return fmt.Errorf("get logs %d-%d: %w", ch.from, ch.to, err)
			}
			mu.Lock()
			all = append(all, logs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// fetchBlockTimes resolves timestamps for every block that carries a log.
func (e *EVMIndexer) fetchBlockTimes(ctx context.Context, logs []rpc.Log) (map[uint64]uint64, error) {
	seen := make(map[uint64]struct{})
	var numbers []uint64
	for _, log := range logs {
		n, err := rpc.ParseHexUint64(log.BlockNumber)
		if err != nil {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			numbers = append(numbers, n)
		}
	}

	var headers map[uint64]*rpc.BlockHeader
	err := e.failover.ExecuteWithRetry(ctx, func(c *rpc.EVMClient) error {
		var err error
		headers, err = c.BatchGetBlockHeaders(ctx, numbers)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get block times: %w", err)
	}

	times := make(map[uint64]uint64, len(headers))
	for n, h := range headers {
		ts, err := rpc.ParseHexUint64(h.Timestamp)
		if err != nil {
			continue
		}
		times[n] = ts
	}
	return times, nil
}

func classifyError(err error) ErrorType {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return ErrorTypeTimeout
	case strings.Contains(msg, "range") || strings.Contains(msg, "too many"):
		return ErrorTypeRangeTooWide
	default:
		return ErrorTypeUnknown
	}
}
