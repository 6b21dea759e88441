// Package cursorstore persists per-chain sync state: the latest indexed
// block, blocks that failed processing, and pending backfill ranges.
package cursorstore

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/arcscan/bridge-indexer/pkg/common/constant"
	"github.com/arcscan/bridge-indexer/pkg/infra"
)

const syncStates = "sync_states"

// BackfillRange is a contiguous block window scheduled for historical sync.
// Current is the last block of the range already processed.
type BackfillRange struct {
	Start   uint64 `json:"start"`
	End     uint64 `json:"end"`
	Current uint64 `json:"current"`
}

func (r BackfillRange) Done() bool {
	return r.Current >= r.End
}

func latestBlockKey(chain string) string {
	return fmt.Sprintf("%s/%s/%s", syncStates, chain, constant.KVPrefixLatestBlock)
}

func failedBlocksKey(chain string) string {
	return fmt.Sprintf("%s/%s/%s", syncStates, chain, constant.KVPrefixFailedBlocks)
}

func backfillPrefix(chain string) string {
	return fmt.Sprintf("%s/%s/%s/", syncStates, chain, constant.KVPrefixBackfillRange)
}

func backfillKey(chain string, start, end uint64) string {
	return fmt.Sprintf("%s%d-%d", backfillPrefix(chain), start, end)
}

type Store interface {
	GetLatestBlock(chain string) (uint64, error)
	SaveLatestBlock(chain string, blockNumber uint64) error

	GetFailedBlocks(chain string) ([]uint64, error)
	SaveFailedBlock(chain string, blockNumber uint64) error
	RemoveFailedBlocks(chain string, blockNumbers []uint64) error

	SaveBackfillRange(chain string, r BackfillRange) error
	GetBackfillRanges(chain string) ([]BackfillRange, error)
	DeleteBackfillRange(chain string, start, end uint64) error

	Close() error
}

type cursorStore struct {
	store infra.KVStore

	// failedMu serializes the read-modify-write on the shared failed-blocks
	// list; regular, rescan and backfill workers update it concurrently.
	failedMu sync.Mutex
}

func New(store infra.KVStore) Store {
	return &cursorStore{store: store}
}

func (cs *cursorStore) GetLatestBlock(chain string) (uint64, error) {
	v, err := cs.store.Get(latestBlockKey(chain))
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

func (cs *cursorStore) SaveLatestBlock(chain string, blockNumber uint64) error {
	if chain == "" {
		return errors.New("chain is required")
	}
	if blockNumber == 0 {
		return errors.New("block number is required")
	}
	return cs.store.Set(latestBlockKey(chain), strconv.FormatUint(blockNumber, 10))
}

func (cs *cursorStore) GetFailedBlocks(chain string) ([]uint64, error) {
	blocks := []uint64{}
	ok, err := cs.store.GetAny(failedBlocksKey(chain), &blocks)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return blocks, nil
}

// SaveFailedBlock appends a failed block to the per-chain list, deduplicated
// and sorted.
func (cs *cursorStore) SaveFailedBlock(chain string, blockNumber uint64) error {
	if chain == "" {
		return errors.New("chain is required")
	}
	if blockNumber == 0 {
		return errors.New("block number is required")
	}

	cs.failedMu.Lock()
	defer cs.failedMu.Unlock()

	key := failedBlocksKey(chain)
	var blocks []uint64
	_, _ = cs.store.GetAny(key, &blocks) // ignore not found

	if !slices.Contains(blocks, blockNumber) {
		blocks = append(blocks, blockNumber)
		slices.Sort(blocks)
		return cs.store.SetAny(key, blocks)
	}
	return nil
}

func (cs *cursorStore) RemoveFailedBlocks(chain string, blockNumbers []uint64) error {
	if chain == "" {
		return errors.New("chain is required")
	}
	if len(blockNumbers) == 0 {
		return nil
	}

	cs.failedMu.Lock()
	defer cs.failedMu.Unlock()

	key := failedBlocksKey(chain)
	var blocks []uint64
	ok, err := cs.store.GetAny(key, &blocks)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	toRemove := make(map[uint64]struct{}, len(blockNumbers))
	for _, b := range blockNumbers {
		toRemove[b] = struct{}{}
	}

	filtered := make([]uint64, 0, len(blocks))
	for _, b := range blocks {
		if _, drop := toRemove[b]; !drop {
			filtered = append(filtered, b)
		}
	}
	return cs.store.SetAny(key, filtered)
}

func (cs *cursorStore) SaveBackfillRange(chain string, r BackfillRange) error {
	if chain == "" || r.Start == 0 || r.End < r.Start {
		return errors.New("invalid backfill range")
	}
	return cs.store.Set(backfillKey(chain, r.Start, r.End), strconv.FormatUint(r.Current, 10))
}

func (cs *cursorStore) GetBackfillRanges(chain string) ([]BackfillRange, error) {
	if chain == "" {
		return nil, errors.New("chain is required")
	}
	kvs, err := cs.store.List(backfillPrefix(chain))
	if err != nil {
		return nil, err
	}

	var ranges []BackfillRange
	for _, kv := range kvs {
		s, e := extractRangeFromKey(kv.Key)
		if s == 0 || e == 0 {
			continue
		}
		cur, _ := strconv.ParseUint(string(kv.Value), 10, 64)
		ranges = append(ranges, BackfillRange{Start: s, End: e, Current: cur})
	}
	slices.SortFunc(ranges, func(a, b BackfillRange) int {
		return int(a.Start) - int(b.Start)
	})
	return ranges, nil
}

func (cs *cursorStore) DeleteBackfillRange(chain string, start, end uint64) error {
	if chain == "" || start == 0 || end < start {
		return nil
	}
	return cs.store.Delete(backfillKey(chain, start, end))
}

func (cs *cursorStore) Close() error {
	return cs.store.Close()
}

// SplitRange splits a large backfill window into chunks so progress is
// persisted at chunk granularity.
func SplitRange(r BackfillRange, maxSize uint64) []BackfillRange {
	if r.End <= r.Start || maxSize == 0 {
		return []BackfillRange{r}
	}
	if r.End-r.Start+1 <= maxSize {
		return []BackfillRange{r}
	}

	var ranges []BackfillRange
	current := r.Start
	for current <= r.End {
		end := min(current+maxSize-1, r.End)

		cur := r.Current
		if cur < current {
			cur = current - 1
		} else if cur > end {
			cur = end
		}

		ranges = append(ranges, BackfillRange{Start: current, End: end, Current: cur})
		current = end + 1
	}
	return ranges
}

func extractRangeFromKey(key string) (uint64, uint64) {
	// sync_states/<chain>/backfill_range/<start>-<end>
	parts := strings.Split(key, "/")
	if len(parts) < 2 {
		return 0, 0
	}
	se := strings.Split(parts[len(parts)-1], "-")
	if len(se) != 2 {
		return 0, 0
	}
	s, err1 := strconv.ParseUint(se[0], 10, 64)
	e, err2 := strconv.ParseUint(se[1], 10, 64)
	if err1 == nil && err2 == nil && s <= e {
		return s, e
	}
	return 0, 0
}
