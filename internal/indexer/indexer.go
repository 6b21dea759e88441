// Package indexer turns raw chain data into bridge transfer records.
package indexer

import (
	"context"

	"github.com/arcscan/bridge-indexer/pkg/common/types"
)

type ErrorType string

const (
	ErrorTypeRangeTooWide ErrorType = "range_too_wide"
	ErrorTypeDecode       ErrorType = "decode"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeUnknown      ErrorType = "unknown"
)

type Error struct {
	ErrorType ErrorType
	Message   string
}

// RangeResult holds the transfers extracted from one block range. A failed
// range carries its error so the worker can record the blocks for rescan.
type RangeResult struct {
	From      uint64
	To        uint64
	Transfers []types.TokenTransfer
	Error     *Error // nil if OK
}

// Indexer is implemented per chain family. Only EVM exists today; the worker
// layer depends on this interface so other families can slot in.
type Indexer interface {
	GetName() string
	GetLatestBlockNumber(ctx context.Context) (uint64, error)

	// GetTransfers scans [from, to] inclusive for bridge transfer events.
	GetTransfers(ctx context.Context, from, to uint64) (RangeResult, error)
	IsHealthy(ctx context.Context) bool
}
