package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arcscan/bridge-indexer/pkg/ratelimiter"
)

// EVMClient speaks the Ethereum JSON-RPC surface the indexer needs.
type EVMClient struct {
	*Client
}

func NewEVMClient(url string, timeout time.Duration, limiter *ratelimiter.Pool) *EVMClient {
	return &EVMClient{Client: NewClient(url, timeout, limiter)}
}

// BlockHeader is the subset of an EVM block the indexer reads.
type BlockHeader struct {
	Number     string `json:"number"`
	Hash       string `json:"hash"`
	ParentHash string `json:"parentHash"`
	Timestamp  string `json:"timestamp"`
}

// Log is an EVM event log as returned by eth_getLogs.
type Log struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

// LogFilter maps to the eth_getLogs filter object.
type LogFilter struct {
	FromBlock string     `json:"fromBlock"`
	ToBlock   string     `json:"toBlock"`
	Address   []string   `json:"address,omitempty"`
	Topics    [][]string `json:"topics,omitempty"`
}

// BlockNumber returns the chain head.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	resp, err := c.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}

	var blockHex string
	if err := json.Unmarshal(resp.Result, &blockHex); err != nil {
		return 0, fmt.Errorf("unmarshal block number: %w", err)
	}
	return ParseHexUint64(blockHex)
}

// GetBlockHeader fetches a block without transaction bodies.
func (c *EVMClient) GetBlockHeader(ctx context.Context, number uint64) (*BlockHeader, error) {
	resp, err := c.Call(ctx, "eth_getBlockByNumber", []any{HexUint64(number), false})
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber: %w", err)
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, fmt.Errorf("block %d not found", number)
	}

	var header BlockHeader
	if err := json.Unmarshal(resp.Result, &header); err != nil {
		return nil, fmt.Errorf("unmarshal block header: %w", err)
	}
	return &header, nil
}

// BatchGetBlockHeaders fetches several headers in one round trip.
func (c *EVMClient) BatchGetBlockHeaders(ctx context.Context, numbers []uint64) (map[uint64]*BlockHeader, error) {
	headers := make(map[uint64]*BlockHeader, len(numbers))
	if len(numbers) == 0 {
		return headers, nil
	}

	ids := c.nextIDs(len(numbers))
	requests := make([]*RPCRequest, 0, len(numbers))
	idToNumber := make(map[int64]uint64, len(numbers))
	for i, n := range numbers {
		requests = append(requests, &RPCRequest{
			ID:      ids[i],
			JSONRPC: "2.0",
			Method:  "eth_getBlockByNumber",
			Params:  []any{HexUint64(n), false},
		})
		idToNumber[ids[i]] = n
	}

	responses, err := c.CallBatch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("batch get headers: %w", err)
	}

	for id, r := range responses {
		n, ok := idToNumber[id]
		if !ok || r.Error != nil || len(r.Result) == 0 || string(r.Result) == "null" {
			continue
		}
		var header BlockHeader
		if err := json.Unmarshal(r.Result, &header); err != nil {
			continue
		}
		headers[n] = &header
	}
	return headers, nil
}

// GetLogs queries event logs for a block range.
func (c *EVMClient) GetLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	resp, err := c.Call(ctx, "eth_getLogs", []any{filter})
	if err != nil {
		return nil, fmt.Errorf("eth_getLogs: %w", err)
	}

	var logs []Log
	if err := json.Unmarshal(resp.Result, &logs); err != nil {
		return nil, fmt.Errorf("unmarshal logs: %w", err)
	}
	return logs, nil
}

// HexUint64 renders a block number as the 0x-prefixed hex RPC encoding.
func HexUint64(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

// ParseHexUint64 parses a 0x-prefixed hex quantity.
func ParseHexUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex quantity %q: %w", s, err)
	}
	return n, nil
}
