package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(req RPCRequest) (any, *RPCError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req)
		resp := map[string]any{"id": req.ID, "jsonrpc": "2.0"}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBlockNumber(t *testing.T) {
	srv := rpcServer(t, func(req RPCRequest) (any, *RPCError) {
		assert.Equal(t, "eth_blockNumber", req.Method)
		return "0x1b4", nil
	})

	c := NewEVMClient(srv.URL, time.Second, nil)
	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(436), n)
}

func TestGetBlockHeader(t *testing.T) {
	srv := rpcServer(t, func(req RPCRequest) (any, *RPCError) {
		assert.Equal(t, "eth_getBlockByNumber", req.Method)
		return map[string]any{
			"number":     "0x10",
			"hash":       "0xabc",
			"parentHash": "0xdef",
			"timestamp":  "0x65f0c0a0",
		}, nil
	})

	c := NewEVMClient(srv.URL, time.Second, nil)
	header, err := c.GetBlockHeader(context.Background(), 16)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", header.Hash)

	ts, err := ParseHexUint64(header.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, uint64(1710276768), ts)
}

func TestGetBlockHeaderNotFound(t *testing.T) {
	srv := rpcServer(t, func(req RPCRequest) (any, *RPCError) {
		return nil, nil
	})

	c := NewEVMClient(srv.URL, time.Second, nil)
	_, err := c.GetBlockHeader(context.Background(), 999)
	assert.ErrorContains(t, err, "not found")
}

func TestGetLogsFilterEncoding(t *testing.T) {
	var captured LogFilter
	srv := rpcServer(t, func(req RPCRequest) (any, *RPCError) {
		params, ok := req.Params.([]any)
		require.True(t, ok)
		raw, err := json.Marshal(params[0])
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &captured))
		return []map[string]any{
			{
				"address":         "0x1111",
				"topics":          []string{"0xaaaa"},
				"data":            "0x",
				"blockNumber":     "0x20",
				"transactionHash": "0xtx",
				"logIndex":        "0x0",
			},
		}, nil
	})

	c := NewEVMClient(srv.URL, time.Second, nil)
	logs, err := c.GetLogs(context.Background(), LogFilter{
		FromBlock: HexUint64(32),
		ToBlock:   HexUint64(40),
		Address:   []string{"0x1111"},
	})
	require.NoError(t, err)

	assert.Equal(t, "0x20", captured.FromBlock)
	assert.Equal(t, "0x28", captured.ToBlock)
	require.Len(t, logs, 1)
	assert.Equal(t, "0x1111", logs[0].Address)
}

func TestCallRPCError(t *testing.T) {
	srv := rpcServer(t, func(req RPCRequest) (any, *RPCError) {
		return nil, &RPCError{Code: -32000, Message: "header not found"}
	})

	c := NewEVMClient(srv.URL, time.Second, nil)
	_, err := c.BlockNumber(context.Background())
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestParseHexUint64(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0x0", 0, false},
		{"0x1b4", 436, false},
		{"1b4", 436, false},
		{"0x", 0, true},
		{"0xzz", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseHexUint64(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
