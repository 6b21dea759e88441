package main

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcscan/bridge-indexer/pkg/common/types"
)

func TestFormatTransferMessage(t *testing.T) {
	transfer := types.TokenTransfer{
		Chain:       "arc",
		TxHash:      "0xabc",
		LogIndex:    1,
		BlockNumber: 99,
		TokenSymbol: "USDC",
		Amount:      decimal.RequireFromString("2.5"),
		Direction:   types.DirectionOutbound,
	}
	data, err := transfer.MarshalBinary()
	require.NoError(t, err)

	out := formatTransferMsg("bridge.transfers.arc.outbound", data)
	assert.Contains(t, out, "[bridge.transfers.arc.outbound]")
	assert.Contains(t, out, "TxHash: 0xabc")
	assert.Contains(t, out, "Amount: 2.5")

	// non-transfer payloads print raw
	out = formatTransferMsg("bridge.transfers.arc.error", []byte("rpc timeout"))
	assert.Contains(t, out, "rpc timeout")
}

func TestBlockUntilShutdownStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	done := make(chan struct{})
	go func() {
		blockUntilShutdown(ctx, func() { close(stopped) })
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not unblock on context cancel")
	}
	<-stopped
}
