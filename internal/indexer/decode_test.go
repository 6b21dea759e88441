package indexer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcscan/bridge-indexer/internal/chains"
	"github.com/arcscan/bridge-indexer/internal/config"
	"github.com/arcscan/bridge-indexer/internal/rpc"
	"github.com/arcscan/bridge-indexer/pkg/common/types"
)

const (
	usdcSepolia = "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"
	depositor   = "0x92d6912bf2a21fcb2a7af9c96c8c04be972a0ee2"
	recipient   = "0x4a37a90a0bdf0acf1ebc9e1bcd4de63e10612f33"
)

func word(hexVal string) string {
	return strings.Repeat("0", 64-len(hexVal)) + hexVal
}

func addressWord(addr string) string {
	return word(strings.TrimPrefix(addr, "0x"))
}

func testRegistry(t *testing.T) (*chains.Registry, chains.Chain) {
	t.Helper()
	cfg := &config.Config{
		RPCURLs: map[string][]string{
			"ethereum": {"https://eth.example"},
			"arc":      {"https://arc.example"},
		},
		Features: config.Features{ArcNative: true, USYC: true},
	}
	reg, err := chains.Load(cfg)
	require.NoError(t, err)
	eth, ok := reg.Get("ethereum")
	require.True(t, ok)
	return reg, eth
}

func depositForBurnLog() rpc.Log {
	// amount=2500000 (2.5 USDC), destinationDomain=16 (arc)
	data := "0x" +
		word("2625a0") + // amount
		addressWord(recipient) + // mintRecipient (bytes32)
		word("10") + // destinationDomain
		word("0") + // destinationTokenMessenger
		word("0") // destinationCaller
	return rpc.Log{
		Address: "0x9f3b8679c73c2fef8b59b4f3444d4e156fb70aa5",
		Topics: []string{
			TopicDepositForBurn,
			word("2a"), // nonce = 42
			addressWord(usdcSepolia),
			addressWord(depositor),
		},
		Data:            data,
		BlockNumber:     "0x10",
		TransactionHash: "0xAbCd01",
		LogIndex:        "0x2",
	}
}

func TestDecodeDepositForBurn(t *testing.T) {
	reg, eth := testRegistry(t)
	d := newDecoder(eth, reg)

	transfer, ok, err := d.DecodeLog(depositForBurnLog(), 1710000000)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "ethereum", transfer.Chain)
	assert.Equal(t, "0xabcd01", transfer.TxHash)
	assert.Equal(t, uint32(2), transfer.LogIndex)
	assert.Equal(t, uint64(16), transfer.BlockNumber)
	assert.Equal(t, uint64(1710000000), transfer.BlockTime)
	assert.Equal(t, "USDC", transfer.TokenSymbol)
	assert.True(t, decimal.RequireFromString("2.5").Equal(transfer.Amount), "amount %s", transfer.Amount)
	assert.Equal(t, types.DirectionOutbound, transfer.Direction)
	assert.Equal(t, depositor, transfer.FromAddress)
	assert.Equal(t, recipient, transfer.ToAddress)
	assert.Equal(t, "arc", transfer.CounterpartyChain, "domain 16 resolves to arc")
	assert.Equal(t, uint64(42), transfer.Nonce)
}

func TestDecodeMintAndWithdraw(t *testing.T) {
	reg, eth := testRegistry(t)
	d := newDecoder(eth, reg)

	log := rpc.Log{
		Topics: []string{
			TopicMintAndWithdraw,
			addressWord(recipient),
			addressWord(usdcSepolia),
		},
		Data:            "0x" + word("f4240"), // 1 USDC
		BlockNumber:     "0x20",
		TransactionHash: "0xfeed",
		LogIndex:        "0x0",
	}

	transfer, ok, err := d.DecodeLog(log, 1710000500)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, types.DirectionInbound, transfer.Direction)
	assert.Equal(t, recipient, transfer.ToAddress)
	assert.Empty(t, transfer.FromAddress)
	assert.Empty(t, transfer.CounterpartyChain, "mint events do not carry their origin")
	assert.True(t, decimal.RequireFromString("1").Equal(transfer.Amount))
}

func TestDecodeSkipsUntrackedToken(t *testing.T) {
	reg, eth := testRegistry(t)
	d := newDecoder(eth, reg)

	log := depositForBurnLog()
	log.Topics[2] = addressWord("0x00000000000000000000000000000000000000aa")

	_, ok, err := d.DecodeLog(log, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeSkipsUnknownEventsAndRemovedLogs(t *testing.T) {
	reg, eth := testRegistry(t)
	d := newDecoder(eth, reg)

	_, ok, err := d.DecodeLog(rpc.Log{Topics: []string{"0xdead"}}, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	removed := depositForBurnLog()
	removed.Removed = true
	_, ok, err = d.DecodeLog(removed, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeMalformedData(t *testing.T) {
	reg, eth := testRegistry(t)
	d := newDecoder(eth, reg)

	log := depositForBurnLog()
	log.Data = "0x" + word("2625a0") // too few words

	_, ok, err := d.DecodeLog(log, 0)
	assert.Error(t, err)
	assert.False(t, ok)

	log = depositForBurnLog()
	log.Topics = log.Topics[:2]
	_, ok, err = d.DecodeLog(log, 0)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTransferHashIsStable(t *testing.T) {
	a := types.TokenTransfer{Chain: "ethereum", TxHash: "0xABC", LogIndex: 1}
	b := types.TokenTransfer{Chain: "ethereum", TxHash: "0xabc", LogIndex: 1}
	c := types.TokenTransfer{Chain: "ethereum", TxHash: "0xabc", LogIndex: 2}

	assert.Equal(t, a.Hash(), b.Hash(), "tx hash casing does not matter")
	assert.NotEqual(t, a.Hash(), c.Hash())
}
