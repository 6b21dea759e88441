package indexer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arcscan/bridge-indexer/internal/chains"
	"github.com/arcscan/bridge-indexer/internal/rpc"
	"github.com/arcscan/bridge-indexer/pkg/common/types"
)

// Event signatures emitted by the bridge contract.
//
//	DepositForBurn(uint64 indexed nonce, address indexed burnToken, uint256 amount,
//	    address indexed depositor, bytes32 mintRecipient, uint32 destinationDomain,
//	    bytes32 destinationTokenMessenger, bytes32 destinationCaller)
//	MintAndWithdraw(address indexed mintRecipient, uint256 amount, address indexed mintToken)
const (
	TopicDepositForBurn  = "0x2fa9ca894982930190727e75500a97d8dc500233a5065e0f3126c48fbe0343c0"
	TopicMintAndWithdraw = "0x1b2a7ff080b8cb6ff436ce0372e399692bbfb6d4ae5766fd8d58a7b8cc6142e6"
)

const wordHexLen = 64

// decoder maps bridge logs to TokenTransfer records for one chain.
type decoder struct {
	chain    chains.Chain
	registry *chains.Registry
}

func newDecoder(chain chains.Chain, registry *chains.Registry) *decoder {
	return &decoder{chain: chain, registry: registry}
}

// DecodeLog returns (transfer, true) when the log is a bridge transfer of a
// tracked token. Logs of untracked tokens and unrelated events return false.
func (d *decoder) DecodeLog(log rpc.Log, blockTime uint64) (types.TokenTransfer, bool, error) {
	if log.Removed || len(log.Topics) == 0 {
		return types.TokenTransfer{}, false, nil
	}

	switch strings.ToLower(log.Topics[0]) {
	case TopicDepositForBurn:
		return d.decodeDepositForBurn(log, blockTime)
	case TopicMintAndWithdraw:
		return d.decodeMintAndWithdraw(log, blockTime)
	default:
		return types.TokenTransfer{}, false, nil
	}
}

func (d *decoder) decodeDepositForBurn(log rpc.Log, blockTime uint64) (types.TokenTransfer, bool, error) {
	if len(log.Topics) != 4 {
		return types.TokenTransfer{}, false, fmt.Errorf("DepositForBurn: want 4 topics, got %d", len(log.Topics))
	}

	burnToken := topicAddress(log.Topics[2])
	token, tracked := d.chain.Token(burnToken)
	if !tracked {
		return types.TokenTransfer{}, false, nil
	}

	words, err := dataWords(log.Data, 5)
	if err != nil {
		return types.TokenTransfer{}, false, fmt.Errorf("DepositForBurn data: %w", err)
	}

	nonce, err := wordUint64(log.Topics[1])
	if err != nil {
		return types.TokenTransfer{}, false, fmt.Errorf("DepositForBurn nonce: %w", err)
	}
	destDomain, err := wordUint64(words[2])
	if err != nil {
		return types.TokenTransfer{}, false, fmt.Errorf("DepositForBurn destination domain: %w", err)
	}

	blockNumber, logIndex, err := logPosition(log)
	if err != nil {
		return types.TokenTransfer{}, false, err
	}

	counterparty := ""
	if key, ok := d.registry.ByDomain(uint32(destDomain)); ok {
		counterparty = key
	}

	return types.TokenTransfer{
		Chain:             d.chain.Key,
		TxHash:            strings.ToLower(log.TransactionHash),
		LogIndex:          logIndex,
		BlockNumber:       blockNumber,
		BlockTime:         blockTime,
		Token:             strings.ToLower(token.Address),
		TokenSymbol:       token.Symbol,
		Amount:            wordAmount(words[0], token.Decimals),
		Direction:         types.DirectionOutbound,
		FromAddress:       topicAddress(log.Topics[3]),
		ToAddress:         wordAddress(words[1]),
		CounterpartyChain: counterparty,
		Nonce:             nonce,
	}, true, nil
}

func (d *decoder) decodeMintAndWithdraw(log rpc.Log, blockTime uint64) (types.TokenTransfer, bool, error) {
	if len(log.Topics) != 3 {
		return types.TokenTransfer{}, false, fmt.Errorf("MintAndWithdraw: want 3 topics, got %d", len(log.Topics))
	}

	mintToken := topicAddress(log.Topics[2])
	token, tracked := d.chain.Token(mintToken)
	if !tracked {
		return types.TokenTransfer{}, false, nil
	}

	words, err := dataWords(log.Data, 1)
	if err != nil {
		return types.TokenTransfer{}, false, fmt.Errorf("MintAndWithdraw data: %w", err)
	}

	blockNumber, logIndex, err := logPosition(log)
	if err != nil {
		return types.TokenTransfer{}, false, err
	}

	return types.TokenTransfer{
		Chain:       d.chain.Key,
		TxHash:      strings.ToLower(log.TransactionHash),
		LogIndex:    logIndex,
		BlockNumber: blockNumber,
		BlockTime:   blockTime,
		Token:       strings.ToLower(token.Address),
		TokenSymbol: token.Symbol,
		Amount:      wordAmount(words[0], token.Decimals),
		Direction:   types.DirectionInbound,
		ToAddress:   topicAddress(log.Topics[1]),
	}, true, nil
}

func logPosition(log rpc.Log) (blockNumber uint64, logIndex uint32, err error) {
	blockNumber, err = rpc.ParseHexUint64(log.BlockNumber)
	if err != nil {
		return 0, 0, fmt.Errorf("log block number: %w", err)
	}
	idx, err := rpc.ParseHexUint64(log.LogIndex)
	if err != nil {
		return 0, 0, fmt.Errorf("log index: %w", err)
	}
	return blockNumber, uint32(idx), nil
}

// dataWords splits the ABI-encoded data payload into 32-byte words.
func dataWords(data string, minWords int) ([]string, error) {
	hex := strings.TrimPrefix(strings.ToLower(data), "0x")
	if len(hex)%wordHexLen != 0 {
		return nil, fmt.Errorf("data length %d is not word aligned", len(hex))
	}
	n := len(hex) / wordHexLen
	if n < minWords {
		return nil, fmt.Errorf("want at least %d data words, got %d", minWords, n)
	}
	words := make([]string, n)
	for i := range words {
		words[i] = hex[i*wordHexLen : (i+1)*wordHexLen]
	}
	return words, nil
}

// topicAddress extracts the address packed into an indexed topic.
func topicAddress(topic string) string {
	return wordAddress(strings.TrimPrefix(strings.ToLower(topic), "0x"))
}

// wordAddress reads the low 20 bytes of a 32-byte word as an address.
func wordAddress(word string) string {
	if len(word) < 40 {
		return ""
	}
	return "0x" + word[len(word)-40:]
}

// wordUint64 parses a word (or topic) as an unsigned integer.
func wordUint64(word string) (uint64, error) {
	word = strings.TrimPrefix(strings.ToLower(word), "0x")
	n := new(big.Int)
	if _, ok := n.SetString(word, 16); !ok {
		return 0, fmt.Errorf("not a hex word: %q", word)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("value overflows uint64")
	}
	return n.Uint64(), nil
}

// wordAmount converts a raw uint256 word into a token-unit decimal.
func wordAmount(word string, decimals int) decimal.Decimal {
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimPrefix(word, "0x"), 16); !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, 0).Shift(int32(-decimals))
}
