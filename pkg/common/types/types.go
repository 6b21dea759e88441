package types

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction of a bridge transfer relative to the chain it was observed on.
type Direction string

const (
	DirectionInbound  Direction = "inbound"  // minted on this chain
	DirectionOutbound Direction = "outbound" // burned on this chain
)

// TokenTransfer is one observed bridge transfer event.
type TokenTransfer struct {
	Chain       string          `json:"chain"`
	TxHash      string          `json:"txHash"`
	LogIndex    uint32          `json:"logIndex"`
	BlockNumber uint64          `json:"blockNumber"`
	BlockTime   uint64          `json:"blockTime"`
	Token       string          `json:"token"`
	TokenSymbol string          `json:"tokenSymbol"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	FromAddress string          `json:"fromAddress"`
	ToAddress   string          `json:"toAddress"`
	// CounterpartyChain is the destination chain for outbound transfers.
	// Inbound mint events do not carry their origin, so it may be empty.
	CounterpartyChain string `json:"counterpartyChain,omitempty"`
	Nonce             uint64 `json:"nonce"`
}

func (t TokenTransfer) MarshalBinary() ([]byte, error) {
	return json.Marshal(t)
}

func (t *TokenTransfer) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, t)
}

func (t TokenTransfer) String() string {
	return fmt.Sprintf("{Chain: %s, TxHash: %s, Log: %d, Block: %d, Token: %s, Amount: %s, Direction: %s}",
		t.Chain, t.TxHash, t.LogIndex, t.BlockNumber, t.TokenSymbol, t.Amount, t.Direction)
}

// Hash returns a deterministic digest used as the idempotency key when
// publishing; (chain, txHash, logIndex) identifies an event uniquely.
func (t TokenTransfer) Hash() string {
	var b strings.Builder
	b.WriteString(t.Chain)
	b.WriteByte('|')
	b.WriteString(strings.ToLower(t.TxHash))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(t.LogIndex), 10))
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum)
}
