package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/arcscan/bridge-indexer/pkg/common/types"
)

// TokenTransfer is the persisted form of a decoded bridge transfer. The
// (chain, tx_hash, log_index) key makes rescans idempotent.
type TokenTransfer struct {
	ID                uint64          `gorm:"primaryKey"`
	Chain             string          `gorm:"size:32;not null;uniqueIndex:idx_transfer_event,priority:1;index:idx_chain_direction,priority:1"`
	TxHash            string          `gorm:"size:80;not null;uniqueIndex:idx_transfer_event,priority:2"`
	LogIndex          uint32          `gorm:"not null;uniqueIndex:idx_transfer_event,priority:3"`
	BlockNumber       uint64          `gorm:"not null;index"`
	BlockTime         time.Time       `gorm:"index"`
	Token             string          `gorm:"size:64;not null"`
	TokenSymbol       string          `gorm:"size:16;not null;index"`
	Amount            decimal.Decimal `gorm:"type:numeric(78,18);not null"`
	Direction         string          `gorm:"size:10;not null;index:idx_chain_direction,priority:2"`
	FromAddress       string          `gorm:"size:64"`
	ToAddress         string          `gorm:"size:64"`
	CounterpartyChain string          `gorm:"size:32;index"`
	Nonce             uint64
	CreatedAt         time.Time
}

func (TokenTransfer) TableName() string { return "token_transfers" }

func fromDomain(t types.TokenTransfer) TokenTransfer {
	return TokenTransfer{
		Chain:             t.Chain,
		TxHash:            t.TxHash,
		LogIndex:          t.LogIndex,
		BlockNumber:       t.BlockNumber,
		BlockTime:         time.Unix(int64(t.BlockTime), 0).UTC(),
		Token:             t.Token,
		TokenSymbol:       t.TokenSymbol,
		Amount:            t.Amount,
		Direction:         string(t.Direction),
		FromAddress:       t.FromAddress,
		ToAddress:         t.ToAddress,
		CounterpartyChain: t.CounterpartyChain,
		Nonce:             t.Nonce,
	}
}

func (m TokenTransfer) toDomain() types.TokenTransfer {
	return types.TokenTransfer{
		Chain:             m.Chain,
		TxHash:            m.TxHash,
		LogIndex:          m.LogIndex,
		BlockNumber:       m.BlockNumber,
		BlockTime:         uint64(m.BlockTime.Unix()),
		Token:             m.Token,
		TokenSymbol:       m.TokenSymbol,
		Amount:            m.Amount,
		Direction:         types.Direction(m.Direction),
		FromAddress:       m.FromAddress,
		ToAddress:         m.ToAddress,
		CounterpartyChain: m.CounterpartyChain,
		Nonce:             m.Nonce,
	}
}
