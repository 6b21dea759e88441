// Package storage persists transfers in Postgres and serves the aggregate
// queries behind the API.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arcscan/bridge-indexer/pkg/common/types"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ChainStats aggregates transfer counts for one chain.
type ChainStats struct {
	TotalTransfers    int64 `json:"totalTransfers"`
	InboundTransfers  int64 `json:"inboundTransfers"`
	OutboundTransfers int64 `json:"outboundTransfers"`
}

// Route is one (source, destination, token) lane with its activity.
type Route struct {
	SourceChain      string          `json:"sourceChain"`
	DestinationChain string          `json:"destinationChain"`
	TokenSymbol      string          `json:"tokenSymbol"`
	TransferCount    int64           `json:"transferCount"`
	TotalVolume      decimal.Decimal `json:"totalVolume"`
}

// GlobalStats summarizes bridge activity across all chains.
type GlobalStats struct {
	TotalTransfers int64           `json:"totalTransfers"`
	TotalVolume    decimal.Decimal `json:"totalVolume"`
	ActiveChains   int64           `json:"activeChains"`
	Transfers24h   int64           `json:"transfers24h"`
}

// TransferFilter narrows a transfer listing.
type TransferFilter struct {
	Chain        string
	Token        string
	Direction    string
	Counterparty string
	Limit        int
	Offset       int
}

type Store interface {
	Migrate() error
	SaveTransfers(ctx context.Context, transfers []types.TokenTransfer) error
	ListTransfers(ctx context.Context, filter TransferFilter) ([]types.TokenTransfer, int64, error)
	StatsByChain(ctx context.Context) (map[string]ChainStats, error)
	Routes(ctx context.Context) ([]Route, error)
	GlobalStats(ctx context.Context) (GlobalStats, error)
}

type store struct {
	db *gorm.DB
}

func New(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Migrate() error {
	return s.db.AutoMigrate(&TokenTransfer{})
}

// SaveTransfers upserts a batch; replays of an already indexed range are
// no-ops.
func (s *store) SaveTransfers(ctx context.Context, transfers []types.TokenTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	rows := make([]TokenTransfer, 0, len(transfers))
	for _, t := range transfers {
		rows = append(rows, fromDomain(t))
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chain"}, {Name: "tx_hash"}, {Name: "log_index"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, 100).Error
}

func (s *store) ListTransfers(ctx context.Context, filter TransferFilter) ([]types.TokenTransfer, int64, error) {
	q := s.db.WithContext(ctx).Model(&TokenTransfer{})

	if filter.Chain != "" {
		q = q.Where("chain = ?", filter.Chain)
	}
	if filter.Token != "" {
		q = q.Where("token_symbol = ?", filter.Token)
	}
	if filter.Direction != "" {
		q = q.Where("direction = ?", filter.Direction)
	}
	if filter.Counterparty != "" {
		q = q.Where("counterparty_chain = ?", filter.Counterparty)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := NormalizeLimit(filter.Limit)

	var rows []TokenTransfer
	err := q.Order("block_time DESC, block_number DESC, log_index DESC").
		Limit(limit).
		Offset(max(filter.Offset, 0)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]types.TokenTransfer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, total, nil
}

func (s *store) StatsByChain(ctx context.Context) (map[string]ChainStats, error) {
	type row struct {
		Chain     string
		Direction string
		Count     int64
	}

	var rows []row
	err := s.db.WithContext(ctx).Model(&TokenTransfer{}).
		Select("chain, direction, count(*) as count").
		Group("chain, direction").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]ChainStats)
	for _, r := range rows {
		st := stats[r.Chain]
		st.TotalTransfers += r.Count
		switch types.Direction(r.Direction) {
		case types.DirectionInbound:
			st.InboundTransfers += r.Count
		case types.DirectionOutbound:
			st.OutboundTransfers += r.Count
		}
		stats[r.Chain] = st
	}
	return stats, nil
}

// Routes aggregates outbound transfers into per-lane activity. Inbound mints
// carry no origin, so lanes are built from the burn side only.
func (s *store) Routes(ctx context.Context) ([]Route, error) {
	var routes []Route
	err := s.db.WithContext(ctx).Model(&TokenTransfer{}).
		Select(`chain as source_chain,
			counterparty_chain as destination_chain,
			token_symbol,
			count(*) as transfer_count,
			sum(amount) as total_volume`).
		Where("direction = ? AND counterparty_chain <> ''", string(types.DirectionOutbound)).
		Group("chain, counterparty_chain, token_symbol").
		Order("transfer_count DESC").
		Scan(&routes).Error
	return routes, err
}

func (s *store) GlobalStats(ctx context.Context) (GlobalStats, error) {
	var stats GlobalStats

	type totals struct {
		Count  int64
		Volume decimal.Decimal
		Chains int64
	}
	var t totals
	err := s.db.WithContext(ctx).Model(&TokenTransfer{}).
		Select("count(*) as count, coalesce(sum(amount), 0) as volume, count(distinct chain) as chains").
		Scan(&t).Error
	if err != nil {
		return stats, err
	}
	stats.TotalTransfers = t.Count
	stats.TotalVolume = t.Volume
	stats.ActiveChains = t.Chains

	since := time.Now().UTC().Add(-24 * time.Hour)
	err = s.db.WithContext(ctx).Model(&TokenTransfer{}).
		Where("block_time >= ?", since).
		Count(&stats.Transfers24h).Error
	return stats, err
}

// NormalizeLimit clamps a requested page size to the served bounds. Handlers
// use it so the echoed limit matches what the query actually returned.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageLimit
	case limit > maxPageLimit:
		return maxPageLimit
	default:
		return limit
	}
}
