package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/arcscan/bridge-indexer/internal/chains"
	"github.com/arcscan/bridge-indexer/internal/storage"
	"github.com/arcscan/bridge-indexer/pkg/common/logger"
	"github.com/arcscan/bridge-indexer/pkg/common/types"
)

const statsCacheKey = "bridge:stats:global"

// ChainRecord is the API shape of one supported chain with its activity.
type ChainRecord struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ChainID     uint64             `json:"chainId"`
	IsTestnet   bool               `json:"isTestnet"`
	ExplorerURL string             `json:"explorerUrl"`
	Stats       storage.ChainStats `json:"stats"`
}

type transfersResponse struct {
	Transfers []transferRecord `json:"transfers"`
	Total     int64            `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

type transferRecord struct {
	Chain             string `json:"chain"`
	TxHash            string `json:"txHash"`
	LogIndex          uint32 `json:"logIndex"`
	BlockNumber       uint64 `json:"blockNumber"`
	BlockTime         int64  `json:"blockTime"`
	Token             string `json:"token"`
	TokenSymbol       string `json:"tokenSymbol"`
	Amount            string `json:"amount"`
	Direction         string `json:"direction"`
	FromAddress       string `json:"fromAddress,omitempty"`
	ToAddress         string `json:"toAddress,omitempty"`
	CounterpartyChain string `json:"counterpartyChain,omitempty"`
	Nonce             uint64 `json:"nonce,omitempty"`
}

func toTransferRecord(t types.TokenTransfer) transferRecord {
	return transferRecord{
		Chain:             t.Chain,
		TxHash:            t.TxHash,
		LogIndex:          t.LogIndex,
		BlockNumber:       t.BlockNumber,
		BlockTime:         int64(t.BlockTime),
		Token:             t.Token,
		TokenSymbol:       t.TokenSymbol,
		Amount:            t.Amount.String(),
		Direction:         string(t.Direction),
		FromAddress:       t.FromAddress,
		ToAddress:         t.ToAddress,
		CounterpartyChain: t.CounterpartyChain,
		Nonce:             t.Nonce,
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleBridgeStats serves the global summary, cached in redis so dashboard
// polling does not hammer the aggregate queries.
func (s *Server) handleBridgeStats(c echo.Context) error {
	if cached, ok := s.cachedStats(); ok {
		return c.JSONBlob(http.StatusOK, cached)
	}

	stats, err := s.store.GlobalStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load stats")
	}

	s.cacheStats(stats)
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) cachedStats() ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	val, err := s.redis.Get(statsCacheKey)
	if err != nil || val == "" {
		return nil, false
	}
	return []byte(val), true
}

func (s *Server) cacheStats(stats storage.GlobalStats) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redis.Set(statsCacheKey, string(data), s.cacheTTL); err != nil {
		logger.Warn("Failed to cache stats", "err", err)
	}
}

func (s *Server) handleTransfers(c echo.Context) error {
	filter := storage.TransferFilter{
		Chain:        c.QueryParam("chain"),
		Token:        c.QueryParam("token"),
		Counterparty: c.QueryParam("counterparty"),
	}

	if dir := c.QueryParam("direction"); dir != "" {
		if dir != string(types.DirectionInbound) && dir != string(types.DirectionOutbound) {
			return echo.NewHTTPError(http.StatusBadRequest, "direction must be inbound or outbound")
		}
		filter.Direction = dir
	}
	filter.Limit = storage.NormalizeLimit(queryInt(c, "limit", 0))
	filter.Offset = queryInt(c, "offset", 0)

	transfers, total, err := s.store.ListTransfers(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list transfers")
	}

	records := make([]transferRecord, 0, len(transfers))
	for _, t := range transfers {
		records = append(records, toTransferRecord(t))
	}

	return c.JSON(http.StatusOK, transfersResponse{
		Transfers: records,
		Total:     total,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
}

func (s *Server) handleChains(c echo.Context) error {
	stats, err := s.store.StatsByChain(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load chain stats")
	}

	records := make([]ChainRecord, 0)
	for _, chain := range s.registry.All() {
		records = append(records, chainRecord(chain, stats[chain.Key]))
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleChainByID(c echo.Context) error {
	chain, ok := s.registry.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown chain")
	}

	stats, err := s.store.StatsByChain(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load chain stats")
	}
	return c.JSON(http.StatusOK, chainRecord(chain, stats[chain.Key]))
}

func (s *Server) handleRoutes(c echo.Context) error {
	routes, err := s.store.Routes(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load routes")
	}
	return c.JSON(http.StatusOK, routes)
}

func chainRecord(chain chains.Chain, stats storage.ChainStats) ChainRecord {
	return ChainRecord{
		ID:          chain.Key,
		Name:        chain.Name,
		ChainID:     chain.ChainID,
		IsTestnet:   chain.Testnet,
		ExplorerURL: chain.ExplorerURL,
		Stats:       stats,
	}
}

func queryInt(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
