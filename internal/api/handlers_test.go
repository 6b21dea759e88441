package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcscan/bridge-indexer/internal/chains"
	"github.com/arcscan/bridge-indexer/internal/config"
	"github.com/arcscan/bridge-indexer/internal/storage"
	"github.com/arcscan/bridge-indexer/pkg/common/types"
)

type mockStore struct {
	transfers []types.TokenTransfer
	stats     map[string]storage.ChainStats
	routes    []storage.Route
	global    storage.GlobalStats
	lastFilter storage.TransferFilter
}

func (m *mockStore) Migrate() error { return nil }

func (m *mockStore) SaveTransfers(context.Context, []types.TokenTransfer) error { return nil }

func (m *mockStore) ListTransfers(_ context.Context, filter storage.TransferFilter) ([]types.TokenTransfer, int64, error) {
	m.lastFilter = filter
	return m.transfers, int64(len(m.transfers)), nil
}

func (m *mockStore) StatsByChain(context.Context) (map[string]storage.ChainStats, error) {
	return m.stats, nil
}

func (m *mockStore) Routes(context.Context) ([]storage.Route, error) {
	return m.routes, nil
}

func (m *mockStore) GlobalStats(context.Context) (storage.GlobalStats, error) {
	return m.global, nil
}

func testServer(t *testing.T, store storage.Store) *Server {
	t.Helper()
	cfg := &config.Config{
		RPCURLs: map[string][]string{
			"arc":      {"https://arc.example"},
			"ethereum": {"https://eth.example"},
		},
		Features: config.Features{ArcNative: true, USYC: true},
	}
	registry, err := chains.Load(cfg)
	require.NoError(t, err)
	return NewServer(store, registry, nil, 30*time.Second, 0)
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := testServer(t, &mockStore{})
	rec := doRequest(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChainsIncludeStats(t *testing.T) {
	store := &mockStore{
		stats: map[string]storage.ChainStats{
			"arc": {TotalTransfers: 10, InboundTransfers: 4, OutboundTransfers: 6},
		},
	}
	s := testServer(t, store)

	rec := doRequest(s, http.MethodGet, "/bridge/chains")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []ChainRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2, "arc and ethereum are active")

	byID := map[string]ChainRecord{}
	for _, r := range records {
		byID[r.ID] = r
	}

	arc := byID["arc"]
	assert.Equal(t, "Arc Testnet", arc.Name)
	assert.Equal(t, uint64(8243), arc.ChainID)
	assert.True(t, arc.IsTestnet)
	assert.Equal(t, int64(10), arc.Stats.TotalTransfers)
	assert.Equal(t, int64(4), arc.Stats.InboundTransfers)
	assert.Equal(t, int64(6), arc.Stats.OutboundTransfers)

	eth := byID["ethereum"]
	assert.Zero(t, eth.Stats.TotalTransfers, "chains without activity report zero stats")
}

func TestChainByID(t *testing.T) {
	s := testServer(t, &mockStore{})

	rec := doRequest(s, http.MethodGet, "/chains/ethereum")
	require.Equal(t, http.StatusOK, rec.Code)

	var record ChainRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "Ethereum Sepolia", record.Name)
	assert.Equal(t, uint64(11155111), record.ChainID)

	rec = doRequest(s, http.MethodGet, "/chains/dogechain")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransfersFilterValidation(t *testing.T) {
	store := &mockStore{}
	s := testServer(t, store)

	rec := doRequest(s, http.MethodGet, "/bridge/transfers?direction=sideways")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/bridge/transfers?chain=arc&direction=outbound&limit=10&offset=20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "arc", store.lastFilter.Chain)
	assert.Equal(t, "outbound", store.lastFilter.Direction)
	assert.Equal(t, 10, store.lastFilter.Limit)
	assert.Equal(t, 20, store.lastFilter.Offset)
}

func TestTransfersLimitClamped(t *testing.T) {
	store := &mockStore{}
	s := testServer(t, store)

	rec := doRequest(s, http.MethodGet, "/bridge/transfers?limit=1000")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transfersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.Limit, "echoed limit matches the served page size")
	assert.Equal(t, 200, store.lastFilter.Limit)

	rec = doRequest(s, http.MethodGet, "/bridge/transfers")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 50, resp.Limit, "omitted limit reports the default page size")
}

func TestTransfersResponseShape(t *testing.T) {
	store := &mockStore{
		transfers: []types.TokenTransfer{
			{
				Chain:             "ethereum",
				TxHash:            "0xabc",
				LogIndex:          1,
				BlockNumber:       123,
				BlockTime:         1710000000,
				TokenSymbol:       "USDC",
				Amount:            decimal.RequireFromString("2.5"),
				Direction:         types.DirectionOutbound,
				CounterpartyChain: "arc",
			},
		},
	}
	s := testServer(t, store)

	rec := doRequest(s, http.MethodGet, "/bridge/transfers")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transfersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Transfers, 1)
	assert.Equal(t, "2.5", resp.Transfers[0].Amount)
	assert.Equal(t, "outbound", resp.Transfers[0].Direction)
	assert.Equal(t, "arc", resp.Transfers[0].CounterpartyChain)
}

func TestRoutes(t *testing.T) {
	store := &mockStore{
		routes: []storage.Route{
			{
				SourceChain:      "ethereum",
				DestinationChain: "arc",
				TokenSymbol:      "USDC",
				TransferCount:    7,
				TotalVolume:      decimal.RequireFromString("100.5"),
			},
		},
	}
	s := testServer(t, store)

	rec := doRequest(s, http.MethodGet, "/bridge/routes")
	require.Equal(t, http.StatusOK, rec.Code)

	var routes []storage.Route
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, int64(7), routes[0].TransferCount)
}

func TestBridgeStats(t *testing.T) {
	store := &mockStore{
		global: storage.GlobalStats{
			TotalTransfers: 42,
			TotalVolume:    decimal.RequireFromString("1000"),
			ActiveChains:   3,
			Transfers24h:   5,
		},
	}
	s := testServer(t, store)

	rec := doRequest(s, http.MethodGet, "/bridge")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.GlobalStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(42), stats.TotalTransfers)
	assert.Equal(t, int64(5), stats.Transfers24h)
}
