package chains

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcscan/bridge-indexer/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		RPCURLs: map[string][]string{
			"arc":      {"https://rpc.arc.example"},
			"ethereum": {"https://eth-1.example", "https://eth-2.example"},
		},
		Features: config.Features{ArcNative: true, USYC: true, StableFX: false},
	}
}

func TestLoadActivatesOnlyConfiguredChains(t *testing.T) {
	reg, err := Load(testConfig())
	require.NoError(t, err)

	all := reg.All()
	require.Len(t, all, 2, "only chains with RPC endpoints are active")
	assert.Equal(t, "arc", all[0].Key)
	assert.Equal(t, "ethereum", all[1].Key)

	arc, ok := reg.Get("arc")
	require.True(t, ok)
	assert.Equal(t, uint64(8243), arc.ChainID)
	assert.True(t, arc.Testnet)
	assert.Equal(t, []string{"https://rpc.arc.example"}, arc.RPCURLs)

	_, ok = reg.Get("base")
	assert.False(t, ok, "no RPC_BASE configured")
}

func TestFeatureFlagsFilterTokens(t *testing.T) {
	cfg := testConfig()
	cfg.Features = config.Features{ArcNative: false, USYC: false, StableFX: false}

	reg, err := Load(cfg)
	require.NoError(t, err)

	arc, ok := reg.Get("arc")
	require.True(t, ok)
	require.Len(t, arc.Tokens, 1, "only USDC survives with all flags off")
	assert.Equal(t, "USDC", arc.Tokens[0].Symbol)

	cfg.Features.StableFX = true
	reg, err = Load(cfg)
	require.NoError(t, err)
	arc, _ = reg.Get("arc")
	symbols := make([]string, 0, len(arc.Tokens))
	for _, tok := range arc.Tokens {
		symbols = append(symbols, tok.Symbol)
	}
	assert.ElementsMatch(t, []string{"USDC", "EURC"}, symbols)
}

func TestTokenLookupIsCaseInsensitive(t *testing.T) {
	reg, err := Load(testConfig())
	require.NoError(t, err)

	eth, ok := reg.Get("ethereum")
	require.True(t, ok)

	tok, ok := eth.Token("0x1C7D4B196CB0C7B01D743FBC6116A902379C7238")
	require.True(t, ok)
	assert.Equal(t, "USDC", tok.Symbol)

	_, ok = eth.Token("0x0000000000000000000000000000000000000000")
	assert.False(t, ok)
}

func TestBlocksForWindow(t *testing.T) {
	c := Chain{BlockTime: 2 * time.Second}
	assert.Equal(t, uint64(302400), c.BlocksForWindow(7*24*time.Hour))

	// zero block time falls back to 12s
	c = Chain{}
	assert.Equal(t, uint64(7200), c.BlocksForWindow(24*time.Hour))
}

func TestYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	content := `
chains:
  ethereum:
    name: Ethereum Holesky
    chain_id: 17000
    explorer_url: https://holesky.etherscan.io
  polygon:
    name: Polygon Amoy
    chain_id: 80002
    testnet: true
    block_time: 2s
    tokens:
      - symbol: USDC
        address: "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"
        decimals: 6
        registry: usdc
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := testConfig()
	cfg.ChainsConfig = path
	cfg.RPCURLs["polygon"] = []string{"https://amoy.example"}

	reg, err := Load(cfg)
	require.NoError(t, err)

	eth, ok := reg.Get("ethereum")
	require.True(t, ok)
	assert.Equal(t, "Ethereum Holesky", eth.Name)
	assert.Equal(t, uint64(17000), eth.ChainID)
	assert.True(t, eth.Testnet, "omitted testnet keeps the built-in value")
	assert.NotEmpty(t, eth.Tokens, "omitted tokens keep the built-in registry")

	poly, ok := reg.Get("polygon")
	require.True(t, ok)
	assert.Equal(t, "Polygon Amoy", poly.Name)
	assert.Equal(t, 2*time.Second, poly.BlockTime)
	require.Len(t, poly.Tokens, 1)
}
