// Package chains holds the chain and token registry the indexer tracks.
// Built-in definitions cover the supported testnets; a YAML file pointed to
// by CHAINS_CONFIG can override or extend them. A chain only becomes active
// when an RPC_<CHAIN> endpoint is configured.
package chains

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arcscan/bridge-indexer/internal/config"
)

type Chain struct {
	Key          string        `yaml:"-"`
	Name         string        `yaml:"name"`
	ChainID      uint64        `yaml:"chain_id"`
	Testnet      bool          `yaml:"testnet"`
	ExplorerURL  string        `yaml:"explorer_url"`
	BlockTime    time.Duration `yaml:"block_time"`
	NativeSymbol string        `yaml:"native_symbol"`
	// Domain is the bridge routing domain encoded in DepositForBurn events.
	Domain uint32 `yaml:"domain"`
	// BridgeContract emits DepositForBurn / MintAndWithdraw events.
	BridgeContract string  `yaml:"bridge_contract"`
	Tokens         []Token `yaml:"tokens"`

	// RPCURLs is populated from the environment, not from YAML.
	RPCURLs []string `yaml:"-"`
}

type Token struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
	// Registry names the feature set the token belongs to:
	// usdc, arc_native, usyc, stablefx.
	Registry string `yaml:"registry"`
}

const (
	RegistryUSDC      = "usdc"
	RegistryArcNative = "arc_native"
	RegistryUSYC      = "usyc"
	RegistryStableFX  = "stablefx"
)

type Registry struct {
	chains map[string]Chain
}

// Load builds the active registry: built-ins, optional YAML overrides, token
// registries filtered by feature flags, and RPC endpoints from the config.
func Load(cfg *config.Config) (*Registry, error) {
	defs := builtins()

	if cfg.ChainsConfig != "" {
		overrides, err := loadOverrides(cfg.ChainsConfig)
		if err != nil {
			return nil, fmt.Errorf("load chains config: %w", err)
		}
		for key, ov := range overrides {
			if base, ok := defs[key]; ok {
				defs[key] = mergeChain(base, ov)
			} else {
				c := ov.toChain()
				c.Key = key
				defs[key] = c
			}
		}
	}

	active := make(map[string]Chain, len(defs))
	for key, def := range defs {
		urls, ok := cfg.RPCURLs[key]
		if !ok {
			continue
		}
		def.RPCURLs = urls
		if def.BlockTime <= 0 {
			def.BlockTime = 12 * time.Second
		}
		def.Tokens = filterTokens(def.Tokens, cfg.Features)
		active[key] = def
	}

	return &Registry{chains: active}, nil
}

// Get returns the chain for the given key.
func (r *Registry) Get(key string) (Chain, bool) {
	c, ok := r.chains[strings.ToLower(key)]
	return c, ok
}

// All returns the active chains sorted by key.
func (r *Registry) All() []Chain {
	out := make([]Chain, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ByDomain resolves a bridge routing domain to a chain key. Inactive chains
// still resolve so outbound routes can name destinations we do not index.
func (r *Registry) ByDomain(domain uint32) (string, bool) {
	for _, c := range r.chains {
		if c.Domain == domain {
			return c.Key, true
		}
	}
	for key, c := range builtins() {
		if c.Domain == domain {
			return key, true
		}
	}
	return "", false
}

// Token looks up a tracked token by contract address on a chain.
func (c Chain) Token(address string) (Token, bool) {
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return Token{}, false
}

// BlocksForWindow converts a wall-clock window into a block count using the
// chain's average block time.
func (c Chain) BlocksForWindow(window time.Duration) uint64 {
	bt := c.BlockTime
	if bt <= 0 {
		bt = 12 * time.Second
	}
	return uint64(window / bt)
}

func filterTokens(tokens []Token, features config.Features) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		switch t.Registry {
		case RegistryArcNative:
			if !features.ArcNative {
				continue
			}
		case RegistryUSYC:
			if !features.USYC {
				continue
			}
		case RegistryStableFX:
			if !features.StableFX {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// chainOverride mirrors Chain for YAML merging; optional fields are pointers
// so an omitted value keeps the built-in.
type chainOverride struct {
	Name           string        `yaml:"name"`
	ChainID        uint64        `yaml:"chain_id"`
	Testnet        *bool         `yaml:"testnet"`
	ExplorerURL    string        `yaml:"explorer_url"`
	BlockTime      time.Duration `yaml:"block_time"`
	NativeSymbol   string        `yaml:"native_symbol"`
	Domain         *uint32       `yaml:"domain"`
	BridgeContract string        `yaml:"bridge_contract"`
	Tokens         []Token       `yaml:"tokens"`
}

func (ov chainOverride) toChain() Chain {
	c := Chain{
		Name:           ov.Name,
		ChainID:        ov.ChainID,
		ExplorerURL:    ov.ExplorerURL,
		BlockTime:      ov.BlockTime,
		NativeSymbol:   ov.NativeSymbol,
		BridgeContract: ov.BridgeContract,
		Tokens:         ov.Tokens,
	}
	if ov.Testnet != nil {
		c.Testnet = *ov.Testnet
	}
	if ov.Domain != nil {
		c.Domain = *ov.Domain
	}
	return c
}

func mergeChain(base Chain, ov chainOverride) Chain {
	if ov.Name != "" {
		base.Name = ov.Name
	}
	if ov.ChainID != 0 {
		base.ChainID = ov.ChainID
	}
	if ov.Testnet != nil {
		base.Testnet = *ov.Testnet
	}
	if ov.ExplorerURL != "" {
		base.ExplorerURL = ov.ExplorerURL
	}
	if ov.BlockTime > 0 {
		base.BlockTime = ov.BlockTime
	}
	if ov.NativeSymbol != "" {
		base.NativeSymbol = ov.NativeSymbol
	}
	if ov.Domain != nil {
		base.Domain = *ov.Domain
	}
	if ov.BridgeContract != "" {
		base.BridgeContract = ov.BridgeContract
	}
	if len(ov.Tokens) > 0 {
		base.Tokens = ov.Tokens
	}
	return base
}

type overridesFile struct {
	Chains map[string]chainOverride `yaml:"chains"`
}

func loadOverrides(path string) (map[string]chainOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	out := make(map[string]chainOverride, len(f.Chains))
	for key, c := range f.Chains {
		out[strings.ToLower(key)] = c
	}
	return out, nil
}
