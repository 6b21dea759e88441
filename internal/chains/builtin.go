package chains

import "time"

// Bridge transfers burn on the source chain and mint on the destination, so
// every supported chain runs the same bridge contract interface.
const testnetBridgeContract = "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"

func builtins() map[string]Chain {
	defs := []Chain{
		{
			Key:            "arc",
			Domain:         16,
			Name:           "Arc Testnet",
			ChainID:        8243,
			Testnet:        true,
			ExplorerURL:    "https://explorer.testnet.arc.network",
			BlockTime:      time.Second,
			NativeSymbol:   "ARC",
			BridgeContract: testnetBridgeContract,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0xE3A6155cCCBbd0E91f57a82403Ef8B0DfEBf3b5C", Decimals: 6, Registry: RegistryUSDC},
				{Symbol: "ARC", Address: "0x43c0F393776AC4cbb34eC17A6C233E7dAF1b0af7", Decimals: 18, Registry: RegistryArcNative},
				{Symbol: "USYC", Address: "0x38D3A3f8717F4DB1CcB4Ad7D8C755919440848A3", Decimals: 6, Registry: RegistryUSYC},
				{Symbol: "EURC", Address: "0x808456652fdb597867f38412077A9182bf77359F", Decimals: 6, Registry: RegistryStableFX},
			},
		},
		{
			Key:            "ethereum",
			Domain:         0,
			Name:           "Ethereum Sepolia",
			ChainID:        11155111,
			Testnet:        true,
			ExplorerURL:    "https://sepolia.etherscan.io",
			BlockTime:      12 * time.Second,
			NativeSymbol:   "ETH",
			BridgeContract: testnetBridgeContract,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", Decimals: 6, Registry: RegistryUSDC},
				{Symbol: "USYC", Address: "0x136471a34f6ef19fE571EFFC1CA711fdb8E49f2b", Decimals: 6, Registry: RegistryUSYC},
				{Symbol: "EURC", Address: "0x08210F9170F89Ab7658F0B5E3fF39b0E03C594D4", Decimals: 6, Registry: RegistryStableFX},
			},
		},
		{
			Key:            "base",
			Domain:         6,
			Name:           "Base Sepolia",
			ChainID:        84532,
			Testnet:        true,
			ExplorerURL:    "https://sepolia.basescan.org",
			BlockTime:      2 * time.Second,
			NativeSymbol:   "ETH",
			BridgeContract: testnetBridgeContract,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", Decimals: 6, Registry: RegistryUSDC},
			},
		},
		{
			Key:            "avalanche",
			Domain:         1,
			Name:           "Avalanche Fuji",
			ChainID:        43113,
			Testnet:        true,
			ExplorerURL:    "https://testnet.snowtrace.io",
			BlockTime:      2 * time.Second,
			NativeSymbol:   "AVAX",
			BridgeContract: testnetBridgeContract,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x5425890298aed601595a70AB815c96711a31Bc65", Decimals: 6, Registry: RegistryUSDC},
			},
		},
		{
			Key:            "optimism",
			Domain:         2,
			Name:           "OP Sepolia",
			ChainID:        11155420,
			Testnet:        true,
			ExplorerURL:    "https://sepolia-optimism.etherscan.io",
			BlockTime:      2 * time.Second,
			NativeSymbol:   "ETH",
			BridgeContract: testnetBridgeContract,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x5fd84259d66Cd46123540766Be93DFE6D43130D7", Decimals: 6, Registry: RegistryUSDC},
			},
		},
		{
			Key:            "arbitrum",
			Domain:         3,
			Name:           "Arbitrum Sepolia",
			ChainID:        421614,
			Testnet:        true,
			ExplorerURL:    "https://sepolia.arbiscan.io",
			BlockTime:      time.Second / 4,
			NativeSymbol:   "ETH",
			BridgeContract: testnetBridgeContract,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d", Decimals: 6, Registry: RegistryUSDC},
			},
		},
	}

	out := make(map[string]Chain, len(defs))
	for _, c := range defs {
		out[c.Key] = c
	}
	return out
}
