package x402

import (
	"fmt"
	"strconv"
	"strings"
)

// PaymentMethod names a token on a network that a catalog price can be paid in.
type PaymentMethod string

// Payment methods understood by the MonetizedMCP tools.
const (
	USDCBaseMainnet      PaymentMethod = "USDC_BASE_MAINNET"
	USDCBaseSepolia      PaymentMethod = "USDC_BASE_SEPOLIA"
	USDCPolygonMainnet   PaymentMethod = "USDC_POLYGON_MAINNET"
	USDCPolygonAmoy      PaymentMethod = "USDC_POLYGON_AMOY"
	USDCAvalancheMainnet PaymentMethod = "USDC_AVALANCHE_MAINNET"
	USDCAvalancheFuji    PaymentMethod = "USDC_AVALANCHE_FUJI"
	USDCEthereumMainnet  PaymentMethod = "USDC_ETHEREUM_MAINNET"
	USDCEthereumSepolia  PaymentMethod = "USDC_ETHEREUM_SEPOLIA"
)

func (m PaymentMethod) String() string {
	return string(m)
}

// CAIP-2 network identifiers.
const (
	NetworkBase          = "eip155:8453"
	NetworkBaseSepolia   = "eip155:84532"
	NetworkPolygon       = "eip155:137"
	NetworkPolygonAmoy   = "eip155:80002"
	NetworkAvalanche     = "eip155:43114"
	NetworkAvalancheFuji = "eip155:43113"
	NetworkEthereum      = "eip155:1"
	NetworkSepolia       = "eip155:11155111"
)

// ChainConfig describes how a payment method settles on chain.
type ChainConfig struct {
	// Network is the CAIP-2 network identifier.
	Network string

	// Asset is the USDC contract address.
	Asset string

	// Decimals is the token precision.
	Decimals int32

	// EIP3009Name and EIP3009Version are the token's EIP-712 domain parameters.
	EIP3009Name    string
	EIP3009Version string
}

// USDC contract addresses and EIP-3009 domains, per Circle's deployments.
var chainByMethod = map[PaymentMethod]ChainConfig{
	USDCBaseMainnet: {
		Network:        NetworkBase,
		Asset:          "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	},
	USDCBaseSepolia: {
		Network:        NetworkBaseSepolia,
		Asset:          "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	},
	USDCPolygonMainnet: {
		Network:        NetworkPolygon,
		Asset:          "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	},
	USDCPolygonAmoy: {
		Network:        NetworkPolygonAmoy,
		Asset:          "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	},
	USDCAvalancheMainnet: {
		Network:        NetworkAvalanche,
		Asset:          "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	},
	USDCAvalancheFuji: {
		Network:        NetworkAvalancheFuji,
		Asset:          "0x5425890298aed601595a70AB815c96711a31Bc65",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	},
	USDCEthereumMainnet: {
		Network:        NetworkEthereum,
		Asset:          "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	},
	USDCEthereumSepolia: {
		Network:        NetworkSepolia,
		Asset:          "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	},
}

// Chain returns the chain configuration for a payment method.
func (m PaymentMethod) Chain() (ChainConfig, error) {
	cfg, ok := chainByMethod[m]
	if !ok {
		return ChainConfig{}, fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, string(m))
	}
	return cfg, nil
}

// Valid reports whether the payment method is known.
func (m PaymentMethod) Valid() bool {
	_, ok := chainByMethod[m]
	return ok
}

// ParsePaymentMethod parses a payment method name, case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, s)
	}
	return m, nil
}

// GetChainID extracts the chain ID from a CAIP-2 EVM network identifier.
func GetChainID(network string) (int64, error) {
	namespace, reference, ok := strings.Cut(network, ":")
	if !ok || reference == "" {
		return 0, fmt.Errorf("%w: invalid CAIP-2 format: %s", ErrInvalidNetwork, network)
	}
	if namespace != "eip155" {
		return 0, fmt.Errorf("%w: not an EVM network: %s", ErrInvalidNetwork, network)
	}

	chainID, err := strconv.ParseInt(reference, 10, 64)
	if err != nil || chainID <= 0 {
		return 0, fmt.Errorf("%w: invalid chain ID: %s", ErrInvalidNetwork, reference)
	}
	return chainID, nil
}
