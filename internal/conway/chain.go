package conway

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// erc20BalanceOfSelector is the first 4 bytes of keccak256("balanceOf(address)").
const erc20BalanceOfSelector = "70a08231"

// EthChainProvider implements ChainProvider by reading ERC-20 balanceOf
// directly over JSON-RPC via go-ethereum's ethclient — no abigen bindings
// needed for a single read-only call.
type EthChainProvider struct {
	clients map[string]*ethclient.Client // network (CAIP-2 id) -> RPC client
}

// NewEthChainProvider dials one RPC endpoint per network this automaton may
// query, keyed by the same CAIP-2 identifiers ChainProvider.USDCBalance
// accepts.
func NewEthChainProvider(ctx context.Context, rpcByNetwork map[string]string) (*EthChainProvider, error) {
	clients := make(map[string]*ethclient.Client, len(rpcByNetwork))
	for network, url := range rpcByNetwork {
		c, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("conway: dial RPC for %s: %w", network, err)
		}
		clients[network] = c
	}
	return &EthChainProvider{clients: clients}, nil
}

// USDCBalance reads the stablecoin contract's balanceOf(address) for the
// given network and converts the atomic uint256 result to human units
// (6 decimals, per spec.md §4.6).
func (p *EthChainProvider) USDCBalance(ctx context.Context, address, network string) (float64, error) {
	client, ok := p.clients[network]
	if !ok {
		return 0, fmt.Errorf("conway: no RPC client configured for network %q", network)
	}
	contractAddr, ok := StablecoinAddressFor(network)
	if !ok {
		return 0, fmt.Errorf("conway: no stablecoin address for network %q", network)
	}

	calldata := common.FromHex("0x" + erc20BalanceOfSelector + leftPad32(common.HexToAddress(address).Bytes()))
	msg := ethereum.CallMsg{
		To:   ptr(common.HexToAddress(contractAddr)),
		Data: calldata,
	}
	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return 0, fmt.Errorf("conway: eth_call balanceOf: %w", err)
	}

	atomic := new(big.Int).SetBytes(result)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(6), nil))
	human := new(big.Float).Quo(new(big.Float).SetInt(atomic), scale)
	f, _ := human.Float64()
	return f, nil
}

// StablecoinAddressFor maps a CAIP-2 network identifier to this
// deployment's stablecoin contract, per the wire-exact table in
// spec.md §4.6.
func StablecoinAddressFor(network string) (string, bool) {
	switch network {
	case NetworkBase:
		return "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", true
	case NetworkBaseSepolia:
		return "0x036CbD53842c5426634e7929541eC2318f3dCF7e", true
	default:
		return "", false
	}
}

func leftPad32(b []byte) string {
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return fmt.Sprintf("%x", padded)
}

func ptr(a common.Address) *common.Address { return &a }

var _ ChainProvider = (*EthChainProvider)(nil)
