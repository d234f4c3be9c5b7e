// Package evm executes swaps through Uniswap-style V2 routers on ETH and
// BSC. Buys spend the chain's native coin; sells move the full held token
// balance back to it, raising allowance first when needed.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"tokenagent/internal/market"
)

const (
	uniswapRouter = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
	pancakeRouter = "0x10ED43C718714eb63d5aA57B78B54704E256024E"
	wethAddress   = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	wbnbAddress   = "0xBB4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"

	swapDeadline = 10 * time.Minute
)

const routerABIJSON = `[
{"name":"getAmountsOut","type":"function","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"name":"swapExactETHForTokensSupportingFeeOnTransferTokens","type":"function","stateMutability":"payable","inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[]},
{"name":"swapExactTokensForETHSupportingFeeOnTransferTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[]}
]`

const erc20ABIJSON = `[
{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// ChainConfig wires one chain's backend.
type ChainConfig struct {
	RpcURL        string
	Router        string // defaults to the canonical V2 router per chain
	WrappedBase   string // defaults to WETH/WBNB
	PrivateKeyHex string
	GasLimit      uint64
}

type backend struct {
	client      *ethclient.Client
	chainID     *big.Int
	key         *ecdsa.PrivateKey
	from        common.Address
	router      common.Address
	wrappedBase common.Address
	gasLimit    uint64
}

// Router signs and submits swaps through the per-chain V2 routers.
type Router struct {
	log         zerolog.Logger
	slippageBps int
	backends    map[market.Chain]*backend
	routerABI   abi.ABI
	erc20ABI    abi.ABI
}

// New dials every configured chain. Chains with no RPC URL or key are
// skipped; a Router with zero backends is still usable for readiness
// reporting but rejects swaps.
func New(ctx context.Context, chains map[market.Chain]ChainConfig, slippageBps int, log zerolog.Logger) (*Router, error) {
	routerABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	if slippageBps <= 0 {
		slippageBps = 100
	}

	r := &Router{
		log:         log,
		slippageBps: slippageBps,
		backends:    make(map[market.Chain]*backend),
		routerABI:   routerABI,
		erc20ABI:    erc20ABI,
	}
	for chain, cfg := range chains {
		if cfg.RpcURL == "" || cfg.PrivateKeyHex == "" {
			continue
		}
		be, err := dialBackend(ctx, chain, cfg)
		if err != nil {
			log.Warn().Err(err).Str("chain", string(chain)).Msg("chain backend unavailable")
			continue
		}
		r.backends[chain] = be
	}
	return r, nil
}

func dialBackend(ctx context.Context, chain market.Chain, cfg ChainConfig) (*backend, error) {
	client, err := ethclient.DialContext(ctx, cfg.RpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	router := cfg.Router
	if router == "" {
		router = defaultRouterAddress(chain)
	}
	wrapped := cfg.WrappedBase
	if wrapped == "" {
		wrapped = defaultWrappedBase(chain)
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 350000
	}

	return &backend{
		client:      client,
		chainID:     chainID,
		key:         key,
		from:        crypto.PubkeyToAddress(key.PublicKey),
		router:      common.HexToAddress(router),
		wrappedBase: common.HexToAddress(wrapped),
		gasLimit:    gasLimit,
	}, nil
}

// defaultRouterAddress is the canonical V2 router for the chain.
func defaultRouterAddress(chain market.Chain) string {
	if chain == market.ChainBSC {
		return pancakeRouter
	}
	return uniswapRouter
}

// defaultWrappedBase is the wrapped native coin used as the swap path hop.
func defaultWrappedBase(chain market.Chain) string {
	if chain == market.ChainBSC {
		return wbnbAddress
	}
	return wethAddress
}

// SetSlippage retargets the tolerance applied to quoted outputs.
func (r *Router) SetSlippage(bps int) {
	if bps > 0 {
		r.slippageBps = bps
	}
}

// Ready reports whether the chain has a wired backend.
func (r *Router) Ready(chain market.Chain) bool {
	_, ok := r.backends[chain]
	return ok
}

// ReadyReport is a human-readable live-mode checklist.
func (r *Router) ReadyReport() string {
	mark := func(b bool) string {
		if b {
			return "ok"
		}
		return "MISSING"
	}
	lines := []string{
		"live readiness:",
		fmt.Sprintf("  ETH backend: %s", mark(r.Ready(market.ChainETH))),
		fmt.Sprintf("  BSC backend: %s", mark(r.Ready(market.ChainBSC))),
		fmt.Sprintf("  slippage: %dbps", r.slippageBps),
	}
	return strings.Join(lines, "\n")
}

// SwapBuy spends baseAmount of the native coin for the token, guarding the
// quoted output with the slippage tolerance.
func (r *Router) SwapBuy(ctx context.Context, token market.Token, baseAmount float64) (string, error) {
	be, ok := r.backends[token.Chain]
	if !ok {
		return "", fmt.Errorf("no backend for chain %s", token.Chain)
	}
	weiIn := floatToWei(baseAmount)
	if weiIn.Sign() <= 0 {
		return "", fmt.Errorf("base amount too small")
	}
	path := []common.Address{be.wrappedBase, common.HexToAddress(token.Address)}

	amounts, err := r.amountsOut(ctx, be, weiIn, path)
	if err != nil {
		return "", fmt.Errorf("quote: %w", err)
	}
	outMin := r.applySlippage(amounts[len(amounts)-1])

	data, err := r.routerABI.Pack(
		"swapExactETHForTokensSupportingFeeOnTransferTokens",
		outMin, path, be.from, deadline(),
	)
	if err != nil {
		return "", fmt.Errorf("pack swap: %w", err)
	}
	return r.send(ctx, be, be.router, weiIn, data)
}

// SwapSell moves the full held token balance back to the native coin. The
// usd hint only sizes the operator-facing report; the balance decides.
func (r *Router) SwapSell(ctx context.Context, token market.Token, usdHint float64) (string, error) {
	be, ok := r.backends[token.Chain]
	if !ok {
		return "", fmt.Errorf("no backend for chain %s", token.Chain)
	}
	tokenAddr := common.HexToAddress(token.Address)

	balance, err := r.erc20Balance(ctx, be, tokenAddr)
	if err != nil {
		return "", fmt.Errorf("balance: %w", err)
	}
	if balance.Sign() == 0 {
		return "", fmt.Errorf("no token balance to sell")
	}

	if err := r.ensureAllowance(ctx, be, tokenAddr, balance); err != nil {
		return "", fmt.Errorf("approve: %w", err)
	}

	path := []common.Address{tokenAddr, be.wrappedBase}
	amounts, err := r.amountsOut(ctx, be, balance, path)
	if err != nil {
		return "", fmt.Errorf("quote: %w", err)
	}
	outMin := r.applySlippage(amounts[len(amounts)-1])

	data, err := r.routerABI.Pack(
		"swapExactTokensForETHSupportingFeeOnTransferTokens",
		balance, outMin, path, be.from, deadline(),
	)
	if err != nil {
		return "", fmt.Errorf("pack swap: %w", err)
	}
	return r.send(ctx, be, be.router, nil, data)
}

func (r *Router) amountsOut(ctx context.Context, be *backend, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	data, err := r.routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	res, err := be.client.CallContract(ctx, ethereum.CallMsg{From: be.from, To: &be.router, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	vals, err := r.routerABI.Unpack("getAmountsOut", res)
	if err != nil {
		return nil, err
	}
	amounts, ok := vals[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("malformed getAmountsOut result")
	}
	return amounts, nil
}

func (r *Router) erc20Balance(ctx context.Context, be *backend, token common.Address) (*big.Int, error) {
	data, err := r.erc20ABI.Pack("balanceOf", be.from)
	if err != nil {
		return nil, err
	}
	res, err := be.client.CallContract(ctx, ethereum.CallMsg{From: be.from, To: &token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	vals, err := r.erc20ABI.Unpack("balanceOf", res)
	if err != nil {
		return nil, err
	}
	bal, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("malformed balanceOf result")
	}
	return bal, nil
}

func (r *Router) ensureAllowance(ctx context.Context, be *backend, token common.Address, amount *big.Int) error {
	data, err := r.erc20ABI.Pack("allowance", be.from, be.router)
	if err != nil {
		return err
	}
	res, err := be.client.CallContract(ctx, ethereum.CallMsg{From: be.from, To: &token, Data: data}, nil)
	if err != nil {
		return err
	}
	vals, err := r.erc20ABI.Unpack("allowance", res)
	if err != nil {
		return err
	}
	allowance, ok := vals[0].(*big.Int)
	if !ok {
		return fmt.Errorf("malformed allowance result")
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	approveData, err := r.erc20ABI.Pack("approve", be.router, amount)
	if err != nil {
		return err
	}
	tx, err := r.send(ctx, be, token, nil, approveData)
	if err != nil {
		return err
	}
	r.log.Info().Str("tx", tx).Msg("allowance raised")
	return nil
}

func (r *Router) send(ctx context.Context, be *backend, to common.Address, value *big.Int, data []byte) (string, error) {
	nonce, err := be.client.PendingNonceAt(ctx, be.from)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := be.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	if value == nil {
		value = big.NewInt(0)
	}
	tx := types.NewTransaction(nonce, to, value, be.gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(be.chainID), be.key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := be.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	return signed.Hash().Hex(), nil
}

func (r *Router) applySlippage(quoted *big.Int) *big.Int {
	keep := big.NewInt(int64(10000 - r.slippageBps))
	out := new(big.Int).Mul(quoted, keep)
	return out.Div(out, big.NewInt(10000))
}

func deadline() *big.Int {
	return big.NewInt(time.Now().Add(swapDeadline).Unix())
}

func floatToWei(amount float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e18)).Int(nil)
	if wei == nil {
		return big.NewInt(0)
	}
	return wei
}
