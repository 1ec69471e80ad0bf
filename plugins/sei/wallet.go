package sei

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/BaSui01/agentcore/types"
	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

var parsedERC20 = mustParseABI(erc20ABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("sei: invalid ERC-20 ABI: %v", err))
	}
	return parsed
}

// Backend 余额查询所需的链访问接口，*ethclient.Client 满足该接口
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg gethcore.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DialFunc 按 RPC 地址创建 Backend
type DialFunc func(ctx context.Context, rpcURL string) (Backend, error)

// DialEthclient 通过 JSON-RPC 连接 EVM 节点
func DialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, errors.New("未配置 Sei RPC 地址")
	}
	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接 Sei 节点失败: %w", err)
	}
	return ethclient.NewClient(rpcClient), nil
}

// Wallet 只读钱包：持有默认地址，按网络懒加载 Backend
type Wallet struct {
	address      common.Address
	defaultChain string
	rpcURLs      map[string]string
	tokens       map[string]map[string]common.Address
	dial         DialFunc
	logger       *zap.Logger

	mu       sync.Mutex
	backends map[string]Backend
}

// WalletConfig NewWallet 的参数
type WalletConfig struct {
	Address      common.Address
	DefaultChain string
	// RPCURLs 按网络名覆盖默认 RPC 地址
	RPCURLs map[string]string
	// Tokens 网络名 -> 大写代币符号 -> 合约地址
	Tokens map[string]map[string]common.Address
	Dial   DialFunc
	Logger *zap.Logger
}

// NewWallet 创建钱包，DefaultChain 为空时使用主网
func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.Address == (common.Address{}) {
		return nil, types.NewError(types.ErrConfiguration, "sei wallet address is required")
	}
	if cfg.DefaultChain == "" {
		cfg.DefaultChain = ChainMainnet
	}
	chain, ok := LookupChain(cfg.DefaultChain)
	if !ok {
		return nil, types.Errorf(types.ErrConfiguration, "unsupported sei network %q", cfg.DefaultChain)
	}
	if cfg.Dial == nil {
		cfg.Dial = DialEthclient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Wallet{
		address:      cfg.Address,
		defaultChain: chain.Name,
		rpcURLs:      cfg.RPCURLs,
		tokens:       cfg.Tokens,
		dial:         cfg.Dial,
		logger:       cfg.Logger.With(zap.String("component", "sei_wallet")),
		backends:     make(map[string]Backend),
	}, nil
}

// Address 钱包地址
func (w *Wallet) Address() common.Address { return w.address }

// DefaultChain 默认网络名称
func (w *Wallet) DefaultChain() string { return w.defaultChain }

// AddressFromPrivateKey 由十六进制私钥推导地址，允许 0x 前缀
func AddressFromPrivateKey(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return common.Address{}, types.NewError(types.ErrConfiguration, "invalid SEI_PRIVATE_KEY").WithCause(err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func (w *Wallet) backend(ctx context.Context, chain Chain) (Backend, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if b, ok := w.backends[chain.Name]; ok {
		return b, nil
	}
	url := chain.RPCURL
	if override := w.rpcURLs[chain.Name]; override != "" {
		url = override
	}
	b, err := w.dial(ctx, url)
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "dial sei rpc").WithCause(err).WithRetryable(true)
	}
	w.logger.Debug("sei backend connected", zap.String("chain", chain.Name), zap.String("rpc", url))
	w.backends[chain.Name] = b
	return b, nil
}

// NativeBalance 查询原生 SEI 余额（wei）
func (w *Wallet) NativeBalance(ctx context.Context, chain Chain, holder common.Address) (*big.Int, error) {
	b, err := w.backend(ctx, chain)
	if err != nil {
		return nil, err
	}
	balance, err := b.BalanceAt(ctx, holder, nil)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "查询余额失败").WithCause(err)
	}
	return balance, nil
}

// TokenBalance 查询 ERC-20 余额与精度。合约地址上没有代码时返回 ErrNotFound。
func (w *Wallet) TokenBalance(ctx context.Context, chain Chain, token, holder common.Address) (*big.Int, uint8, error) {
	b, err := w.backend(ctx, chain)
	if err != nil {
		return nil, 0, err
	}

	out, err := w.call(ctx, b, token, "balanceOf", holder)
	if err != nil {
		return nil, 0, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, 0, types.Errorf(types.ErrUpstreamError, "unexpected balanceOf output %T", out[0])
	}

	out, err = w.call(ctx, b, token, "decimals")
	if err != nil {
		return nil, 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return nil, 0, types.Errorf(types.ErrUpstreamError, "unexpected decimals output %T", out[0])
	}
	return balance, decimals, nil
}

func (w *Wallet) call(ctx context.Context, b Backend, contract common.Address, method string, args ...any) ([]any, error) {
	data, err := parsedERC20.Pack(method, args...)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidInput, "打包调用数据失败").WithCause(err)
	}
	raw, err := b.CallContract(ctx, gethcore.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, types.Errorf(types.ErrUpstreamError, "调用合约 %s 失败", method).WithCause(err)
	}
	if len(raw) == 0 {
		return nil, types.Errorf(types.ErrNotFound, "no contract at %s", contract.Hex())
	}
	out, err := parsedERC20.Unpack(method, raw)
	if err != nil {
		return nil, types.Errorf(types.ErrUpstreamError, "解析 %s 返回值失败", method).WithCause(err)
	}
	if len(out) == 0 {
		return nil, types.Errorf(types.ErrUpstreamError, "%s returned no values", method)
	}
	return out, nil
}

// lookupToken 按符号查找已配置的代币合约
func (w *Wallet) lookupToken(chain, symbol string) (common.Address, bool) {
	addr, ok := w.tokens[chain][strings.ToUpper(symbol)]
	return addr, ok
}

// Close 关闭已建立的连接
func (w *Wallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, b := range w.backends {
		if c, ok := b.(interface{ Close() }); ok {
			c.Close()
		}
		delete(w.backends, name)
	}
}

// FormatUnits 将最小单位的整数按精度格式化为十进制字符串，
// 去掉小数末尾的 0 但至少保留一位小数，例如 1.5、2.0。
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0.0"
	}
	v := new(big.Int).Set(value)
	sign := ""
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	if decimals <= 0 {
		return sign + v.String() + ".0"
	}

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, base, new(big.Int))

	fracStr := frac.String()
	if len(fracStr) < decimals {
		fracStr = strings.Repeat("0", decimals-len(fracStr)) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		fracStr = "0"
	}
	return sign + whole.String() + "." + fracStr
}
