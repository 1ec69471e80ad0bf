package sei

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/cache"
	"github.com/BaSui01/agentcore/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 钱包相关的角色设置键
const (
	SettingAddress    = "SEI_ADDRESS"
	SettingPrivateKey = "SEI_PRIVATE_KEY"
	SettingNetwork    = "SEI_NETWORK"
	SettingRPCURL     = "SEI_RPC_URL"
)

// DefaultCacheTTL 钱包信息的默认缓存时间
const DefaultCacheTTL = 5 * time.Minute

// Options 插件配置
type Options struct {
	// RPCURLs 按网络名覆盖默认 RPC 地址，SEI_RPC_URL 优先
	RPCURLs map[string]string
	// Tokens 网络名 -> 代币符号 -> 合约地址，用于按符号查询 ERC-20 余额
	Tokens map[string]map[string]string
	Dial   DialFunc
	// CacheTTL 钱包信息在运行时缓存中的保存时间，负数表示不缓存
	CacheTTL time.Duration
	Logger   *zap.Logger
}

type plugin struct {
	opts   Options
	tokens map[string]map[string]common.Address
	logger *zap.Logger

	mu      sync.Mutex
	wallets map[uuid.UUID]*Wallet
}

// NewPlugin 创建 Sei 插件：GET_BALANCE 动作与钱包提供者
func NewPlugin(opts Options) agent.Plugin {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	p := &plugin{
		opts:    opts,
		tokens:  make(map[string]map[string]common.Address),
		logger:  opts.Logger.With(zap.String("plugin", "sei")),
		wallets: make(map[uuid.UUID]*Wallet),
	}
	for chain, symbols := range opts.Tokens {
		for symbol, addr := range symbols {
			if !common.IsHexAddress(addr) {
				p.logger.Warn("ignoring invalid token address",
					zap.String("chain", chain), zap.String("symbol", symbol), zap.String("address", addr))
				continue
			}
			if p.tokens[chain] == nil {
				p.tokens[chain] = make(map[string]common.Address)
			}
			p.tokens[chain][strings.ToUpper(symbol)] = common.HexToAddress(addr)
		}
	}

	provider := &walletProvider{plugin: p}
	return agent.Plugin{
		Name:        "sei",
		Description: "Sei EVM wallet integration: balance queries for SEI and ERC-20 tokens",
		Actions:     []agent.Action{&getBalanceAction{plugin: p, wallet: provider}},
		Providers:   []agent.Provider{provider},
	}
}

// walletFor 返回运行时对应的钱包，首次调用时根据角色设置创建
func (p *plugin) walletFor(rt *agent.Runtime) (*Wallet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.wallets[rt.AgentID()]; ok {
		return w, nil
	}

	address, err := ResolveAddress(rt.GetSetting)
	if err != nil {
		return nil, err
	}
	network := rt.GetSetting(SettingNetwork)
	if network == "" {
		network = ChainMainnet
	}
	chain, ok := LookupChain(network)
	if !ok {
		return nil, types.Errorf(types.ErrConfiguration, "unsupported %s %q", SettingNetwork, network)
	}

	rpcURLs := make(map[string]string, len(p.opts.RPCURLs)+1)
	for k, v := range p.opts.RPCURLs {
		rpcURLs[k] = v
	}
	if url := rt.GetSetting(SettingRPCURL); url != "" {
		rpcURLs[chain.Name] = url
	}

	w, err := NewWallet(WalletConfig{
		Address:      address,
		DefaultChain: chain.Name,
		RPCURLs:      rpcURLs,
		Tokens:       p.tokens,
		Dial:         p.opts.Dial,
		Logger:       p.logger,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("sei wallet ready",
		zap.String("agent_id", rt.AgentID().String()),
		zap.String("address", address.Hex()),
		zap.String("chain", chain.Name))
	p.wallets[rt.AgentID()] = w
	return w, nil
}

// ResolveAddress 优先使用 SEI_ADDRESS，否则从 SEI_PRIVATE_KEY 推导地址
func ResolveAddress(getSetting func(string) string) (common.Address, error) {
	if raw := strings.TrimSpace(getSetting(SettingAddress)); raw != "" {
		if !common.IsHexAddress(raw) {
			return common.Address{}, types.Errorf(types.ErrConfiguration, "invalid %s %q", SettingAddress, raw)
		}
		return common.HexToAddress(raw), nil
	}
	if key := getSetting(SettingPrivateKey); key != "" {
		return AddressFromPrivateKey(key)
	}
	return common.Address{}, types.Errorf(types.ErrConfiguration, "%s or %s is required", SettingAddress, SettingPrivateKey)
}

// =============================================================================
// 钱包提供者
// =============================================================================

type walletProvider struct {
	plugin *plugin
}

var _ agent.Provider = (*walletProvider)(nil)

func (p *walletProvider) Name() string { return "seiWallet" }

// Get 渲染钱包地址与默认网络上的原生余额
func (p *walletProvider) Get(ctx context.Context, rt *agent.Runtime, _ *types.Memory, _ *types.State) (string, error) {
	w, err := p.plugin.walletFor(rt)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("sei:wallet:%s:%s", w.DefaultChain(), strings.ToLower(w.Address().Hex()))
	c := rt.Cache()
	if c != nil && p.plugin.opts.CacheTTL > 0 {
		if v, err := c.Get(ctx, key); err == nil {
			return v, nil
		} else if !cache.IsCacheMiss(err) {
			p.plugin.logger.Warn("wallet cache read failed", zap.Error(err))
		}
	}

	bal, err := w.GetBalance(ctx, GetBalanceParams{Chain: w.DefaultChain()})
	if err != nil {
		return "", err
	}
	info := fmt.Sprintf("%s's Sei Wallet Address: %s\nBalance: %s %s\nChain: %s",
		rt.Character().Name, bal.Address.Hex(), bal.Amount, bal.Token, bal.Chain)

	if c != nil && p.plugin.opts.CacheTTL > 0 {
		if err := c.Set(ctx, key, info, p.plugin.opts.CacheTTL); err != nil {
			p.plugin.logger.Warn("wallet cache write failed", zap.Error(err))
		}
	}
	return info, nil
}
