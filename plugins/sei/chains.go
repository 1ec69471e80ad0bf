package sei

import (
	"sort"
	"strings"
)

// Chain 支持的 Sei EVM 网络
type Chain struct {
	Name           string
	ID             int64
	NativeSymbol   string
	NativeDecimals int
	RPCURL         string
	ExplorerURL    string
}

const (
	ChainMainnet = "sei"
	ChainTestnet = "seiTestnet"
)

var chains = map[string]Chain{
	ChainMainnet: {
		Name:           ChainMainnet,
		ID:             1329,
		NativeSymbol:   "SEI",
		NativeDecimals: 18,
		RPCURL:         "https://evm-rpc.sei-apis.com",
		ExplorerURL:    "https://seitrace.com",
	},
	ChainTestnet: {
		Name:           ChainTestnet,
		ID:             1328,
		NativeSymbol:   "SEI",
		NativeDecimals: 18,
		RPCURL:         "https://evm-rpc-testnet.sei-apis.com",
		ExplorerURL:    "https://seitrace.com/?chain=atlantic-2",
	},
}

// LookupChain 按名称查找网络，大小写不敏感
func LookupChain(name string) (Chain, bool) {
	name = strings.TrimSpace(name)
	if c, ok := chains[name]; ok {
		return c, true
	}
	for key, c := range chains {
		if strings.EqualFold(key, name) {
			return c, true
		}
	}
	return Chain{}, false
}

// SupportedChains 返回排序后的网络名称
func SupportedChains() []string {
	names := make([]string, 0, len(chains))
	for name := range chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
