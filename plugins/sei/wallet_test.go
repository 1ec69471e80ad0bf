package sei

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/BaSui01/agentcore/types"
	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	walletAddr = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	otherAddr  = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	usdcAddr   = common.HexToAddress("0x3894085Ef7Ff0f0aeDf52E2A2704928d1Ec074F1")
)

type fakeToken struct {
	decimals uint8
	balances map[common.Address]*big.Int
}

// fakeBackend 以内存数据应答余额查询，合约调用按 ERC-20 ABI 编解码
type fakeBackend struct {
	mu       sync.Mutex
	native   map[common.Address]*big.Int
	tokens   map[common.Address]fakeToken
	err      error
	balances int
	calls    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		native: map[common.Address]*big.Int{
			walletAddr: mustBig("1500000000000000000"),
			otherAddr:  big.NewInt(42),
		},
		tokens: map[common.Address]fakeToken{
			usdcAddr: {decimals: 6, balances: map[common.Address]*big.Int{walletAddr: big.NewInt(12_345_000)}},
		},
	}
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int " + s)
	}
	return v
}

func (f *fakeBackend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.native[account]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg gethcore.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tok, ok := f.tokens[*msg.To]
	if !ok {
		return nil, nil
	}
	method, err := parsedERC20.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "balanceOf":
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		balance := tok.balances[args[0].(common.Address)]
		if balance == nil {
			balance = big.NewInt(0)
		}
		return method.Outputs.Pack(balance)
	case "decimals":
		return method.Outputs.Pack(tok.decimals)
	}
	return nil, errors.New("unsupported method " + method.Name)
}

type dialRecorder struct {
	mu      sync.Mutex
	urls    []string
	backend Backend
}

func (d *dialRecorder) dial(_ context.Context, url string) (Backend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	return d.backend, nil
}

func newTestWallet(t *testing.T, backend *fakeBackend) (*Wallet, *dialRecorder) {
	t.Helper()
	rec := &dialRecorder{backend: backend}
	w, err := NewWallet(WalletConfig{
		Address: walletAddr,
		RPCURLs: map[string]string{ChainTestnet: "http://localhost:8545"},
		Tokens:  map[string]map[string]common.Address{ChainMainnet: {"USDC": usdcAddr}},
		Dial:    rec.dial,
	})
	require.NoError(t, err)
	return w, rec
}

func strPtr(s string) *string { return &s }

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		value    *big.Int
		decimals int
		want     string
	}{
		{mustBig("1000000000000000000"), 18, "1.0"},
		{mustBig("1500000000000000000"), 18, "1.5"},
		{big.NewInt(42), 18, "0.000000000000000042"},
		{big.NewInt(0), 18, "0.0"},
		{big.NewInt(12_345_000), 6, "12.345"},
		{big.NewInt(-2_500_000), 6, "-2.5"},
		{big.NewInt(7), 0, "7.0"},
		{nil, 18, "0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUnits(tt.value, tt.decimals))
		})
	}
}

func TestLookupChain(t *testing.T) {
	c, ok := LookupChain("sei")
	require.True(t, ok)
	assert.Equal(t, int64(1329), c.ID)

	c, ok = LookupChain("SeiTestnet")
	require.True(t, ok)
	assert.Equal(t, int64(1328), c.ID)

	_, ok = LookupChain("ethereum")
	assert.False(t, ok)
	assert.Equal(t, []string{"sei", "seiTestnet"}, SupportedChains())
}

func TestAddressFromPrivateKey(t *testing.T) {
	addr, err := AddressFromPrivateKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	assert.Equal(t, walletAddr, addr)

	_, err = AddressFromPrivateKey("not-a-key")
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

func TestNewWallet_Validation(t *testing.T) {
	_, err := NewWallet(WalletConfig{})
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))

	_, err = NewWallet(WalletConfig{Address: walletAddr, DefaultChain: "ethereum"})
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))

	w, err := NewWallet(WalletConfig{Address: walletAddr})
	require.NoError(t, err)
	assert.Equal(t, ChainMainnet, w.DefaultChain())
}

func TestWallet_GetBalance(t *testing.T) {
	tests := []struct {
		name   string
		params GetBalanceParams
		want   Balance
	}{
		{
			name:   "native default",
			params: GetBalanceParams{},
			want:   Balance{Chain: ChainMainnet, Address: walletAddr, Token: "SEI", Amount: "1.5"},
		},
		{
			name:   "native by symbol",
			params: GetBalanceParams{Chain: "sei", Token: "Sei"},
			want:   Balance{Chain: ChainMainnet, Address: walletAddr, Token: "SEI", Amount: "1.5"},
		},
		{
			name:   "native of other address",
			params: GetBalanceParams{Chain: "sei", Address: strPtr(otherAddr.Hex()), Token: "SEI"},
			want:   Balance{Chain: ChainMainnet, Address: otherAddr, Token: "SEI", Amount: "0.000000000000000042"},
		},
		{
			name:   "empty address falls back to wallet",
			params: GetBalanceParams{Chain: "sei", Address: strPtr(""), Token: "SEI"},
			want:   Balance{Chain: ChainMainnet, Address: walletAddr, Token: "SEI", Amount: "1.5"},
		},
		{
			name:   "token by address",
			params: GetBalanceParams{Chain: "sei", Token: usdcAddr.Hex()},
			want:   Balance{Chain: ChainMainnet, Address: walletAddr, Token: usdcAddr.Hex(), Amount: "12.345"},
		},
		{
			name:   "token by symbol",
			params: GetBalanceParams{Chain: "sei", Token: "usdc"},
			want:   Balance{Chain: ChainMainnet, Address: walletAddr, Token: "USDC", Amount: "12.345"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWallet(t, newFakeBackend())
			got, err := w.GetBalance(context.Background(), tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestWallet_GetBalance_Errors(t *testing.T) {
	tests := []struct {
		name     string
		params   GetBalanceParams
		wantCode types.ErrorCode
	}{
		{"unsupported chain", GetBalanceParams{Chain: "ethereum"}, types.ErrInvalidInput},
		{"invalid address", GetBalanceParams{Address: strPtr("vitalik.eth")}, types.ErrInvalidInput},
		{"invalid token address", GetBalanceParams{Token: "0x1234"}, types.ErrInvalidInput},
		{"unknown symbol", GetBalanceParams{Token: "WETH"}, types.ErrInvalidInput},
		{"symbol not configured on testnet", GetBalanceParams{Chain: ChainTestnet, Token: "USDC"}, types.ErrInvalidInput},
		{"no contract", GetBalanceParams{Token: otherAddr.Hex()}, types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWallet(t, newFakeBackend())
			_, err := w.GetBalance(context.Background(), tt.params)
			assert.True(t, types.IsErrorCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestWallet_GetBalance_UpstreamError(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errors.New("connection refused")
	w, _ := newTestWallet(t, backend)

	_, err := w.GetBalance(context.Background(), GetBalanceParams{})
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
	assert.ErrorIs(t, err, backend.err)
}

func TestWallet_BackendPerChain(t *testing.T) {
	backend := newFakeBackend()
	w, rec := newTestWallet(t, backend)
	ctx := context.Background()

	for range 3 {
		_, err := w.GetBalance(ctx, GetBalanceParams{Chain: ChainMainnet})
		require.NoError(t, err)
	}
	_, err := w.GetBalance(ctx, GetBalanceParams{Chain: ChainTestnet})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://evm-rpc.sei-apis.com", "http://localhost:8545"}, rec.urls)
	assert.Equal(t, 4, backend.balances)

	w.Close()
	_, err = w.GetBalance(ctx, GetBalanceParams{})
	require.NoError(t, err)
	assert.Len(t, rec.urls, 3)
}
