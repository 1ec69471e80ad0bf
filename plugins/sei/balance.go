package sei

import (
	"context"
	"strings"

	"github.com/BaSui01/agentcore/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// GetBalanceParams 从对话中抽取的余额查询参数
type GetBalanceParams struct {
	Chain string `json:"chain"`
	// Address 为空时查询钱包自身地址
	Address *string `json:"address"`
	// Token 为空或 "sei" 时查询原生余额，0x 开头为合约地址，否则按代币符号查找
	Token string `json:"token"`
}

// Balance 余额查询结果
type Balance struct {
	Chain   string
	Address common.Address
	Token   string
	// Amount 按代币精度格式化后的数量
	Amount string
}

// GetBalance 查询地址在指定网络上的原生或 ERC-20 余额
func (w *Wallet) GetBalance(ctx context.Context, params GetBalanceParams) (*Balance, error) {
	chainName := strings.TrimSpace(params.Chain)
	if chainName == "" {
		chainName = w.defaultChain
	}
	chain, ok := LookupChain(chainName)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidInput, "unsupported chain %q, must be one of %s",
			chainName, strings.Join(SupportedChains(), ", "))
	}

	holder := w.address
	if params.Address != nil {
		if raw := strings.TrimSpace(*params.Address); raw != "" {
			if !common.IsHexAddress(raw) {
				return nil, types.Errorf(types.ErrInvalidInput, "invalid address %q", raw)
			}
			holder = common.HexToAddress(raw)
		}
	}

	token := strings.TrimSpace(params.Token)
	w.logger.Debug("checking balance",
		zap.String("chain", chain.Name),
		zap.String("address", holder.Hex()),
		zap.String("token", token))

	if token == "" || strings.EqualFold(token, chain.NativeSymbol) {
		wei, err := w.NativeBalance(ctx, chain, holder)
		if err != nil {
			return nil, err
		}
		return &Balance{
			Chain:   chain.Name,
			Address: holder,
			Token:   chain.NativeSymbol,
			Amount:  FormatUnits(wei, chain.NativeDecimals),
		}, nil
	}

	var contract common.Address
	label := token
	switch {
	case strings.HasPrefix(token, "0x") || strings.HasPrefix(token, "0X"):
		if !common.IsHexAddress(token) {
			return nil, types.Errorf(types.ErrInvalidInput, "invalid token address %q", token)
		}
		contract = common.HexToAddress(token)
	default:
		addr, ok := w.lookupToken(chain.Name, token)
		if !ok {
			return nil, types.Errorf(types.ErrInvalidInput, "token %s is not configured on %s", token, chain.Name)
		}
		contract = addr
		label = strings.ToUpper(token)
	}

	raw, decimals, err := w.TokenBalance(ctx, chain, contract, holder)
	if err != nil {
		return nil, err
	}
	return &Balance{
		Chain:   chain.Name,
		Address: holder,
		Token:   label,
		Amount:  FormatUnits(raw, int(decimals)),
	}, nil
}
