package sei

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/llm/generation"
	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

const getBalanceTemplate = `Given the recent messages and wallet information below:

{{recentMessages}}

{{walletInfo}}

Extract the following information about the requested check balance:
- Chain to execute on. Must be one of ["sei", "seiTestnet"]. Default is "sei".
- Address to check balance for. Optional, must be a valid Ethereum address starting with "0x". If not provided, use the Sei chain Wallet Address.
- Token symbol or address. Could be a token symbol or address. If the address is provided, it must be a valid Ethereum address starting with "0x". Default is "Sei".
If any field is not provided, use the default value. If no default value is specified, use null.

Respond with a JSON markdown block containing only the extracted values. Use null for any values that cannot be determined:

` + "```json" + `
{
    "chain": "sei" | "seiTestnet",
    "address": string | null,
    "token": string
}
` + "```" + `
`

func balanceSchema() *generation.Schema {
	s := generation.NewObjectSchema().
		AddProperty("chain", generation.NewEnumSchema(SupportedChains()...).WithDescription("chain to query")).
		AddProperty("address", generation.NewStringSchema().WithDescription("0x address, null for the agent wallet").AsNullable()).
		AddProperty("token", generation.NewStringSchema().WithDescription("token symbol or 0x contract address"))
	return s.AddRequired("chain", "token")
}

type getBalanceAction struct {
	plugin *plugin
	wallet *walletProvider
}

var _ agent.Action = (*getBalanceAction)(nil)

func (a *getBalanceAction) Name() string      { return "GET_BALANCE" }
func (a *getBalanceAction) Similes() []string { return []string{"CHECK_BALANCE"} }
func (a *getBalanceAction) Description() string {
	return "Get balance of a token or all tokens for the given address"
}

func (a *getBalanceAction) Examples() [][]types.ActionExample {
	example := func(ask, reply, chain, token string, address any) []types.ActionExample {
		return []types.ActionExample{
			{User: "{{user1}}", Content: types.Content{Text: ask}},
			{User: "{{user2}}", Content: types.Content{
				Text:   reply,
				Action: "GET_BALANCE",
				Extra:  map[string]any{"chain": chain, "address": address, "token": token},
			}},
		}
	}
	return [][]types.ActionExample{
		example("Check my balance of USDC", "I'll help you check your balance of USDC", ChainMainnet, "USDC", "{{walletAddress}}"),
		example("Check my balance of token 0x1234", "I'll help you check your balance of token 0x1234", ChainMainnet, "0x1234", "{{walletAddress}}"),
		example("Get USDC balance of 0x1234", "I'll help you check USDC balance of 0x1234", ChainMainnet, "USDC", "0x1234"),
		example("Check my wallet balance on sei", "I'll help you check your wallet balance on sei", ChainMainnet, "SEI", "{{walletAddress}}"),
		example("Check my wallet balance on Sei Testnet", "I'll help you check your wallet balance on Sei Testnet", ChainTestnet, "SEI", "{{walletAddress}}"),
	}
}

// Validate 仅在能解析出钱包地址时可用
func (a *getBalanceAction) Validate(_ context.Context, rt *agent.Runtime, _ *types.Memory, _ *types.State) (bool, error) {
	_, err := a.plugin.walletFor(rt)
	return err == nil, nil
}

func (a *getBalanceAction) Handle(ctx context.Context, rt *agent.Runtime, msg *types.Memory, state *types.State, cb agent.HandlerCallback) error {
	w, err := a.plugin.walletFor(rt)
	if err != nil {
		return err
	}

	if state == nil {
		state, err = rt.ComposeState(ctx, *msg, nil)
	} else {
		state, err = rt.UpdateRecentMessageState(ctx, state)
	}
	if err != nil {
		return err
	}
	if info, err := a.wallet.Get(ctx, rt, msg, state); err != nil {
		a.plugin.logger.Warn("wallet info unavailable", zap.Error(err))
	} else {
		state.Set("walletInfo", info)
	}

	gen := rt.Generator()
	if gen == nil {
		return types.NewError(types.ErrConfiguration, "GET_BALANCE requires a generator")
	}
	params, err := generation.GenerateObjectInto[GetBalanceParams](ctx, gen, generation.ObjectRequest{
		Context:           agent.ComposeContext(state, types.Literal(getBalanceTemplate)),
		ModelClass:        types.ModelClassLarge,
		Schema:            balanceSchema(),
		SchemaName:        "GetBalance",
		SchemaDescription: "Parameters of a Sei balance query",
	})
	if err != nil {
		return a.fail(ctx, cb, err)
	}

	target := w.Address().Hex()
	if params.Address != nil && strings.TrimSpace(*params.Address) != "" {
		target = strings.TrimSpace(*params.Address)
	}
	chain := params.Chain
	if chain == "" {
		chain = w.DefaultChain()
	}

	bal, err := w.GetBalance(ctx, params)
	if types.IsErrorCode(err, types.ErrNotFound) {
		return emit(ctx, cb, types.Content{Text: fmt.Sprintf("No balance found for %s on %s", target, chain)})
	}
	if err != nil {
		return a.fail(ctx, cb, err)
	}

	a.plugin.logger.Info("balance checked",
		zap.String("chain", bal.Chain),
		zap.String("address", bal.Address.Hex()),
		zap.String("token", bal.Token),
		zap.String("amount", bal.Amount))
	return emit(ctx, cb, types.Content{
		Text: fmt.Sprintf("Balance of %s on %s:\n%s: %s", bal.Address.Hex(), bal.Chain, bal.Token, bal.Amount),
		Extra: map[string]any{
			"chain":   bal.Chain,
			"address": bal.Address.Hex(),
			"token":   bal.Token,
			"amount":  bal.Amount,
		},
	})
}

// failureText 面向用户的固定失败提示，错误详情只进日志和 Extra
const failureText = "Unable to fetch the balance right now. Please try again later."

// fail 通过回调报告失败并返回原始错误
func (a *getBalanceAction) fail(ctx context.Context, cb agent.HandlerCallback, err error) error {
	a.plugin.logger.Warn("get balance failed", zap.Error(err))
	_ = emit(ctx, cb, types.Content{
		Text:  failureText,
		Extra: map[string]any{"error": err.Error()},
	})
	return err
}

func emit(ctx context.Context, cb agent.HandlerCallback, content types.Content) error {
	if cb == nil {
		return nil
	}
	_, err := cb(ctx, content)
	return err
}
