package agent

import (
	"testing"

	"github.com/BaSui01/agentcore/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.RegisterAction(&ActionFunc{ActionName: "GET_BALANCE"}))
	err := r.RegisterAction(&ActionFunc{ActionName: " get_balance "})
	assert.True(t, types.IsErrorCode(err, types.ErrDuplicateName))
	err = r.RegisterAction(&ActionFunc{ActionName: "  "})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidInput))

	require.NoError(t, r.RegisterEvaluator(&EvaluatorFunc{EvaluatorName: "FACTS"}))
	err = r.RegisterEvaluator(&EvaluatorFunc{EvaluatorName: "facts"})
	assert.True(t, types.IsErrorCode(err, types.ErrDuplicateName))

	wallet := &ProviderFunc{ProviderName: "wallet"}
	require.NoError(t, r.RegisterProvider(wallet))
	err = r.RegisterProvider(wallet)
	assert.True(t, types.IsErrorCode(err, types.ErrDuplicateName))

	assert.Len(t, r.Actions(), 1)
	assert.Len(t, r.Evaluators(), 1)
	assert.Len(t, r.Providers(), 1)
}

func TestRegistry_FindAction(t *testing.T) {
	r := NewRegistry(nil)
	balance := &ActionFunc{ActionName: "GET_BALANCE", ActionSimiles: []string{"CHECK_BALANCE"}}
	transfer := &ActionFunc{ActionName: "TRANSFER", ActionSimiles: []string{"GET_BALANCE_AND_SEND"}}
	require.NoError(t, r.RegisterAction(balance))
	require.NoError(t, r.RegisterAction(transfer))

	tests := []struct {
		name string
		want Action
	}{
		{"GET_BALANCE", balance},
		{"get_balance", balance},
		{"check_balance", balance},
		{"GET_BALANCE_AND_SEND", transfer},
		{"BALANCE", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.FindAction(tt.name)
			assert.Equal(t, tt.want != nil, ok)
			if tt.want != nil {
				assert.Same(t, tt.want, got)
			}
		})
	}
}

func TestRegistry_Plugin(t *testing.T) {
	r := NewRegistry(nil)
	plugin := Plugin{
		Name:       "sei",
		Actions:    []Action{&ActionFunc{ActionName: "GET_BALANCE"}},
		Evaluators: []Evaluator{&EvaluatorFunc{EvaluatorName: "FACTS"}},
		Providers:  []Provider{&ProviderFunc{ProviderName: "wallet"}},
	}
	require.NoError(t, r.RegisterPlugin(plugin))
	assert.Len(t, r.Actions(), 1)
	assert.Len(t, r.Evaluators(), 1)
	assert.Len(t, r.Providers(), 1)

	err := r.RegisterPlugin(plugin)
	assert.True(t, types.IsErrorCode(err, types.ErrDuplicateName))
}

func TestRegistry_CopiesAreIndependent(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterAction(&ActionFunc{ActionName: "A"}))
	actions := r.Actions()
	actions[0] = &ActionFunc{ActionName: "B"}
	assert.Equal(t, "A", r.Actions()[0].Name())
}
