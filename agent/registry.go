package agent

import (
	"strings"
	"sync"

	"github.com/BaSui01/agentcore/memory"
	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

// Registry 按名称管理动作、评估器、提供者与记忆管理器。
// 名称按大小写不敏感比较，重复注册返回 ErrDuplicateName。
type Registry struct {
	mu         sync.RWMutex
	actions    []Action
	evaluators []Evaluator
	providers  []Provider
	managers   map[string]*memory.Manager
	logger     *zap.Logger
}

// NewRegistry 创建空注册表
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		managers: make(map[string]*memory.Manager),
		logger:   logger.With(zap.String("component", "agent_registry")),
	}
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// RegisterAction 注册动作，名称重复时返回 ErrDuplicateName
func (r *Registry) RegisterAction(a Action) error {
	name := normalizeName(a.Name())
	if name == "" {
		return types.NewError(types.ErrInvalidInput, "action name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.actions {
		if normalizeName(existing.Name()) == name {
			return types.Errorf(types.ErrDuplicateName, "action %q already registered", a.Name())
		}
	}
	r.actions = append(r.actions, a)
	r.logger.Debug("action registered", zap.String("action", a.Name()))
	return nil
}

// RegisterEvaluator 注册评估器
func (r *Registry) RegisterEvaluator(e Evaluator) error {
	name := normalizeName(e.Name())
	if name == "" {
		return types.NewError(types.ErrInvalidInput, "evaluator name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.evaluators {
		if normalizeName(existing.Name()) == name {
			return types.Errorf(types.ErrDuplicateName, "evaluator %q already registered", e.Name())
		}
	}
	r.evaluators = append(r.evaluators, e)
	r.logger.Debug("evaluator registered", zap.String("evaluator", e.Name()))
	return nil
}

// RegisterProvider 注册上下文提供者
func (r *Registry) RegisterProvider(p Provider) error {
	name := normalizeName(p.Name())
	if name == "" {
		return types.NewError(types.ErrInvalidInput, "provider name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.providers {
		if normalizeName(existing.Name()) == name {
			return types.Errorf(types.ErrDuplicateName, "provider %q already registered", p.Name())
		}
	}
	r.providers = append(r.providers, p)
	return nil
}

// RegisterMemoryManager 按表名注册记忆管理器
func (r *Registry) RegisterMemoryManager(m *memory.Manager) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.managers[m.TableName()]; exists {
		return types.Errorf(types.ErrDuplicateName, "memory manager for table %q already registered", m.TableName())
	}
	r.managers[m.TableName()] = m
	return nil
}

// GetMemoryManager 返回表名对应的记忆管理器，不存在时返回 nil
func (r *Registry) GetMemoryManager(tableName string) *memory.Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.managers[tableName]
}

// RegisterPlugin 注册插件中的全部能力，遇到第一个错误即返回
func (r *Registry) RegisterPlugin(p Plugin) error {
	for _, a := range p.Actions {
		if err := r.RegisterAction(a); err != nil {
			return err
		}
	}
	for _, e := range p.Evaluators {
		if err := r.RegisterEvaluator(e); err != nil {
			return err
		}
	}
	for _, pr := range p.Providers {
		if err := r.RegisterProvider(pr); err != nil {
			return err
		}
	}
	r.logger.Info("plugin registered",
		zap.String("plugin", p.Name),
		zap.Int("actions", len(p.Actions)),
		zap.Int("evaluators", len(p.Evaluators)),
		zap.Int("providers", len(p.Providers)),
	)
	return nil
}

// Actions 返回已注册动作的副本，按注册顺序
func (r *Registry) Actions() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Action(nil), r.actions...)
}

// Evaluators 返回已注册评估器的副本
func (r *Registry) Evaluators() []Evaluator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Evaluator(nil), r.evaluators...)
}

// Providers 返回已注册提供者的副本
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Provider(nil), r.providers...)
}

// FindAction 按名称或别名查找动作（大小写不敏感，精确匹配）
func (r *Registry) FindAction(name string) (Action, bool) {
	want := normalizeName(name)
	if want == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actions {
		if normalizeName(a.Name()) == want {
			return a, true
		}
	}
	for _, a := range r.actions {
		for _, s := range a.Similes() {
			if normalizeName(s) == want {
				return a, true
			}
		}
	}
	return nil, false
}
