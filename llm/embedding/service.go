package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Cache 嵌入结果缓存，cache.Manager 满足该接口
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Type 嵌入来源类型
type Type string

const (
	TypeLocal  Type = "local"
	TypeRemote Type = "remote"
)

// Service 运行时使用的嵌入服务。Embed 从不返回错误：
// 提供者失败、空响应或维度不一致时返回 ZeroVector(dimensions)。
type Service struct {
	provider Provider
	dims     int
	model    string
	local    bool
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
	observe  func(fallback bool)
}

// ServiceOption 配置 Service
type ServiceOption func(*Service)

// WithCache 启用嵌入缓存
func WithCache(c Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver 每次嵌入完成后回调，fallback 表示返回了零向量
func WithObserver(fn func(fallback bool)) ServiceOption {
	return func(s *Service) { s.observe = fn }
}

// NewService 基于提供者创建服务，维度取自提供者
func NewService(provider Provider, opts ...ServiceOption) *Service {
	s := &Service{
		provider: provider,
		dims:     provider.Dimensions(),
		model:    provider.Name(),
		logger:   zap.NewNop(),
	}
	_, s.local = provider.(*LocalProvider)
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "embedding"), zap.String("provider", provider.Name()))
	return s
}

// NewServiceFromConfig 按配置创建提供者与服务
func NewServiceFromConfig(cfg Config, opts ...ServiceOption) (*Service, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	s := NewService(provider, opts...)
	if cfg.Model != "" {
		s.model = string(cfg.Provider) + ":" + cfg.Model
	}
	return s, nil
}

// Dimensions 返回向量维度
func (s *Service) Dimensions() int { return s.dims }

// Type 返回嵌入来源类型
func (s *Service) Type() Type {
	if s.local {
		return TypeLocal
	}
	return TypeRemote
}

// ZeroVector 返回当前维度的零向量
func (s *Service) ZeroVector() []float32 { return ZeroVector(s.dims) }

// Embed 嵌入单段文本，失败时退化为零向量
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	key := s.cacheKey(text)
	if vec, ok := s.fromCache(ctx, key); ok {
		return vec
	}

	var vec []float32
	vecs, err := s.provider.Embed(ctx, []string{text})
	if len(vecs) > 0 {
		vec = vecs[0]
	}
	if err != nil {
		s.logger.Warn("embedding failed, using zero vector", zap.Error(err))
		s.report(true)
		return s.ZeroVector()
	}
	if len(vec) != s.dims {
		s.logger.Warn("embedding dimension mismatch, using zero vector",
			zap.Int("expected", s.dims),
			zap.Int("actual", len(vec)),
		)
		s.report(true)
		return s.ZeroVector()
	}

	s.toCache(ctx, key, vec)
	s.report(false)
	return vec
}

// EmbedBatch 批量嵌入，批量调用失败时逐条回退到 Embed
func (s *Service) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	pending := make([]int, 0, len(texts))
	for i, t := range texts {
		if vec, ok := s.fromCache(ctx, s.cacheKey(t)); ok {
			out[i] = vec
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return out
	}

	batch := make([]string, len(pending))
	for j, i := range pending {
		batch[j] = texts[i]
	}
	vecs, err := s.provider.Embed(ctx, batch)
	if err != nil || len(vecs) != len(batch) {
		s.logger.Debug("batch embedding failed, falling back to single requests", zap.Error(err))
		for _, i := range pending {
			out[i] = s.Embed(ctx, texts[i])
		}
		return out
	}

	for j, i := range pending {
		if len(vecs[j]) != s.dims {
			s.logger.Warn("embedding dimension mismatch, using zero vector",
				zap.Int("expected", s.dims),
				zap.Int("actual", len(vecs[j])),
			)
			out[i] = s.ZeroVector()
			s.report(true)
			continue
		}
		out[i] = vecs[j]
		s.toCache(ctx, s.cacheKey(texts[i]), vecs[j])
		s.report(false)
	}
	return out
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + s.model + ":" + hex.EncodeToString(sum[:])
}

func (s *Service) fromCache(ctx context.Context, key string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil || len(vec) != s.dims {
		return nil, false
	}
	return vec, true
}

func (s *Service) toCache(ctx context.Context, key string, vec []float32) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		s.logger.Debug("embedding cache write failed", zap.Error(err))
	}
}

func (s *Service) report(fallback bool) {
	if s.observe != nil {
		s.observe(fallback)
	}
}
