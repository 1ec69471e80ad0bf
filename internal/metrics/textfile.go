package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultTextfileInterval 指标文件的默认刷新间隔
const DefaultTextfileInterval = 15 * time.Second

// TextfileExporter 定期把指标写成 node_exporter textfile collector 可读取的文件。
// agentcore 是命令行进程，不开放 HTTP /metrics 端口。
type TextfileExporter struct {
	path     string
	gatherer prometheus.Gatherer
	interval time.Duration
	logger   *zap.Logger
}

// NewTextfileExporter gatherer 为空时使用默认 Registry
func NewTextfileExporter(path string, gatherer prometheus.Gatherer, interval time.Duration, logger *zap.Logger) *TextfileExporter {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if interval <= 0 {
		interval = DefaultTextfileInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextfileExporter{
		path:     path,
		gatherer: gatherer,
		interval: interval,
		logger:   logger.With(zap.String("component", "metrics_textfile"), zap.String("path", path)),
	}
}

// Write 立即写一次指标文件
func (e *TextfileExporter) Write() error {
	return prometheus.WriteToTextfile(e.path, e.gatherer)
}

// Run 按间隔写文件直到 ctx 取消，退出前再写一次
func (e *TextfileExporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := e.Write(); err != nil {
				e.logger.Warn("final metrics write failed", zap.Error(err))
			}
			return ctx.Err()
		case <-ticker.C:
			if err := e.Write(); err != nil {
				e.logger.Warn("metrics write failed", zap.Error(err))
			}
		}
	}
}
