// Package telemetry 初始化 OpenTelemetry 的 TracerProvider 与 MeterProvider，
// 通过 OTLP/gRPC 导出 agent 运行时、生成层与知识库的 span。
// resource 中带有 agent 名称与模型提供商；遥测禁用时 Tracer 返回 noop 实现。
package telemetry
