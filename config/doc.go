// Package config 提供 agentcore 的运行时配置。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序加载，加载完成后视为不可变，
// 通过构造函数传递给各组件。Watch 在配置文件变化时重新加载并交付一份新的配置。
package config
