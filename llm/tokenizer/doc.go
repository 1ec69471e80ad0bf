// Package tokenizer 负责生成前的上下文预算：ForModel 按模型选择分词器，
// TrimTokens 把提示裁剪到模型输入上限以内并保留尾部。
//
// OpenAI 系列模型使用 tiktoken 精确计数，其余模型按字符估算。
package tokenizer
