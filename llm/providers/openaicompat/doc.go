// Package openaicompat provides the HTTP implementation of llm.Provider for
// every backend that speaks the OpenAI Chat Completions format.
//
// The providers of the model table (openai, groq, deepseek, ollama and the
// anthropic compatibility endpoint) differ only in base URL, key and default
// model, so a single Provider serves all of them:
//
//	p, err := openaicompat.FromSettings(types.ProviderGroq, cfg.APIKey, "", logger)
//	if err != nil {
//	    return err
//	}
//	resp, err := p.Completion(ctx, &llm.ChatRequest{...})
package openaicompat
