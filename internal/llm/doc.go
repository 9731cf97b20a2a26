// Package llm provides the external classification oracle for waste items.
// It supports several LLM providers (Ollama, OpenAI and Anthropic) behind a
// single Client interface, and wraps them with rate limiting, response caching
// and strict parsing of the JSON the model returns.
package llm
