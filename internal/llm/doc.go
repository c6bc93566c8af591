// Package llm submits account matching prompts to a language model and
// parses the answers. It supports OpenAI and Anthropic providers, wrapped
// with rate limiting and bounded retries of transient failures.
package llm
