package ai

import "context"

// GenerativeProvider is the interface for text-generation backends.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type GenerativeProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RateLimiter gates provider calls per user. Allow reports whether one
// more call may be issued under the given tag.
type RateLimiter interface {
	Allow(userID, tag string) bool
}
