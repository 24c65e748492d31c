package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"mailpilot-backend/internal/batch/domain"
)

const classifyTag = "classify"

// Engine classifies messages. It is total: every call yields a result,
// degrading from the AI provider to deterministic rules.
type Engine struct {
	provider GenerativeProvider
	limiter  RateLimiter
	enabled  bool
	timeout  time.Duration
}

func NewEngine(provider GenerativeProvider, limiter RateLimiter, enabled bool) *Engine {
	return &Engine{
		provider: provider,
		limiter:  limiter,
		enabled:  enabled,
		timeout:  30 * time.Second,
	}
}

// Classify returns a normalized classification for one message.
// Order: enabled flag, rate check, provider call, validation. The first
// gate that fails routes to the rules fallback.
func (e *Engine) Classify(ctx context.Context, subject, sender, snippet, userID string) *domain.ClassificationResult {
	if !e.enabled || e.provider == nil {
		return ClassifyByRules(subject, sender, snippet)
	}

	if e.limiter != nil && !e.limiter.Allow(userID, classifyTag) {
		log.Printf("[ClassificationEngine] Rate limit reached for user %s, using rules", userID)
		return ClassifyByRules(subject, sender, snippet)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.provider.Generate(callCtx, buildPrompt(subject, sender, snippet))
	if err != nil {
		log.Printf("[ClassificationEngine] Provider call failed, using rules: %v", err)
		return ClassifyByRules(subject, sender, snippet)
	}

	result := parseResult(text)
	if result == nil {
		log.Printf("[ClassificationEngine] Unusable provider response, using rules")
		return ClassifyByRules(subject, sender, snippet)
	}
	return result
}

func buildPrompt(subject, sender, snippet string) string {
	return fmt.Sprintf(`You are an email triage assistant. Classify the email below.

Respond with ONLY a JSON object, no other text:
{"category": "...", "summary": "...", "sentiment": "...", "suggestedLabel": "..."}

Rules:
- category must be one of: %s
- summary: one sentence, at most 200 characters
- sentiment: positive, negative, or neutral
- suggestedLabel: a short folder-style label, letters/digits/spaces/slashes only

EMAIL:
Subject: %s
From: %s
Snippet: %s`,
		strings.Join(domain.Categories, ", "), subject, sender, snippet)
}
