package ai

import (
	"encoding/json"
	"strings"

	"mailpilot-backend/internal/batch/domain"
)

// Validation chokepoint: every AI response passes through here before a
// result is accepted. Any failure means the caller falls back to rules.

type rawResult struct {
	Category       string `json:"category"`
	Summary        string `json:"summary"`
	Sentiment      string `json:"sentiment"`
	SuggestedLabel string `json:"suggestedLabel"`
}

// parseResult extracts and normalizes a classification from raw model
// text. Returns nil when nothing usable can be recovered.
func parseResult(text string) *domain.ClassificationResult {
	region := extractJSON(text)
	if region == "" {
		return nil
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(region), &raw); err != nil {
		return nil
	}

	category := strings.TrimSpace(raw.Category)
	if category == "" {
		return nil
	}
	// Off-set categories are coerced, not rejected.
	if !domain.ValidCategory(category) {
		category = domain.CategoryOther
	}

	sentiment := strings.ToLower(strings.TrimSpace(raw.Sentiment))
	if !domain.ValidSentiment(sentiment) {
		sentiment = domain.SentimentNeutral
	}

	label := SanitizeLabel(raw.SuggestedLabel)
	if label == "" {
		label = SanitizeLabel(category)
	}

	return &domain.ClassificationResult{
		Category:       category,
		Summary:        strings.TrimSpace(raw.Summary),
		Sentiment:      sentiment,
		SuggestedLabel: label,
	}
}

// extractJSON returns the first balanced top-level {...} region, or "".
// Models wrap JSON in prose and markdown fences; this strips both.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// SanitizeLabel reduces a candidate label to the accepted charset
// (letters, digits, spaces, slashes) and length bound.
func SanitizeLabel(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '/':
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if len(out) > domain.MaxLabelLength {
		out = strings.TrimSpace(out[:domain.MaxLabelLength])
	}
	return out
}
