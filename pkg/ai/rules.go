package ai

import (
	"strings"

	"mailpilot-backend/internal/batch/domain"
)

// Deterministic classification used whenever the AI path is disabled,
// rate-limited, or returns something unusable.

var senderDomainCategories = map[string]string{
	"linkedin.com":   "Social",
	"facebook.com":   "Social",
	"facebookmail.com": "Social",
	"twitter.com":    "Social",
	"x.com":          "Social",
	"instagram.com":  "Social",
	"paypal.com":     "Finance",
	"stripe.com":     "Finance",
	"chase.com":      "Finance",
	"bankofamerica.com": "Finance",
	"amazon.com":     "Shopping",
	"ebay.com":       "Shopping",
	"shopify.com":    "Shopping",
	"aliexpress.com": "Shopping",
	"booking.com":    "Travel",
	"airbnb.com":     "Travel",
	"expedia.com":    "Travel",
	"substack.com":   "Newsletters",
	"medium.com":     "Newsletters",
	"mailchimp.com":  "Newsletters",
}

type keywordRule struct {
	keywords []string
	category string
}

// Ordered: first match wins.
var subjectKeywordRules = []keywordRule{
	{[]string{"invoice", "payment", "receipt", "statement", "billing"}, "Finance"},
	{[]string{"order", "shipped", "delivery", "tracking"}, "Shopping"},
	{[]string{"flight", "itinerary", "reservation", "boarding", "hotel"}, "Travel"},
	{[]string{"newsletter", "digest", "weekly update", "unsubscribe"}, "Newsletters"},
	{[]string{"meeting", "standup", "sprint", "deadline", "review", "project"}, "Work"},
	{[]string{"friend request", "mentioned you", "tagged you", "followed you"}, "Social"},
	{[]string{"birthday", "dinner", "weekend", "family"}, "Personal"},
}

var positiveWords = []string{"thanks", "thank you", "congratulations", "great", "approved", "welcome", "confirmed"}
var negativeWords = []string{"urgent", "overdue", "failed", "problem", "cancelled", "declined", "suspended", "warning"}

// ClassifyByRules derives a complete result from metadata alone.
func ClassifyByRules(subject, sender, snippet string) *domain.ClassificationResult {
	category := categorize(subject, sender)
	return &domain.ClassificationResult{
		Category:       category,
		Summary:        summarize(subject, snippet),
		Sentiment:      detectSentiment(subject + " " + snippet),
		SuggestedLabel: SanitizeLabel(category),
	}
}

func categorize(subject, sender string) string {
	if dom := senderDomain(sender); dom != "" {
		for suffix, category := range senderDomainCategories {
			if dom == suffix || strings.HasSuffix(dom, "."+suffix) {
				return category
			}
		}
	}

	lower := strings.ToLower(subject)
	for _, rule := range subjectKeywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return domain.CategoryOther
}

// senderDomain extracts the domain from "Name <addr@host>" or a bare
// address.
func senderDomain(sender string) string {
	addr := sender
	if start := strings.LastIndex(sender, "<"); start >= 0 {
		if end := strings.Index(sender[start:], ">"); end > 0 {
			addr = sender[start+1 : start+end]
		}
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr[at+1:]))
}

func summarize(subject, snippet string) string {
	text := strings.TrimSpace(snippet)
	if text == "" {
		text = strings.TrimSpace(subject)
	}
	const maxSummary = 200
	if len(text) > maxSummary {
		text = text[:maxSummary-3] + "..."
	}
	return text
}

func detectSentiment(text string) string {
	lower := strings.ToLower(text)
	score := 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score--
		}
	}
	switch {
	case score > 0:
		return domain.SentimentPositive
	case score < 0:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
