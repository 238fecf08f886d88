package intent

import (
	"fmt"
	"strings"

	"sassito/internal/fuzzy"
	"sassito/internal/metrics"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultThreshold is the minimum score (inclusive) for a suggestion.
const DefaultThreshold = 70

// Fallback answers messages no rule matched: it suggests the closest label
// or lists every supported intent.
type Fallback struct {
	threshold int
	metrics   *metrics.Metrics
}

// NewFallback returns a matcher that suggests labels scoring at least threshold.
func NewFallback(threshold int, m *metrics.Metrics) *Fallback {
	return &Fallback{threshold: threshold, metrics: m}
}

// Respond builds the suggestion or the help menu for text.
func (f *Fallback) Respond(text string, labels []string) string {
	if best, ok := fuzzy.Best(text, labels); ok && best.Score >= f.threshold {
		f.metrics.Fallbacks.WithLabelValues("suggestion").Inc()
		return suggestionReply(best.Candidate)
	}
	f.metrics.Fallbacks.WithLabelValues("menu").Inc()
	return menuReply(labels)
}

func suggestionReply(label string) string {
	return fmt.Sprintf("🤔 It seems like you're looking for something similar to:\n\n"+
		"👉 *'Please send %s from [restaurant_name]'*\n\n"+
		"Please try rephrasing your request or confirm if this is what you meant!", label)
}

func menuReply(labels []string) string {
	title := cases.Title(language.English)
	var b strings.Builder
	b.WriteString("❓ I'm sorry, I didn't quite catch that. Here are some things I can help you with:\n\n")
	for i, label := range labels {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title.String(strings.ReplaceAll(label, "_", " ")))
	}
	b.WriteString("\n👉 *Example*: 'Please send opening hours from MyRestaurantName'\n\n")
	b.WriteString("Let me know how I can assist you! 😊")
	return b.String()
}
