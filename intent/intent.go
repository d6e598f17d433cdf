// Package intent decides whether a user message needs tools, and whether it
// needs a live web search, before any request is issued.
package intent

import (
	"context"
	"regexp"
	"strings"

	models "github.com/Desarso/haochat/models"
)

// Classifier reports tool and web-search needs for a message.
type Classifier interface {
	NeedsTools(message string) bool
	NeedsWebSearch(ctx context.Context, message string, history []models.HistoryMessage) bool
}

// Decision is the transport chosen for one outgoing message.
type Decision int

const (
	Stream Decision = iota
	Buffered
)

func (d Decision) String() string {
	if d == Buffered {
		return "buffered"
	}
	return "stream"
}

// Flags are the caller-controlled switches that influence transport.
type Flags struct {
	DeepResearch bool
	WebSearch    bool
}

// Decide picks the transport once per message. Streaming is used only when
// web search is off and the classifier does not anticipate tool use.
// Deep-research mode changes request parameters, not the transport.
func Decide(c Classifier, message string, flags Flags) Decision {
	if flags.WebSearch {
		return Buffered
	}
	if c == nil {
		c = Keywords{}
	}
	if c.NeedsTools(message) {
		return Buffered
	}
	return Stream
}

var toolPattern = regexp.MustCompile(`(?i)\b(weather|stock|price|news|exchange rate|latest|today|current|draw|image|picture|artwork|generate)\b`)

var (
	weatherTerms = []string{"weather", "temperature", "forecast", "rain", "snow", "sunny", "cloudy", "humidity", "wind"}
	timeTerms    = []string{"today", "tomorrow", "tonight", "this week", "now", "current", "currently", "latest", "right now"}
	placeTerms   = []string{" in ", " at ", " for ", "city", "near"}
	stockTerms   = []string{"stock", "share price", "market", "nasdaq", "dow jones", "s&p"}
	searchTerms  = []string{"news", "breaking", "headline", "latest update", "exchange rate", "score", "who won", "election results", "release date"}
)

// Keywords is the regex/keyword heuristic classifier.
type Keywords struct{}

// NeedsTools matches the fixed tool-triggering keyword set.
func (Keywords) NeedsTools(message string) bool {
	return toolPattern.MatchString(message)
}

// NeedsWebSearch requires weather terms to co-occur with a time or place, and
// market terms with a time. Plain search terms always match.
func (Keywords) NeedsWebSearch(_ context.Context, message string, _ []models.HistoryMessage) bool {
	lower := " " + strings.ToLower(message) + " "

	if containsAny(lower, searchTerms) {
		return true
	}
	if containsAny(lower, weatherTerms) && (containsAny(lower, timeTerms) || containsAny(lower, placeTerms)) {
		return true
	}
	if containsAny(lower, stockTerms) && containsAny(lower, timeTerms) {
		return true
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
