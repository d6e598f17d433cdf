package toolcall

import (
	"encoding/json"
	"unicode/utf8"

	models "github.com/Desarso/haochat/models"
)

// CapThresholds are token estimates above which search results are trimmed.
type CapThresholds struct {
	Low  int // above this keep 3 results
	High int // above this keep 2 results
}

var DefaultCapThresholds = CapThresholds{Low: 6000, High: 8000}

// EstimateTokens approximates the token cost of v's JSON encoding as
// characters / 4. The fraction is kept so thresholds compare exactly.
func EstimateTokens(v interface{}) float64 {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return float64(utf8.RuneCount(data)) / 4
}

// CapResults bounds the context consumed by a search result set.
func CapResults(results []models.SearchResult, th CapThresholds) []models.SearchResult {
	if th.High <= 0 && th.Low <= 0 {
		th = DefaultCapThresholds
	}

	estimate := EstimateTokens(results)
	switch {
	case estimate > float64(th.High) && len(results) > 2:
		return results[:2]
	case estimate > float64(th.Low) && len(results) > 3:
		return results[:3]
	}
	return results
}
