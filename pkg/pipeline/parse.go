package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ```
// fence before a JSON decode; models wrap JSON in fences often enough
// that rejecting fenced output would waste a retry.
func stripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// parseKeywords extracts a machine-parseable keyword list from the
// keyword-generation provider's raw text. It accepts either a bare JSON
// array or a JSON object with a "keywords" field.
func parseKeywords(text string) ([]string, error) {
	clean := stripCodeFence(text)

	var asArray []string
	if err := json.Unmarshal([]byte(clean), &asArray); err == nil {
		return filterBlank(asArray), nil
	}

	var asObject struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(clean), &asObject); err == nil && len(asObject.Keywords) > 0 {
		return filterBlank(asObject.Keywords), nil
	}

	return nil, fmt.Errorf("could not parse keyword list from response: %q", clean)
}

func filterBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// relevanceResult is the JSON shape the reasoning provider's response is
// parsed from.
type relevanceResult struct {
	RelevanceScore float64 `json:"relevance_score"`
	Insight        string  `json:"insight"`
}

func parseRelevance(text string) (*relevanceResult, error) {
	clean := stripCodeFence(text)
	var r relevanceResult
	if err := json.Unmarshal([]byte(clean), &r); err != nil {
		return nil, fmt.Errorf("could not parse relevance result from response: %w", err)
	}
	return &r, nil
}
