package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"productscene/internal/domain"
)

// Parse extracts an Insight from a free-text model reply. It never fails: when
// no JSON object can be decoded the shared Default is returned.
func Parse(text string) Insight {
	out, ok := ParseResult(text)
	if !ok {
		return Default()
	}
	return out
}

// ParseResult reports whether text carried a decodable object.
func ParseResult(text string) (Insight, bool) {
	decoded, err := decode(text)
	if err != nil {
		return Insight{}, false
	}
	return decoded, true
}

func decode(text string) (Insight, error) {
	fragment := extractObject(text)
	if fragment == "" {
		return Insight{}, fmt.Errorf("%w: no object found", domain.ErrParse)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(fragment), &fields); err != nil {
		return Insight{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	var out Insight
	for key, raw := range fields {
		if out.setField(key, raw) {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return Insight{}, fmt.Errorf("%w: %s: %v", domain.ErrParse, key, err)
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[key] = v
	}
	normalize(&out)
	return out, nil
}

// extractObject returns the span from the first '{' to the last '}'.
func extractObject(raw string) string {
	text := trimCodeFence(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func normalize(in *Insight) {
	if in.OptimalScenes == nil {
		in.OptimalScenes = []SceneAdvice{}
	}
	if qa := in.QualityAssessment; qa != nil {
		if qa.Strengths == nil {
			qa.Strengths = []string{}
		}
		if qa.ImprovementSuggestions == nil {
			qa.ImprovementSuggestions = []string{}
		}
	}
}
