package insight

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The model is asked for a schema but does not always follow it. These types
// accept any JSON value for a field and coerce it to the Go type.

// text renders strings as-is, lists as "a; b" and anything else as compact JSON.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	*t = text(renderText(b))
	return nil
}

func renderText(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case 'n':
		return ""
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if s := renderText(item); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

// score accepts a number or a numeric string such as "85" or "85%".
type score float64

func (s *score) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*s = score(n)
		return nil
	}
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(renderText(b)), "%"))
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*s = score(f)
	}
	return nil
}

// flag accepts booleans, "yes"/"no" style strings and numbers.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flag(v)
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(renderText(b))) {
	case "true", "yes", "y", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// textList accepts a list or a single value.
type textList []string

func (l *textList) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		if s := renderText(b); s != "" {
			*l = textList{s}
		}
		return nil
	}
	out := make(textList, 0, len(items))
	for _, item := range items {
		if s := renderText(item); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// textMap accepts an object of any values. A non-object becomes {"summary": text}.
type textMap map[string]string

func (m *textMap) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		if s := renderText(b); s != "" {
			*m = textMap{"summary": s}
		}
		return nil
	}
	out := make(textMap, len(fields))
	for k, v := range fields {
		out[k] = renderText(v)
	}
	*m = out
	return nil
}

type flagMap map[string]bool

func (m *flagMap) UnmarshalJSON(b []byte) error {
	var fields map[string]flag
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		return nil
	}
	out := make(flagMap, len(fields))
	for k, v := range fields {
		out[k] = bool(v)
	}
	*m = out
	return nil
}

type looseScene struct {
	Scene    text `json:"scene"`
	Reason   text `json:"reason"`
	Lighting text `json:"lighting"`
}

// sceneList accepts a list of scene objects or names, or a single scene object.
type sceneList []SceneAdvice

func (l *sceneList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var items []json.RawMessage
	if len(b) > 0 && b[0] == '{' {
		items = []json.RawMessage{b}
	} else if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(sceneList, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var s looseScene
			if err := json.Unmarshal(item, &s); err != nil {
				return err
			}
			out = append(out, SceneAdvice{Scene: string(s.Scene), Reason: string(s.Reason), Lighting: string(s.Lighting)})
			continue
		}
		if name := renderText(item); name != "" {
			out = append(out, SceneAdvice{Scene: name})
		}
	}
	*l = out
	return nil
}

type looseQuality struct {
	OverallQuality         text     `json:"overall_quality"`
	QualityScore           score    `json:"quality_score"`
	TechnicalAssessment    textMap  `json:"technical_assessment"`
	CommercialViability    flagMap  `json:"commercial_viability"`
	Strengths              textList `json:"strengths"`
	ImprovementSuggestions textList `json:"improvement_suggestions"`
}

func (q looseQuality) assessment() *QualityAssessment {
	return &QualityAssessment{
		OverallQuality:         string(q.OverallQuality),
		QualityScore:           float64(q.QualityScore),
		TechnicalAssessment:    q.TechnicalAssessment,
		CommercialViability:    q.CommercialViability,
		Strengths:              q.Strengths,
		ImprovementSuggestions: q.ImprovementSuggestions,
	}
}

// setField decodes one top-level key into in. It reports false for unknown
// keys and for values that cannot be coerced.
func (in *Insight) setField(key string, raw json.RawMessage) bool {
	switch key {
	case "optimal_scenes":
		var scenes sceneList
		if err := json.Unmarshal(raw, &scenes); err != nil {
			return false
		}
		in.OptimalScenes = scenes
	case "quality_assessment":
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return true
		}
		var q looseQuality
		if err := json.Unmarshal(raw, &q); err != nil {
			return false
		}
		in.QualityAssessment = q.assessment()
	default:
		field := in.textField(key)
		if field == nil {
			return false
		}
		*field = renderText(raw)
	}
	return true
}

func (in *Insight) textField(key string) *string {
	switch key {
	case "composition_rules":
		return &in.CompositionRules
	case "props_context":
		return &in.PropsContext
	case "target_audience":
		return &in.TargetAudience
	case "brand_positioning":
		return &in.BrandPositioning
	case "technical_specs":
		return &in.TechnicalSpecs
	}
	return nil
}
