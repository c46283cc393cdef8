package insight

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormedObject(t *testing.T) {
	text := `Here is my analysis:
{"optimal_scenes":[{"scene":"beach","reason":"Summer product","lighting":"Bright sun"}],
 "composition_rules":"Center it","props_context":"Towel","target_audience":"Surfers",
 "brand_positioning":"Outdoor","technical_specs":"f/2.8",
 "quality_assessment":{"overall_quality":"excellent","quality_score":91,
   "technical_assessment":{"focus":"sharp"},"commercial_viability":{"print_ready":true},
   "strengths":["color"],"improvement_suggestions":["shadow"]}}
Hope this helps!`

	got, ok := ParseResult(text)
	require.True(t, ok)
	assert.Equal(t, []SceneAdvice{{Scene: "beach", Reason: "Summer product", Lighting: "Bright sun"}}, got.OptimalScenes)
	assert.Equal(t, "Center it", got.CompositionRules)
	assert.Equal(t, "Towel", got.PropsContext)
	assert.Equal(t, "Surfers", got.TargetAudience)
	assert.Equal(t, "Outdoor", got.BrandPositioning)
	assert.Equal(t, "f/2.8", got.TechnicalSpecs)
	require.NotNil(t, got.QualityAssessment)
	assert.Equal(t, "excellent", got.QualityAssessment.OverallQuality)
	assert.InDelta(t, 91, got.QualityAssessment.QualityScore, 0.001)
	assert.Equal(t, map[string]bool{"print_ready": true}, got.QualityAssessment.CommercialViability)

	assert.Equal(t, got, Parse(text))
}

func TestParseFallsBackToDefault(t *testing.T) {
	tests := map[string]string{
		"no braces":     "I could not analyze this image.",
		"empty":         "",
		"broken json":   `{"optimal_scenes": [ oops }`,
		"reversed":      "} nothing {",
		"prose braces":  "use {curly} words and {more}",
		"two fragments": `{"composition_rules":"a"} and then {"props_context":"b"}`,
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := ParseResult(text)
			assert.False(t, ok)
			got := Parse(text)
			assert.Equal(t, Default(), got)
			assertComplete(t, got)
		})
	}
}

func TestParseCodeFence(t *testing.T) {
	got, ok := ParseResult("```json\n{\"composition_rules\":\"Thirds\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "Thirds", got.CompositionRules)
	assert.NotNil(t, got.OptimalScenes)
	assert.Nil(t, got.QualityAssessment)
}

func TestDefaultIsCompleteAndIndependent(t *testing.T) {
	a := Default()
	assertComplete(t, a)

	a.OptimalScenes[0].Scene = "mutated"
	a.QualityAssessment.Strengths[0] = "mutated"
	b := Default()
	assert.Equal(t, "urban_rooftop", b.OptimalScenes[0].Scene)
	assert.NotEqual(t, "mutated", b.QualityAssessment.Strengths[0])
}

func assertComplete(t *testing.T, in Insight) {
	t.Helper()
	assert.NotEmpty(t, in.OptimalScenes)
	for _, s := range in.OptimalScenes {
		assert.NotEmpty(t, s.Scene)
		assert.NotEmpty(t, s.Reason)
		assert.NotEmpty(t, s.Lighting)
	}
	assert.NotEmpty(t, in.CompositionRules)
	assert.NotEmpty(t, in.PropsContext)
	assert.NotEmpty(t, in.TargetAudience)
	assert.NotEmpty(t, in.BrandPositioning)
	assert.NotEmpty(t, in.TechnicalSpecs)
	require.NotNil(t, in.QualityAssessment)
	assert.NotEmpty(t, in.QualityAssessment.OverallQuality)
	assert.NotEmpty(t, in.QualityAssessment.Strengths)
	assert.NotEmpty(t, in.QualityAssessment.ImprovementSuggestions)
}

func TestParseCoercesMismatchedTypes(t *testing.T) {
	scenes := `"optimal_scenes":[{"scene":"gym","reason":"Active","lighting":"Hard"}]`
	tests := []struct {
		name  string
		field string
		check func(t *testing.T, got Insight)
	}{
		{
			name:  "numeric string score",
			field: `"quality_assessment":{"overall_quality":"good","quality_score":"85"}`,
			check: func(t *testing.T, got Insight) {
				require.NotNil(t, got.QualityAssessment)
				assert.InDelta(t, 85, got.QualityAssessment.QualityScore, 0.001)
			},
		},
		{
			name:  "percent score",
			field: `"quality_assessment":{"quality_score":"72%"}`,
			check: func(t *testing.T, got Insight) {
				require.NotNil(t, got.QualityAssessment)
				assert.InDelta(t, 72, got.QualityAssessment.QualityScore, 0.001)
			},
		},
		{
			name:  "object technical specs",
			field: `"technical_specs":{"aperture":"f/2.8"}`,
			check: func(t *testing.T, got Insight) {
				assert.Equal(t, `{"aperture":"f/2.8"}`, got.TechnicalSpecs)
			},
		},
		{
			name:  "list composition rules",
			field: `"composition_rules":["thirds","leading lines"]`,
			check: func(t *testing.T, got Insight) {
				assert.Equal(t, "thirds; leading lines", got.CompositionRules)
			},
		},
		{
			name:  "numeric audience",
			field: `"target_audience":25`,
			check: func(t *testing.T, got Insight) {
				assert.Equal(t, "25", got.TargetAudience)
			},
		},
		{
			name:  "loose quality values",
			field: `"quality_assessment":{"technical_assessment":{"focus":"sharp","score":9},
				"commercial_viability":{"print_ready":"yes","ecommerce_ready":false},
				"strengths":"good color","improvement_suggestions":["shadow",{"tip":"crop"}]}`,
			check: func(t *testing.T, got Insight) {
				qa := got.QualityAssessment
				require.NotNil(t, qa)
				assert.Equal(t, map[string]string{"focus": "sharp", "score": "9"}, qa.TechnicalAssessment)
				assert.Equal(t, map[string]bool{"print_ready": true, "ecommerce_ready": false}, qa.CommercialViability)
				assert.Equal(t, []string{"good color"}, qa.Strengths)
				assert.Equal(t, []string{"shadow", `{"tip":"crop"}`}, qa.ImprovementSuggestions)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseResult("{" + scenes + "," + tt.field + "}")
			require.True(t, ok)
			require.Len(t, got.OptimalScenes, 1)
			assert.Equal(t, "gym", got.OptimalScenes[0].Scene)
			tt.check(t, got)
		})
	}
}

func TestParseSceneShapes(t *testing.T) {
	got, ok := ParseResult(`{"optimal_scenes":["beach","office"]}`)
	require.True(t, ok)
	assert.Equal(t, []SceneAdvice{{Scene: "beach"}, {Scene: "office"}}, got.OptimalScenes)

	got, ok = ParseResult(`{"optimal_scenes":{"scene":"gym","reason":"Active"}}`)
	require.True(t, ok)
	assert.Equal(t, []SceneAdvice{{Scene: "gym", Reason: "Active"}}, got.OptimalScenes)
}

func TestParseKeepsExtraKeys(t *testing.T) {
	got, ok := ParseResult(`{"composition_rules":"Thirds","hashtags":["#run","#trail"],"optimal_scenes":7}`)
	require.True(t, ok)
	assert.Equal(t, "Thirds", got.CompositionRules)
	assert.Equal(t, []any{"#run", "#trail"}, got.Extra["hashtags"])
	assert.Equal(t, float64(7), got.Extra["optimal_scenes"])

	data, err := json.Marshal(got)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []any{"#run", "#trail"}, out["hashtags"])
	assert.Equal(t, "Thirds", out["composition_rules"])
	assert.Equal(t, []any{}, out["optimal_scenes"])

	data, err = json.Marshal(Default())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Extra")
}
