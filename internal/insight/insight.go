package insight

import "encoding/json"

// SceneAdvice is one recommended setting for the product.
type SceneAdvice struct {
	Scene    string `json:"scene"`
	Reason   string `json:"reason"`
	Lighting string `json:"lighting"`
}

// QualityAssessment grades the uploaded product photo.
type QualityAssessment struct {
	OverallQuality         string            `json:"overall_quality"`
	QualityScore           float64           `json:"quality_score"`
	TechnicalAssessment    map[string]string `json:"technical_assessment"`
	CommercialViability    map[string]bool   `json:"commercial_viability"`
	Strengths              []string          `json:"strengths"`
	ImprovementSuggestions []string          `json:"improvement_suggestions"`
}

// Insight is the photography advice returned for a product image.
type Insight struct {
	OptimalScenes     []SceneAdvice      `json:"optimal_scenes"`
	CompositionRules  string             `json:"composition_rules"`
	PropsContext      string             `json:"props_context"`
	TargetAudience    string             `json:"target_audience"`
	BrandPositioning  string             `json:"brand_positioning"`
	TechnicalSpecs    string             `json:"technical_specs"`
	QualityAssessment *QualityAssessment `json:"quality_assessment,omitempty"`

	// Extra holds keys the model returned beyond the fields above, and known
	// keys whose value could not be coerced.
	Extra map[string]any `json:"-"`
}

// MarshalJSON emits the known fields plus any Extra keys they do not already
// cover.
func (in Insight) MarshalJSON() ([]byte, error) {
	type plain Insight
	data, err := json.Marshal(plain(in))
	if err != nil || len(in.Extra) == 0 {
		return data, err
	}
	merged := make(map[string]any)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range in.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Default returns the advice used whenever the model gives nothing usable.
// Each call returns a fresh value that callers may modify.
func Default() Insight {
	return Insight{
		OptimalScenes: []SceneAdvice{
			{
				Scene:    "urban_rooftop",
				Reason:   "Modern urban setting highlights contemporary product design",
				Lighting: "Golden hour natural lighting",
			},
			{
				Scene:    "coffee_shop",
				Reason:   "Warm, approachable lifestyle context builds emotional connection",
				Lighting: "Soft warm ambient lighting",
			},
			{
				Scene:    "office",
				Reason:   "Clean professional setting keeps attention on the product",
				Lighting: "Even diffused daylight",
			},
		},
		CompositionRules: "Use the rule of thirds, keep the product in sharp focus and leave negative space for copy",
		PropsContext:     "Minimal complementary props that suggest everyday use without competing with the product",
		TargetAudience:   "Style-conscious consumers aged 25-40 shopping online",
		BrandPositioning: "Premium lifestyle product with an aspirational but accessible feel",
		TechnicalSpecs:   "High resolution, shallow depth of field, natural shadows and accurate product colors",
		QualityAssessment: &QualityAssessment{
			OverallQuality: "good",
			QualityScore:   75,
			TechnicalAssessment: map[string]string{
				"lighting":    "adequate",
				"focus":       "sharp",
				"background":  "needs staging",
				"composition": "centered",
			},
			CommercialViability: map[string]bool{
				"ecommerce_ready":    true,
				"social_media_ready": true,
				"print_ready":        false,
			},
			Strengths:              []string{"Product clearly visible", "Recognizable shape and details"},
			ImprovementSuggestions: []string{"Place the product in a lifestyle scene", "Add directional lighting for depth"},
		},
	}
}
