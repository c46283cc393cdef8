package genai

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	sdk "google.golang.org/genai"

	"productscene/internal/domain"
	"productscene/internal/insight"
	"productscene/internal/render"
	"productscene/internal/scenes"
)

const detectPrompt = "Analyze this product image and determine the category. Respond with only one word: footwear, clothing, electronics, accessories, home, beauty, or other."

const describePrompt = "Name the product in this image in at most five words, for example \"leather messenger bag\". Respond with the name only."

const editPromptFormat = "Apply this edit to the image: %s. Maintain the overall composition and lighting while making the requested changes. Keep the product details accurate."

const insightsPromptFormat = `You are a commercial product photographer. Study this %s product image and answer with a single JSON object, no prose, using exactly these keys:
{
  "optimal_scenes": [{"scene": one of [%s], "reason": string, "lighting": string}],
  "composition_rules": string,
  "props_context": string,
  "target_audience": string,
  "brand_positioning": string,
  "technical_specs": string,
  "quality_assessment": {
    "overall_quality": "excellent" | "good" | "fair" | "poor",
    "quality_score": number from 0 to 100,
    "technical_assessment": {"lighting": string, "focus": string, "background": string, "composition": string},
    "commercial_viability": {"ecommerce_ready": boolean, "social_media_ready": boolean, "print_ready": boolean},
    "strengths": [string],
    "improvement_suggestions": [string]
  }
}
Recommend two or three scenes.`

// DetectCategory asks the vision model for the product category. Answers
// outside the known set become "other".
func (c *Client) DetectCategory(ctx context.Context, img []byte) (string, error) {
	data, mime, err := prepareImage(img)
	if err != nil {
		return "", err
	}
	start := time.Now()
	resp, err := c.call(ctx, c.visionModel, detectPrompt, data, mime, nil)
	if err != nil {
		return "", err
	}
	answer := firstText(resp)
	category := scenes.NormalizeCategory(answer)
	c.logger.Debug().
		Str("model", c.visionModel).
		Str("answer", truncate(answer, 40)).
		Str("category", category).
		Dur("elapsed", time.Since(start)).
		Msg("genai: detect category")
	return category, nil
}

// DescribeProduct asks the vision model for a short product name.
func (c *Client) DescribeProduct(ctx context.Context, img []byte) (string, error) {
	data, mime, err := prepareImage(img)
	if err != nil {
		return "", err
	}
	resp, err := c.call(ctx, c.visionModel, describePrompt, data, mime, nil)
	if err != nil {
		return "", err
	}
	name := firstText(resp)
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = name[:i]
	}
	name = strings.Trim(name, " \t\r.\"'`")
	return strings.ToLower(truncate(name, 80)), nil
}

// GenerateScene places the product from req.Image into the scene described
// by req.Prompt and returns the first image the model produced.
func (c *Client) GenerateScene(ctx context.Context, req GenerationRequest) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.InputErrorf("genai: prompt is required")
	}
	data, mime := req.Image, strings.TrimSpace(req.MIMEType)
	if len(data) == 0 || (mime != "image/jpeg" && mime != "image/png") {
		var err error
		data, mime, err = prepareImage(req.Image)
		if err != nil {
			return nil, err
		}
	}
	return c.generate(ctx, prompt, data, mime, "scene")
}

// Edit applies a natural-language change to an existing image.
func (c *Client) Edit(ctx context.Context, img image.Image, request string) (*Result, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, domain.InputErrorf("genai: edit request is required")
	}
	data, err := render.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return c.generate(ctx, fmt.Sprintf(editPromptFormat, request), data, "image/png", "edit")
}

func (c *Client) generate(ctx context.Context, prompt string, data []byte, mime, kind string) (*Result, error) {
	start := time.Now()
	resp, err := c.call(ctx, c.imageModel, prompt, data, mime, &sdk.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("model", c.imageModel).Str("kind", kind).Msg("genai: generation failed")
		return nil, err
	}
	res, err := firstImage(resp)
	if err != nil {
		c.logger.Warn().Err(err).Str("model", c.imageModel).Str("kind", kind).Msg("genai: no usable image")
		return nil, err
	}
	c.logger.Info().
		Str("model", c.imageModel).
		Str("kind", kind).
		Int("width", res.Width).
		Int("height", res.Height).
		Dur("elapsed", time.Since(start)).
		Msg("genai: image generated")
	return res, nil
}

// Insights asks for photography advice. A reply that cannot be parsed yields
// the shared default; only transport failures are returned.
func (c *Client) Insights(ctx context.Context, img []byte, category string, sceneIDs []string) (insight.Insight, error) {
	if c == nil {
		return insight.Default(), nil
	}
	data, mime, err := prepareImage(img)
	if err != nil {
		return insight.Insight{}, err
	}
	category = scenes.NormalizeCategory(category)
	quoted := make([]string, 0, len(sceneIDs))
	for _, id := range sceneIDs {
		quoted = append(quoted, fmt.Sprintf("%q", id))
	}
	prompt := fmt.Sprintf(insightsPromptFormat, category, strings.Join(quoted, ", "))
	resp, err := c.call(ctx, c.visionModel, prompt, data, mime, &sdk.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return insight.Insight{}, err
	}
	out, ok := insight.ParseResult(firstText(resp))
	if !ok {
		c.logger.Warn().Str("model", c.visionModel).Msg("genai: insights reply unparseable, using default")
		return insight.Default(), nil
	}
	return out, nil
}

// Advisor produces photography insights for a product image.
type Advisor interface {
	Insights(ctx context.Context, img []byte, category string, sceneIDs []string) (insight.Insight, error)
}

// Recommend returns insights from a, or the shared default when no advisor is
// configured.
func Recommend(ctx context.Context, a Advisor, img []byte, category string, sceneIDs []string) (insight.Insight, error) {
	if a == nil {
		return insight.Default(), nil
	}
	return a.Insights(ctx, img, category, sceneIDs)
}
