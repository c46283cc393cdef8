package genai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	sdk "google.golang.org/genai"

	"productscene/internal/domain"
	"productscene/internal/infra"
	"productscene/internal/render"
)

const (
	DefaultImageModel  = "gemini-2.5-flash-image-preview"
	DefaultVisionModel = "gemini-2.5-flash"
)

// Models is the slice of the SDK the client uses. *sdk.Models satisfies it.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*sdk.Content, config *sdk.GenerateContentConfig) (*sdk.GenerateContentResponse, error)
}

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey      string
	ImageModel  string
	VisionModel string
	Logger      *infra.Logger
	// Models overrides the SDK transport. Tests set it; production leaves it nil.
	Models Models
}

// Client wraps the Gemini SDK for category detection, scene generation,
// conversational edits and photography insights.
type Client struct {
	models      Models
	imageModel  string
	visionModel string
	logger      *infra.Logger
}

// GenerationRequest is one image-plus-prompt call.
type GenerationRequest struct {
	Image    []byte
	MIMEType string
	Prompt   string
}

// Result is an image returned by the model.
type Result struct {
	Image    image.Image
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// PNG returns the result encoded as PNG, re-encoding only when needed.
func (r *Result) PNG() ([]byte, error) {
	if r.MIMEType == "image/png" && len(r.Data) > 0 {
		return r.Data, nil
	}
	return render.EncodePNG(r.Image)
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	models := opts.Models
	if models == nil {
		apiKey := strings.TrimSpace(opts.APIKey)
		if apiKey == "" {
			return nil, errors.New("genai: api key is required")
		}
		client, err := sdk.NewClient(ctx, &sdk.ClientConfig{
			APIKey:  apiKey,
			Backend: sdk.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("genai: create client: %w", err)
		}
		models = client.Models
	}

	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = DefaultImageModel
	}
	visionModel := strings.TrimSpace(opts.VisionModel)
	if visionModel == "" {
		visionModel = DefaultVisionModel
	}

	return &Client{
		models:      models,
		imageModel:  imageModel,
		visionModel: visionModel,
		logger:      logger,
	}, nil
}

// ImageModel returns the model used for generation and edits.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// VisionModel returns the model used for text answers about an image.
func (c *Client) VisionModel() string {
	return c.visionModel
}

func (c *Client) call(ctx context.Context, model string, prompt string, img []byte, mime string, config *sdk.GenerateContentConfig) (*sdk.GenerateContentResponse, error) {
	contents := []*sdk.Content{
		sdk.NewContentFromParts([]*sdk.Part{
			sdk.NewPartFromText(prompt),
			sdk.NewPartFromBytes(img, mime),
		}, sdk.RoleUser),
	}
	resp, err := c.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrTransport, model, ctxErr)
		}
		var apiErr sdk.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s: %d %s", domain.ErrTransport, model, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrTransport, model, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: %s: empty response", domain.ErrTransport, model)
	}
	return resp, nil
}

// prepareImage checks that data is an image the service accepts and returns
// the MIME type to send. Formats other than JPEG and PNG are re-encoded as PNG.
func prepareImage(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", domain.InputErrorf("genai: image is required")
	}
	switch mime := render.SniffMIME(data); mime {
	case "image/jpeg", "image/png":
		return data, mime, nil
	}
	img, err := render.Decode(data)
	if err != nil {
		return nil, "", err
	}
	png, err := render.EncodePNG(img)
	if err != nil {
		return nil, "", err
	}
	return png, "image/png", nil
}
