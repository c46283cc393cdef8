package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"productscene/internal/domain"
	"productscene/internal/infra"
	"productscene/internal/providers/genai"
	"productscene/internal/render"
	"productscene/internal/scenes"
	"productscene/internal/storage"
)

// Step names reported in StepError and Report.
const (
	StepDetect   = "detect"
	StepGenerate = "generate"
	StepEdit     = "edit"
	StepExport   = "export"
)

// Intermediate files written to the output store.
const (
	InitialFile   = "demo_scene_initial.png"
	WithPropsFile = "demo_scene_with_props.png"
	FinalFile     = "demo_scene_final.png"
)

// DefaultProductName is the export base name used by the demo.
const DefaultProductName = "demo_product"

// DefaultEdits are the prop and style passes applied after generation.
var DefaultEdits = []string{
	"add a skateboard next to the product with matching lighting and shadows",
	"make it feel more vintage with warm, nostalgic colors and film grain effect",
}

// SceneClient is the remote side of the flow. *genai.Client satisfies it.
type SceneClient interface {
	DetectCategory(ctx context.Context, img []byte) (string, error)
	GenerateScene(ctx context.Context, req genai.GenerationRequest) (*genai.Result, error)
	Edit(ctx context.Context, img image.Image, request string) (*genai.Result, error)
}

// Steps configures one run.
type Steps struct {
	Scene       string
	Description string
	Edits       []string
	ProductName string
}

// StageResult records how one step went.
type StageResult struct {
	Name     string        `json:"name"`
	Elapsed  time.Duration `json:"elapsed"`
	File     string        `json:"file,omitempty"`
	Error    string        `json:"error,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
}

// Report is the outcome of a successful run.
type Report struct {
	Category string            `json:"category"`
	Scene    string            `json:"scene"`
	Prompt   string            `json:"prompt"`
	Stages   []StageResult     `json:"stages"`
	Exported map[string]string `json:"exported"`
}

// Runner drives detect, generate, edit and export against one product image.
type Runner struct {
	client   SceneClient
	catalog  *scenes.Catalog
	store    *storage.FileStore
	exporter *render.Exporter
	logger   *infra.Logger
}

// NewRunner wires a Runner. The exporter's store also receives the
// intermediate images.
func NewRunner(client SceneClient, catalog *scenes.Catalog, exporter *render.Exporter, logger *infra.Logger) (*Runner, error) {
	if client == nil {
		return nil, errors.New("workflow: scene client is required")
	}
	if exporter == nil {
		return nil, errors.New("workflow: exporter is required")
	}
	if catalog == nil {
		catalog = scenes.Default()
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Runner{
		client:   client,
		catalog:  catalog,
		store:    exporter.Store(),
		exporter: exporter,
		logger:   logger,
	}, nil
}

// Run executes the flow. Generation and export failures stop the run with a
// *domain.StepError; a failed edit keeps the previous image.
func (r *Runner) Run(ctx context.Context, product []byte, steps Steps) (*Report, error) {
	tpl, err := r.catalog.Get(steps.Scene)
	if err != nil {
		return nil, &domain.StepError{Step: StepGenerate, Err: err}
	}
	edits := steps.Edits
	if edits == nil {
		edits = DefaultEdits
	}
	productName := strings.TrimSpace(steps.ProductName)
	if productName == "" {
		productName = DefaultProductName
	}

	report := &Report{Scene: tpl.ID}

	start := time.Now()
	category, err := r.client.DetectCategory(ctx, product)
	detect := StageResult{Name: StepDetect}
	if err != nil {
		if errors.Is(err, domain.ErrInput) || errors.Is(err, domain.ErrDecode) {
			return nil, &domain.StepError{Step: StepDetect, Err: err}
		}
		r.logger.Warn().Err(err).Msg("workflow: category detection failed, using other")
		category = scenes.CategoryOther
		detect.Error = err.Error()
		detect.Fallback = true
	}
	detect.Elapsed = time.Since(start)
	report.Category = category
	report.Stages = append(report.Stages, detect)
	r.logStage(detect, "category", category)

	description := strings.TrimSpace(steps.Description)
	if description == "" {
		description = scenes.DescriptionFor(category)
	}
	report.Prompt = tpl.Prompt(description)

	start = time.Now()
	res, err := r.client.GenerateScene(ctx, genai.GenerationRequest{
		Image:    product,
		MIMEType: render.SniffMIME(product),
		Prompt:   report.Prompt,
	})
	if err != nil {
		return nil, &domain.StepError{Step: StepGenerate, Err: err}
	}
	if err := r.save(ctx, InitialFile, res); err != nil {
		return nil, &domain.StepError{Step: StepGenerate, Err: err}
	}
	generate := StageResult{Name: StepGenerate, Elapsed: time.Since(start), File: InitialFile}
	report.Stages = append(report.Stages, generate)
	r.logStage(generate, "scene", tpl.Name)

	current := res.Image
	for i, request := range edits {
		start = time.Now()
		stage := StageResult{Name: fmt.Sprintf("%s_%d", StepEdit, i+1)}
		edited, err := r.client.Edit(ctx, current, request)
		if err == nil {
			name := editFileName(i, len(edits))
			if err = r.save(ctx, name, edited); err == nil {
				current = edited.Image
				stage.File = name
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &domain.StepError{Step: stage.Name, Err: ctxErr}
			}
			stage.Error = err.Error()
			stage.Fallback = true
			r.logger.Warn().Err(err).Str("request", request).Msg("workflow: edit failed, keeping previous image")
		}
		stage.Elapsed = time.Since(start)
		report.Stages = append(report.Stages, stage)
		r.logStage(stage, "request", request)
	}

	start = time.Now()
	files, err := r.exporter.Export(ctx, current, productName)
	if err != nil {
		return nil, &domain.StepError{Step: StepExport, Err: err}
	}
	report.Exported = files
	export := StageResult{Name: StepExport, Elapsed: time.Since(start)}
	report.Stages = append(report.Stages, export)
	r.logStage(export, "product", productName)

	return report, nil
}

func (r *Runner) save(ctx context.Context, name string, res *genai.Result) error {
	data, err := res.PNG()
	if err != nil {
		return err
	}
	_, err = r.store.Write(ctx, name, data)
	return err
}

func (r *Runner) logStage(stage StageResult, key, value string) {
	r.logger.Info().
		Str("step", stage.Name).
		Str(key, value).
		Str("file", stage.File).
		Bool("fallback", stage.Fallback).
		Dur("elapsed", stage.Elapsed).
		Msg("workflow: step done")
}

// editFileName names the output of edit i out of n: the last edit is the
// final image, the first of several is the props pass.
func editFileName(i, n int) string {
	switch {
	case i == n-1:
		return FinalFile
	case i == 0:
		return WithPropsFile
	default:
		return fmt.Sprintf("demo_scene_edit_%d.png", i+1)
	}
}
