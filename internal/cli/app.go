// Package cli implements the scenectl command tree using Cobra.
package cli

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"productscene/internal/infra"
	"productscene/internal/insight"
	"productscene/internal/providers/genai"
	"productscene/internal/scenes"
)

// Client is the remote model surface the commands use. *genai.Client
// satisfies it.
type Client interface {
	DetectCategory(ctx context.Context, img []byte) (string, error)
	DescribeProduct(ctx context.Context, img []byte) (string, error)
	GenerateScene(ctx context.Context, req genai.GenerationRequest) (*genai.Result, error)
	Edit(ctx context.Context, img image.Image, request string) (*genai.Result, error)
	Insights(ctx context.Context, img []byte, category string, sceneIDs []string) (insight.Insight, error)
}

// ConfigLoader loads runtime configuration.
type ConfigLoader func() (*infra.Config, error)

// ClientFactory builds a Client from configuration.
type ClientFactory func(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (Client, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig ConfigLoader
	newClient  ClientFactory
	stdout     io.Writer
	stderr     io.Writer

	envFile    string
	logFormat  string
	jsonOutput bool

	cfg     *infra.Config
	logger  infra.Logger
	catalog *scenes.Catalog
}

// WithConfigLoader injects a config loader.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithClientFactory injects the Gemini client constructor.
func WithClientFactory(factory ClientFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newClient = factory
		}
	}
}

// WithIO injects output streams.
func WithIO(stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig: infra.LoadConfig,
		newClient:  defaultClientFactory,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		logFormat:  "auto",
	}
	for _, opt := range opts {
		opt(a)
	}
	a.root = a.newRootCommand()
	return a
}

func defaultClientFactory(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (Client, error) {
	return genai.NewClient(ctx, genai.Options{
		APIKey:      cfg.GeminiAPIKey,
		ImageModel:  cfg.GeminiImageModel,
		VisionModel: cfg.GeminiVisionModel,
		Logger:      logger,
	})
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "scenectl",
		Short: "Stage product photos into lifestyle scenes",
		Long: `scenectl places a product photo into a staged lifestyle scene with Gemini,
applies conversational edits and renders social-media formats locally.

Set GEMINI_API_KEY in the environment or an env file for commands that call the model.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		SilenceUsage: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "env file to load (default .env when present)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", a.logFormat, "log output: auto, json or console")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")

	root.AddCommand(a.newScenesCommand())
	root.AddCommand(a.newDetectCommand())
	root.AddCommand(a.newGenerateCommand())
	root.AddCommand(a.newEditCommand())
	root.AddCommand(a.newFormatsCommand())
	root.AddCommand(a.newVariationsCommand())
	root.AddCommand(a.newExportCommand())
	root.AddCommand(a.newInsightsCommand())
	root.AddCommand(a.newDemoCommand())

	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.root.Execute()
}

// ExecuteContext runs the root command with ctx.
func (a *App) ExecuteContext(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

// SetArgs overrides os.Args for the next Execute.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

func (a *App) init() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	console, err := a.useConsole()
	if err != nil {
		return err
	}
	a.logger = infra.NewLoggerTo(a.stderr, cfg.AppEnv, console)

	catalog, err := scenes.Open(cfg.SceneCatalogPath)
	if err != nil {
		return err
	}
	a.catalog = catalog
	return nil
}

func (a *App) useConsole() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(a.logFormat)) {
	case "json":
		return false, nil
	case "console":
		return true, nil
	case "", "auto":
		f, ok := a.stderr.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("unknown log format %q (want auto, json or console)", a.logFormat)
	}
}

// client builds the model client, failing when no API key is configured.
func (a *App) client(ctx context.Context) (Client, error) {
	if err := a.cfg.RequireGemini(); err != nil {
		return nil, err
	}
	return a.newClient(ctx, a.cfg, &a.logger)
}

var defaultApp = NewApp()

// Execute runs the default app root command.
func Execute(ctx context.Context) error {
	return defaultApp.ExecuteContext(ctx)
}
