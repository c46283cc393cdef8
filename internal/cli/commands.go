package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"productscene/internal/domain"
	"productscene/internal/providers/genai"
	"productscene/internal/render"
	"productscene/internal/scenes"
	"productscene/internal/storage"
	"productscene/internal/workflow"
)

func (a *App) newScenesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List the scene catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := a.catalog.List()
			if a.jsonOutput {
				return a.printJSON(list)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
			for _, tpl := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", tpl.ID, tpl.Name, tpl.Description)
			}
			return tw.Flush()
		},
	}
}

func (a *App) newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <image>",
		Short: "Detect the product category of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readImage(args[0])
			if err != nil {
				return err
			}
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			category, err := client.DetectCategory(cmd.Context(), data)
			if err != nil {
				return err
			}
			name, err := client.DescribeProduct(cmd.Context(), data)
			if err != nil {
				a.logger.Warn().Err(err).Msg("product description failed")
				name = scenes.DescriptionFor(category)
			}
			if a.jsonOutput {
				return a.printJSON(map[string]string{"product_type": category, "product_name": name})
			}
			fmt.Fprintf(a.stdout, "%s (%s)\n", scenes.DisplayCategory(category), name)
			return nil
		},
	}
}

func (a *App) newGenerateCommand() *cobra.Command {
	var scene, description, prompt, out string
	cmd := &cobra.Command{
		Use:   "generate <image>",
		Short: "Place a product into a catalog scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := a.catalog.Get(scene)
			if err != nil {
				return err
			}
			data, err := readImage(args[0])
			if err != nil {
				return err
			}
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.GenerateScene(cmd.Context(), genai.GenerationRequest{
				Image:    data,
				MIMEType: render.SniffMIME(data),
				Prompt:   tpl.ComposePrompt(description, prompt),
			})
			if err != nil {
				return err
			}
			png, err := res.PNG()
			if err != nil {
				return err
			}
			path, err := writeFile(cmd.Context(), out, png)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s scene written to %s (%dx%d)\n", tpl.Name, path, res.Width, res.Height)
			return nil
		},
	}
	cmd.Flags().StringVar(&scene, "scene", "urban_rooftop", "scene id from the catalog")
	cmd.Flags().StringVar(&description, "description", "", "product description substituted into the scene prompt")
	cmd.Flags().StringVar(&prompt, "prompt", "", "custom prompt replacing the scene template")
	cmd.Flags().StringVar(&out, "out", "scene.png", "output PNG path")
	return cmd
}

func (a *App) newEditCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "edit <image> <request>",
		Short: "Apply a conversational edit to an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := decodeFile(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(args[1]) == "" {
				return domain.InputErrorf("edit request is empty")
			}
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.Edit(cmd.Context(), img, args[1])
			if err != nil {
				return err
			}
			png, err := res.PNG()
			if err != nil {
				return err
			}
			path, err := writeFile(cmd.Context(), out, png)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "edited image written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "edited.png", "output PNG path")
	return cmd
}

func (a *App) newFormatsCommand() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "formats <image>",
		Short: "Letterbox an image onto the square, vertical and horizontal canvases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readImage(args[0])
			if err != nil {
				return err
			}
			canvases, err := render.CompositeBytes(cmd.Context(), data, render.DefaultFormats)
			if err != nil {
				return err
			}
			store, err := storage.NewFileStore(outDir)
			if err != nil {
				return err
			}
			stem := fileStem(args[0])
			files := make(map[string]string, len(canvases))
			for _, format := range render.DefaultFormats {
				png, err := render.EncodePNG(canvases[format.Name])
				if err != nil {
					return err
				}
				key, err := store.Write(cmd.Context(), fmt.Sprintf("%s_%s.png", stem, format.Name), png)
				if err != nil {
					return err
				}
				files[format.Name] = key
			}
			return a.printFiles(store, files)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for the rendered canvases")
	return cmd
}

func (a *App) newVariationsCommand() *cobra.Command {
	var outDir string
	var only []string
	cmd := &cobra.Command{
		Use:   "variations <image>",
		Short: "Render framing variations of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variations, err := render.ParseVariations(only)
			if err != nil {
				return err
			}
			img, err := decodeFile(args[0])
			if err != nil {
				return err
			}
			images, err := render.SynthesizeOnly(cmd.Context(), img, variations)
			if err != nil {
				return err
			}
			store, err := storage.NewFileStore(outDir)
			if err != nil {
				return err
			}
			stem := fileStem(args[0])
			files := make(map[string]string, len(images))
			for _, v := range variations {
				png, err := render.EncodePNG(images[v.String()])
				if err != nil {
					return err
				}
				key, err := store.Write(cmd.Context(), fmt.Sprintf("%s_%s.png", stem, v), png)
				if err != nil {
					return err
				}
				files[v.String()] = key
			}
			return a.printFiles(store, files)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for the variations")
	cmd.Flags().StringSliceVar(&only, "only", nil, "render only these variations (close_up, lifestyle, overhead, side_angle, environmental)")
	return cmd
}

func (a *App) newExportCommand() *cobra.Command {
	var name, outDir string
	var bundle bool
	cmd := &cobra.Command{
		Use:   "export <image>",
		Short: "Write the Instagram, story, hero banner and original exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := decodeFile(args[0])
			if err != nil {
				return err
			}
			store, err := storage.NewFileStore(outDir)
			if err != nil {
				return err
			}
			exporter, err := render.NewExporter(store, &a.logger)
			if err != nil {
				return err
			}
			files, err := exporter.Export(cmd.Context(), img, name)
			if err != nil {
				return err
			}
			if bundle {
				key, err := exporter.Bundle(cmd.Context(), name)
				if err != nil {
					return err
				}
				files["bundle"] = key
			}
			return a.printFiles(store, files)
		},
	}
	cmd.Flags().StringVar(&name, "name", render.DefaultBaseName, "product name used as the file prefix")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for the exports")
	cmd.Flags().BoolVar(&bundle, "bundle", false, "also write a zip of the exports")
	return cmd
}

func (a *App) newInsightsCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "insights <image>",
		Short: "Print photography insights as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readImage(args[0])
			if err != nil {
				return err
			}
			var advisor genai.Advisor
			if a.cfg.RequireGemini() == nil {
				client, err := a.client(cmd.Context())
				if err != nil {
					return err
				}
				if category == "" {
					if category, err = client.DetectCategory(cmd.Context(), data); err != nil {
						a.logger.Warn().Err(err).Msg("category detection failed, using other")
						category = scenes.CategoryOther
					}
				}
				advisor = client
			} else {
				a.logger.Warn().Msg("GEMINI_API_KEY not set, printing default insights")
			}
			advice, err := genai.Recommend(cmd.Context(), advisor, data, category, a.catalog.IDs())
			if err != nil {
				return err
			}
			return a.printJSON(advice)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "product category (detected when empty)")
	return cmd
}

func (a *App) newDemoCommand() *cobra.Command {
	var scene, description, name, outDir string
	var edits []string
	cmd := &cobra.Command{
		Use:   "demo <image>",
		Short: "Run detect, generate, two edits and export end to end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readImage(args[0])
			if err != nil {
				return err
			}
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			store, err := storage.NewFileStore(outDir)
			if err != nil {
				return err
			}
			exporter, err := render.NewExporter(store, &a.logger)
			if err != nil {
				return err
			}
			runner, err := workflow.NewRunner(client, a.catalog, exporter, &a.logger)
			if err != nil {
				return err
			}
			steps := workflow.Steps{Scene: scene, Description: description, ProductName: name}
			if cmd.Flags().Changed("edit") {
				steps.Edits = edits
			}
			report, err := runner.Run(cmd.Context(), data, steps)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(report)
			}
			fmt.Fprintf(a.stdout, "category: %s\nscene:    %s\n\n", report.Category, report.Scene)
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STEP\tELAPSED\tFILE\tNOTE")
			for _, stage := range report.Stages {
				note := ""
				if stage.Fallback {
					note = "fallback: " + stage.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", stage.Name, stage.Elapsed.Round(time.Millisecond), stage.File, note)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout)
			return a.printFiles(store, report.Exported)
		},
	}
	cmd.Flags().StringVar(&scene, "scene", "urban_rooftop", "scene id from the catalog")
	cmd.Flags().StringVar(&description, "description", "", "product description (derived from the category when empty)")
	cmd.Flags().StringVar(&name, "name", workflow.DefaultProductName, "export file prefix")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for intermediate images and exports")
	cmd.Flags().StringArrayVar(&edits, "edit", nil, "edit request, repeatable (replaces the default prop and vintage edits)")
	return cmd
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printFiles(store *storage.FileStore, files map[string]string) error {
	if a.jsonOutput {
		return a.printJSON(files)
	}
	labels := make([]string, 0, len(files))
	for label := range files {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, label := range labels {
		path, err := store.Path(files[label])
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", label, path)
	}
	return tw.Flush()
}

func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func decodeFile(path string) (image.Image, error) {
	data, err := readImage(path)
	if err != nil {
		return nil, err
	}
	return render.Decode(data)
}

// writeFile writes data to path atomically through a FileStore rooted at its
// directory.
func writeFile(ctx context.Context, path string, data []byte) (string, error) {
	store, err := storage.NewFileStore(filepath.Dir(path))
	if err != nil {
		return "", err
	}
	key, err := store.Write(ctx, filepath.Base(path), data)
	if err != nil {
		return "", err
	}
	return store.Path(key)
}

func fileStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		return "image"
	}
	return stem
}
