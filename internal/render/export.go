package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"regexp"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"productscene/internal/domain"
	"productscene/internal/infra"
	"productscene/internal/storage"
	"productscene/pkg/zip"
)

// Export labels.
const (
	LabelInstagramSquare = "instagram_square"
	LabelInstagramStory  = "instagram_story"
	LabelHeroBanner      = "hero_banner"
	LabelOriginal        = "original"
)

// DefaultBaseName is used when the caller gives no product name.
const DefaultBaseName = "product"

// ExportLabels lists the files every export writes, in write order.
var ExportLabels = []string{LabelInstagramSquare, LabelInstagramStory, LabelHeroBanner, LabelOriginal}

var unsafeBaseChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Exporter writes marketing-ready PNGs into a FileStore.
type Exporter struct {
	store  *storage.FileStore
	logger *infra.Logger
	locks  keyedMutex
}

// NewExporter returns an Exporter writing into store.
func NewExporter(store *storage.FileStore, logger *infra.Logger) (*Exporter, error) {
	if store == nil {
		return nil, errors.New("render: export store is required")
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Exporter{store: store, logger: logger}, nil
}

// Store returns the store exports are written to.
func (e *Exporter) Store() *storage.FileStore {
	return e.store
}

// ExportFileName returns the file name used for label.
func ExportFileName(baseName, label string) string {
	return fmt.Sprintf("%s_%s.png", baseName, label)
}

// NormalizeBaseName validates a caller-supplied product name and reduces it to
// a safe file name stem.
func NormalizeBaseName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.ContainsAny(name, `/\`) {
		return "", domain.InputErrorf("product name %q contains a path separator", name)
	}
	name = strings.Trim(unsafeBaseChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		return DefaultBaseName, nil
	}
	return name, nil
}

// Export writes the four marketing files for img and returns label to file
// name. The files are staged and committed together: when any write fails the
// previous export of the same base name is left untouched and no map is
// returned.
func (e *Exporter) Export(ctx context.Context, img image.Image, baseName string) (map[string]string, error) {
	if _, _, err := checkArea(img); err != nil {
		return nil, err
	}
	base, err := NormalizeBaseName(baseName)
	if err != nil {
		return nil, err
	}

	encoded := make(map[string][]byte, len(ExportLabels))
	for _, label := range ExportLabels {
		data, err := EncodePNG(exportVariant(img, label))
		if err != nil {
			return nil, err
		}
		encoded[label] = data
	}

	unlock := e.locks.Lock(base)
	defer unlock()

	batch := e.store.NewBatch()
	defer batch.Discard()

	files := make(map[string]string, len(ExportLabels))
	for _, label := range ExportLabels {
		key, err := batch.Add(ctx, ExportFileName(base, label), encoded[label])
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", label, ioError(err))
		}
		files[label] = key
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("export %s: %w", base, ioError(err))
	}

	e.logger.Debug().Str("base", base).Int("files", len(files)).Msg("export: written")
	return files, nil
}

// Bundle zips the four exported files of baseName into {base}_bundle.zip.
func (e *Exporter) Bundle(ctx context.Context, baseName string) (string, error) {
	base, err := NormalizeBaseName(baseName)
	if err != nil {
		return "", err
	}

	unlock := e.locks.Lock(base)
	defer unlock()

	assets := make([]zip.Asset, 0, len(ExportLabels))
	for _, label := range ExportLabels {
		name := ExportFileName(base, label)
		data, err := e.store.Read(ctx, name)
		if err != nil {
			return "", fmt.Errorf("bundle %s: %w", label, err)
		}
		assets = append(assets, zip.Asset{Filename: name, MIME: "image/png", Data: data})
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		return "", fmt.Errorf("%w: bundle: %v", domain.ErrIO, err)
	}
	return e.store.Write(ctx, base+"_bundle.zip", archive)
}

func ioError(err error) error {
	if errors.Is(err, domain.ErrIO) || errors.Is(err, domain.ErrInput) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrIO, err)
}

func exportVariant(img image.Image, label string) image.Image {
	switch label {
	case LabelInstagramSquare:
		return imaging.Fit(img, 1080, 1080, imaging.Lanczos)
	case LabelInstagramStory:
		return imaging.Resize(img, 1080, 1920, imaging.Lanczos)
	case LabelHeroBanner:
		return imaging.Resize(img, 1920, 1080, imaging.Lanczos)
	}
	return img
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
