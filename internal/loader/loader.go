// internal/loader/loader.go
//
// Asset loading for the house scene.
// Responsibilities:
//   - Load the model, environment map, background and found-sound in
//     parallel, one task per asset, and join them before building the catalog.
//   - Prefer files from ASSETS_DIR, falling back to the embedded defaults.
//   - Keep the raw bytes so the HTTP layer can serve them to the renderer.
//
// Failure behaviour:
//   • The model is required. If it fails, the error is logged, the catalog
//     stays empty and Ready() never closes: sessions wait in "loading".
//   • The other assets are optional. Failures are logged and skipped.
//   • No retries and no timeouts; cancellation comes only from ctx.

package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/househunt/assets"
	"github.com/robalobadob/househunt/internal/catalog"
	"github.com/robalobadob/househunt/internal/scene"
)

// Kind tells the loader how to validate a file.
type Kind string

const (
	KindModel      Kind = "model"
	KindEnvMap     Kind = "envmap"
	KindBackground Kind = "background"
	KindAudio      Kind = "audio"
)

// Spec names one asset to load.
type Spec struct {
	Kind     Kind
	Name     string
	Required bool
}

// DefaultSpecs are the four assets the house scene needs.
func DefaultSpecs() []Spec {
	return []Spec{
		{Kind: KindModel, Name: assets.Model, Required: true},
		{Kind: KindEnvMap, Name: assets.EnvMap},
		{Kind: KindBackground, Name: assets.Background},
		{Kind: KindAudio, Name: assets.FoundSound},
	}
}

// ErrInvalidAsset is wrapped by validation failures.
var ErrInvalidAsset = errors.New("invalid asset")

// File is a loaded asset ready to be served.
type File struct {
	Name        string
	Kind        Kind
	ContentType string
	Data        []byte
}

// Bundle is the result of a successful load.
type Bundle struct {
	Scene   *scene.Scene
	Catalog *catalog.Catalog
	Files   map[string]File
}

// Loader runs the asset tasks once and publishes the result.
type Loader struct {
	sources []fs.FS
	specs   []Spec

	once  sync.Once
	ready chan struct{}

	mu     sync.RWMutex
	files  map[string]File
	bundle *Bundle
	err    error
}

// New creates a loader. dir may be empty to use only embedded assets.
func New(dir string, specs ...Spec) *Loader {
	var sources []fs.FS
	if dir != "" {
		sources = append(sources, os.DirFS(dir))
	}
	sources = append(sources, assets.FS)
	return NewFS(sources, specs...)
}

// NewFS creates a loader reading from sources in order; the first source
// holding a file wins.
func NewFS(sources []fs.FS, specs ...Spec) *Loader {
	if len(specs) == 0 {
		specs = DefaultSpecs()
	}
	return &Loader{
		sources: sources,
		specs:   specs,
		ready:   make(chan struct{}),
		files:   make(map[string]File),
	}
}

// Ready is closed once the catalog is built. It stays open if the
// required model never loads.
func (l *Loader) Ready() <-chan struct{} { return l.ready }

// Bundle returns the loaded scene and catalog, or nil before Ready.
func (l *Loader) Bundle() *Bundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bundle
}

// Err returns the required-asset error from Load, if any.
func (l *Loader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// File returns a loaded asset by name.
func (l *Loader) File(name string) (File, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.files[name]
	return f, ok
}

// Load runs every asset task concurrently and joins them. Only the first
// call does any work; later calls return the first call's error.
func (l *Loader) Load(ctx context.Context) error {
	l.once.Do(func() {
		err := l.load(ctx)
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
	})
	return l.Err()
}

func (l *Loader) load(ctx context.Context) error {
	var (
		mu    sync.Mutex
		model *scene.Scene
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, sp := range l.specs {
		sp := sp
		g.Go(func() error {
			f, sc, err := l.loadOne(gctx, sp)
			if err != nil {
				if sp.Required {
					return fmt.Errorf("%s %s: %w", sp.Kind, sp.Name, err)
				}
				log.Warn().Err(err).Str("asset", sp.Name).Str("kind", string(sp.Kind)).Msg("optional asset skipped")
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			l.storeFile(f)
			if sc != nil {
				model = sc
			}
			log.Debug().Str("asset", sp.Name).Int("bytes", len(f.Data)).Msg("asset loaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("required asset failed; game cannot start")
		return err
	}
	if model == nil {
		err := fmt.Errorf("no %s asset configured", KindModel)
		log.Error().Err(err).Msg("required asset failed; game cannot start")
		return err
	}

	cat := catalog.Build(model.Pickables())
	entries, distinct := cat.Stats()
	log.Info().Int("entries", entries).Int("distinct", distinct).Msg("target catalog built")

	l.mu.Lock()
	l.bundle = &Bundle{Scene: model, Catalog: cat, Files: l.files}
	l.mu.Unlock()
	close(l.ready)
	return nil
}

func (l *Loader) storeFile(f File) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[f.Name] = f
}

func (l *Loader) loadOne(ctx context.Context, sp Spec) (File, *scene.Scene, error) {
	if err := ctx.Err(); err != nil {
		return File{}, nil, err
	}
	data, err := l.read(sp.Name)
	if err != nil {
		return File{}, nil, err
	}
	f := File{Name: sp.Name, Kind: sp.Kind, Data: data, ContentType: contentType(sp.Name, data)}

	var sc *scene.Scene
	switch sp.Kind {
	case KindModel:
		sc, err = scene.LoadGLTF(bytes.NewReader(data))
	case KindEnvMap:
		err = checkRadiance(data)
	case KindBackground:
		err = checkPrefix(f.ContentType, "image/")
	case KindAudio:
		err = checkWave(data)
	}
	if err != nil {
		return File{}, nil, err
	}
	return f, sc, nil
}

func (l *Loader) read(name string) ([]byte, error) {
	var firstErr error
	for _, src := range l.sources {
		b, err := fs.ReadFile(src, name)
		if err == nil {
			return b, nil
		}
		if firstErr == nil || !errors.Is(err, fs.ErrNotExist) {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fs.ErrNotExist
	}
	return nil, fmt.Errorf("read %s: %w", name, firstErr)
}

func contentType(name string, data []byte) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".gltf":
		return "model/gltf+json"
	case ".glb":
		return "model/gltf-binary"
	case ".hdr":
		return "image/vnd.radiance"
	}
	return http.DetectContentType(data)
}

func checkRadiance(b []byte) error {
	if bytes.HasPrefix(b, []byte("#?RADIANCE")) || bytes.HasPrefix(b, []byte("#?RGBE")) {
		return nil
	}
	return fmt.Errorf("%w: missing radiance header", ErrInvalidAsset)
}

func checkWave(b []byte) error {
	if len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE" {
		return nil
	}
	return fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidAsset)
}

func checkPrefix(ct, prefix string) error {
	if strings.HasPrefix(ct, prefix) {
		return nil
	}
	return fmt.Errorf("%w: content type %s", ErrInvalidAsset, ct)
}
