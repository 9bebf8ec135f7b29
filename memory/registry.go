package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agenttask/logging"
)

// DefaultNamespace is used when callers do not name one.
const DefaultNamespace = "default"

const manifestFile = "manifest.yaml"

// IndexFactory builds the Index of a namespace. dir is the namespace's
// directory under the registry base dir, or empty for in-memory registries.
type IndexFactory func(ctx context.Context, namespace, dir string) (Index, error)

// RegistryOptions configures NewRegistry.
type RegistryOptions struct {
	// BaseDir holds one sub-directory per namespace. Empty disables
	// persistence.
	BaseDir string
	// Factory builds indexes. Defaults to KeywordIndexFactory.
	Factory IndexFactory
	// Store options applied to every opened store.
	StoreOptions []func(o *StoreOptions)
	Logger       logging.Logger
}

// Registry maps namespaces to stores and guarantees that each namespace is
// opened at most once per process, even under concurrent first access.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*Store
	group  singleflight.Group

	opts   RegistryOptions
	logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Factory == nil {
		opts.Factory = KeywordIndexFactory()
	}
	return &Registry{
		stores: make(map[string]*Store),
		opts:   opts,
		logger: logging.OrNoOp(opts.Logger),
	}
}

// Open returns the store of namespace, creating it on first use.
func (r *Registry) Open(ctx context.Context, namespace string) (*Store, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if s, ok := r.lookup(namespace); ok {
		return s, nil
	}

	v, err, _ := r.group.Do(namespace, func() (any, error) {
		if s, ok := r.lookup(namespace); ok {
			return s, nil
		}

		dir := ""
		if r.opts.BaseDir != "" {
			dir = filepath.Join(r.opts.BaseDir, namespace)
		}
		// The build is shared by every concurrent opener, so it must not
		// fail just because the first caller gave up.
		idx, err := r.opts.Factory(context.WithoutCancel(ctx), namespace, dir)
		if err != nil {
			return nil, err
		}

		storeOpts := append([]func(o *StoreOptions){func(o *StoreOptions) { o.Logger = r.logger }}, r.opts.StoreOptions...)
		s := NewStore(idx, storeOpts...)

		r.mu.Lock()
		r.stores[namespace] = s
		r.mu.Unlock()

		r.logger.Info("Memory namespace opened", "namespace", namespace, "documents", idx.Count())
		return s, nil
	})
	if err != nil {
		if errors.Is(err, ErrDimensionMismatch) {
			r.logger.Error("Memory namespace unusable", "namespace", namespace, "error", err, "hint", RemediationHint)
		}
		return nil, fmt.Errorf("open memory namespace %q: %w", namespace, err)
	}
	return v.(*Store), nil
}

// Namespaces lists the opened namespaces in sorted order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for n := range r.stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(namespace string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[namespace]
	return s, ok
}

// KeywordIndexFactory builds process-local keyword indexes.
func KeywordIndexFactory() IndexFactory {
	return func(context.Context, string, string) (Index, error) {
		return NewKeywordIndex(), nil
	}
}

// ChromemIndexFactory builds chromem indexes. Persistent namespaces carry a
// manifest recording the embedding model; opening one with an embedder of a
// different dimensionality fails with a *DimensionMismatchError. optFns apply
// to every index; Dir is always the namespace directory.
func ChromemIndexFactory(embedder Embedder, logger logging.Logger, optFns ...func(o *ChromemIndexOptions)) IndexFactory {
	logger = logging.OrNoOp(logger)
	return func(_ context.Context, namespace, dir string) (Index, error) {
		if dir != "" {
			if err := checkManifest(namespace, dir, embedder, logger); err != nil {
				return nil, err
			}
		}
		opts := append(slices.Clone(optFns), func(o *ChromemIndexOptions) { o.Dir = dir })
		return NewChromemIndex(embedder, opts...)
	}
}

// Manifest is the per-namespace record of the embedding model in use.
type Manifest struct {
	EmbeddingModel string `yaml:"embedding_model"`
	Dimensions     int    `yaml:"dimensions"`
}

// ReadManifest loads the manifest of a namespace directory. A missing
// manifest yields (nil, nil).
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestFile, err)
	}
	return &m, nil
}

// WriteManifest stores m in dir, creating the directory if needed.
func WriteManifest(dir string, m Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644)
}

func checkManifest(namespace, dir string, embedder Embedder, logger logging.Logger) error {
	current := Manifest{EmbeddingModel: embedder.Model(), Dimensions: embedder.Dimensions()}

	stored, err := ReadManifest(dir)
	if err != nil {
		return err
	}
	if stored == nil {
		return WriteManifest(dir, current)
	}

	if stored.Dimensions != 0 && current.Dimensions != 0 && stored.Dimensions != current.Dimensions {
		return &DimensionMismatchError{Namespace: namespace, Stored: stored.Dimensions, Current: current.Dimensions}
	}
	if stored.EmbeddingModel != current.EmbeddingModel {
		logger.Warn("Embedding model changed for memory namespace",
			"namespace", namespace, "stored", stored.EmbeddingModel, "configured", current.EmbeddingModel)
	}
	if stored.Dimensions == 0 && current.Dimensions != 0 {
		return WriteManifest(dir, current)
	}
	return nil
}
