package algorithms

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"bgs-segmenter/internal/config"
	"bgs-segmenter/internal/logger"
)

var (
	// ErrUnknownAlgorithm is returned by Create for names nobody registered.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrNilAlgorithm is returned by Create when a factory produced nothing.
	ErrNilAlgorithm = errors.New("factory returned no algorithm")
)

// Factory builds a new, independently owned algorithm instance.
type Factory func() Algorithm

// Registry maps algorithm names to factories. It is safe for concurrent use.
type Registry struct {
	factories    map[string]Factory
	configDir    string
	configFormat config.Format
	logger       logger.Logger
	mu           sync.RWMutex
}

type Option func(*Registry)

func WithLogger(log logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithConfigDir makes Create run Setup on every new instance with the
// parameter file dir/<name>.<format>. An empty dir disables parameter files.
func WithConfigDir(dir string, format config.Format) Option {
	return func(r *Registry) {
		r.configDir = dir
		r.configFormat = format
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		factories:    make(map[string]Factory),
		configFormat: config.FormatYAML,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterFactoryFunction stores factory under name, replacing any factory
// already registered with that name.
func (r *Registry) RegisterFactoryFunction(name string, factory Factory) {
	r.mu.Lock()
	_, replaced := r.factories[name]
	r.factories[name] = factory
	r.mu.Unlock()

	r.logger.Debug("Registry", "algorithm registered", map[string]interface{}{
		"name":     name,
		"replaced": replaced,
	})
}

// Create builds a new instance of the algorithm registered as name. Unknown
// names yield ErrUnknownAlgorithm.
func (r *Registry) Create(name string) (Algorithm, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	configDir, configFormat := r.configDir, r.configFormat
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
	}

	instance := factory()
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilAlgorithm, name)
	}
	instance.SetLogger(r.logger)

	if configDir != "" {
		path := filepath.Join(configDir, name+configFormat.Extension())
		if err := instance.Setup(path); err != nil {
			instance.Close()
			return nil, fmt.Errorf("setup %s: %w", name, err)
		}
	}

	r.logger.Debug("Registry", "algorithm created", map[string]interface{}{
		"name": name,
	})
	return instance, nil
}

// GetRegisteredAlgorithms returns every registered name in ascending order.
func (r *Registry) GetRegisteredAlgorithms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
