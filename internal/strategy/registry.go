package strategy

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// Registry maps strategy names to configured backend instances. It is
// explicitly constructed and passed by reference; there is no process-wide
// registry, so tests can build isolated ones.
type Registry struct {
	mu           sync.RWMutex
	strategies   map[string]Strategy
	factories    map[string]Factory
	configPath   string
	configLoaded bool
}

// NewRegistry builds a registry over the given backend factories. The
// factory key is the backend identifier used in the configuration file.
func NewRegistry(factories map[string]Factory, configPath string) *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
		factories:  factories,
		configPath: configPath,
	}
}

// Register adds a strategy under name. First registration wins unless
// override is set. Reports whether the instance was stored.
func (r *Registry) Register(name string, s Strategy, override bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[name]; exists && !override {
		return false
	}
	r.strategies[name] = s
	return true
}

// Resolve returns the strategy registered under name. On a miss it loads the
// configuration file, then falls back to discovering backend defaults,
// before failing with ErrUnknownStrategy. Safe to call repeatedly; neither
// fallback re-registers duplicates.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if s, ok := r.lookup(name); ok {
		return s, nil
	}

	if err := r.LoadConfig(); err != nil {
		return nil, err
	}
	if s, ok := r.lookup(name); ok {
		return s, nil
	}

	r.Discover()
	if s, ok := r.lookup(name); ok {
		return s, nil
	}

	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownStrategy, name, strings.Join(r.Names(), ", "))
}

func (r *Registry) lookup(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// LoadConfig reads the strategies file and registers one configured instance
// per entry. It runs at most once per registry; a missing file is not an
// error here (discovery may still serve the name), a malformed file or an
// unknown backend identifier is.
func (r *Registry) LoadConfig() error {
	r.mu.Lock()
	if r.configLoaded || r.configPath == "" {
		r.mu.Unlock()
		return nil
	}
	r.configLoaded = true
	r.mu.Unlock()

	entries, err := LoadConfigFile(r.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("strategy config file not found, relying on discovery", "path", r.configPath)
			return nil
		}
		return err
	}

	for name, cfg := range entries {
		factory, ok := r.factories[cfg.Backend]
		if !ok {
			return fmt.Errorf("%w: unknown backend %q for strategy %q", ErrConfig, cfg.Backend, name)
		}
		instance := factory()
		if err := instance.Configure(cfg); err != nil {
			return fmt.Errorf("%w: strategy %q: %v", ErrConfig, name, err)
		}
		if r.Register(name, instance, false) {
			slog.Info("loaded strategy", "name", name, "backend", cfg.Backend)
		}
	}
	return nil
}

// Discover registers every known backend under its default name if that name
// is still free. A backend that fails to configure itself is logged and
// skipped; discovery never fails as a whole.
func (r *Registry) Discover() {
	for backend, factory := range r.factories {
		instance := factory()
		if err := instance.Configure(Config{Backend: backend}); err != nil {
			slog.Warn("skipping backend during discovery", "backend", backend, "error", err)
			continue
		}
		if r.Register(instance.Name(), instance, false) {
			slog.Info("auto-discovered strategy", "name", instance.Name(), "backend", backend)
		}
	}
}

// Names lists the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
