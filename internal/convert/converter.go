// Package convert defines the format-conversion capability consumed by
// convert tasks. A Converter is opaque to the queue: it serializes to a
// name-keyed spec so a persisted task can reconstruct it without the store
// interpreting converter internals.
package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrConversion marks a failed transform.
	ErrConversion = errors.New("conversion failed")
	// ErrUnknownConverter is returned when a persisted spec names a
	// converter that is not registered in this process.
	ErrUnknownConverter = errors.New("unknown converter")
)

// Converter transforms a source file into a destination file.
type Converter interface {
	// Name identifies the converter in persisted specs.
	Name() string
	// Run performs the transform. Failures wrap ErrConversion.
	Run(ctx context.Context, src, dst string) error
	// Options returns the flat option mapping persisted alongside the name.
	Options() map[string]string
}

// Spec is the persisted form of a converter. The schema is additive-only so
// records written by older versions keep decoding.
type Spec struct {
	Name    string            `json:"name"`
	Options map[string]string `json:"options,omitempty"`
}

// Factory builds a converter from persisted options.
type Factory func(options map[string]string) (Converter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register installs a factory under the given name. Later registrations for
// the same name win, which lets tests substitute converters.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Registered returns the sorted names of all known converters.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a converter by registry name.
func New(name string, options map[string]string) (Converter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConverter, name)
	}
	return factory(options)
}

// Marshal serializes a converter into its spec document.
func Marshal(c Converter) ([]byte, error) {
	if c == nil {
		return nil, errors.New("converter is nil")
	}
	return json.Marshal(Spec{Name: c.Name(), Options: c.Options()})
}

// Unmarshal reconstructs a converter from a persisted spec document.
func Unmarshal(data []byte) (Converter, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode converter spec: %w", err)
	}
	return New(spec.Name, spec.Options)
}
