package ocr

import (
	"fmt"
	"sort"
	"time"
)

// EngineOptions configures engine construction.
type EngineOptions struct {
	ServiceURL string
	Timeout    time.Duration
}

// EngineFactory builds an engine.
type EngineFactory func(opts EngineOptions) (Engine, error)

var engineRegistry = map[string]EngineFactory{
	"http": func(opts EngineOptions) (Engine, error) {
		if opts.ServiceURL == "" {
			return nil, fmt.Errorf("http ocr engine needs a service URL")
		}
		return NewHTTPEngine(opts.ServiceURL, opts.Timeout), nil
	},
}

func registerEngine(name string, f EngineFactory) {
	engineRegistry[name] = f
}

// NewEngine builds the engine registered under name.
func NewEngine(name string, opts EngineOptions) (Engine, error) {
	f, ok := engineRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown ocr engine %q (available: %v)", name, Engines())
	}
	return f(opts)
}

// Engines lists the registered engine names.
func Engines() []string {
	names := make([]string, 0, len(engineRegistry))
	for name := range engineRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
