package loader

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/signalnine/autograde/internal/engine"
)

// Registry maps symbols to Go implementations, keyed by the source file
// that defines them. It stands in for importing a submission directory.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

type entry struct {
	source string
	symbol string
	fn     engine.Func
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Default is the registry used by Register and the CLI.
var Default = NewRegistry()

// Register adds fn as symbol defined in source to the Default registry.
func Register(source, symbol string, fn engine.Func) {
	Default.Register(source, symbol, fn)
}

func (r *Registry) Register(source, symbol string, fn engine.Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{source: filepath.Clean(source), symbol: symbol, fn: fn})
}

// Lookup finds the one implementation of symbol whose source lives under
// dir. An empty dir searches every source.
func (r *Registry) Lookup(dir, symbol string) (engine.Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []entry
	for _, e := range r.entries {
		if e.symbol == symbol && within(dir, e.source) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &Error{Kind: NoMatchingSymbol, Name: symbol, Path: dir}
	case 1:
		return matches[0].fn, nil
	default:
		return nil, &Error{Kind: TooManyMatchingSymbols, Name: symbol, Path: dir}
	}
}

// Symbols lists the registered symbol names under dir, sorted.
func (r *Registry) Symbols(dir string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, e := range r.entries {
		if within(dir, e.source) && !slices.Contains(out, e.symbol) {
			out = append(out, e.symbol)
		}
	}
	slices.Sort(out)
	return out
}

func within(dir, source string) bool {
	if dir == "" {
		return true
	}
	dir = filepath.Clean(dir)
	if source == dir {
		return true
	}
	return strings.HasPrefix(source, dir+string(filepath.Separator))
}
