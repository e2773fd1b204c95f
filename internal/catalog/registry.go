package catalog

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"pagebuilder/internal/validate"
)

// Entry describes one block kind.
type Entry struct {
	Kind           Kind
	Label          string
	Category       string
	DefaultContent func() map[string]any
	Rules          []validate.Rule
	Check          validate.Checker
}

// Registry maps kinds to their entries. It serves both the engine (default
// content) and the validator (rules and structural checks).
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[Kind]Entry)}
}

// Register adds an entry. Panics on duplicate registration or on
// KindUnknown.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Kind == KindUnknown {
		panic("block catalog: cannot register the unknown kind")
	}
	if _, exists := r.entries[e.Kind]; exists {
		panic(fmt.Sprintf("block catalog: duplicate registration for kind %q", e.Kind))
	}
	r.entries[e.Kind] = e
}

// Lookup returns the entry for a block type string.
func (r *Registry) Lookup(blockType string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[Kind(blockType)]
	return e, ok
}

// DefaultContent returns a fresh copy of the default content for
// blockType, or nil for unknown types.
func (r *Registry) DefaultContent(blockType string) map[string]any {
	e, ok := r.Lookup(blockType)
	if !ok || e.DefaultContent == nil {
		return nil
	}
	return e.DefaultContent()
}

// Spec implements validate.Catalog.
func (r *Registry) Spec(blockType string) (validate.BlockSpec, bool) {
	e, ok := r.Lookup(blockType)
	if !ok {
		return validate.BlockSpec{}, false
	}
	return validate.BlockSpec{Rules: e.Rules, Check: e.Check}, true
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := lo.Keys(r.entries)
	slices.Sort(kinds)
	return kinds
}

// TypeInfo is the listing view of an entry.
type TypeInfo struct {
	Type           string         `json:"type"`
	Label          string         `json:"label"`
	Category       string         `json:"category"`
	DefaultContent map[string]any `json:"defaultContent"`
}

// List describes every registered kind, in palette order for built-in
// kinds followed by any others sorted by name.
func (r *Registry) List() []TypeInfo {
	order := lo.Uniq(append(AllKinds(), r.Kinds()...))
	registered := lo.Filter(order, func(k Kind, _ int) bool {
		_, ok := r.Lookup(string(k))
		return ok
	})
	return lo.Map(registered, func(k Kind, _ int) TypeInfo {
		e, _ := r.Lookup(string(k))
		return TypeInfo{
			Type:           string(k),
			Label:          e.Label,
			Category:       e.Category,
			DefaultContent: r.DefaultContent(string(k)),
		}
	})
}
