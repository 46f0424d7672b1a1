package tools

import (
	"errors"
	"fmt"
	"strings"
)

// Registry keeps the mapping between tool names and handlers. The set is
// closed at construction time; there is no runtime registration.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a registry from the given handlers. Duplicate or empty
// names are construction errors.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		if err := r.register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(h Handler) error {
	if h == nil {
		return errors.New("tools: handler must not be nil")
	}
	name := strings.TrimSpace(h.Declaration().Name)
	if name == "" {
		return errors.New("tools: handler name must not be empty")
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("tools: handler %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Lookup fetches a handler by name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Declarations returns the model-facing schema of every registered tool.
func (r *Registry) Declarations() []Declaration {
	decls := make([]Declaration, 0, len(r.handlers))
	for _, h := range r.handlers {
		decls = append(decls, h.Declaration())
	}
	return decls
}
