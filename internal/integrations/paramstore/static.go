package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Static is a Getter over a fixed in-process map. It adapts secrets read from
// the environment at startup to the same interface as the SSM-backed Client,
// so consumers do not care where a secret came from.
type Static struct {
	values map[string]string
}

// NewStatic creates a Static getter. The map is copied.
func NewStatic(values map[string]string) (*Static, error) {
	if len(values) == 0 {
		return nil, errors.New("paramstore: static values must not be empty")
	}
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Static{values: copied}, nil
}

func (s *Static) GetParameter(_ context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}
	v, ok := s.values[name]
	if !ok || v == "" {
		return "", fmt.Errorf("paramstore: no value for parameter %q", name)
	}
	return v, nil
}
