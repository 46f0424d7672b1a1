package tools

import "strings"

// Directory maps a professional's display name to their calendar identifier.
// Populated once at startup from configuration.
type Directory map[string]string

// DefaultDirectory returns the built-in salon roster.
func DefaultDirectory() Directory {
	return Directory{
		"Juliana":  "juliana@seu_salao.com",
		"Fernando": "fernando@seu_salao.com",
	}
}

// Resolve finds the calendar identifier for a professional by name. Matching
// is case-insensitive on the trimmed name; anything unresolved fails closed.
func (d Directory) Resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for k, v := range d {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
