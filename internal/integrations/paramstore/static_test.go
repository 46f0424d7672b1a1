package paramstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStatic_EmptyValues(t *testing.T) {
	_, err := NewStatic(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestStatic_GetParameter(t *testing.T) {
	s, err := NewStatic(map[string]string{"/salon-agent/gemini-api-key": "key-1"})
	require.NoError(t, err)

	v, err := s.GetParameter(context.Background(), "/salon-agent/gemini-api-key")
	require.NoError(t, err)
	require.Equal(t, "key-1", v)
}

func TestStatic_UnknownParameter(t *testing.T) {
	s, err := NewStatic(map[string]string{"/salon-agent/gemini-api-key": "key-1"})
	require.NoError(t, err)

	_, err = s.GetParameter(context.Background(), "/salon-agent/supabase-key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no value")
}

func TestStatic_EmptyValueIsMissing(t *testing.T) {
	s, err := NewStatic(map[string]string{"/salon-agent/gemini-api-key": ""})
	require.NoError(t, err)

	_, err = s.GetParameter(context.Background(), "/salon-agent/gemini-api-key")
	require.Error(t, err)
}

func TestStatic_EmptyName(t *testing.T) {
	s, err := NewStatic(map[string]string{"k": "v"})
	require.NoError(t, err)

	_, err = s.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestStatic_CopiesInputMap(t *testing.T) {
	vals := map[string]string{"k": "v"}
	s, err := NewStatic(vals)
	require.NoError(t, err)

	vals["k"] = "changed"
	v, err := s.GetParameter(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}
