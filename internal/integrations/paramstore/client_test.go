package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI records the last requested name and serves a canned response.
type fakeAPI struct {
	lastName string
	value    *string
	err      error
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if in != nil && in.Name != nil {
		f.lastName = *in.Name
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: f.value}}, nil
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestGetParameter(t *testing.T) {
	key := "AIzaSy-test-key"

	t.Run("returns decrypted value", func(t *testing.T) {
		api := &fakeAPI{value: &key}
		client, err := New(api)
		require.NoError(t, err)

		v, err := client.GetParameter(context.Background(), "/salon-agent/gemini-api-key")
		require.NoError(t, err)
		require.Equal(t, key, v)
		require.Equal(t, "/salon-agent/gemini-api-key", api.lastName)
	})

	t.Run("trims the requested name", func(t *testing.T) {
		api := &fakeAPI{value: &key}
		client, err := New(api)
		require.NoError(t, err)

		_, err = client.GetParameter(context.Background(), "  /salon-agent/gemini-api-key ")
		require.NoError(t, err)
		require.Equal(t, "/salon-agent/gemini-api-key", api.lastName)
	})

	errCases := []struct {
		name    string
		api     *fakeAPI
		reqName string
		wantMsg string
	}{
		{name: "blank name", api: &fakeAPI{value: &key}, reqName: "  ", wantMsg: "required"},
		{name: "api failure", api: &fakeAPI{err: errors.New("throttled")}, reqName: "p", wantMsg: "throttled"},
		{name: "nil value", api: &fakeAPI{}, reqName: "p", wantMsg: "missing value"},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := New(tc.api)
			require.NoError(t, err)

			_, err = client.GetParameter(context.Background(), tc.reqName)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestGetParameter_ZeroValueClient(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestJoin(t *testing.T) {
	cases := []struct {
		prefix, name, want string
	}{
		{"/salon-agent", "gemini-api-key", "/salon-agent/gemini-api-key"},
		{"/salon-agent/", "supabase-key", "/salon-agent/supabase-key"},
		{" /salon-agent ", "/google-creds", "/salon-agent/google-creds"},
		{"", "gemini-api-key", "gemini-api-key"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Join(tc.prefix, tc.name), "Join(%q, %q)", tc.prefix, tc.name)
	}
}
