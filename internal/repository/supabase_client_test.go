package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salon-agent/internal/domain"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(srv.URL, "service-key", WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "base URL")

	_, err = New("https://example.supabase.co", " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestLookupFAQ_Hit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/faqs", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "answer", r.URL.Query().Get("select"))
		require.Equal(t, "eq.qual o horário de abertura?", r.URL.Query().Get("question"))
		require.Equal(t, "service-key", r.Header.Get("apikey"))
		require.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		require.Equal(t, pgrstSingleObject, r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"answer":"Abrimos às 9h."}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	answer, found, err := c.LookupFAQ(context.Background(), "qual o horário de abertura?")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Abrimos às 9h.", answer)
}

func TestLookupFAQ_NoRowIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, found, err := c.LookupFAQ(context.Background(), "pergunta inédita")
	require.NoError(t, err)
	require.False(t, found)
}

func TestLookupFAQ_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, found, err := c.LookupFAQ(context.Background(), "pergunta")
	require.Error(t, err)
	require.False(t, found)
	require.Contains(t, err.Error(), "500")
}

func TestLookupFAQ_NetworkError(t *testing.T) {
	c, err := New("http://127.0.0.1:1", "key", WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)

	_, found, err := c.LookupFAQ(context.Background(), "pergunta")
	require.Error(t, err)
	require.False(t, found)
}

func TestInsertAppointment_Recorded(t *testing.T) {
	appt := domain.Appointment{
		UserID:                "user-1",
		Professional:          "Juliana",
		Service:               "corte",
		AppointmentTime:       time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC),
		GoogleCalendarEventID: "evt-123",
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/appointments", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var got domain.Appointment
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, appt.UserID, got.UserID)
		require.Equal(t, appt.GoogleCalendarEventID, got.GoogleCalendarEventID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(201)
		_, _ = w.Write([]byte(`[{"id":1,"user_id":"user-1"}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	recorded, err := c.InsertAppointment(context.Background(), appt)
	require.NoError(t, err)
	require.True(t, recorded)
}

func TestInsertAppointment_EmptyRepresentation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(201)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	recorded, err := c.InsertAppointment(context.Background(), domain.Appointment{UserID: "user-1"})
	require.NoError(t, err)
	require.False(t, recorded, "an insert with no confirming representation is not recorded")
}

func TestInsertAppointment_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	recorded, err := c.InsertAppointment(context.Background(), domain.Appointment{UserID: "user-1"})
	require.Error(t, err)
	require.False(t, recorded)
	require.Contains(t, err.Error(), "401")
}
