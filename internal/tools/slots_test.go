package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salon-agent/internal/domain"
)

type fakeFreeBusy struct {
	busy       []domain.BusyInterval
	err        error
	calendarID string
	from, to   time.Time
}

func (f *fakeFreeBusy) FreeBusy(_ context.Context, calendarID string, from, to time.Time) ([]domain.BusyInterval, error) {
	f.calendarID = calendarID
	f.from = from
	f.to = to
	return f.busy, f.err
}

func testDirectory() Directory {
	return Directory{"Juliana": "juliana@salao.test", "Fernando": "fernando@salao.test"}
}

func newSlots(t *testing.T, cal *fakeFreeBusy) *SlotsHandler {
	t.Helper()
	h, err := NewSlotsHandler(cal, testDirectory(), time.UTC)
	require.NoError(t, err)
	return h
}

func decodePayload(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestNewSlotsHandler_Validation(t *testing.T) {
	_, err := NewSlotsHandler(nil, testDirectory(), time.UTC)
	require.Error(t, err)
	_, err = NewSlotsHandler(&fakeFreeBusy{}, Directory{}, time.UTC)
	require.Error(t, err)
	_, err = NewSlotsHandler(&fakeFreeBusy{}, testDirectory(), nil)
	require.Error(t, err)
}

func TestSlots_Declaration(t *testing.T) {
	h := newSlots(t, &fakeFreeBusy{})
	decl := h.Declaration()
	require.Equal(t, "get_available_slots", decl.Name)
	require.ElementsMatch(t, []string{"service", "professional", "date_range"}, decl.Parameters.Required)
	require.False(t, h.AcceptsCallerID())
}

func TestSlots_ProfessionalNotFound(t *testing.T) {
	h := newSlots(t, &fakeFreeBusy{})

	got := decodePayload(t, h.Invoke(context.Background(), map[string]any{
		"service": "corte", "professional": "Desconhecida", "date_range": "amanhã",
	}))
	require.Equal(t, "error", got["status"])
	require.Equal(t, "professional_not_found", got["error"])
}

func TestSlots_FreeCalendar(t *testing.T) {
	cal := &fakeFreeBusy{}
	h := newSlots(t, cal)
	now := time.Date(2025, 8, 19, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	got := decodePayload(t, h.Invoke(context.Background(), map[string]any{
		"service": "corte", "professional": "Juliana", "date_range": "amanhã",
	}))
	require.Equal(t, "free", got["status"])
	require.Equal(t, "juliana@salao.test", cal.calendarID)
	require.Equal(t, now, cal.from)
	require.Equal(t, now.Add(7*24*time.Hour), cal.to)
}

func TestSlots_ResolvesProfessionalCaseInsensitive(t *testing.T) {
	cal := &fakeFreeBusy{}
	h := newSlots(t, cal)

	h.Invoke(context.Background(), map[string]any{
		"service": "corte", "professional": "  juliana ", "date_range": "hoje",
	})
	require.Equal(t, "juliana@salao.test", cal.calendarID)
}

func TestSlots_BusyIntervals(t *testing.T) {
	cal := &fakeFreeBusy{busy: []domain.BusyInterval{
		{Start: time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC), End: time.Date(2025, 8, 20, 11, 0, 0, 0, time.UTC)},
		{Start: time.Date(2025, 8, 21, 14, 0, 0, 0, time.UTC), End: time.Date(2025, 8, 21, 15, 0, 0, 0, time.UTC)},
	}}
	h := newSlots(t, cal)

	got := decodePayload(t, h.Invoke(context.Background(), map[string]any{
		"service": "corte", "professional": "Fernando", "date_range": "próxima semana",
	}))
	intervals, ok := got["busy_intervals"].([]any)
	require.True(t, ok)
	require.Len(t, intervals, 2)
	first := intervals[0].(map[string]any)
	require.Equal(t, "2025-08-20T10:00:00Z", first["start"])
	require.Equal(t, "2025-08-20T11:00:00Z", first["end"])
}

func TestSlots_CalendarErrorBecomesPayload(t *testing.T) {
	h := newSlots(t, &fakeFreeBusy{err: errors.New("calendar down")})

	got := decodePayload(t, h.Invoke(context.Background(), map[string]any{
		"service": "corte", "professional": "Juliana", "date_range": "hoje",
	}))
	require.Equal(t, "error", got["status"])
	require.Equal(t, "calendar_unavailable", got["error"])
}
