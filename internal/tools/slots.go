package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"salon-agent/internal/domain"
)

// availabilityWindow is how far ahead of the moment of the call the free/busy
// query looks.
const availabilityWindow = 7 * 24 * time.Hour

// FreeBusyQuerier is the calendar operation consumed by the slots handler.
type FreeBusyQuerier interface {
	FreeBusy(ctx context.Context, calendarID string, from, to time.Time) ([]domain.BusyInterval, error)
}

// SlotsHandler implements the get_available_slots tool. It reports the busy
// intervals of a professional's calendar and leaves slot suggestion to the
// model's reasoning.
type SlotsHandler struct {
	calendar      FreeBusyQuerier
	professionals Directory
	loc           *time.Location
	now           func() time.Time
}

func NewSlotsHandler(calendar FreeBusyQuerier, professionals Directory, loc *time.Location) (*SlotsHandler, error) {
	if calendar == nil {
		return nil, errors.New("tools: calendar querier must not be nil")
	}
	if len(professionals) == 0 {
		return nil, errors.New("tools: professionals directory must not be empty")
	}
	if loc == nil {
		return nil, errors.New("tools: location must not be nil")
	}
	return &SlotsHandler{
		calendar:      calendar,
		professionals: professionals,
		loc:           loc,
		now:           time.Now,
	}, nil
}

func (h *SlotsHandler) Declaration() Declaration {
	return Declaration{
		Name:        "get_available_slots",
		Description: "Obtém os horários disponíveis para um serviço com um profissional em um intervalo de datas.",
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"service":      {Type: "string", Description: "O serviço desejado, ex: 'corte de cabelo'."},
				"professional": {Type: "string", Description: "O nome do profissional, ex: 'Juliana'."},
				"date_range":   {Type: "string", Description: "O período de busca, ex: 'hoje', 'amanhã', 'próxima semana'."},
			},
			Required: []string{"service", "professional", "date_range"},
		},
	}
}

func (h *SlotsHandler) AcceptsCallerID() bool { return false }

func (h *SlotsHandler) Invoke(ctx context.Context, args map[string]any) json.RawMessage {
	professional := stringArg(args, "professional")
	calendarID, ok := h.professionals.Resolve(professional)
	if !ok {
		return errorPayload("professional_not_found", map[string]any{
			"professional": professional,
		})
	}

	from := h.now().In(h.loc)
	to := from.Add(availabilityWindow)

	busy, err := h.calendar.FreeBusy(ctx, calendarID, from, to)
	if err != nil {
		slog.Error("free/busy query failed", "professional", professional, "err", err)
		return errorPayload("calendar_unavailable", nil)
	}

	if len(busy) == 0 {
		payload, _ := json.Marshal(map[string]any{
			"status":       "free",
			"message":      "Nenhum horário ocupado no período consultado.",
			"window_start": from.Format(time.RFC3339),
			"window_end":   to.Format(time.RFC3339),
		})
		return payload
	}

	intervals := make([]map[string]string, 0, len(busy))
	for _, b := range busy {
		intervals = append(intervals, map[string]string{
			"start": b.Start.In(h.loc).Format(time.RFC3339),
			"end":   b.End.In(h.loc).Format(time.RFC3339),
		})
	}
	payload, _ := json.Marshal(map[string]any{
		"busy_intervals": intervals,
		"window_start":   from.Format(time.RFC3339),
		"window_end":     to.Format(time.RFC3339),
	})
	return payload
}
