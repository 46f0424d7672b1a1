package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"salon-agent/internal/domain"
)

// appointmentDuration is fixed for every service.
const appointmentDuration = time.Hour

// localDatetimeLayout is the ISO datetime shape the model is instructed to
// produce, without a zone offset; it is interpreted in the salon's time zone.
const localDatetimeLayout = "2006-01-02T15:04:05"

// EventCreator is the calendar operation consumed by the appointment handler.
type EventCreator interface {
	CreateEvent(ctx context.Context, calendarID, summary string, start, end time.Time) (string, error)
}

// AppointmentWriter persists a booking row. recorded reports whether the
// insert returned confirming data.
type AppointmentWriter interface {
	InsertAppointment(ctx context.Context, appt domain.Appointment) (recorded bool, err error)
}

// AppointmentHandler implements the create_appointment tool: it creates the
// calendar event and then records the booking. A calendar event that was
// created but whose record could not be confirmed is reported as an explicit
// error payload; the event is not rolled back.
type AppointmentHandler struct {
	calendar      EventCreator
	store         AppointmentWriter
	professionals Directory
	loc           *time.Location
}

func NewAppointmentHandler(calendar EventCreator, store AppointmentWriter, professionals Directory, loc *time.Location) (*AppointmentHandler, error) {
	if calendar == nil {
		return nil, errors.New("tools: event creator must not be nil")
	}
	if store == nil {
		return nil, errors.New("tools: appointment writer must not be nil")
	}
	if len(professionals) == 0 {
		return nil, errors.New("tools: professionals directory must not be empty")
	}
	if loc == nil {
		return nil, errors.New("tools: location must not be nil")
	}
	return &AppointmentHandler{
		calendar:      calendar,
		store:         store,
		professionals: professionals,
		loc:           loc,
	}, nil
}

func (h *AppointmentHandler) Declaration() Declaration {
	return Declaration{
		Name:        "create_appointment",
		Description: "Cria um agendamento para um usuário.",
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"userId":       {Type: "string", Description: "O ID do usuário que está agendando."},
				"service":      {Type: "string", Description: "O serviço a ser agendado."},
				"professional": {Type: "string", Description: "O nome do profissional."},
				"datetime_str": {Type: "string", Description: "A data e hora do agendamento no formato ISO, ex: '2025-08-20T10:00:00'."},
			},
			Required: []string{"userId", "service", "professional", "datetime_str"},
		},
	}
}

func (h *AppointmentHandler) AcceptsCallerID() bool { return true }

func (h *AppointmentHandler) Invoke(ctx context.Context, args map[string]any) json.RawMessage {
	userID := stringArg(args, "userId")
	service := stringArg(args, "service")
	professional := stringArg(args, "professional")
	datetimeStr := stringArg(args, "datetime_str")

	calendarID, ok := h.professionals.Resolve(professional)
	if !ok {
		return errorPayload("professional_not_found", map[string]any{
			"professional": professional,
		})
	}

	start, err := h.parseDatetime(datetimeStr)
	if err != nil {
		return errorPayload("invalid_datetime", map[string]any{
			"datetime_str": datetimeStr,
		})
	}
	end := start.Add(appointmentDuration)

	summary := fmt.Sprintf("%s com %s", service, professional)
	eventID, err := h.calendar.CreateEvent(ctx, calendarID, summary, start, end)
	if err != nil {
		slog.Error("calendar event creation failed", "professional", professional, "err", err)
		return errorPayload("calendar_error", nil)
	}

	recorded, err := h.store.InsertAppointment(ctx, domain.Appointment{
		UserID:                userID,
		Professional:          professional,
		Service:               service,
		AppointmentTime:       start,
		GoogleCalendarEventID: eventID,
	})
	if err != nil || !recorded {
		// Partial commit: the calendar event exists but the booking row was
		// not confirmed. No compensating delete is performed.
		if err != nil {
			slog.Error("appointment insert failed", "calendar_event_id", eventID, "err", err)
		}
		return errorPayload("appointment_not_recorded", map[string]any{
			"calendar_event_id": eventID,
			"message":           "O evento foi criado na agenda, mas o registro do agendamento não pôde ser confirmado.",
		})
	}

	payload, _ := json.Marshal(map[string]any{
		"status":            "success",
		"calendar_event_id": eventID,
		"message": fmt.Sprintf("Agendamento confirmado para o serviço '%s' com %s em %s.",
			service, professional, start.Format(localDatetimeLayout)),
	})
	return payload
}

// parseDatetime accepts the zone-less ISO layout the tool schema asks for and
// falls back to RFC3339 when the model includes an offset anyway.
func (h *AppointmentHandler) parseDatetime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(localDatetimeLayout, s, h.loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
