package domain

import "time"

// BusyInterval is one occupied window reported by a calendar free/busy query.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Appointment is a persisted booking row. GoogleCalendarEventID references
// the calendar event created for the booking.
type Appointment struct {
	UserID                string    `json:"user_id"`
	Professional          string    `json:"professional"`
	Service               string    `json:"service"`
	AppointmentTime       time.Time `json:"appointment_time"`
	GoogleCalendarEventID string    `json:"google_calendar_event_id"`
}
