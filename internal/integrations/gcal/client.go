package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/google"

	"salon-agent/internal/domain"
)

// calendarScope is the OAuth scope requested for the service account.
const calendarScope = "https://www.googleapis.com/auth/calendar"

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// freeBusyRequest is the minimal request shape for the freeBusy endpoint.
type freeBusyRequest struct {
	TimeMin string             `json:"timeMin"`
	TimeMax string             `json:"timeMax"`
	Items   []freeBusyCalendar `json:"items"`
}

type freeBusyCalendar struct {
	ID string `json:"id"`
}

// freeBusyResponse is the minimal response shape for the freeBusy endpoint.
type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"busy"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"calendars"`
}

// eventRequest is the minimal request shape for event insertion.
type eventRequest struct {
	Summary string    `json:"summary"`
	Start   eventTime `json:"start"`
	End     eventTime `json:"end"`
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

// eventResponse is the minimal response shape for event insertion.
type eventResponse struct {
	ID string `json:"id"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gcal: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused Google Calendar client covering the free/busy query and
// event insertion used by the booking tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithHTTPClient replaces the authenticated client; when set, the service
// account credentials are not consulted.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client authenticated with the given service-account
// credential JSON. Token refresh is handled by the oauth2 transport.
func NewClient(ctx context.Context, credsJSON []byte, opts ...Option) (*Client, error) {
	c := &Client{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		if len(credsJSON) == 0 {
			return nil, errors.New("gcal: service account credentials must not be empty")
		}
		cfg, err := google.JWTConfigFromJSON(credsJSON, calendarScope)
		if err != nil {
			return nil, fmt.Errorf("gcal: parse service account credentials: %w", err)
		}
		c.httpClient = cfg.Client(ctx)
	}
	return c, nil
}

// FreeBusy returns the busy intervals of one calendar within [from, to).
func (c *Client) FreeBusy(ctx context.Context, calendarID string, from, to time.Time) ([]domain.BusyInterval, error) {
	if strings.TrimSpace(calendarID) == "" {
		return nil, errors.New("gcal: calendar id must not be empty")
	}

	body, err := json.Marshal(freeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []freeBusyCalendar{{ID: calendarID}},
	})
	if err != nil {
		return nil, fmt.Errorf("gcal: marshal freebusy request: %w", err)
	}

	raw, err := c.postJSON(ctx, c.endpoint("/freeBusy"), body)
	if err != nil {
		return nil, fmt.Errorf("gcal: freebusy request failed: %w", err)
	}

	var payload freeBusyResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return nil, fmt.Errorf("gcal: decode freebusy response: %w", decErr)
	}
	cal, ok := payload.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("gcal: calendar %q missing from freebusy response", calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("gcal: freebusy query for %q failed: %s", calendarID, cal.Errors[0].Reason)
	}

	busy := make([]domain.BusyInterval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		busy = append(busy, domain.BusyInterval{Start: b.Start, End: b.End})
	}
	return busy, nil
}

// CreateEvent inserts an event into the calendar and returns the
// calendar-assigned event identifier.
func (c *Client) CreateEvent(ctx context.Context, calendarID, summary string, start, end time.Time) (string, error) {
	if strings.TrimSpace(calendarID) == "" {
		return "", errors.New("gcal: calendar id must not be empty")
	}

	body, err := json.Marshal(eventRequest{
		Summary: summary,
		Start:   eventTime{DateTime: start.Format(time.RFC3339), TimeZone: start.Location().String()},
		End:     eventTime{DateTime: end.Format(time.RFC3339), TimeZone: end.Location().String()},
	})
	if err != nil {
		return "", fmt.Errorf("gcal: marshal event request: %w", err)
	}

	raw, err := c.postJSON(ctx, c.endpoint("/calendars/"+url.PathEscape(calendarID)+"/events"), body)
	if err != nil {
		return "", fmt.Errorf("gcal: event insert failed: %w", err)
	}

	var payload eventResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("gcal: decode event response: %w", decErr)
	}
	if payload.ID == "" {
		return "", errors.New("gcal: event response has no id")
	}
	return payload.ID, nil
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + path
}

func (c *Client) postJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
