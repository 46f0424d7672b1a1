package repository

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

	"salon-agent/internal/domain"
)

const (
	faqsTable         = "faqs"
	appointmentsTable = "appointments"

	// pgrstSingleObject makes PostgREST return exactly one row as an object,
	// failing with 406 when zero or several rows match.
	pgrstSingleObject = "application/vnd.pgrst.object+json"
)

// FAQReader is the cache-lookup operation consumed by the orchestrator.
type FAQReader interface {
	LookupFAQ(ctx context.Context, question string) (answer string, found bool, err error)
}

// Client wraps a Supabase PostgREST endpoint for the faqs and appointments
// tables.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a repository Client for the given Supabase project URL and
// service key.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("repository: base URL must not be empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("repository: api key must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/rest/v1/" + table
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// LookupFAQ returns the stored answer for an exact question match. A query
// that matches no row reports found=false with no error; every other failure
// is returned to the caller, which treats it as a miss.
func (c *Client) LookupFAQ(ctx context.Context, question string) (string, bool, error) {
	q := url.Values{}
	q.Set("select", "answer")
	q.Set("question", "eq."+question)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL(faqsTable)+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, fmt.Errorf("repository: LookupFAQ create request: %w", err)
	}
	c.setAuthHeaders(req)
	req.Header.Set("Accept", pgrstSingleObject)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("repository: LookupFAQ request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotAcceptable {
		// Strict single-object read with zero (or several) matching rows.
		return "", false, nil
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", false, fmt.Errorf("repository: LookupFAQ status %d: %s", res.StatusCode, string(buf))
	}

	var row struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&row); err != nil {
		return "", false, fmt.Errorf("repository: LookupFAQ decode: %w", err)
	}
	if row.Answer == "" {
		return "", false, nil
	}
	return row.Answer, true, nil
}

// InsertAppointment writes a booking row and reports whether the insert
// returned a representation confirming it.
func (c *Client) InsertAppointment(ctx context.Context, appt domain.Appointment) (bool, error) {
	body, err := json.Marshal(appt)
	if err != nil {
		return false, fmt.Errorf("repository: InsertAppointment marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(appointmentsTable), bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("repository: InsertAppointment create request: %w", err)
	}
	c.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("repository: InsertAppointment request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return false, fmt.Errorf("repository: InsertAppointment status %d: %s", res.StatusCode, string(buf))
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&rows); err != nil {
		return false, fmt.Errorf("repository: InsertAppointment decode: %w", err)
	}
	return len(rows) > 0, nil
}
