package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"salon-agent/internal/domain"
	"salon-agent/internal/integrations/paramstore"
	"salon-agent/internal/tools"
)

const systemInstruction = "Você é um assistente de salão de beleza. Seja amigável e direto. " +
	"Sua função é responder perguntas e agendar serviços. Use as ferramentas disponíveis " +
	"quando necessário para verificar horários ou criar agendamentos."

// generateRequest is the minimal request shape for the generateContent endpoint.
type generateRequest struct {
	SystemInstruction *content      `json:"system_instruction,omitempty"`
	Contents          []contentItem `json:"contents"`
	Tools             []toolConfig  `json:"tools,omitempty"`
}

type toolConfig struct {
	FunctionDeclarations []functionDeclaration `json:"function_declarations"`
}

type functionDeclaration struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  tools.Schema `json:"parameters"`
}

type content struct {
	Parts []part `json:"parts"`
}

// contentItem is one entry of the conversation. It is either a typed content
// block built here or the model's prior content echoed back verbatim.
type contentItem struct {
	typed content
	role  string
	raw   json.RawMessage
}

func (c contentItem) MarshalJSON() ([]byte, error) {
	if c.raw != nil {
		return c.raw, nil
	}
	return json.Marshal(struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}{Role: c.role, Parts: c.typed.Parts})
}

type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// generateResponse is the minimal response shape returned by generateContent.
type generateResponse struct {
	Candidates []struct {
		Content json.RawMessage `json:"content"`
	} `json:"candidates"`
}

// candidateContent is the subset of the candidate content we inspect; the raw
// bytes are preserved separately for the follow-up round.
type candidateContent struct {
	Parts []struct {
		Text         string `json:"text"`
		FunctionCall *struct {
			Name string         `json:"name"`
			Args map[string]any `json:"args"`
		} `json:"functionCall"`
	} `json:"parts"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused Gemini client for the generateContent endpoint.
type Client struct {
	baseURL      string
	model        string
	httpClient   *http.Client
	getter       Getter
	paramPrefix  string
	declarations []tools.Declaration

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client backed by the given paramstore getter for API
// key retrieval. The key is fetched on the first call to Converse and reused
// for the lifetime of the process. declarations is the read-only tool schema
// set sent with every request.
func NewClient(ps Getter, paramPrefix, model string, declarations []tools.Declaration, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("gemini: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("gemini: parameter prefix must not be empty")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("gemini: model must not be empty")
	}
	c := &Client{
		baseURL:      "https://generativelanguage.googleapis.com/v1beta",
		model:        model,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		getter:       ps,
		paramPrefix:  paramPrefix,
		declarations: declarations,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolveAPIKey fetches the API key on the first call and returns the cached
// result on every subsequent call within the same process lifetime.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = fetchAPIKey(ctx, c.getter, c.keyParameterName())
	})
	return c.apiKey, c.keyErr
}

func (c *Client) keyParameterName() string {
	return paramstore.Join(c.paramPrefix, "gemini-api-key")
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func generateURL(baseURL, model string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	return base + "/models/" + model + ":generateContent"
}

// Converse performs one blocking generateContent round trip and parses the
// first candidate into a ModelReply.
func (c *Client) Converse(ctx context.Context, turn domain.ConversationTurn) (domain.ModelReply, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.ModelReply{}, err
	}

	contents, err := buildContents(turn)
	if err != nil {
		return domain.ModelReply{}, err
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents:          contents,
		Tools:             c.toolConfigs(),
	})
	if err != nil {
		return domain.ModelReply{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := generateURL(c.baseURL, c.model)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return domain.ModelReply{}, fmt.Errorf("gemini: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return domain.ModelReply{}, fmt.Errorf("gemini: request failed: %w", err)
	}

	var payload generateResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return domain.ModelReply{}, fmt.Errorf("gemini: decode response: %w", decErr)
	}
	return parseCandidate(payload)
}

func (c *Client) toolConfigs() []toolConfig {
	if len(c.declarations) == 0 {
		return nil
	}
	decls := make([]functionDeclaration, 0, len(c.declarations))
	for _, d := range c.declarations {
		decls = append(decls, functionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return []toolConfig{{FunctionDeclarations: decls}}
}

// buildContents assembles the conversation for one round. A tool-result turn
// is the ordered triple [user text, prior model content, function response].
func buildContents(turn domain.ConversationTurn) ([]contentItem, error) {
	if strings.TrimSpace(turn.UserMessage) == "" {
		return nil, errors.New("gemini: user message must not be empty")
	}
	contents := []contentItem{
		{role: "user", typed: content{Parts: []part{{Text: turn.UserMessage}}}},
	}
	if turn.ToolResult == nil {
		return contents, nil
	}
	if turn.PriorReply == nil || len(turn.PriorReply.Raw) == 0 {
		return nil, errors.New("gemini: tool-result turn requires the prior model reply")
	}

	var payload any
	if err := json.Unmarshal(turn.ToolResult.Payload, &payload); err != nil {
		return nil, fmt.Errorf("gemini: decode tool payload: %w", err)
	}
	contents = append(contents,
		contentItem{raw: turn.PriorReply.Raw},
		contentItem{role: "user", typed: content{Parts: []part{{
			FunctionResponse: &functionResponse{
				Name:     turn.ToolResult.Name,
				Response: map[string]any{"content": payload},
			},
		}}}},
	)
	return contents, nil
}

// parseCandidate maps the first candidate to the ModelReply union. A response
// with no candidate, or a candidate with no text and no function call, is an
// error for the current request.
func parseCandidate(payload generateResponse) (domain.ModelReply, error) {
	if len(payload.Candidates) == 0 {
		return domain.ModelReply{}, errors.New("gemini: no candidates in response")
	}
	raw := payload.Candidates[0].Content

	var cc candidateContent
	if err := json.Unmarshal(raw, &cc); err != nil {
		return domain.ModelReply{}, fmt.Errorf("gemini: decode candidate content: %w", err)
	}
	if len(cc.Parts) == 0 {
		return domain.ModelReply{}, errors.New("gemini: candidate has no parts")
	}

	first := cc.Parts[0]
	if first.FunctionCall != nil {
		if strings.TrimSpace(first.FunctionCall.Name) == "" {
			return domain.ModelReply{}, errors.New("gemini: function call has no name")
		}
		args := first.FunctionCall.Args
		if args == nil {
			args = map[string]any{}
		}
		return domain.ModelReply{
			Call: &domain.ToolCallRequest{Name: first.FunctionCall.Name, Arguments: args},
			Raw:  raw,
		}, nil
	}
	if first.Text == "" {
		return domain.ModelReply{}, errors.New("gemini: candidate part has neither text nor function call")
	}
	return domain.ModelReply{Text: first.Text, Raw: raw}, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
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

func fetchAPIKey(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("gemini: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("gemini: key parameter name is empty")
	}

	key, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("gemini: fetch API key from paramstore: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("gemini: API key is empty")
	}
	return strings.TrimSpace(key), nil
}
