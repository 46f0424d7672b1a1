package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"salon-agent/internal/domain"
	"salon-agent/internal/usecase"
)

const (
	chatPath = "/api/v1/chat/message"

	statusMessage = "Agente de Salão AI Backend Ativo"
)

// chatUseCase is the orchestrator operation consumed by the handler.
type chatUseCase interface {
	Respond(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler routes API Gateway proxy events to the chat use case and maps
// use-case error codes to HTTP statuses. Raw diagnostics stay in logs.
type Handler struct {
	chat chatUseCase
}

func NewHandler(chat chatUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{chat: chat}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(event.Headers)

	switch {
	case event.Path == "/" && event.HTTPMethod == http.MethodGet:
		return jsonResponse(http.StatusOK, statusResponse{Status: statusMessage}, correlationID), nil
	case event.Path == chatPath && event.HTTPMethod == http.MethodPost:
		return h.handleChat(ctx, event, correlationID), nil
	case event.Path == chatPath || event.Path == "/":
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"}, correlationID), nil
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"}, correlationID), nil
	}
}

func (h *Handler) handleChat(ctx context.Context, event events.APIGatewayProxyRequest, correlationID string) events.APIGatewayProxyResponse {
	var req domain.ChatRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		slog.Warn("invalid request body", "correlation_id", correlationID, "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)}, correlationID)
	}

	out, err := h.chat.Respond(ctx, usecase.ChatInput{UserID: req.UserID, Message: req.Message})
	if err != nil {
		status, code := translateError(err)
		slog.Error("chat request failed",
			"correlation_id", correlationID,
			"status", status,
			"code", code,
			"err", err,
		)
		return jsonResponse(status, errorResponse{Error: code}, correlationID)
	}

	return jsonResponse(http.StatusOK, chatResponse{Reply: out.Reply}, correlationID)
}

// translateError maps the closed use-case error enumeration to an HTTP status
// and a sanitized code. Anything unrecognized is an internal error.
func translateError(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, string(ucErr.Code)
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "x-correlation-id") && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func jsonResponse(status int, body any, correlationID string) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(`{"error":"INTERNAL_ERROR"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": correlationID,
		},
		Body: string(raw),
	}
}
