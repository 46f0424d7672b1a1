package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"salon-agent/internal/domain"
	"salon-agent/internal/tools"
)

const defaultMaxMessageLen = 1000

// apologyReply is returned verbatim when the model requests a tool that is
// not in the registry. No second model round trip happens in that case.
const apologyReply = "Desculpe, ocorreu um erro ao tentar executar uma ação."

// FAQReader is the exact-match cache lookup in front of the model.
type FAQReader interface {
	LookupFAQ(ctx context.Context, question string) (answer string, found bool, err error)
}

// ModelGateway is one blocking request/response exchange with the LLM.
type ModelGateway interface {
	Converse(ctx context.Context, turn domain.ConversationTurn) (domain.ModelReply, error)
}

// ToolDispatcher routes a model-requested tool call to its handler.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, call domain.ToolCallRequest, caller tools.CallerContext) tools.Outcome
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService is the conversation orchestrator: cache check, model call,
// optional tool dispatch, optional second model call, final reply.
type ChatService struct {
	faqs          FAQReader
	model         ModelGateway
	dispatcher    ToolDispatcher
	maxMessageLen int
}

type ChatInput struct {
	UserID  string
	Message string
}

type ChatOutput struct {
	Reply string
}

func NewChatService(faqs FAQReader, model ModelGateway, dispatcher ToolDispatcher, maxMessageLen int) (*ChatService, error) {
	if faqs == nil {
		return nil, errors.New("usecase: faq reader must not be nil")
	}
	if model == nil {
		return nil, errors.New("usecase: model gateway must not be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("usecase: tool dispatcher must not be nil")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLen
	}
	return &ChatService{
		faqs:          faqs,
		model:         model,
		dispatcher:    dispatcher,
		maxMessageLen: maxMessageLen,
	}, nil
}

func (s *ChatService) Respond(ctx context.Context, in ChatInput) (ChatOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_user_id", nil)
	}
	message := normalizeQuestion(in.Message)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if len(message) > s.maxMessageLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	// Cache first. A backing-store failure is an ordinary miss.
	answer, found, err := s.faqs.LookupFAQ(ctx, message)
	if err != nil {
		slog.Debug("faq lookup failed, treating as miss", "err", err)
	}
	if found {
		slog.Info("faq cache hit")
		return ChatOutput{Reply: answer}, nil
	}
	slog.Info("faq cache miss")

	reply, err := s.model.Converse(ctx, domain.ConversationTurn{UserMessage: message})
	if err != nil {
		return ChatOutput{}, mapModelError("gemini_error", err)
	}
	if !reply.IsToolCall() {
		return ChatOutput{Reply: reply.Text}, nil
	}

	outcome := s.dispatcher.Dispatch(ctx, *reply.Call, tools.CallerContext{UserID: userID})
	if !outcome.Known {
		// Unrecognized tool name short-circuits to a fixed apology without a
		// second model round trip.
		return ChatOutput{Reply: apologyReply}, nil
	}

	final, err := s.model.Converse(ctx, domain.ConversationTurn{
		UserMessage: message,
		PriorReply:  &reply,
		ToolResult:  &domain.ToolResult{Name: outcome.Name, Payload: outcome.Payload},
	})
	if err != nil {
		return ChatOutput{}, mapModelError("gemini_tool_round_error", err)
	}
	if final.IsToolCall() {
		return ChatOutput{}, newError(ErrorUpstream, "unexpected_second_tool_call", nil)
	}
	return ChatOutput{Reply: final.Text}, nil
}

// normalizeQuestion applies the cache-key policy: lower-case, trimmed,
// exact match only.
func normalizeQuestion(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func mapModelError(reason string, err error) *Error {
	if status, ok := upstreamStatusCode(err); ok && status == 429 {
		return newError(ErrorRateLimited, "gemini_rate_limited", err)
	}
	return newError(ErrorUpstream, reason, err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
