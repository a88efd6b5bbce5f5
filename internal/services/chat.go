package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/serviteq/fieldops-backend/internal/catalog"
	"github.com/serviteq/fieldops-backend/internal/contract"
	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/metrics"
	"github.com/serviteq/fieldops-backend/internal/models"
	"github.com/serviteq/fieldops-backend/pkg/logger"
)

const (
	errModelUnavailable = "No pude contactar al asistente en este momento. Intenta de nuevo."
	errBadFinalAnswer   = "Recibí una respuesta que no pude interpretar. Intenta reformular tu pregunta."
	errTooManyRounds    = "No pude completar la consulta: se alcanzó el límite de operaciones."
)

// chatModel opens one model conversation per user turn. The stateful adapter
// keeps a session object; the stateless one replays the seeded history on
// every call. The loop treats both identically.
type chatModel interface {
	StartConversation(system string, tools []dto.ToolSchema, history []models.ChatMessage) ModelConversation
}

type ModelConversation interface {
	Send(ctx context.Context, userText string) (dto.ModelReply, error)
	SendToolResults(ctx context.Context, calls []dto.ToolCall, results []dto.ToolResponse) (dto.ModelReply, error)
}

type toolRunner interface {
	Execute(ctx context.Context, call dto.ToolCall) dto.ToolOutcome
}

type chatStore interface {
	SaveMessage(ctx context.Context, uid, sessionID string, msg models.ChatMessage) error
	ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.ChatMessage, error)
}

type chatService struct {
	model        chatModel
	tools        toolRunner
	store        chatStore
	metrics      *metrics.Metrics
	ttl          time.Duration
	historyLimit int
	maxRounds    int
	clockNow     func() time.Time
}

func NewChatService(model chatModel, tools toolRunner, store chatStore, m *metrics.Metrics, ttl time.Duration, historyLimit, maxRounds int) *chatService {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	if maxRounds <= 0 {
		maxRounds = 10
	}
	return &chatService{
		model:        model,
		tools:        tools,
		store:        store,
		metrics:      m,
		ttl:          ttl,
		historyLimit: historyLimit,
		maxRounds:    maxRounds,
		clockNow:     time.Now,
	}
}

// Query runs one full conversation turn: user text in, AIResponse out. It
// never returns a Go error; transport, tool and parsing failures all degrade
// to an in-band error response so the chat surface has exactly one contract.
func (s *chatService) Query(ctx context.Context, uid, sessionID, message string) dto.AIResponse {
	log := logger.FromContext(ctx)

	history, err := s.store.ListMessages(ctx, uid, sessionID, s.historyLimit)
	if err != nil {
		log.Error("failed to load chat history", "session_id", sessionID, "error", err)
		history = nil
	}

	conv := s.model.StartConversation(catalog.SystemInstruction(s.clockNow()), catalog.ToolSchemas(), history)

	s.saveMessage(ctx, uid, sessionID, models.ChatMessage{Role: "user", Content: message})

	reply, err := conv.Send(ctx, message)
	if err != nil {
		log.Error("model call failed", "session_id", sessionID, "error", err)
		return errorResponse(errModelUnavailable)
	}

	rounds := 0
	for len(reply.ToolCalls) > 0 {
		rounds++
		if rounds > s.maxRounds {
			log.Warn("tool round limit reached", "session_id", sessionID, "rounds", rounds)
			s.metrics.ConversationRounds.Observe(float64(rounds))
			return errorResponse(errTooManyRounds)
		}

		results := s.runTools(ctx, reply.ToolCalls)
		for i, call := range reply.ToolCalls {
			s.saveMessage(ctx, uid, sessionID, models.ChatMessage{
				Role:       "tool",
				ToolName:   call.Name,
				ToolArgs:   call.Args,
				ToolResult: results[i].Content,
			})
		}

		reply, err = conv.SendToolResults(ctx, reply.ToolCalls, results)
		if err != nil {
			log.Error("model call failed after tools", "session_id", sessionID, "error", err)
			return errorResponse(errModelUnavailable)
		}
	}
	s.metrics.ConversationRounds.Observe(float64(rounds))

	response, err := parseFinalAnswer(reply.Text)
	if err != nil {
		log.Warn("final answer outside contract", "session_id", sessionID, "error", err)
		return errorResponse(errBadFinalAnswer)
	}

	s.saveMessage(ctx, uid, sessionID, models.ChatMessage{Role: "assistant", Content: reply.Text})

	log.Info("chat query completed", "session_id", sessionID, "rounds", rounds)
	return response
}

// runTools executes one round of tool calls concurrently. Results stay in
// call order so the model can correlate each tool-response to its call.
func (s *chatService) runTools(ctx context.Context, calls []dto.ToolCall) []dto.ToolResponse {
	results := make([]dto.ToolResponse, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			outcome := s.tools.Execute(gctx, call)
			results[i] = dto.ToolResponse{Name: call.Name, Content: outcome.Serialize()}
			return nil
		})
	}
	// Execute never errors; Wait is for the join only.
	_ = g.Wait()
	return results
}

func (s *chatService) History(ctx context.Context, uid, sessionID string) (dto.ChatHistoryResponse, error) {
	history, err := s.store.ListMessages(ctx, uid, sessionID, 0)
	if err != nil {
		return dto.ChatHistoryResponse{}, err
	}

	out := dto.ChatHistoryResponse{SessionID: sessionID, Messages: []dto.ChatMessage{}}
	for _, msg := range history {
		if msg.Role == "tool" {
			continue
		}
		out.Messages = append(out.Messages, dto.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return out, nil
}

func (s *chatService) saveMessage(ctx context.Context, uid, sessionID string, msg models.ChatMessage) {
	now := s.clockNow()
	msg.CreatedAt = now
	if s.ttl > 0 {
		msg.ExpiresAt = now.Add(s.ttl)
	}
	if err := s.store.SaveMessage(ctx, uid, sessionID, msg); err != nil {
		logger.FromContext(ctx).Error("failed to save chat message", "session_id", sessionID, "error", err)
	}
}

// parseFinalAnswer decodes the model's final text into the response contract
// and validates it. Code fences are tolerated; anything else out of shape is
// an error for the caller to absorb.
func parseFinalAnswer(text string) (dto.AIResponse, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return dto.AIResponse{}, err
	}
	if err := contract.Validate(doc); err != nil {
		return dto.AIResponse{}, err
	}

	var response dto.AIResponse
	if err := json.Unmarshal([]byte(trimmed), &response); err != nil {
		return dto.AIResponse{}, err
	}
	return response, nil
}

func errorResponse(message string) dto.AIResponse {
	return dto.AIResponse{
		DisplayText:   message,
		StatusDisplay: &dto.StatusDisplay{Kind: "error", Message: message},
	}
}
