package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/metrics"
	"github.com/serviteq/fieldops-backend/internal/models"
	"github.com/serviteq/fieldops-backend/pkg/helpers"
)

type fakeConversation struct {
	replies []dto.ModelReply
	err     error

	sentText    []string
	toolRounds  [][]dto.ToolResponse
	seedHistory []models.ChatMessage
}

func (f *fakeConversation) next() (dto.ModelReply, error) {
	if f.err != nil {
		return dto.ModelReply{}, f.err
	}
	if len(f.replies) == 0 {
		return dto.ModelReply{}, errors.New("no replies configured")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeConversation) Send(ctx context.Context, userText string) (dto.ModelReply, error) {
	f.sentText = append(f.sentText, userText)
	return f.next()
}

func (f *fakeConversation) SendToolResults(ctx context.Context, calls []dto.ToolCall, results []dto.ToolResponse) (dto.ModelReply, error) {
	f.toolRounds = append(f.toolRounds, results)
	return f.next()
}

type fakeModel struct {
	conv   *fakeConversation
	system string
	tools  []dto.ToolSchema
}

func (f *fakeModel) StartConversation(system string, tools []dto.ToolSchema, history []models.ChatMessage) ModelConversation {
	f.system = system
	f.tools = tools
	f.conv.seedHistory = history
	return f.conv
}

type fakeRunner struct {
	outcomes map[string]dto.ToolOutcome
	calls    []dto.ToolCall
}

func (f *fakeRunner) Execute(ctx context.Context, call dto.ToolCall) dto.ToolOutcome {
	f.calls = append(f.calls, call)
	if outcome, ok := f.outcomes[call.Name]; ok {
		return outcome
	}
	return dto.ToolOutcome{Message: "ok"}
}

type fakeChatStore struct {
	saved   []models.ChatMessage
	history []models.ChatMessage
	listErr error
	saveErr error
}

func (f *fakeChatStore) SaveMessage(ctx context.Context, uid, sessionID string, msg models.ChatMessage) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, msg)
	return nil
}

func (f *fakeChatStore) ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.ChatMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.history, nil
}

func newTestChatService(model *fakeModel, runner *fakeRunner, store *fakeChatStore) *chatService {
	svc := NewChatService(model, runner, store, metrics.New(prometheus.NewRegistry()), time.Hour, 20, 10)
	svc.clockNow = func() time.Time {
		return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestChatQueryNoToolCall(t *testing.T) {
	model := &fakeModel{conv: &fakeConversation{
		replies: []dto.ModelReply{{Text: `{"displayText":"Hay 3 máquinas activas."}`}},
	}}
	runner := &fakeRunner{}
	store := &fakeChatStore{}
	svc := newTestChatService(model, runner, store)

	resp := svc.Query(helpers.TestCtx(), "user-1", "s-1", "¿Cuántas máquinas activas hay?")

	if resp.DisplayText != "Hay 3 máquinas activas." {
		t.Fatalf("displayText mismatch: %q", resp.DisplayText)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("expected no tool calls, got %d", len(runner.calls))
	}
	if len(store.saved) != 2 {
		t.Fatalf("expected user+assistant messages saved, got %d", len(store.saved))
	}
	if store.saved[0].Role != "user" || store.saved[1].Role != "assistant" {
		t.Fatalf("role order mismatch: %v / %v", store.saved[0].Role, store.saved[1].Role)
	}
	if store.saved[0].ExpiresAt.Sub(store.saved[0].CreatedAt) != time.Hour {
		t.Fatalf("ttl mismatch: %v", store.saved[0].ExpiresAt)
	}
	if model.system == "" || len(model.tools) != 3 {
		t.Fatalf("conversation not seeded with instruction and tools")
	}
}

func TestChatQueryToolFlow(t *testing.T) {
	model := &fakeModel{conv: &fakeConversation{
		replies: []dto.ModelReply{
			{ToolCalls: []dto.ToolCall{
				{Name: "executeQueryOnDatabase", Args: map[string]any{"tableName": "Maquina"}},
				{Name: "getAggregateData", Args: map[string]any{"tableName": "Planta"}},
			}},
			{Text: `{"displayText":"Listo."}`},
		},
	}}
	runner := &fakeRunner{outcomes: map[string]dto.ToolOutcome{
		"executeQueryOnDatabase": {Results: []map[string]any{{"id": "1"}}},
		"getAggregateData":       {Results: []map[string]any{{"count": 2}}},
	}}
	store := &fakeChatStore{history: []models.ChatMessage{
		{Role: "user", Content: "hola"},
		{Role: "assistant", Content: `{"displayText":"Hola."}`},
	}}
	svc := newTestChatService(model, runner, store)

	resp := svc.Query(helpers.TestCtx(), "user-1", "s-1", "Dame las máquinas")

	if resp.DisplayText != "Listo." {
		t.Fatalf("displayText mismatch: %q", resp.DisplayText)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 tool executions, got %d", len(runner.calls))
	}
	if len(model.conv.toolRounds) != 1 {
		t.Fatalf("expected 1 tool round, got %d", len(model.conv.toolRounds))
	}
	round := model.conv.toolRounds[0]
	if round[0].Name != "executeQueryOnDatabase" || round[1].Name != "getAggregateData" {
		t.Fatalf("tool results out of call order: %v", round)
	}
	if len(model.conv.seedHistory) != 2 {
		t.Fatalf("history not passed to conversation: %d", len(model.conv.seedHistory))
	}
	// user + 2 tool messages + assistant
	if len(store.saved) != 4 {
		t.Fatalf("expected 4 saved messages, got %d", len(store.saved))
	}
	if store.saved[1].Role != "tool" || store.saved[1].ToolName != "executeQueryOnDatabase" {
		t.Fatalf("tool message mismatch: %+v", store.saved[1])
	}
}

func TestChatQueryRoundLimit(t *testing.T) {
	// The model keeps asking for tools forever.
	replies := make([]dto.ModelReply, 0, 12)
	for i := 0; i < 12; i++ {
		replies = append(replies, dto.ModelReply{ToolCalls: []dto.ToolCall{
			{Name: "executeQueryOnDatabase", Args: map[string]any{"tableName": "Maquina"}},
		}})
	}
	model := &fakeModel{conv: &fakeConversation{replies: replies}}
	runner := &fakeRunner{}
	svc := newTestChatService(model, runner, &fakeChatStore{})

	resp := svc.Query(helpers.TestCtx(), "user-1", "s-1", "bucle")

	if resp.DisplayText != errTooManyRounds {
		t.Fatalf("expected round-limit response, got %q", resp.DisplayText)
	}
	if resp.StatusDisplay == nil || resp.StatusDisplay.Kind != "error" {
		t.Fatalf("expected error status display, got %+v", resp.StatusDisplay)
	}
	if len(runner.calls) != 10 {
		t.Fatalf("expected exactly 10 tool rounds executed, got %d", len(runner.calls))
	}
}

func TestChatQueryModelError(t *testing.T) {
	model := &fakeModel{conv: &fakeConversation{err: errors.New("deadline exceeded")}}
	svc := newTestChatService(model, &fakeRunner{}, &fakeChatStore{})

	resp := svc.Query(helpers.TestCtx(), "user-1", "s-1", "hola")

	if resp.DisplayText != errModelUnavailable {
		t.Fatalf("expected unavailable response, got %q", resp.DisplayText)
	}
	if resp.StatusDisplay == nil || resp.StatusDisplay.Kind != "error" {
		t.Fatalf("expected error status display")
	}
}

func TestChatQueryBadFinalAnswer(t *testing.T) {
	cases := []string{
		"no soy JSON",
		`{"table":{"headers":[],"rows":[]}}`, // missing displayText
		`{"displayText":42}`,
	}
	for _, text := range cases {
		model := &fakeModel{conv: &fakeConversation{replies: []dto.ModelReply{{Text: text}}}}
		svc := newTestChatService(model, &fakeRunner{}, &fakeChatStore{})

		resp := svc.Query(helpers.TestCtx(), "user-1", "s-1", "hola")
		if resp.DisplayText != errBadFinalAnswer {
			t.Fatalf("%q: expected bad-answer response, got %q", text, resp.DisplayText)
		}
	}
}

func TestChatQueryFencedFinalAnswer(t *testing.T) {
	model := &fakeModel{conv: &fakeConversation{
		replies: []dto.ModelReply{{Text: "```json\n{\"displayText\":\"Hecho.\"}\n```"}},
	}}
	svc := newTestChatService(model, &fakeRunner{}, &fakeChatStore{})

	resp := svc.Query(helpers.TestCtx(), "user-1", "s-1", "hola")
	if resp.DisplayText != "Hecho." {
		t.Fatalf("displayText mismatch: %q", resp.DisplayText)
	}
}

func TestChatQueryHistoryLoadFailureDegrades(t *testing.T) {
	model := &fakeModel{conv: &fakeConversation{
		replies: []dto.ModelReply{{Text: `{"displayText":"Sin memoria, pero respondo."}`}},
	}}
	store := &fakeChatStore{listErr: errors.New("firestore unavailable")}
	svc := newTestChatService(model, &fakeRunner{}, store)

	resp := svc.Query(helpers.TestCtx(), "user-1", "s-1", "hola")
	if resp.DisplayText != "Sin memoria, pero respondo." {
		t.Fatalf("displayText mismatch: %q", resp.DisplayText)
	}
	if len(model.conv.seedHistory) != 0 {
		t.Fatalf("expected empty history on load failure")
	}
}

func TestChatHistoryFiltersToolMessages(t *testing.T) {
	store := &fakeChatStore{history: []models.ChatMessage{
		{Role: "user", Content: "hola"},
		{Role: "tool", ToolName: "executeQueryOnDatabase", ToolResult: `{"results":[]}`},
		{Role: "assistant", Content: "Hola."},
	}}
	svc := newTestChatService(&fakeModel{conv: &fakeConversation{}}, &fakeRunner{}, store)

	out, err := svc.History(helpers.TestCtx(), "user-1", "s-1")
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if out.SessionID != "s-1" {
		t.Fatalf("sessionID mismatch: %q", out.SessionID)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("expected tool messages filtered, got %d", len(out.Messages))
	}
	if out.Messages[0].Role != "user" || out.Messages[1].Role != "assistant" {
		t.Fatalf("roles mismatch: %+v", out.Messages)
	}
}
