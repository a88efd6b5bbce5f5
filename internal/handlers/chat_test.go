package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/serviteq/fieldops-backend/internal/config"
	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/errs"
	"github.com/serviteq/fieldops-backend/internal/middleware"
	"github.com/serviteq/fieldops-backend/pkg/logger"
)

type stubChatService struct {
	queryCalled bool
	uid         string
	sessionID   string
	message     string
	resp        dto.AIResponse

	historyResp dto.ChatHistoryResponse
	historyErr  error
}

func (s *stubChatService) Query(ctx context.Context, uid, sessionID, message string) dto.AIResponse {
	s.queryCalled = true
	s.uid = uid
	s.sessionID = sessionID
	s.message = message
	return s.resp
}

func (s *stubChatService) History(ctx context.Context, uid, sessionID string) (dto.ChatHistoryResponse, error) {
	return s.historyResp, s.historyErr
}

type stubBridge struct {
	called bool
	query  string
	user   string
	file   string
	resp   dto.AIResponse
}

func (s *stubBridge) Consult(ctx context.Context, query, userName, file string) dto.AIResponse {
	s.called = true
	s.query = query
	s.user = userName
	s.file = file
	return s.resp
}

type chatStubResponseHandler struct {
	writeSuccessCalled bool
	writeSuccessStatus int
	writeSuccessData   any

	handleErrorCalled bool
	handleError       error
}

func (s *chatStubResponseHandler) WriteSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	s.writeSuccessCalled = true
	s.writeSuccessStatus = status
	s.writeSuccessData = data
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (s *chatStubResponseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.WriteHeader(status)
}

func (s *chatStubResponseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	s.handleErrorCalled = true
	s.handleError = err
	w.WriteHeader(http.StatusInternalServerError)
}

func newChatRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat/query", strings.NewReader(body))
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))
	ctx := logger.ToContext(req.Context(), log)
	ctx = context.WithValue(ctx, middleware.UIDKey, "uid-123")
	return req.WithContext(ctx)
}

func TestChatQueryHandlerModelMode(t *testing.T) {
	chatSvc := &stubChatService{resp: dto.AIResponse{DisplayText: "Hola"}}
	bridge := &stubBridge{}
	resp := &chatStubResponseHandler{}
	h := NewChatHandlers(&Deps{ResponseHandler: resp, ChatSvc: chatSvc, BridgeSvc: bridge, AgentMode: config.ModeModel})

	rr := httptest.NewRecorder()
	h.Query(rr, newChatRequest(t, `{"sessionId":"s1","message":"hola"}`))

	if !chatSvc.queryCalled {
		t.Fatalf("expected chat service to be called")
	}
	if bridge.called {
		t.Fatalf("bridge should not be called in model mode")
	}
	if chatSvc.uid != "uid-123" || chatSvc.sessionID != "s1" || chatSvc.message != "hola" {
		t.Fatalf("args mismatch: %q %q %q", chatSvc.uid, chatSvc.sessionID, chatSvc.message)
	}
	if !resp.writeSuccessCalled || resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("expected 200 success write")
	}
	out, ok := resp.writeSuccessData.(dto.AIResponse)
	if !ok || out.DisplayText != "Hola" {
		t.Fatalf("payload mismatch: %+v", resp.writeSuccessData)
	}
}

func TestChatQueryHandlerWebhookMode(t *testing.T) {
	chatSvc := &stubChatService{}
	bridge := &stubBridge{resp: dto.AIResponse{DisplayText: "del agente"}}
	resp := &chatStubResponseHandler{}
	h := NewChatHandlers(&Deps{ResponseHandler: resp, ChatSvc: chatSvc, BridgeSvc: bridge, AgentMode: config.ModeWebhook})

	rr := httptest.NewRecorder()
	h.Query(rr, newChatRequest(t, `{"sessionId":"s1","message":"hola","file":"data:image/png;base64,Zm9v"}`))

	if !bridge.called {
		t.Fatalf("expected bridge to be called")
	}
	if chatSvc.queryCalled {
		t.Fatalf("chat service should not be called in webhook mode")
	}
	if bridge.query != "hola" || bridge.user != "uid-123" || bridge.file != "data:image/png;base64,Zm9v" {
		t.Fatalf("bridge args mismatch: %q %q %q", bridge.query, bridge.user, bridge.file)
	}
}

func TestChatQueryHandlerModeOverride(t *testing.T) {
	chatSvc := &stubChatService{}
	bridge := &stubBridge{resp: dto.AIResponse{DisplayText: "del agente"}}
	resp := &chatStubResponseHandler{}
	h := NewChatHandlers(&Deps{ResponseHandler: resp, ChatSvc: chatSvc, BridgeSvc: bridge, AgentMode: config.ModeModel})

	rr := httptest.NewRecorder()
	h.Query(rr, newChatRequest(t, `{"sessionId":"s1","message":"hola","mode":"webhook"}`))

	if !bridge.called {
		t.Fatalf("expected override to route to bridge")
	}
}

func TestChatQueryHandlerValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing message", `{"sessionId":"s1"}`},
		{"missing session", `{"message":"hola"}`},
		{"bad mode", `{"sessionId":"s1","message":"hola","mode":"carrier-pigeon"}`},
	}
	for _, tc := range cases {
		resp := &chatStubResponseHandler{}
		h := NewChatHandlers(&Deps{ResponseHandler: resp, ChatSvc: &stubChatService{}, AgentMode: config.ModeModel})

		rr := httptest.NewRecorder()
		h.Query(rr, newChatRequest(t, tc.body))

		if !resp.handleErrorCalled {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestChatQueryHandlerWebhookUnconfigured(t *testing.T) {
	resp := &chatStubResponseHandler{}
	h := NewChatHandlers(&Deps{ResponseHandler: resp, ChatSvc: &stubChatService{}, AgentMode: config.ModeModel})

	rr := httptest.NewRecorder()
	h.Query(rr, newChatRequest(t, `{"sessionId":"s1","message":"hola","mode":"webhook"}`))

	if !resp.handleErrorCalled {
		t.Fatalf("expected error when no bridge is wired")
	}
	var validation *errs.ValidationError
	if !errors.As(resp.handleError, &validation) {
		t.Fatalf("expected validation error, got %T", resp.handleError)
	}
}

func TestChatHistoryHandler(t *testing.T) {
	chatSvc := &stubChatService{historyResp: dto.ChatHistoryResponse{
		SessionID: "s1",
		Messages:  []dto.ChatMessage{{Role: "user", Content: "hola"}},
	}}
	resp := &chatStubResponseHandler{}
	h := NewChatHandlers(&Deps{ResponseHandler: resp, ChatSvc: chatSvc, AgentMode: config.ModeModel})

	req := newChatRequest(t, "")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("sessionID", "s1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rr := httptest.NewRecorder()

	h.History(rr, req)

	if !resp.writeSuccessCalled {
		t.Fatalf("expected success write")
	}
	out, ok := resp.writeSuccessData.(dto.ChatHistoryResponse)
	if !ok || len(out.Messages) != 1 {
		t.Fatalf("payload mismatch: %+v", resp.writeSuccessData)
	}
}

func TestChatHistoryHandlerError(t *testing.T) {
	chatSvc := &stubChatService{historyErr: errors.New("firestore unavailable")}
	resp := &chatStubResponseHandler{}
	h := NewChatHandlers(&Deps{ResponseHandler: resp, ChatSvc: chatSvc, AgentMode: config.ModeModel})

	req := newChatRequest(t, "")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("sessionID", "s1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rr := httptest.NewRecorder()

	h.History(rr, req)

	if !resp.handleErrorCalled {
		t.Fatalf("expected error write")
	}
}
