package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/serviteq/fieldops-backend/internal/config"
	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/errs"
	"github.com/serviteq/fieldops-backend/internal/middleware"
	"github.com/serviteq/fieldops-backend/internal/response"
)

type ChatService interface {
	Query(ctx context.Context, uid, sessionID, message string) dto.AIResponse
	History(ctx context.Context, uid, sessionID string) (dto.ChatHistoryResponse, error)
}

type AgentBridge interface {
	Consult(ctx context.Context, query, userName, file string) dto.AIResponse
}

type chatHandlers struct {
	ResponseHandler response.ResponseHandler
	ChatSvc         ChatService
	BridgeSvc       AgentBridge
	AgentMode       string
}

func NewChatHandlers(deps *Deps) *chatHandlers {
	return &chatHandlers{
		ResponseHandler: deps.ResponseHandler,
		ChatSvc:         deps.ChatSvc,
		BridgeSvc:       deps.BridgeSvc,
		AgentMode:       deps.AgentMode,
	}
}

func (h *chatHandlers) ChatRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/query", h.Query)
	r.Get("/history/{sessionID}", h.History)
	return r
}

func (h *chatHandlers) Query(w http.ResponseWriter, r *http.Request) {
	var body dto.ChatQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if body.Message == "" {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("message is required"))
		return
	}
	if body.SessionID == "" {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("sessionId is required"))
		return
	}

	mode := h.AgentMode
	switch body.Mode {
	case "":
	case config.ModeModel, config.ModeWebhook:
		mode = body.Mode
	default:
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("mode must be 'model' or 'webhook'"))
		return
	}
	if mode == config.ModeWebhook && h.BridgeSvc == nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("webhook mode is not configured"))
		return
	}

	uid := middleware.UID(r.Context())

	// Both pipelines converge on the same contract; failures are in-band.
	var resp dto.AIResponse
	if mode == config.ModeWebhook {
		resp = h.BridgeSvc.Consult(r.Context(), body.Message, uid, body.File)
	} else {
		resp = h.ChatSvc.Query(r.Context(), uid, body.SessionID, body.Message)
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *chatHandlers) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("sessionID is required"))
		return
	}

	uid := middleware.UID(r.Context())
	history, err := h.ChatSvc.History(r.Context(), uid, sessionID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, history)
}
