package handlers

import (
	"log/slog"

	"firebase.google.com/go/v4/auth"

	"github.com/serviteq/fieldops-backend/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	Firebase        *auth.Client
	ChatSvc         ChatService
	BridgeSvc       AgentBridge
	AgentMode       string
}
