package models

import "time"

// ChatMessage is one persisted turn of an assistant session. Tool round-trips
// are stored alongside user/assistant turns so the stateless model backend can
// replay them.
type ChatMessage struct {
	Role       string         `firestore:"role" json:"role"`
	Content    string         `firestore:"content,omitempty" json:"content,omitempty"`
	ToolName   string         `firestore:"toolName,omitempty" json:"toolName,omitempty"`
	ToolArgs   map[string]any `firestore:"toolArgs,omitempty" json:"toolArgs,omitempty"`
	ToolResult string         `firestore:"toolResult,omitempty" json:"toolResult,omitempty"`
	CreatedAt  time.Time      `firestore:"createdAt" json:"createdAt"`
	ExpiresAt  time.Time      `firestore:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}
