package dto

type ChatQueryRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	// Mode overrides the configured pipeline for this request:
	// "model" or "webhook". Empty means use the configured default.
	Mode string `json:"mode,omitempty"`
}

type ChatHistoryResponse struct {
	SessionID string        `json:"sessionId"`
	Messages  []ChatMessage `json:"messages"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}
