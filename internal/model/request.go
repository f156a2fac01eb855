package model

type ChatRequest struct {
	Message   string        `json:"message" binding:"required"`
	History   []ChatMessage `json:"history,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
}

type ClearChatRequest struct {
	SessionID string `json:"session_id"`
}
