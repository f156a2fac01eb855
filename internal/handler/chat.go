package handler

import (
	"net/http"

	"fitroom/internal/model"
	"fitroom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandler struct {
	backend *Backend
}

func NewChatHandler(backend *Backend) *ChatHandler {
	return &ChatHandler{
		backend: backend,
	}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	// 服务端已有记录时以服务端为准，否则采用客户端带来的历史
	history := h.backend.history(sessionID)
	if len(history) == 0 && len(req.History) > 0 {
		history = req.History
		h.backend.appendHistory(sessionID, req.History...)
	}

	reply, err := h.backend.responder.Reply(c.Request.Context(), history, req.Message)
	if err != nil {
		logger.Errorf("Chat responder failed, session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get response from AI service"})
		return
	}

	h.backend.appendHistory(sessionID,
		model.ChatMessage{Role: model.RoleUser, Content: req.Message},
		model.ChatMessage{Role: model.RoleAssistant, Content: reply},
	)

	c.JSON(http.StatusOK, model.ChatResponse{
		Response:  reply,
		SessionID: sessionID,
	})
}

func (h *ChatHandler) Clear(c *gin.Context) {
	var req model.ClearChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SessionID != "" {
		h.backend.clearSession(req.SessionID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session cleared successfully"})
}
