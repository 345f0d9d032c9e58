package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/middleware"
	"github.com/labang-online/portal/internal/services"
)

// ChatbotHandler proxies the resident help assistant. Its responses use the
// {success, response|error} shape the chat widget expects rather than the
// standard error body.
type ChatbotHandler struct {
	service services.ChatbotService
}

// NewChatbotHandler creates a new ChatbotHandler instance.
func NewChatbotHandler(service services.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{service: service}
}

// ChatRequest is one user message with the prior conversation.
type ChatRequest struct {
	Message string              `json:"message"`
	History []services.ChatTurn `json:"history"`
}

// ChatResponse is the widget payload.
type ChatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Success  bool   `json:"success"`
}

// Chat handles POST /api/v1/chatbot.
func (h *ChatbotHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ChatResponse{Error: "Invalid request body"})
		return
	}

	reply, err := h.service.Reply(c.Request.Context(), req.Message, req.History)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			c.JSON(http.StatusBadRequest, ChatResponse{Error: err.Error()})
		case errors.Is(err, context.Canceled):
			c.Abort()
		default:
			if !errors.Is(err, services.ErrUnavailable) {
				if log := middleware.GetLogger(c); log != nil {
					log.Error("Chatbot request failed", err, nil)
				}
			}
			c.JSON(http.StatusServiceUnavailable, ChatResponse{
				Error: "The assistant is unavailable right now. Please try again later or visit the barangay hall.",
			})
		}
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Response: reply, Success: true})
}
