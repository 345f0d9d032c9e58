package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labang-online/portal/internal/genai"
	"github.com/labang-online/portal/internal/logger"
)

const (
	maxChatMessageLength = 2000
	maxChatHistory       = 20
)

const chatbotInstruction = `You are the help desk assistant of Barangay Labangon, Cebu City.
Answer questions about barangay certificates (clearance, residency, indigency,
good moral character, business), payments by GCash or at the counter, incident
reports, and announcements. Keep answers short and polite. If you do not know,
tell the resident to visit the barangay hall during office hours.`

// ChatTurn is one prior message in the conversation shown to the resident.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Generator produces a model reply for a conversation.
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, system string, contents []genai.Content) (string, error)
}

// ChatbotService answers resident questions through a generative model.
type ChatbotService interface {
	Reply(ctx context.Context, message string, history []ChatTurn) (string, error)
}

type chatbotService struct {
	gen Generator
	log *logger.Logger
}

// NewChatbotService creates a new instance of ChatbotService.
func NewChatbotService(gen Generator, log *logger.Logger) ChatbotService {
	return &chatbotService{gen: gen, log: log.Component("chatbot")}
}

func (s *chatbotService) Reply(ctx context.Context, message string, history []ChatTurn) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message is required", ErrValidation)
	}
	if len([]rune(message)) > maxChatMessageLength {
		return "", fmt.Errorf("%w: message must be at most %d characters", ErrValidation, maxChatMessageLength)
	}
	if s.gen == nil || !s.gen.Configured() {
		return "", fmt.Errorf("%w: chatbot is not configured", ErrUnavailable)
	}

	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}

	contents := make([]genai.Content, 0, len(history)+1)
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		role := genai.RoleUser
		if turn.Role == genai.RoleModel || turn.Role == "assistant" || turn.Role == "bot" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.Content{Role: role, Parts: []genai.Part{{Text: text}}})
	}
	contents = append(contents, genai.Content{Role: genai.RoleUser, Parts: []genai.Part{{Text: message}}})

	reply, err := s.gen.Generate(ctx, chatbotInstruction, contents)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		s.log.Error("Chatbot generation failed", err, map[string]interface{}{
			"history_turns": len(history),
		})
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return reply, nil
}
