package llm

//go:generate mockgen -destination=./service_mock_test.go -package=llm -source=service.go Service

import (
	"context"
	"fmt"
	"strings"

	"gemini-gateway/internal/extract"

	"github.com/apex/log"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Service defines the business logic for the gateway.
type Service interface {
	// Chat sends the caller-supplied history and returns the model's next reply.
	Chat(ctx context.Context, messages []*ChatMessage) (string, error)

	// GenerateText answers a single prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateFromFile answers a prompt about an uploaded file. The prompt may be empty.
	GenerateFromFile(ctx context.Context, prompt string, file *Attachment) (string, error)
}

// service is the concrete implementation of the Service interface.
type service struct {
	gemini GeminiClient // client for the external Gemini API
}

// NewService is the constructor for the gateway service.
func NewService(gemini GeminiClient) Service {
	return &service{
		gemini: gemini,
	}
}

// Chat implements the Service interface.
func (s *service) Chat(ctx context.Context, messages []*ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			return "", ErrInvalidMessages
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, toGeminiRole(msg.Role)))
	}

	return s.generate(ctx, "chat", contents)
}

// GenerateText implements the Service interface.
func (s *service) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrMissingPrompt
	}
	return s.generate(ctx, "text", genai.Text(prompt))
}

// GenerateFromFile implements the Service interface.
func (s *service) GenerateFromFile(ctx context.Context, prompt string, file *Attachment) (string, error) {
	if file == nil {
		return "", ErrMissingFile
	}

	var parts []*genai.Part
	if prompt != "" {
		parts = append(parts, genai.NewPartFromText(prompt))
	}
	parts = append(parts, genai.NewPartFromBytes(file.Data, file.MIMEType))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return s.generate(ctx, "file", contents)
}

// generate makes the single upstream call for a request and extracts its text.
// Upstream errors are returned as they are so the client sees their message.
func (s *service) generate(ctx context.Context, kind string, contents []*genai.Content) (string, error) {
	logger := log.WithFields(log.Fields{
		"call_id": uuid.New().String(),
		"kind":    kind,
	})

	resp, err := s.gemini.GenerateContent(ctx, contents)
	if err != nil {
		logger.WithError(err).Error("gemini request failed")
		return "", err
	}

	return extract.ExtractWith(logger, resp).Text, nil
}

// toGeminiRole maps client roles onto the two roles Gemini accepts.
func toGeminiRole(role string) genai.Role {
	switch strings.ToLower(role) {
	case RoleAssistant, RoleModel:
		return genai.RoleModel
	default:
		return genai.RoleUser
	}
}
