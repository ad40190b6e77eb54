package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"gwi.com/shop-assistant/internal/logger"
)

const (
	defaultChatModelName = "gemini-1.5-flash-latest"

	replyMaxOutputTokens = 300
	replyTemperature     = 0.7
)

// LLMService is the Gemini backed Generator.
type LLMService struct {
	client    *genai.Client
	modelName string
	log       *logger.Logger
}

func NewLLMService(ctx context.Context, apiKey, modelName string, log *logger.Logger) (*LLMService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultChatModelName
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &LLMService{
		client:    client,
		modelName: modelName,
		log:       log.With("service", "LLMService"),
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.log.Warn("Error closing GenAI client", "error", err)
		} else {
			s.log.Info("GenAI client closed")
		}
	}
}

func (s *LLMService) Generate(ctx context.Context, system, prompt string) (string, error) {
	model := s.client.GenerativeModel(s.modelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	temp := float32(replyTemperature)
	maxTokens := int32(replyMaxOutputTokens)

	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini reply generation failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response was empty or had no valid candidates")
	}

	var replyText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			replyText.WriteString(string(txt))
		} else {
			s.log.Debug("Gemini response part was not text", "type", fmt.Sprintf("%T", part))
		}
	}

	if replyText.Len() == 0 {
		return "", fmt.Errorf("gemini response had no text parts")
	}
	return replyText.String(), nil
}
