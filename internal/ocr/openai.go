package ocr

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEngine transcribes images with an OpenAI compatible vision model
type OpenAIEngine struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIEngine creates the engine; BaseURL allows compatible gateways
func NewOpenAIEngine(cfg config.OpenAIConfig) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, NewOCRError("NewOpenAIEngine", ErrEngineUnavailable, "OPENAI_API_KEY is not set")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		log:    logger.WithComponent("openai"),
	}, nil
}

func (e *OpenAIEngine) Name() string { return "openai" }

// Recognize sends the image inline as a data URL
func (e *OpenAIEngine) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		MaxTokens:   4096,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: transcriptionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", NewOCRError("Recognize", err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", NewOCRError("Recognize", ErrEmptyDocument, "no response choices from OpenAI")
	}

	text := cleanTranscription(resp.Choices[0].Message.Content)
	e.log.Debug().
		Str("model", e.model).
		Int("chars", len(text)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("image transcribed")
	return text, nil
}
