package ocr

import (
	"context"
	"strings"

	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GeminiEngine transcribes images with a Gemini vision model
type GeminiEngine struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiEngine creates the engine; callers must Close it
func NewGeminiEngine(ctx context.Context, cfg config.GeminiConfig) (*GeminiEngine, error) {
	if cfg.APIKey == "" {
		return nil, NewOCRError("NewGeminiEngine", ErrEngineUnavailable, "GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, NewOCRError("NewGeminiEngine", ErrEngineUnavailable, err.Error())
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiEngine{
		client: client,
		model:  model,
		log:    logger.WithComponent("gemini"),
	}, nil
}

func (e *GeminiEngine) Name() string { return "gemini" }

// Recognize sends the prompt and the image as one multi-part request
func (e *GeminiEngine) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	model := e.client.GenerativeModel(e.model)
	model.SetTemperature(0)

	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := model.GenerateContent(ctx, genai.Text(transcriptionPrompt), genai.ImageData(format, image))
	if err != nil {
		return "", NewOCRError("Recognize", err, "gemini generate content")
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// first candidate only
		break
	}

	text := cleanTranscription(sb.String())
	if text == "" {
		return "", NewOCRError("Recognize", ErrEmptyDocument, "empty Gemini response")
	}
	e.log.Debug().Str("model", e.model).Int("chars", len(text)).Msg("image transcribed")
	return text, nil
}

// Close releases the underlying client
func (e *GeminiEngine) Close() error {
	return e.client.Close()
}
