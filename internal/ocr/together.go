package ocr

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"scanreport/internal/logger"
)

// visionInstruction is the fixed extraction prompt sent with every image.
const visionInstruction = "Extract all text from this image exactly as it appears. " +
	"Preserve the formatting, line breaks, and paragraph structure. " +
	"Return only the extracted text with no commentary."

// togetherConfidence is the fixed score reported for extractions; the vendor
// does not expose a real per-character confidence.
const togetherConfidence = 95

// TogetherEngine extracts text with a hosted vision model through the
// OpenAI-compatible Together AI chat-completion endpoint. It is the
// handwriting-oriented path of the selection policy.
type TogetherEngine struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewTogetherEngine creates the engine. baseURL defaults to the Together AI
// endpoint when empty.
func NewTogetherEngine(apiKey, baseURL, model string) (*TogetherEngine, error) {
	const op = "NewTogetherEngine"

	if apiKey == "" {
		return nil, WrapExtractError(op, BackendTogether, ErrMissingCredentials, "TOGETHER_API_KEY is not set")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	} else {
		cfg.BaseURL = "https://api.together.xyz/v1"
	}

	return &TogetherEngine{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    logger.WithComponent("ocr-together"),
	}, nil
}

// Name returns the backend identifier.
func (e *TogetherEngine) Name() string { return BackendTogether }

// Extract sends the image to the vision model and returns its literal
// transcription. Network failures and vendor errors come back as error
// results.
func (e *TogetherEngine) Extract(ctx context.Context, img ImageRef, opts Options) ExtractionResult {
	lang := opts.language()

	opts.progress("Initializing AI OCR", 0.1)

	if img.IsZero() {
		return failureResult(lang, ErrEmptyImage)
	}

	opts.progress("Processing with vision model", 0.3)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionInstruction,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.DataURL(),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		MaxTokens: 2000,
	})
	if err != nil {
		e.log.Warn().Err(err).Str("model", e.model).Msg("Vision extraction request failed")
		return failureResult(lang, WrapExtractError("Extract", BackendTogether, ErrExtractionFailed, err.Error()))
	}

	if len(resp.Choices) == 0 {
		return failureResult(lang, WrapExtractError("Extract", BackendTogether, ErrExtractionFailed, "no response choices"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return failureResult(lang, WrapExtractError("Extract", BackendTogether, ErrNoText, ""))
	}

	opts.progress("OCR completed", 1.0)

	e.log.Debug().
		Str("model", e.model).
		Int("text_length", len(text)).
		Msg("Vision extraction completed")

	return ExtractionResult{
		Text:            text,
		Confidence:      togetherConfidence,
		Paragraphs:      splitParagraphs(text),
		Language:        lang,
		ProcessedWithAI: true,
		Model:           e.model,
	}
}
