package ocr

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	genai "google.golang.org/genai"

	"scanreport/internal/logger"
)

// geminiConfidence mirrors the fixed score of the other hosted vision path;
// the vendor exposes no extraction confidence either.
const geminiConfidence = 95

// GeminiEngine is the second hosted vision vendor. Same contract as the
// Together engine, different model family; the result carries the model
// identifier so callers can tell the paths apart.
type GeminiEngine struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiEngine creates the engine. model defaults to gemini-2.5-flash.
func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	const op = "NewGeminiEngine"

	if apiKey == "" {
		return nil, WrapExtractError(op, BackendGemini, ErrMissingCredentials, "GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, WrapExtractError(op, BackendGemini, err, "failed to create client")
	}

	return &GeminiEngine{
		client: client,
		model:  model,
		log:    logger.WithComponent("ocr-gemini"),
	}, nil
}

// Name returns the backend identifier.
func (e *GeminiEngine) Name() string { return BackendGemini }

// Extract sends the image inline to the Gemini model. Hosted URLs are fetched
// first since the API wants raw bytes.
func (e *GeminiEngine) Extract(ctx context.Context, img ImageRef, opts Options) ExtractionResult {
	lang := opts.language()

	opts.progress("Initializing Gemini OCR", 0.1)

	if img.IsZero() {
		return failureResult(lang, ErrEmptyImage)
	}

	data, mime, err := e.imageBytes(ctx, img)
	if err != nil {
		return failureResult(lang, WrapExtractError("Extract", BackendGemini, err, "failed to load image"))
	}

	opts.progress("Processing with Gemini", 0.3)

	content := &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: visionInstruction},
			{InlineData: &genai.Blob{MIMEType: mime, Data: data}},
		},
	}
	res, err := e.client.Models.GenerateContent(ctx, e.model, []*genai.Content{content}, nil)
	if err != nil {
		e.log.Warn().Err(err).Str("model", e.model).Msg("Gemini extraction request failed")
		return failureResult(lang, WrapExtractError("Extract", BackendGemini, ErrExtractionFailed, err.Error()))
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return failureResult(lang, WrapExtractError("Extract", BackendGemini, ErrNoText, ""))
	}

	opts.progress("OCR completed", 1.0)

	return ExtractionResult{
		Text:            text,
		Confidence:      geminiConfidence,
		Paragraphs:      splitParagraphs(text),
		Language:        lang,
		ProcessedWithAI: true,
		Model:           e.model,
	}
}

// imageBytes resolves the reference into bytes plus a MIME type.
func (e *GeminiEngine) imageBytes(ctx context.Context, img ImageRef) ([]byte, string, error) {
	if len(img.Data) > 0 {
		mime := img.MIME
		if mime == "" {
			mime = "image/png"
		}
		return img.Data, mime, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", WrapExtractError("imageBytes", BackendGemini, ErrExtractionFailed, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}
