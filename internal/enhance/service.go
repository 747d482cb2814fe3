// Package enhance turns raw OCR text into a structured report document by
// running it through a chain of chat completion models, falling back to
// deterministic formatting when no model can be reached.
package enhance

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"scanreport/internal/config"
	"scanreport/internal/logger"
	"scanreport/internal/prompt"
	"scanreport/internal/report"
)

const systemPrompt = "You are an expert report writer who can transform raw text into well-structured, professional reports."

// ChatClient is the subset of the chat completion API the service needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	StreamChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (CompletionStream, error)
}

// CompletionStream yields chat completion deltas until io.EOF.
type CompletionStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// openaiChat adapts *openai.Client to ChatClient.
type openaiChat struct {
	client *openai.Client
}

func (c openaiChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return c.client.CreateChatCompletion(ctx, req)
}

func (c openaiChat) StreamChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (CompletionStream, error) {
	return c.client.CreateChatCompletionStream(ctx, req)
}

// Options configures one enhancement request. Zero values fall back to the
// service defaults.
type Options struct {
	Language               string
	ReportType             string
	AdditionalInstructions string
}

// Service enhances OCR output into report documents. A Service with no client
// (missing credentials) stays usable and serves mock documents.
type Service struct {
	client      ChatClient
	models      []string
	maxTokens   int
	temperature float32
	language    string
	reportType  string
	log         zerolog.Logger
}

// NewService builds the enhancement service from configuration. When no
// Together AI key is configured the service degrades to mock enhancement
// instead of failing.
func NewService(cfg *config.Config) *Service {
	s := &Service{
		models:      cfg.EnhanceModels,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		language:    cfg.DefaultLanguage,
		reportType:  cfg.ReportType,
		log:         logger.WithComponent("enhance"),
	}

	if cfg.HasTogetherCredentials() {
		clientCfg := openai.DefaultConfig(cfg.TogetherAPIKey)
		clientCfg.BaseURL = cfg.TogetherBaseURL
		s.client = openaiChat{client: openai.NewClientWithConfig(clientCfg)}
	} else {
		s.log.Warn().Msg("Together AI API key is not configured, using mock enhancement")
	}

	return s
}

// NewServiceWithDeps builds the service with injected dependencies for testing.
func NewServiceWithDeps(client ChatClient, models []string, maxTokens int, temperature float32) *Service {
	return &Service{
		client:      client,
		models:      models,
		maxTokens:   maxTokens,
		temperature: temperature,
		log:         logger.WithComponent("enhance"),
	}
}

// Enhance converts raw text into a structured document. It tries each
// configured model in order and stops at the first usable completion. It never
// returns an error: when every model fails (or no client is configured) the
// result is a deterministically formatted document, with Error recording what
// went wrong.
func (s *Service) Enhance(ctx context.Context, text string, opts Options) report.Document {
	const op = "Enhance"

	if s.client == nil {
		return s.Mock(text)
	}

	if len(s.models) == 0 {
		doc := Fallback(text)
		doc.Error = WrapEnhanceError(op, "", ErrNoModels, "").Error()
		return doc
	}

	request := s.buildRequest(text, opts)

	var lastErr error
	for _, model := range s.models {
		s.log.Debug().
			Str("model", model).
			Int("text_length", len(text)).
			Msg("Trying enhancement model")

		request.Model = model
		resp, err := s.client.CreateChatCompletion(ctx, request)
		if err != nil {
			lastErr = WrapEnhanceError(op, model, err, "")
			s.log.Warn().
				Err(err).
				Str("model", model).
				Msg("Enhancement model failed, trying next")
			if ctx.Err() != nil {
				break
			}
			continue
		}

		content := completionContent(resp)
		if strings.TrimSpace(content) == "" {
			lastErr = WrapEnhanceError(op, model, ErrEmptyCompletion, "")
			continue
		}

		s.log.Info().
			Str("model", model).
			Int("enhanced_length", len(content)).
			Msg("Text enhancement completed")
		return report.FromText(content, model)
	}

	chainErr := &EnhanceError{Op: op, Err: ErrAllModelsFailed, Details: lastErr.Error()}
	s.log.Error().
		Err(chainErr).
		Msg("All enhancement models failed, using fallback formatting")

	doc := Fallback(text)
	doc.Error = chainErr.Error()
	return doc
}

// EnhanceStream behaves like Enhance but streams the primary model's output
// through onChunk as it arrives. When streaming fails, it falls back to the
// non-streaming path over the full model chain.
func (s *Service) EnhanceStream(ctx context.Context, text string, opts Options, onChunk func(delta string)) report.Document {
	const op = "EnhanceStream"

	if s.client == nil {
		doc := s.Mock(text)
		if onChunk != nil {
			onChunk(doc.RawText)
		}
		return doc
	}

	if len(s.models) == 0 {
		doc := Fallback(text)
		doc.Error = WrapEnhanceError(op, "", ErrNoModels, "").Error()
		return doc
	}

	model := s.models[0]
	request := s.buildRequest(text, opts)
	request.Model = model
	request.Stream = true

	stream, err := s.client.StreamChatCompletion(ctx, request)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("model", model).
			Msg("Streaming enhancement failed to start, falling back to batch mode")
		return s.Enhance(ctx, text, opts)
	}
	defer stream.Close()

	var buf strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("model", model).
				Int("received", buf.Len()).
				Msg("Streaming enhancement interrupted")
			if buf.Len() == 0 {
				return s.Enhance(ctx, text, opts)
			}
			doc := report.FromText(buf.String(), model)
			doc.Error = WrapEnhanceError(op, model, err, "stream interrupted").Error()
			return doc
		}

		delta := streamDelta(chunk)
		if delta == "" {
			continue
		}
		buf.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}

	if strings.TrimSpace(buf.String()) == "" {
		s.log.Warn().
			Str("model", model).
			Msg("Streaming enhancement produced no content, falling back to batch mode")
		return s.Enhance(ctx, text, opts)
	}

	return report.FromText(buf.String(), model)
}

// buildRequest assembles the chat completion request shared by both paths.
// Model is filled in by the caller.
func (s *Service) buildRequest(text string, opts Options) openai.ChatCompletionRequest {
	userPrompt := prompt.Build(text, prompt.Options{
		Language:               s.effectiveLanguage(opts),
		ReportType:             s.effectiveReportType(opts),
		AdditionalInstructions: opts.AdditionalInstructions,
	})

	return openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}
}

func (s *Service) effectiveLanguage(opts Options) string {
	if opts.Language != "" {
		return opts.Language
	}
	return s.language
}

func (s *Service) effectiveReportType(opts Options) string {
	if opts.ReportType != "" {
		return opts.ReportType
	}
	return s.reportType
}

// completionContent pulls the first choice's content, tolerating empty
// responses.
func completionContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// streamDelta pulls the first choice's delta from a stream chunk.
func streamDelta(chunk openai.ChatCompletionStreamResponse) string {
	if len(chunk.Choices) == 0 {
		return ""
	}
	return chunk.Choices[0].Delta.Content
}
