package enhance

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// fakeChat scripts per-model completion outcomes and records call order.
type fakeChat struct {
	responses map[string]openai.ChatCompletionResponse
	errs      map[string]error
	called    []string

	streamChunks []string
	streamErr    error
	recvErr      error
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.called = append(f.called, req.Model)
	if err, ok := f.errs[req.Model]; ok {
		return openai.ChatCompletionResponse{}, err
	}
	if resp, ok := f.responses[req.Model]; ok {
		return resp, nil
	}
	return openai.ChatCompletionResponse{}, errors.New("no script for model " + req.Model)
}

type fakeStream struct {
	chunks  []string
	recvErr error
	closed  bool
	pos     int
}

func (s *fakeStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if s.pos >= len(s.chunks) {
		if s.recvErr != nil {
			return openai.ChatCompletionStreamResponse{}, s.recvErr
		}
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{Content: chunk}},
		},
	}, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func (f *fakeChat) StreamChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (CompletionStream, error) {
	f.called = append(f.called, req.Model+"/stream")
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &fakeStream{chunks: f.streamChunks, recvErr: f.recvErr}, nil
}

var testModels = []string{"model-a", "model-b", "model-c"}

func TestEnhanceFirstModelWins(t *testing.T) {
	chat := &fakeChat{
		responses: map[string]openai.ChatCompletionResponse{
			"model-a": completion("# Introduction\n\nEnhanced content here."),
		},
	}
	s := NewServiceWithDeps(chat, testModels, 2000, 0.7)

	doc := s.Enhance(context.Background(), "raw text", Options{})

	if doc.Error != "" {
		t.Fatalf("unexpected error: %s", doc.Error)
	}
	if doc.Model != "model-a" {
		t.Errorf("expected model-a, got %q", doc.Model)
	}
	if len(chat.called) != 1 {
		t.Errorf("later models must not be tried after a success: %v", chat.called)
	}
	if len(doc.Sections) == 0 || doc.Sections[0].Title != "Introduction" {
		t.Errorf("expected parsed sections, got %+v", doc.Sections)
	}
}

func TestEnhanceFallsThroughChainInOrder(t *testing.T) {
	chat := &fakeChat{
		errs: map[string]error{
			"model-a": errors.New("500 internal error"),
			"model-b": errors.New("429 rate limited"),
		},
		responses: map[string]openai.ChatCompletionResponse{
			"model-c": completion("# Report\n\nFinally worked."),
		},
	}
	s := NewServiceWithDeps(chat, testModels, 2000, 0.7)

	doc := s.Enhance(context.Background(), "raw text", Options{})

	want := []string{"model-a", "model-b", "model-c"}
	if len(chat.called) != 3 {
		t.Fatalf("expected all three models tried, got %v", chat.called)
	}
	for i, m := range want {
		if chat.called[i] != m {
			t.Errorf("call %d: got %q, want %q", i, chat.called[i], m)
		}
	}
	if doc.Model != "model-c" || doc.Error != "" {
		t.Errorf("expected clean result from model-c, got model=%q error=%q", doc.Model, doc.Error)
	}
}

func TestEnhanceAllModelsFailedUsesFallback(t *testing.T) {
	chat := &fakeChat{
		errs: map[string]error{
			"model-a": errors.New("500 from model-a"),
			"model-b": errors.New("500 from model-b"),
			"model-c": errors.New("500 from model-c"),
		},
	}
	s := NewServiceWithDeps(chat, testModels, 2000, 0.7)

	doc := s.Enhance(context.Background(), "First paragraph.\n\nSecond paragraph.", Options{})

	if !strings.Contains(doc.Error, "500 from model-c") {
		t.Fatalf("the last candidate's error must be recorded, got %q", doc.Error)
	}
	if !strings.Contains(doc.Error, ErrAllModelsFailed.Error()) {
		t.Errorf("the exhausted chain must be marked as such, got %q", doc.Error)
	}
	if !strings.Contains(doc.RawText, "# Report") {
		t.Errorf("fallback text must start with the report heading: %q", doc.RawText)
	}
	if !strings.Contains(doc.RawText, "This concludes the report based on the provided information.") {
		t.Error("fallback text must carry the fixed conclusion")
	}
	if len(doc.Sections) == 0 {
		t.Error("fallback document must still parse into sections")
	}
}

func TestEnhanceEmptyCompletionTriesNextModel(t *testing.T) {
	chat := &fakeChat{
		responses: map[string]openai.ChatCompletionResponse{
			"model-a": completion("   \n  "),
			"model-b": completion("Real content."),
		},
	}
	s := NewServiceWithDeps(chat, testModels, 2000, 0.7)

	doc := s.Enhance(context.Background(), "raw text", Options{})

	if doc.Model != "model-b" {
		t.Errorf("whitespace-only completion must not win: got model %q", doc.Model)
	}
}

func TestEnhanceCanceledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chat := &fakeChat{errs: map[string]error{"model-a": context.Canceled}}
	s := NewServiceWithDeps(chat, testModels, 2000, 0.7)

	cancel()
	doc := s.Enhance(ctx, "raw text", Options{})

	if len(chat.called) != 1 {
		t.Errorf("canceled context must not start further model calls: %v", chat.called)
	}
	if doc.Error == "" {
		t.Error("expected an error on the fallback document")
	}
}

func TestEnhanceWithoutClientUsesMock(t *testing.T) {
	s := NewServiceWithDeps(nil, testModels, 2000, 0.7)

	doc := s.Enhance(context.Background(), "Some scanned text.\n\nMore text.", Options{})

	if doc.Model != MockModel {
		t.Errorf("expected mock model marker, got %q", doc.Model)
	}
	if doc.Error != "" {
		t.Errorf("mock path is not an error: %q", doc.Error)
	}
	titles := make([]string, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		titles = append(titles, sec.Title)
	}
	if len(titles) == 0 || titles[0] != "Introduction" || titles[len(titles)-1] != "Conclusion" {
		t.Errorf("mock document must open with Introduction and close with Conclusion: %v", titles)
	}
}

func TestEnhanceStreamAccumulatesChunks(t *testing.T) {
	chat := &fakeChat{streamChunks: []string{"# Report", "\n\nStreamed ", "content."}}
	s := NewServiceWithDeps(chat, testModels, 2000, 0.7)

	var received []string
	doc := s.EnhanceStream(context.Background(), "raw", Options{}, func(delta string) {
		received = append(received, delta)
	})

	if doc.RawText != "# Report\n\nStreamed content." {
		t.Errorf("unexpected accumulated text: %q", doc.RawText)
	}
	if doc.Model != "model-a" {
		t.Errorf("streaming uses the primary model, got %q", doc.Model)
	}
	if len(received) != 3 {
		t.Errorf("expected 3 chunks via callback, got %d", len(received))
	}
}

func TestEnhanceStreamStartFailureFallsBack(t *testing.T) {
	chat := &fakeChat{
		streamErr: errors.New("streaming unsupported"),
		responses: map[string]openai.ChatCompletionResponse{
			"model-a": completion("Batch result."),
		},
	}
	s := NewServiceWithDeps(chat, testModels, 2000, 0.7)

	doc := s.EnhanceStream(context.Background(), "raw", Options{}, nil)

	if doc.Model != "model-a" || doc.Error != "" {
		t.Errorf("expected batch fallback to succeed, got model=%q error=%q", doc.Model, doc.Error)
	}
}

func TestEnhanceStreamInterruptionKeepsPartialText(t *testing.T) {
	chat := &fakeChat{
		streamChunks: []string{"Partial "},
		recvErr:      errors.New("connection reset"),
	}
	s := NewServiceWithDeps(chat, testModels, 2000, 0.7)

	doc := s.EnhanceStream(context.Background(), "raw", Options{}, nil)

	if !strings.Contains(doc.RawText, "Partial") {
		t.Errorf("partial text must be preserved: %q", doc.RawText)
	}
	if doc.Error == "" {
		t.Error("interruption must be recorded on the document")
	}
}

func TestEnhanceStreamWithoutClientUsesMock(t *testing.T) {
	s := NewServiceWithDeps(nil, testModels, 2000, 0.7)

	var whole strings.Builder
	doc := s.EnhanceStream(context.Background(), "Text.", Options{}, func(delta string) {
		whole.WriteString(delta)
	})

	if doc.Model != MockModel {
		t.Errorf("expected mock model marker, got %q", doc.Model)
	}
	if !strings.Contains(whole.String(), "# Introduction") {
		t.Errorf("mock stream must emit the document text as one chunk, got %q", whole.String())
	}
	if whole.String() != doc.RawText {
		t.Error("mock stream must deliver the full document through the callback")
	}
}

func TestEnhanceNoModelsConfigured(t *testing.T) {
	chat := &fakeChat{}
	s := NewServiceWithDeps(chat, nil, 2000, 0.7)

	doc := s.Enhance(context.Background(), "raw", Options{})

	if doc.Error == "" {
		t.Fatal("expected an error for an empty model chain")
	}
	if len(chat.called) != 0 {
		t.Errorf("no models must be called: %v", chat.called)
	}
}
