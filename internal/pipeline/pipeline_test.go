package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"scanreport/internal/enhance"
	"scanreport/internal/ocr"
	"scanreport/internal/store"
)

// echoEngine returns text derived from the image URL so tests can check
// ordering and persistence.
type echoEngine struct {
	name  string
	calls int
}

func (e *echoEngine) Name() string { return e.name }

func (e *echoEngine) Extract(ctx context.Context, img ocr.ImageRef, opts ocr.Options) ocr.ExtractionResult {
	e.calls++
	return ocr.ExtractionResult{Text: "text of " + img.URL, Confidence: 95, Language: opts.Language}
}

// scriptedChat returns a fixed completion for every model.
type scriptedChat struct {
	content string
	err     error
}

func (c *scriptedChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: c.content}},
		},
	}, nil
}

func (c *scriptedChat) StreamChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (enhance.CompletionStream, error) {
	return nil, errors.New("not scripted")
}

func newOrchestrator(chat *scriptedChat) (*Orchestrator, *echoEngine, *store.Memory) {
	engine := &echoEngine{name: ocr.BackendTogether}
	selector := ocr.NewSelector(nil, engine)
	enhancer := enhance.NewServiceWithDeps(chat, []string{"model-a"}, 2000, 0.7)
	repo := store.NewMemory()
	return New(selector, enhancer, repo), engine, repo
}

func images(urls ...string) []Image {
	out := make([]Image, len(urls))
	for i, u := range urls {
		out[i] = Image{ID: u, Ref: ocr.ImageRef{URL: u}}
	}
	return out
}

func TestExtractAllRejectsEmptyBatch(t *testing.T) {
	o, _, _ := newOrchestrator(&scriptedChat{content: "x"})

	_, err := o.ExtractAll(context.Background(), nil, ocr.Options{})
	if !errors.Is(err, ErrNoImages) {
		t.Errorf("expected ErrNoImages, got %v", err)
	}
}

func TestExtractAllRejectsMissingID(t *testing.T) {
	o, engine, _ := newOrchestrator(&scriptedChat{content: "x"})

	_, err := o.ExtractAll(context.Background(), []Image{{Ref: ocr.ImageRef{URL: "u"}}}, ocr.Options{})
	if !errors.Is(err, ErrEmptyImageID) {
		t.Errorf("expected ErrEmptyImageID, got %v", err)
	}
	if engine.calls != 0 {
		t.Error("validation must fail before any extraction starts")
	}
}

func TestExtractAllPersistsEachResult(t *testing.T) {
	o, _, repo := newOrchestrator(&scriptedChat{content: "x"})
	ctx := context.Background()

	results, err := o.ExtractAll(ctx, images("img-a", "img-b"), ocr.Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ImageID != "img-a" || results[1].ImageID != "img-b" {
		t.Errorf("results must keep input order: %+v", results)
	}

	stored, err := repo.Result(ctx, "img-b")
	if err != nil {
		t.Fatalf("stored result missing: %v", err)
	}
	if stored.Text != "text of img-b" {
		t.Errorf("unexpected persisted text: %q", stored.Text)
	}
}

func TestTextPrefersEdits(t *testing.T) {
	o, _, _ := newOrchestrator(&scriptedChat{content: "x"})
	ctx := context.Background()

	o.ExtractAll(ctx, images("img-a"), ocr.Options{})
	o.SetText("img-a", "hand-corrected text")

	text, err := o.Text(ctx, "img-a")
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if text != "hand-corrected text" {
		t.Errorf("edit must win over the stored extraction, got %q", text)
	}
}

func TestTextUnknownImage(t *testing.T) {
	o, _, _ := newOrchestrator(&scriptedChat{content: "x"})

	_, err := o.Text(context.Background(), "ghost")
	if !errors.Is(err, ErrUnknownImage) {
		t.Errorf("expected ErrUnknownImage, got %v", err)
	}
}

func TestCombinedTextKeepsOrderAndSkipsEmpty(t *testing.T) {
	o, _, _ := newOrchestrator(&scriptedChat{content: "x"})
	ctx := context.Background()

	o.ExtractAll(ctx, images("one", "two", "three"), ocr.Options{})
	o.SetText("two", "   ")

	combined, err := o.CombinedText(ctx)
	if err != nil {
		t.Fatalf("combined: %v", err)
	}
	want := "text of one\n\ntext of three"
	if combined != want {
		t.Errorf("got %q, want %q", combined, want)
	}
}

func TestBuildReportWithoutTextFails(t *testing.T) {
	o, _, _ := newOrchestrator(&scriptedChat{content: "x"})
	ctx := context.Background()

	o.ExtractAll(ctx, images("only"), ocr.Options{})
	o.SetText("only", "")

	_, err := o.BuildReport(ctx, enhance.Options{})
	if !errors.Is(err, ErrNoUsableText) {
		t.Errorf("expected ErrNoUsableText, got %v", err)
	}
}

func TestRunProducesDocument(t *testing.T) {
	o, _, _ := newOrchestrator(&scriptedChat{content: "# Introduction\n\nA report."})

	doc, results, err := o.Run(context.Background(), images("a", "b"), ocr.Options{}, enhance.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected per-image results alongside the document")
	}
	if doc.Model != "model-a" || len(doc.Sections) == 0 {
		t.Errorf("unexpected document: model=%q sections=%d", doc.Model, len(doc.Sections))
	}
}

func TestRunSurvivesModelFailure(t *testing.T) {
	o, _, _ := newOrchestrator(&scriptedChat{err: errors.New("503 overloaded")})

	doc, _, err := o.Run(context.Background(), images("a"), ocr.Options{}, enhance.Options{})
	if err != nil {
		t.Fatalf("a failing model must not fail the run: %v", err)
	}
	if doc.Error == "" {
		t.Error("fallback document must record the model failure")
	}
	if !strings.Contains(doc.RawText, "# Report") {
		t.Errorf("expected fallback formatting, got %q", doc.RawText)
	}
}

func TestCancelAbortsBatch(t *testing.T) {
	o, _, _ := newOrchestrator(&scriptedChat{content: "x"})

	// Cancel from inside the first extraction via a custom engine.
	canceling := &cancelOnFirst{orch: o}
	selector := ocr.NewSelector(nil, canceling)
	o.selector = selector

	results, err := o.ExtractAll(context.Background(), images("a", "b", "c"), ocr.Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if canceling.calls != 1 {
		t.Errorf("cancel must stop further extractions, got %d calls", canceling.calls)
	}
	if results[0].Extraction.Failed() {
		t.Error("the completed item must keep its result")
	}
	for _, r := range results[1:] {
		if !r.Extraction.Failed() {
			t.Errorf("canceled remainder must carry error results: %+v", r)
		}
	}
}

type cancelOnFirst struct {
	orch  *Orchestrator
	calls int
}

func (c *cancelOnFirst) Name() string { return ocr.BackendTogether }

func (c *cancelOnFirst) Extract(ctx context.Context, img ocr.ImageRef, opts ocr.Options) ocr.ExtractionResult {
	c.calls++
	c.orch.Cancel()
	return ocr.ExtractionResult{Text: "done", Confidence: 95}
}
