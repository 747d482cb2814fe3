package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"scanreport/internal/ocr"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqlitePath := filepath.Join(t.TempDir(), "results.db")
	sqliteRepo, err := OpenSQLite(context.Background(), sqlitePath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqliteRepo.Close() })

	return map[string]Repository{
		"memory": NewMemory(),
		"sqlite": sqliteRepo,
	}
}

func TestRepositorySaveAndLoad(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saved := ocr.ExtractionResult{
				Text:            "extracted words",
				Confidence:      95,
				Language:        ocr.LangFrench,
				ProcessedWithAI: true,
				Model:           "some-model",
				Words: []ocr.Word{
					{Text: "extracted", Confidence: 91, BBox: ocr.BoundingBox{X0: 1, Y0: 2, X1: 30, Y1: 12}},
				},
			}

			if err := repo.SaveResult(ctx, "img-1", saved); err != nil {
				t.Fatalf("save: %v", err)
			}

			got, err := repo.Result(ctx, "img-1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.Text != saved.Text || got.Confidence != saved.Confidence ||
				got.Language != saved.Language || got.Model != saved.Model {
				t.Errorf("loaded result differs: %+v", got)
			}
			if len(got.Words) != 1 || got.Words[0].BBox != saved.Words[0].BBox {
				t.Errorf("word boxes must round-trip: %+v", got.Words)
			}
		})
	}
}

func TestRepositoryOverwrite(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo.SaveResult(ctx, "img-1", ocr.ExtractionResult{Text: "first"})
			repo.SaveResult(ctx, "img-1", ocr.ExtractionResult{Text: "second"})

			got, err := repo.Result(ctx, "img-1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.Text != "second" {
				t.Errorf("save must replace, got %q", got.Text)
			}
		})
	}
}

func TestRepositoryMissingID(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Result(context.Background(), "nope")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRepositoryResultsAndClear(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo.SaveResult(ctx, "a", ocr.ExtractionResult{Text: "A"})
			repo.SaveResult(ctx, "b", ocr.ExtractionResult{Text: "B"})

			all, err := repo.Results(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(all) != 2 || all["a"].Text != "A" || all["b"].Text != "B" {
				t.Errorf("unexpected listing: %+v", all)
			}

			if err := repo.Clear(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			all, err = repo.Results(ctx)
			if err != nil {
				t.Fatalf("list after clear: %v", err)
			}
			if len(all) != 0 {
				t.Errorf("expected empty store after clear, got %d entries", len(all))
			}
		})
	}
}
