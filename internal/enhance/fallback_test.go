package enhance

import (
	"strings"
	"testing"
)

func TestMockEnhanceShape(t *testing.T) {
	text := "First paragraph of scanned text.\n\nSecond paragraph.\n\nThird paragraph."

	out := mockEnhance(text)

	if !strings.HasPrefix(out, "# Introduction\n\nThis report provides a comprehensive analysis") {
		t.Errorf("mock output must open with the fixed introduction: %q", out[:60])
	}
	if !strings.Contains(out, "# Section 1\n\nSecond paragraph.") {
		t.Error("second input paragraph must become Section 1")
	}
	if !strings.Contains(out, "# Section 2\n\nThird paragraph.") {
		t.Error("third input paragraph must become Section 2")
	}
	if !strings.Contains(out, "# Conclusion\n\nBased on the analysis presented in this report") {
		t.Error("mock output must close with the fixed conclusion")
	}
}

func TestFormatFallbackShape(t *testing.T) {
	text := "Intro paragraph.\n\nBody one.\n\nBody two."

	out := formatFallback(text)

	if !strings.HasPrefix(out, "# Report\n\nIntro paragraph.\n\n") {
		t.Errorf("first paragraph must follow the report heading: %q", out)
	}
	if !strings.Contains(out, "## Section 1\n\nBody one.") {
		t.Error("remaining paragraphs must become numbered sections")
	}
	if !strings.Contains(out, "## Section 2\n\nBody two.") {
		t.Error("remaining paragraphs must become numbered sections")
	}
	if !strings.HasSuffix(out, "## Conclusion\n\nThis concludes the report based on the provided information.") {
		t.Error("fallback must end with the fixed conclusion")
	}
}

func TestFormatFallbackEmptyInput(t *testing.T) {
	out := formatFallback("")
	if out != "# Report\n\n" {
		t.Errorf("empty input yields the bare heading, got %q", out)
	}
}

func TestFallbackDocumentParses(t *testing.T) {
	doc := Fallback("Alpha.\n\nBeta.")

	if doc.Empty() {
		t.Fatal("fallback document must not be empty")
	}
	if doc.Sections[0].Title != "Report" {
		t.Errorf("first section title must be Report, got %q", doc.Sections[0].Title)
	}
	last := doc.Sections[len(doc.Sections)-1]
	if last.Title != "Conclusion" {
		t.Errorf("last section title must be Conclusion, got %q", last.Title)
	}
}
