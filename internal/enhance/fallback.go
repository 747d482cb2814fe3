package enhance

import (
	"regexp"
	"strconv"
	"strings"

	"scanreport/internal/report"
)

// MockModel marks documents produced without any model call.
const MockModel = "mock"

var blankLineRe = regexp.MustCompile(`\n\s*\n`)

// Mock produces a plausible structured document from raw text without calling
// any model. Used when no credentials are configured.
func (s *Service) Mock(text string) report.Document {
	return report.FromText(mockEnhance(text), MockModel)
}

// mockEnhance applies canned enhancement formatting: a fixed introduction,
// the input paragraphs as numbered sections, and a fixed conclusion.
func mockEnhance(text string) string {
	paragraphs := blankLineRe.Split(text, -1)

	introduction := "# Introduction\n\nThis report provides a comprehensive analysis based on the provided information.\n\n"

	parts := make([]string, 0, len(paragraphs))
	for i, para := range paragraphs {
		if i == 0 {
			parts = append(parts, para)
			continue
		}
		parts = append(parts, "# Section "+strconv.Itoa(i)+"\n\n"+strings.TrimSpace(para))
	}

	conclusion := "\n\n# Conclusion\n\nBased on the analysis presented in this report, several key findings have been identified. These findings provide valuable insights for future decision-making and strategic planning."

	return introduction + strings.Join(parts, "\n\n") + conclusion
}

// Fallback formats raw text as a minimal report document when every model
// failed: the first paragraph as an introduction, the rest as numbered
// sections, and a fixed conclusion.
func Fallback(text string) report.Document {
	return report.FromText(formatFallback(text), "")
}

func formatFallback(text string) string {
	var paragraphs []string
	for _, p := range blankLineRe.Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	result := "# Report\n\n"

	if len(paragraphs) == 0 {
		return result + text
	}

	result += paragraphs[0] + "\n\n"
	for i := 1; i < len(paragraphs); i++ {
		result += "## Section " + strconv.Itoa(i) + "\n\n" + paragraphs[i] + "\n\n"
	}
	result += "## Conclusion\n\nThis concludes the report based on the provided information."

	return result
}
