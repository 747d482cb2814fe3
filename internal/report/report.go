// Package report defines the structured document produced by the enhancement
// stage and the parser that splits heading-delimited text into titled sections.
package report

import (
	"regexp"
	"strings"
)

// Section is a titled block of report content.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Document is the output of the enhancement stage. RawText always carries the
// full source text; Sections holds its parsed structure when any was found.
// Model names the chat-completion candidate that produced the text; Error
// carries a warning from a degraded path. A Document is never mutated in
// place.
type Document struct {
	Sections []Section `json:"sections,omitempty"`
	RawText  string    `json:"raw_text,omitempty"`
	Model    string    `json:"model,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// headingRe matches either a line-start run of '#' markers followed by a
// title, or a line underlined by a run of '=' or '-' characters. Mid-line '#'
// prose never matches.
var headingRe = regexp.MustCompile(`(?m)^#+[ \t]+(.+)$|^(.+)\r?\n[=-]+$`)

// ParseSections splits heading-delimited text into ordered sections.
//
// Text before the first heading becomes a section titled "Introduction".
// Content between headings is trimmed; empty gaps between adjacent headings
// produce no section. Non-empty text with no headings at all yields a single
// section titled "Report" holding the whole trimmed text. Empty input yields
// nil. The function is total: it never fails, whatever the input.
func ParseSections(text string) []Section {
	var sections []Section

	lastIndex := 0
	lastTitle := "Introduction"
	matched := false

	for _, m := range headingRe.FindAllStringSubmatchIndex(text, -1) {
		matched = true
		start, end := m[0], m[1]
		title := ""
		if m[2] >= 0 {
			title = text[m[2]:m[3]]
		} else if m[4] >= 0 {
			title = text[m[4]:m[5]]
		}

		if lastIndex > 0 {
			if content := strings.TrimSpace(text[lastIndex:start]); content != "" {
				sections = append(sections, Section{Title: lastTitle, Content: content})
			}
		} else if start > 0 {
			// Content before the first heading is the introduction.
			if intro := strings.TrimSpace(text[:start]); intro != "" {
				sections = append(sections, Section{Title: "Introduction", Content: intro})
			}
		}

		lastIndex = end
		lastTitle = title
	}

	// Trailing content belongs to the last heading. Without any heading the
	// whole text falls through to the single "Report" section below.
	if matched && lastIndex < len(text) {
		if content := strings.TrimSpace(text[lastIndex:]); content != "" {
			sections = append(sections, Section{Title: lastTitle, Content: content})
		}
	}

	// No headings matched, or every section body was empty: fall back to one
	// section carrying the whole text.
	if len(sections) == 0 && strings.TrimSpace(text) != "" {
		sections = append(sections, Section{Title: "Report", Content: strings.TrimSpace(text)})
	}

	return sections
}

// FromText builds a Document from enhanced text, parsing it into sections.
// The full text is kept in RawText alongside the parsed sections, so callers
// can render either view.
func FromText(text, model string) Document {
	return Document{
		Sections: ParseSections(text),
		RawText:  strings.TrimSpace(text),
		Model:    model,
	}
}

// Markdown renders the document back into heading-delimited form. Raw-text
// documents are returned as-is.
func (d Document) Markdown() string {
	if len(d.Sections) == 0 {
		return d.RawText
	}
	var b strings.Builder
	for _, s := range d.Sections {
		b.WriteString("## ")
		b.WriteString(s.Title)
		b.WriteString("\n\n")
		b.WriteString(s.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Empty reports whether the document carries neither sections nor raw text.
func (d Document) Empty() bool {
	return len(d.Sections) == 0 && strings.TrimSpace(d.RawText) == ""
}
