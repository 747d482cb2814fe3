// Package prompt builds the instruction text handed to the chat-completion
// backend when restructuring raw OCR output into a report.
package prompt

import (
	"fmt"
	"strings"
)

// Options select the report shape the model is asked to produce.
type Options struct {
	Language               string // defaults to "french" when empty
	ReportType             string
	AdditionalInstructions string
}

// frenchTemplate mandates the fixed evaluation-report structure and supplies a
// complete worked example. The example teaches shape only; the closing
// instruction forbids copying its content.
const frenchTemplate = `
Please format the report following this French report structure:

1. "Rapport d'Évaluation" as the main title
2. Basic information at the top (name, date, etc.)
3. "Contexte de l'Évaluation" section explaining the purpose of the evaluation
4. "Observations Initiales" section with initial observations
5. "Observations en Conduite" section with detailed observations, which may include subsections like "Maîtrise Technique"
6. "Conclusion et Recommandations" section summarizing findings
7. "Points à souligner" section with key highlights
8. Evaluator name at the end

Here is an example of the structure to follow:


Rapport d'Évaluation

Nom du chauffeur : Mme Salmouni Ouafae
Date : 10 avril 2025

Madame est arrivée à l'heure et vêtue d'une façon appropriée dès le départ.
Madame est très à l'aise au volant, professionnelle.
Bonne attitude. Peu de fautes de conduite.
Excellente. Rien à dire de négatif.

Contexte de l'Évaluation

Une évaluation des compétences de conduite a été réalisée pour Mme Salmouni Ouafae
afin de vérifier ses aptitudes générales, sa maîtrise du véhicule et sa conformité aux
exigences opérationnelles.

Observations Initiales

Mme Salmouni s'est présentée à l'heure prévue et était vêtue de manière appropriée. Elle a
démontré dès le départ une attitude professionnelle et une grande aisance dans son rôle.

Observations en Conduite

Maîtrise Technique

Mme Salmouni a parfaitement manœuvré le véhicule avec assurance.
Elle a effectué toutes les sorties et entrées de cour de manière fluide et sécuritaire.
Les virages, les arrêts et les reprises ont été réalisés avec précision.
Les manœuvres de recul ont été bien maîtrisées, sans difficulté apparente.

Conclusion et Recommandations

Mme Salmouni démontre toutes les compétences nécessaires pour assurer ce travail de
manière sécuritaire et efficace. Son professionnalisme, sa maîtrise technique et son
comportement en conduite sont exemplaires.

Points à souligner

Aucune recommandation particulière, le niveau de compétence est excellent.
Peut être recommandée sans réserve pour le poste.

Évaluateur : Richard Ouimet

The example above illustrates structure only. Never copy names, dates, or any
other content from it into your output; every fact must come from the raw text.
Ensure the report is written in formal, professional French with proper grammar
and vocabulary. Adapt the structure to fit the content of the raw text while
maintaining this format.
`

// genericInstructions is used for every non-French target language.
const genericInstructions = `
Please:
1. Correct any spelling or grammar errors
2. Organize the content into logical sections with headings
3. Format the text professionally
4. Maintain all factual information from the original text
5. Add appropriate transitions between sections
6. Use professional language suitable for a formal report
`

// Build creates the enhancement prompt. The raw text is embedded verbatim
// between delimiter markers so the model works on ground truth, never a
// paraphrase. Deterministic for identical inputs.
func Build(text string, opts Options) string {
	language := opts.Language
	if language == "" {
		language = "french"
	}

	var b strings.Builder
	b.WriteString("\nI need you to transform the following raw text (extracted from OCR) into a well-structured, professional report.\n\n")
	b.WriteString(fmt.Sprintf("Language: %s\n", language))
	b.WriteString(fmt.Sprintf("Report Type: %s\n", opts.ReportType))
	if opts.AdditionalInstructions != "" {
		b.WriteString(fmt.Sprintf("Additional Instructions: %s\n", opts.AdditionalInstructions))
	}
	b.WriteString("\nHere's the raw text:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---\n\n")

	if isFrench(language) {
		b.WriteString(frenchTemplate)
	} else {
		b.WriteString(genericInstructions)
	}

	b.WriteString("\nReturn the enhanced text in a clean, well-structured format with clear section headings.\n")

	return b.String()
}

func isFrench(language string) bool {
	l := strings.ToLower(language)
	return strings.Contains(l, "french") || strings.Contains(l, "français")
}
