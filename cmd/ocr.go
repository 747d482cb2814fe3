package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scanreport/internal/config"
	"scanreport/internal/logger"
	"scanreport/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image...]",
	Short: "Extract text from scanned document images",
	Long: `Run OCR over one or more images and print the extracted text.

Each argument is either a local image file or an http(s) URL. Images are
processed sequentially; a failing image does not stop the rest of the
batch.

The backend is chosen per image: French-language input and handwritten
documents go to a hosted vision model, everything else can use the local
Tesseract engine when the binary was built with the "ocr" tag. Use
--backend to force a specific engine (tesseract, together, gemini,
googlevision).`,
	Example: `  # Extract text from a scanned page
  scanreport ocr page1.png

  # French handwriting across multiple pages, as JSON
  scanreport ocr --language fra --json page1.png page2.png

  # Force the local engine
  scanreport ocr --backend tesseract page1.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOCRCmd,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("language", "l", "", "OCR language: eng, fra, or eng+fra")
	ocrCmd.Flags().Bool("prefer-ai", false, "Force the hosted vision path")
	ocrCmd.Flags().StringP("backend", "b", "", "Force a specific backend")
	ocrCmd.Flags().Bool("json", false, "Output results as JSON")
	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
	ocrCmd.Flags().Bool("progress", false, "Print progress to stderr")
}

func runOCRCmd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr-cmd")

	language, _ := cmd.Flags().GetString("language")
	preferAI, _ := cmd.Flags().GetBool("prefer-ai")
	backend, _ := cmd.Flags().GetString("backend")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	showProgress, _ := cmd.Flags().GetBool("progress")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if language == "" {
		language = cfg.OCRLanguage
	}
	if backend == "" {
		backend = cfg.PreferredBackend
	}
	if !cmd.Flags().Changed("timeout") {
		timeoutSecs = int(cfg.RequestTimeout.Seconds())
	}

	lang := ocr.Language(language)
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q: use eng, fra, or eng+fra", language)
	}

	refs := make([]ocr.ImageRef, 0, len(args))
	for _, arg := range args {
		ref, err := loadImageRef(arg)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	log.Info().
		Int("images", len(refs)).
		Str("language", language).
		Str("backend", backend).
		Bool("prefer_ai", preferAI).
		Msg("Starting OCR")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	selector, cleanup, err := buildSelector(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := ocr.Options{
		Language: lang,
		PreferAI: preferAI,
		Backend:  backend,
	}
	if showProgress {
		opts.OnProgress = func(status string, progress float64) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s (%.0f%%)\n", status, progress*100)
		}
	}

	results := selector.ExtractBatch(ctx, refs, opts)

	failures := 0
	for i, res := range results {
		if res.Failed() {
			failures++
			log.Warn().
				Str("image", args[i]).
				Str("error", res.Error).
				Msg("Image extraction failed")
		}
	}
	log.Info().
		Int("images", len(results)).
		Int("failures", failures).
		Msg("OCR completed")

	if jsonOutput {
		payload, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		return writeOutput(payload, outputPath, log)
	}

	var sb strings.Builder
	for i, res := range results {
		if len(results) > 1 {
			fmt.Fprintf(&sb, "--- %s ---\n", args[i])
		}
		if res.Failed() {
			fmt.Fprintf(&sb, "[extraction failed: %s]\n", res.Error)
		} else {
			sb.WriteString(res.Text)
			sb.WriteString("\n")
		}
	}
	return writeOutput([]byte(strings.TrimRight(sb.String(), "\n")), outputPath, log)
}
