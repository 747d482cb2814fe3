package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"scanreport/internal/config"
	"scanreport/internal/enhance"
	"scanreport/internal/logger"
	"scanreport/internal/ocr"
	"scanreport/internal/pipeline"
	"scanreport/internal/report"
	"scanreport/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report [image...]",
	Short: "Run the full pipeline: images to OCR to structured report",
	Long: `Extract text from all given images, combine it, and enhance it into a
single structured report document.

Images are processed in order; pages that fail extraction are logged and
skipped. Extraction results are persisted per image when DATABASE_PATH
(or --db) points at a SQLite file, so a later run can pick them up.`,
	Example: `  # Three scanned pages into one French report
  scanreport report --language fra --report-language french p1.png p2.png p3.png

  # Keep extraction results in a database and emit JSON
  scanreport report --db results.db --json page1.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReportCmd,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("language", "l", "", "OCR language: eng, fra, or eng+fra")
	reportCmd.Flags().Bool("prefer-ai", false, "Force the hosted vision path")
	reportCmd.Flags().StringP("backend", "b", "", "Force a specific OCR backend")
	reportCmd.Flags().String("report-language", "", "Report language (default from REPORT_LANGUAGE)")
	reportCmd.Flags().String("report-type", "", "Report type (default from REPORT_TYPE)")
	reportCmd.Flags().String("instructions", "", "Additional instructions for the model")
	reportCmd.Flags().String("db", "", "SQLite file for extraction results (default from DATABASE_PATH)")
	reportCmd.Flags().Bool("json", false, "Output the document as JSON")
	reportCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	reportCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
	reportCmd.Flags().Bool("progress", false, "Print progress to stderr")
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report-cmd")

	language, _ := cmd.Flags().GetString("language")
	preferAI, _ := cmd.Flags().GetBool("prefer-ai")
	backend, _ := cmd.Flags().GetString("backend")
	reportLanguage, _ := cmd.Flags().GetString("report-language")
	reportType, _ := cmd.Flags().GetString("report-type")
	instructions, _ := cmd.Flags().GetString("instructions")
	dbPath, _ := cmd.Flags().GetString("db")
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
	if dbPath == "" {
		dbPath = cfg.DatabasePath
	}

	lang := ocr.Language(language)
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q: use eng, fra, or eng+fra", language)
	}

	images := make([]pipeline.Image, 0, len(args))
	for _, arg := range args {
		ref, err := loadImageRef(arg)
		if err != nil {
			return err
		}
		images = append(images, pipeline.Image{ID: arg, Ref: ref})
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	selector, cleanup, err := buildSelector(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	var repo store.Repository
	if dbPath != "" {
		sqliteRepo, err := store.OpenSQLite(ctx, dbPath)
		if err != nil {
			return err
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	} else {
		repo = store.NewMemory()
	}

	enhancer := enhance.NewService(cfg)
	orchestrator := pipeline.New(selector, enhancer, repo)

	ocrOpts := ocr.Options{
		Language: lang,
		PreferAI: preferAI,
		Backend:  backend,
	}
	if showProgress {
		ocrOpts.OnProgress = func(status string, progress float64) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s (%.0f%%)\n", status, progress*100)
		}
	}
	enhOpts := enhance.Options{
		Language:               reportLanguage,
		ReportType:             reportType,
		AdditionalInstructions: instructions,
	}

	log.Info().
		Int("images", len(images)).
		Str("language", language).
		Str("db", dbPath).
		Msg("Starting report pipeline")

	document, results, err := orchestrator.Run(ctx, images, ocrOpts, enhOpts)
	if err != nil {
		return err
	}

	failures := 0
	for _, res := range results {
		if res.Extraction.Failed() {
			failures++
		}
	}
	log.Info().
		Int("images", len(results)).
		Int("failures", failures).
		Str("model", document.Model).
		Int("sections", len(document.Sections)).
		Msg("Report pipeline completed")

	if jsonOutput {
		payload, err := json.MarshalIndent(struct {
			Document report.Document   `json:"document"`
			Results  []pipeline.Result `json:"results"`
		}{document, results}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return writeOutput(payload, outputPath, log)
	}
	return writeOutput([]byte(document.Markdown()), outputPath, log)
}
