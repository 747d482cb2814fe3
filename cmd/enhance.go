package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scanreport/internal/config"
	"scanreport/internal/enhance"
	"scanreport/internal/logger"
	"scanreport/internal/report"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [text-file]",
	Short: "Enhance raw text into a structured report document",
	Long: `Transform raw extracted text into a well-structured report.

The text is sent through a chain of chat completion models; the first
usable answer wins. With no TOGETHER_API_KEY configured, a mock document
is produced instead so the command always succeeds. Pass "-" to read
from stdin.

French reports follow a structured evaluation layout; other languages
get a generically structured report.`,
	Example: `  # Enhance extracted text into a French report
  scanreport enhance --language french extracted.txt

  # Stream the model output as it is generated
  scanreport enhance --stream extracted.txt

  # Read from stdin, write JSON document
  cat extracted.txt | scanreport enhance --json - -o report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnhanceCmd,
}

func init() {
	rootCmd.AddCommand(enhanceCmd)

	enhanceCmd.Flags().StringP("language", "l", "", "Report language (default from REPORT_LANGUAGE)")
	enhanceCmd.Flags().StringP("type", "t", "", "Report type (default from REPORT_TYPE)")
	enhanceCmd.Flags().String("instructions", "", "Additional instructions for the model")
	enhanceCmd.Flags().Bool("stream", false, "Stream model output to stderr as it arrives")
	enhanceCmd.Flags().Bool("json", false, "Output the document as JSON")
	enhanceCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	enhanceCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
}

func runEnhanceCmd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("enhance-cmd")

	language, _ := cmd.Flags().GetString("language")
	reportType, _ := cmd.Flags().GetString("type")
	instructions, _ := cmd.Flags().GetString("instructions")
	stream, _ := cmd.Flags().GetBool("stream")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	text, err := readTextArg(args[0])
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("input text is empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("timeout") {
		timeoutSecs = int(cfg.RequestTimeout.Seconds())
	}

	log.Info().
		Int("text_length", len(text)).
		Str("language", language).
		Bool("stream", stream).
		Msg("Starting text enhancement")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	service := enhance.NewService(cfg)
	opts := enhance.Options{
		Language:               language,
		ReportType:             reportType,
		AdditionalInstructions: instructions,
	}

	var document report.Document
	if stream {
		document = service.EnhanceStream(ctx, text, opts, func(delta string) {
			fmt.Fprint(cmd.ErrOrStderr(), delta)
		})
		fmt.Fprintln(cmd.ErrOrStderr())
	} else {
		document = service.Enhance(ctx, text, opts)
	}

	if document.Error != "" {
		log.Warn().
			Str("error", document.Error).
			Msg("Enhancement degraded to fallback formatting")
	}
	log.Info().
		Str("model", document.Model).
		Int("sections", len(document.Sections)).
		Msg("Enhancement completed")

	if jsonOutput {
		payload, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		return writeOutput(payload, outputPath, log)
	}
	return writeOutput([]byte(document.Markdown()), outputPath, log)
}

// readTextArg reads the input text from a file, or stdin for "-".
func readTextArg(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("failed to read text file %s: %w", arg, err)
	}
	return string(data), nil
}
