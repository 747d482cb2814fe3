package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scanreport/internal/config"
	"scanreport/internal/logger"
	"scanreport/internal/ocr"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "scanreport",
	Short: "Scanreport CLI - turn scanned documents into structured reports",
	Long: `Scanreport CLI extracts text from scanned document images and enhances
it into structured, professional report documents.

Extraction can run locally through Tesseract or through hosted vision
models (Together AI, Gemini, Google Cloud Vision); a selector picks the
right backend per image. Enhancement runs the extracted text through a
chain of chat completion models with deterministic fallbacks, so the
pipeline always produces a document.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Scanreport CLI executed")

		fmt.Println("Welcome to Scanreport CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// buildSelector assembles the extraction engines the configuration allows and
// returns the selector plus a cleanup func for engines that hold connections.
func buildSelector(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ocr.Selector, func(), error) {
	var cleanup []func()

	var local ocr.Engine
	tessEngine, err := ocr.NewTesseractEngine()
	if err != nil {
		log.Warn().Err(err).Msg("Local Tesseract engine unavailable")
	} else {
		local = tessEngine
	}

	var vision ocr.Engine
	togetherEngine, err := ocr.NewTogetherEngine(cfg.TogetherAPIKey, cfg.TogetherBaseURL, cfg.VisionModel)
	if err != nil {
		log.Warn().Err(err).Msg("Together AI vision engine unavailable")
	} else {
		vision = togetherEngine
	}

	var extra []ocr.Engine
	if cfg.HasGeminiCredentials() {
		geminiEngine, err := ocr.NewGeminiEngine(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini vision engine unavailable")
		} else {
			extra = append(extra, geminiEngine)
			if vision == nil {
				vision = geminiEngine
			}
		}
	}
	if cfg.HasGoogleCredentials() {
		gvEngine, err := ocr.NewGoogleVisionEngine(ctx, cfg.GoogleCredentials, cfg.GoogleApplicationCredentials)
		if err != nil {
			log.Warn().Err(err).Msg("Google Cloud Vision engine unavailable")
		} else {
			extra = append(extra, gvEngine)
			cleanup = append(cleanup, func() {
				if err := gvEngine.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close Cloud Vision client")
				}
			})
		}
	}

	if local == nil && vision == nil && len(extra) == 0 {
		return nil, nil, fmt.Errorf("no extraction backend available: enable the ocr build tag for Tesseract or configure TOGETHER_API_KEY, GEMINI_API_KEY, or Google Cloud credentials")
	}

	selector := ocr.NewSelector(local, vision, extra...)
	return selector, func() {
		for _, fn := range cleanup {
			fn()
		}
	}, nil
}

// loadImageRef turns a CLI argument into an image reference: http(s) URLs are
// passed through, anything else is read from disk as inline bytes.
func loadImageRef(arg string) (ocr.ImageRef, error) {
	if u, err := url.Parse(arg); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return ocr.ImageRef{URL: arg}, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return ocr.ImageRef{}, fmt.Errorf("failed to read image file %s: %w", arg, err)
	}
	if len(data) == 0 {
		return ocr.ImageRef{}, fmt.Errorf("image file is empty: %s", arg)
	}

	return ocr.ImageRef{Data: data, MIME: mimeForPath(arg)}, nil
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}

// writeOutput writes content to the given path, or stdout when empty.
func writeOutput(content []byte, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		fmt.Println(string(content))
		return nil
	}

	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output", outputPath).
		Int("bytes", len(content)).
		Msg("Output written")
	return nil
}
