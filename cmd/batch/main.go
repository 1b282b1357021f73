package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mwhitaker/amazon-uk-scraper/internal/batch"
	"github.com/mwhitaker/amazon-uk-scraper/internal/browser"
	"github.com/mwhitaker/amazon-uk-scraper/internal/config"
	"github.com/mwhitaker/amazon-uk-scraper/internal/extractor"
	"github.com/mwhitaker/amazon-uk-scraper/internal/location"
	"github.com/mwhitaker/amazon-uk-scraper/internal/ratelimit"
	"github.com/mwhitaker/amazon-uk-scraper/internal/report"
	"github.com/mwhitaker/amazon-uk-scraper/internal/scraper"
)

func main() {
	var (
		input      = flag.String("input", "", "Excel file with product URLs (default: newest .xlsx in the data directory)")
		output     = flag.String("output", "", "Output workbook path (default: data/batch_results_<timestamp>.xlsx)")
		postcode   = flag.String("postcode", "", "UK postcode for the delivery location (default: from config)")
		headless   = flag.Bool("headless", false, "Run the browser in headless mode")
		noCookies  = flag.Bool("no-cookies", false, "Disable cookie loading and saving")
		configPath = flag.String("config", "config/config.json", "Path to the JSON defaults file")
	)
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *postcode != "" {
		cfg.Scrape.Postcode = *postcode
	}
	if *headless {
		cfg.Browser.Headless = true
	}
	if *noCookies {
		cfg.Scrape.UseCookies = false
		cfg.Scrape.SaveCookies = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("failed to prepare directories", "error", err)
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("      AMAZON UK BATCH PRODUCT SCRAPER")
	fmt.Println(strings.Repeat("=", 60))

	inputPath := *input
	if inputPath == "" {
		inputPath, err = newestWorkbook(cfg.Paths.DataDir)
		if err != nil {
			logger.Error("no input workbook", "error", err)
			logger.Info("place an Excel file with product URLs in the data directory or pass -input")
			os.Exit(1)
		}
		logger.Info("using newest Excel file", "path", inputPath)
	}

	urls, err := batch.LoadURLs(inputPath, logger)
	if err != nil {
		logger.Error("failed to load URLs", "error", err)
		os.Exit(1)
	}
	if len(urls) == 0 {
		logger.Error("no URLs found in input file", "path", inputPath)
		os.Exit(1)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = filepath.Join(cfg.Paths.DataDir, fmt.Sprintf("batch_results_%s.xlsx", time.Now().Format("20060102_150405")))
	}

	logger.Info("batch configuration",
		"products", len(urls),
		"postcode", cfg.Scrape.Postcode,
		"headless", cfg.Browser.Headless,
		"use_cookies", cfg.Scrape.UseCookies,
		"output", outputPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, urls, outputPath, logger); err != nil {
		logger.Error("batch scraping failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, urls []string, outputPath string, logger *slog.Logger) error {
	b, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ScreenshotsDir: cfg.Paths.ScreenshotsDir,
		CookieFile:     cfg.Paths.CookieFile,
		UseCookies:     cfg.Scrape.UseCookies,
		SaveCookies:    cfg.Scrape.SaveCookies,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("error closing browser", "error", err)
		}
	}()

	pacer := ratelimit.NewPacer(cfg.Scrape.DelayMin, cfg.Scrape.DelayMax)
	setter := location.NewSetter(b, pacer, cfg.Browser.HomeURL, logger)
	ex := extractor.New(logger)
	s := scraper.NewAmazonUKScraper(b, setter, ex, pacer, cfg.Scrape.Postcode, logger)
	defer s.Close()

	// One location change for the whole batch; its failure fails the run
	// before any product is attempted.
	if err := s.EnsureLocation(ctx); err != nil {
		return err
	}

	runner := batch.NewRunner(s, report.NewWorkbook(outputPath), pacer, logger)
	if _, err := runner.Run(ctx, urls); err != nil {
		return err
	}

	total, successful, failed := runner.Summary()
	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("BATCH SCRAPING SUMMARY")
	fmt.Printf("Total Products: %d\n", total)
	fmt.Printf("Successful:     %d\n", successful)
	fmt.Printf("Failed:         %d\n", failed)
	if total > 0 {
		fmt.Printf("Success Rate:   %.1f%%\n", float64(successful)/float64(total)*100)
	}
	fmt.Printf("Results:        %s\n", outputPath)
	fmt.Println(strings.Repeat("=", 60))

	return nil
}

// newestWorkbook picks the most recently modified .xlsx file in dir.
func newestWorkbook(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no Excel files found in %s", dir)
	}

	newest := matches[0]
	newestMod := time.Time{}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newest = m
			newestMod = info.ModTime()
		}
	}
	return newest, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
