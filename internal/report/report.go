package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/mwhitaker/amazon-uk-scraper/internal/models"
)

// Reporter formats and persists single-shot scrape results. Pure formatting:
// failures are propagated write errors, nothing is retried here.
type Reporter struct {
	dataDir string
	logger  *slog.Logger
}

func NewReporter(dataDir string, logger *slog.Logger) *Reporter {
	return &Reporter{
		dataDir: dataDir,
		logger:  logger.With("component", "report"),
	}
}

// SaveJSON writes the record to the data directory and returns the path.
// With an empty filename a timestamped name is generated.
func (r *Reporter) SaveJSON(rec models.ProductRecord, filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("amazon_product_%s.json", time.Now().Format("20060102_150405"))
	}

	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	path := filepath.Join(r.dataDir, filename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to replace result file: %w", err)
	}

	r.logger.Info("results saved", "path", path)
	return path, nil
}

// DisplayTable renders the record as a two-column field/value table, with
// N/A standing in for fields that were not found.
func DisplayTable(w io.Writer, rec models.ProductRecord) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SCRAPING RESULTS")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Field\tValue")
	fmt.Fprintln(tw, "-----\t-----")
	fmt.Fprintf(tw, "Product Title\t%s\n", orNA(rec.Title))
	fmt.Fprintf(tw, "Regular Price\t%s\n", orNA(rec.RegularPrice))
	fmt.Fprintf(tw, "Subscribe Save Price\t%s\n", orNA(rec.SubscribeSavePrice))
	fmt.Fprintf(tw, "Extraction Status\t%s\n", rec.Status)
	if rec.Error != "" {
		fmt.Fprintf(tw, "Error\t%s\n", rec.Error)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nScraped at: %s\n", rec.Timestamp())
	fmt.Fprintf(w, "Product URL: %s\n\n", rec.URL)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
