package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mwhitaker/amazon-uk-scraper/internal/queue"
	"github.com/mwhitaker/amazon-uk-scraper/internal/ratelimit"
	"github.com/mwhitaker/amazon-uk-scraper/internal/report"
	"github.com/mwhitaker/amazon-uk-scraper/internal/scraper"
)

// Column-header synonyms accepted for the URL column, matched
// case-insensitively as substrings.
var urlHeaderSynonyms = []string{"url", "link", "asin"}

// LoadURLs reads product URLs (or bare ASINs) from the first sheet of an
// Excel file. The first row is the header; if no column header matches a
// synonym, the first column is used.
func LoadURLs(path string, logger *slog.Logger) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	col := findURLColumn(rows[0])
	if col < 0 {
		col = 0
		logger.Warn("no URL column found, using first column", "header", rows[0][0])
	} else {
		logger.Info("using URL column", "header", rows[0][col])
	}

	var urls []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			urls = append(urls, v)
		}
	}

	logger.Info("loaded URLs from Excel file", "path", path, "count", len(urls))
	return urls, nil
}

func findURLColumn(header []string) int {
	for i, name := range header {
		lower := strings.ToLower(name)
		for _, syn := range urlHeaderSynonyms {
			if strings.Contains(lower, syn) {
				return i
			}
		}
	}
	return -1
}

// Runner processes a list of products sequentially through one shared
// browser session. Each item's outcome is isolated: a failed product is
// recorded in its row and never stops the loop.
type Runner struct {
	scraper  scraper.ProductScraper
	workbook *report.Workbook
	pacer    *ratelimit.Pacer
	logger   *slog.Logger
	rows     []report.Row
}

func NewRunner(s scraper.ProductScraper, wb *report.Workbook, pacer *ratelimit.Pacer, logger *slog.Logger) *Runner {
	return &Runner{
		scraper:  s,
		workbook: wb,
		pacer:    pacer,
		logger:   logger.With("component", "batch"),
	}
}

// Run scrapes every URL in order, persisting the workbook after each item.
// The final workbook write error is surfaced; intermediate progress-save
// failures are logged and skipped.
func (r *Runner) Run(ctx context.Context, urls []string) ([]report.Row, error) {
	q := queue.NewInMemoryQueue()
	for i, url := range urls {
		if err := q.Push(&queue.Task{Number: i + 1, URL: url}); err != nil {
			return nil, fmt.Errorf("failed to enqueue task %d: %w", i+1, err)
		}
	}
	q.Close()

	total := len(urls)
	r.logger.Info("starting batch scrape", "products", total, "output", r.workbook.Path())

	for {
		task, err := q.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || errors.Is(err, queue.ErrQueueEmpty) {
				break
			}
			return r.rows, err
		}

		if err := ctx.Err(); err != nil {
			return r.rows, err
		}

		if task.Number > 1 {
			if err := r.pacer.Wait(ctx); err != nil {
				return r.rows, err
			}
		}

		r.logger.Info("processing product", "number", task.Number, "total", total, "url", task.URL)

		rec := r.scraper.ScrapeNext(ctx, task.URL)
		row := report.Row{
			Number:  task.Number,
			Record:  rec,
			Success: rec.Succeeded(),
		}
		r.rows = append(r.rows, row)

		if row.Success {
			r.logger.Info("product completed", "number", task.Number, "status", rec.Status)
		} else {
			r.logger.Error("product failed", "number", task.Number, "error", rec.Error)
		}

		if err := r.workbook.Write(r.rows); err != nil {
			r.logger.Warn("failed to save progress", "error", err)
		}
	}

	if err := r.workbook.Write(r.rows); err != nil {
		return r.rows, fmt.Errorf("%w: %v", scraper.ErrPersistence, err)
	}

	return r.rows, nil
}

// Summary reports totals for the completed run.
func (r *Runner) Summary() (total, successful, failed int) {
	total = len(r.rows)
	for _, row := range r.rows {
		if row.Success {
			successful++
		}
	}
	return total, successful, total - successful
}

// Rows exposes the accumulated results, mainly for the end-of-run summary.
func (r *Runner) Rows() []report.Row {
	return r.rows
}
