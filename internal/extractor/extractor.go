package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/mwhitaker/amazon-uk-scraper/internal/models"
)

// Accordion controls that hide the Subscribe & Save block on some pages.
var accordionSelectors = []string{
	"a[href='#subscriptionAccordion']",
	"#rcxsubsToggle",
	"a.a-link-expander",
	"button[aria-controls='subscriptionAccordion']",
}

// Extractor reads product fields off a loaded page. All field lookups run
// against a single HTML snapshot, so extracting twice from the same content
// yields identical records.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With("component", "extractor"),
	}
}

// Extract expands the Subscribe & Save section if needed, snapshots the page
// and extracts all fields. A missing field is an empty string, not an error.
func (e *Extractor) Extract(page playwright.Page, url string) models.ProductRecord {
	e.expandSubscribeSave(page)
	page.WaitForTimeout(1000)

	html, err := page.Content()
	if err != nil {
		e.logger.Error("failed to read page content", "error", err)
		return models.FailedRecord(url, fmt.Sprintf("failed to read page content: %v", err), "")
	}

	rec, err := e.FromHTML(html, url)
	if err != nil {
		return models.FailedRecord(url, err.Error(), "")
	}
	return rec
}

// FromHTML runs the field strategies over a static HTML snapshot.
func (e *Extractor) FromHTML(html, url string) (models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return e.FromDocument(doc, url), nil
}

// FromDocument is the deterministic core: same document, same record fields.
func (e *Extractor) FromDocument(doc *goquery.Document, url string) models.ProductRecord {
	rec := models.NewRecord(url)

	title, strategy := firstMatch(doc, titleStrategies())
	if title != "" {
		e.logger.Info("title extracted", "strategy", strategy, "title", truncate(title, 50))
	} else {
		e.logger.Warn("could not extract product title")
	}

	regular, strategy := firstMatch(doc, regularPriceStrategies())
	if regular != "" {
		e.logger.Info("regular price extracted", "strategy", strategy, "price", regular)
	} else {
		e.logger.Warn("could not extract regular price")
	}

	sns, strategy := firstMatch(doc, subscribeSaveStrategies())
	if sns != "" {
		e.logger.Info("subscribe & save price extracted", "strategy", strategy, "price", sns)
	} else {
		// Expected for products without a subscription offer.
		e.logger.Info("subscribe & save price not found")
	}

	rec.Title = title
	rec.RegularPrice = regular
	rec.SubscribeSavePrice = sns
	rec.Status = models.DeriveStatus(title, regular, sns)
	if rec.Status == models.StatusFailed {
		rec.Error = "product title not found on page"
	}

	return rec
}

// expandSubscribeSave clicks the subscription accordion once when present.
// Failure here never aborts extraction of the other fields.
func (e *Extractor) expandSubscribeSave(page playwright.Page) {
	for _, sel := range accordionSelectors {
		loc := page.Locator(sel).First()

		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}

		text, err := loc.InnerText()
		if err != nil {
			continue
		}

		lower := strings.ToLower(text)
		if !strings.Contains(lower, "subscribe") && !strings.Contains(lower, "save") {
			continue
		}

		if err := loc.Click(); err != nil {
			e.logger.Warn("could not expand subscription section", "selector", sel, "error", err)
			continue
		}

		e.logger.Info("expanded subscription section", "selector", sel)
		page.WaitForTimeout(500)
		return
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
