package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/mwhitaker/amazon-uk-scraper/internal/browser"
	"github.com/mwhitaker/amazon-uk-scraper/internal/extractor"
	"github.com/mwhitaker/amazon-uk-scraper/internal/location"
	"github.com/mwhitaker/amazon-uk-scraper/internal/models"
	"github.com/mwhitaker/amazon-uk-scraper/internal/ratelimit"
)

const ukBaseURL = "https://www.amazon.co.uk"

var (
	asinOnlyPattern   = regexp.MustCompile(`^[A-Z0-9]{10}$`)
	productURLPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?amazon\.co\.uk/(?:.*?/)?(?:dp|gp/product)/([A-Z0-9]{10})`)
)

// AmazonUKScraper binds the session manager, location setter and field
// extractor for one browser session. The session is exclusively owned by the
// calling goroutine from open to close.
type AmazonUKScraper struct {
	browser   *browser.Browser
	setter    *location.Setter
	extractor *extractor.Extractor
	pacer     *ratelimit.Pacer
	logger    *slog.Logger

	postcode string
	page     playwright.Page
	locState *location.LocationState
}

func NewAmazonUKScraper(b *browser.Browser, setter *location.Setter, ex *extractor.Extractor, pacer *ratelimit.Pacer, postcode string, logger *slog.Logger) *AmazonUKScraper {
	return &AmazonUKScraper{
		browser:   b,
		setter:    setter,
		extractor: ex,
		pacer:     pacer,
		postcode:  postcode,
		logger:    logger.With("component", "scraper"),
	}
}

// EnsureLocation opens the session page and runs the location setter. It is
// called once per session; later calls are no-ops when already verified.
func (s *AmazonUKScraper) EnsureLocation(ctx context.Context) error {
	if s.locState != nil && s.locState.Verified {
		return nil
	}

	if s.page == nil {
		page, err := s.browser.NewPage()
		if err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
		s.page = page
	}

	st := s.setter.SetLocation(ctx, s.page, s.postcode)
	s.locState = &st

	if !st.Verified {
		return fmt.Errorf("%w: %s", ErrLocationFailed, st.Err)
	}
	return nil
}

// Location returns the outcome of the session's location change, or nil if
// it has not run yet.
func (s *AmazonUKScraper) Location() *location.LocationState {
	return s.locState
}

// ScrapeNext scrapes one product using the already-located session. All
// failures are folded into the returned record; the session stays usable for
// the next product.
func (s *AmazonUKScraper) ScrapeNext(ctx context.Context, rawURL string) models.ProductRecord {
	url, err := NormalizeURL(rawURL)
	if err != nil {
		return models.FailedRecord(rawURL, err.Error(), "")
	}

	if err := ctx.Err(); err != nil {
		return models.FailedRecord(url, "cancelled: "+err.Error(), "")
	}

	if s.page == nil {
		return models.FailedRecord(url, "session not initialized", "")
	}

	s.logger.Info("scraping product", "url", url)

	if err := s.browser.NavigateWithRetry(s.page, url, 2); err != nil {
		shot := s.browser.Screenshot(s.page, "error_product_page")
		return models.FailedRecord(url, fmt.Sprintf("%v: %v", ErrNavigationTimeout, err), shot)
	}
	s.pacer.Sleep()

	if err := s.page.Locator("#productTitle").First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		if s.checkIfBlocked() {
			shot := s.browser.Screenshot(s.page, "error_blocked")
			return models.FailedRecord(url, ErrBlocked.Error(), shot)
		}
		shot := s.browser.Screenshot(s.page, "error_product_page")
		return models.FailedRecord(url, fmt.Sprintf("%v: product title never appeared", ErrNavigationTimeout), shot)
	}

	s.browser.Screenshot(s.page, "06_product_page")

	rec := s.extractor.Extract(s.page, url)
	s.logger.Info("product scraped", "url", url, "status", rec.Status)
	return rec
}

// Run is the single-shot flow: set the location once, then scrape one URL.
func (s *AmazonUKScraper) Run(ctx context.Context, rawURL string) models.ProductRecord {
	if err := s.EnsureLocation(ctx); err != nil {
		shot := ""
		if s.locState != nil {
			shot = s.locState.Screenshot
		}
		return models.FailedRecord(rawURL, err.Error(), shot)
	}
	return s.ScrapeNext(ctx, rawURL)
}

// Close releases the page. The browser itself is closed by its owner so a
// batch run can share one session across scrapers.
func (s *AmazonUKScraper) Close() {
	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
}

func (s *AmazonUKScraper) checkIfBlocked() bool {
	captchaSelectors := []string{
		"#captchacharacters",
		"form[action*='Captcha']",
		".a-box-inner h4:has-text('Robot')",
	}

	for _, selector := range captchaSelectors {
		if count, _ := s.page.Locator(selector).Count(); count > 0 {
			s.logger.Warn("detected captcha/block", "selector", selector)
			return true
		}
	}

	title, _ := s.page.Title()
	if strings.Contains(strings.ToLower(title), "robot") {
		s.logger.Warn("detected robot check in title", "title", title)
		return true
	}

	return false
}

// NormalizeURL turns a bare ASIN or a .com product link into a canonical
// amazon.co.uk product URL, rejecting anything else.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}

	if asinOnlyPattern.MatchString(strings.ToUpper(raw)) {
		return fmt.Sprintf("%s/dp/%s", ukBaseURL, strings.ToUpper(raw)), nil
	}

	if strings.Contains(raw, "amazon.com") && !strings.Contains(raw, "amazon.co.uk") {
		raw = strings.Replace(raw, "amazon.com", "amazon.co.uk", 1)
	}

	if _, err := ExtractASIN(raw); err != nil {
		return "", err
	}

	return raw, nil
}

// ExtractASIN pulls the 10-character product identifier out of a UK product
// URL.
func ExtractASIN(url string) (string, error) {
	matches := productURLPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	return strings.ToUpper(matches[1]), nil
}
