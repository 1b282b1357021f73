package browser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser owns the playwright lifecycle for one scraping session: the
// chromium process, a single configured context and the cookie jar persisted
// across runs.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	jar     *CookieJar
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ScreenshotsDir string
	CookieFile     string
	UseCookies     bool
	SaveCookies    bool
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-GB,en;q=0.9",
		TimezoneID:     "Europe/London",
		Locale:         "en-GB",
		ScreenshotsDir: "screenshots",
		CookieFile:     "config/cookies.json",
		UseCookies:     true,
		SaveCookies:    true,
	}
}

// concealWebdriver hides the automation flag the site checks first.
const concealWebdriver = `
Object.defineProperty(navigator, 'webdriver', {
    get: () => undefined
});
`

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	logger := slog.Default().With("component", "browser")

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}

	chromium, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:  &opts.UserAgent,
		Locale:     &opts.Locale,
		TimezoneId: &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": opts.AcceptLanguage,
		},
	}

	context, err := chromium.NewContext(contextOpts)
	if err != nil {
		chromium.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := context.AddInitScript(playwright.Script{Content: playwright.String(concealWebdriver)}); err != nil {
		logger.Warn("failed to add init script", "error", err)
	}

	b := &Browser{
		pw:      pw,
		browser: chromium,
		context: context,
		jar:     NewCookieJar(opts.CookieFile, logger),
		opts:    opts,
		logger:  logger,
	}

	if opts.UseCookies {
		b.loadCookies()
	}

	return b, nil
}

// loadCookies restores the persisted jar into the context. A missing or
// unreadable jar is non-fatal; the session just starts cold.
func (b *Browser) loadCookies() {
	cookies, err := b.jar.Load()
	if err != nil {
		b.logger.Warn("failed to load cookie jar", "error", err)
		return
	}
	if len(cookies) == 0 {
		return
	}

	if err := b.context.AddCookies(cookies); err != nil {
		b.logger.Warn("failed to restore cookies into context", "error", err)
		return
	}
	b.logger.Info("cookies restored", "count", len(cookies))
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	return page, nil
}

func (b *Browser) Context() playwright.BrowserContext {
	return b.context
}

// Screenshot writes a full-page checkpoint screenshot into the screenshots
// directory and returns its path. Failures are logged, not returned: a
// missing screenshot must never abort a scrape.
func (b *Browser) Screenshot(page playwright.Page, name string) string {
	if err := os.MkdirAll(b.opts.ScreenshotsDir, 0o755); err != nil {
		b.logger.Warn("failed to create screenshots directory", "error", err)
		return ""
	}

	path := filepath.Join(b.opts.ScreenshotsDir, name+".png")
	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		b.logger.Warn("failed to take screenshot", "name", name, "error", err)
		return ""
	}

	b.logger.Debug("screenshot saved", "path", path)
	return path
}

// Close persists the cookie jar (when configured) and tears down the
// playwright stack. Cookie-save failure is logged and non-fatal.
func (b *Browser) Close() error {
	if b.opts.SaveCookies && b.context != nil {
		cookies, err := b.context.Cookies()
		if err != nil {
			b.logger.Warn("failed to read cookies from context", "error", err)
		} else if err := b.jar.Save(cookies); err != nil {
			b.logger.Warn("failed to save cookie jar", "error", err)
		}
	}

	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

func (b *Browser) NavigateWithRetry(page playwright.Page, url string, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i+1) * time.Second)
		}

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
		})
		if err == nil {
			return nil
		}

		lastErr = err
		b.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
