package browser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/playwright-community/playwright-go"
)

// CookieJar persists session cookies between runs so a later session starts
// with the delivery location already applied. The file groups cookies by
// domain and is rewritten whole on save.
type CookieJar struct {
	path   string
	logger *slog.Logger
}

func NewCookieJar(path string, logger *slog.Logger) *CookieJar {
	return &CookieJar{
		path:   path,
		logger: logger.With("component", "cookiejar"),
	}
}

// Load reads the jar. A missing file yields no cookies and no error; a
// corrupted file is deleted so the next run starts fresh.
func (j *CookieJar) Load() ([]playwright.OptionalCookie, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			j.logger.Debug("cookie file not found", "path", j.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var byDomain map[string][]playwright.OptionalCookie
	if err := json.Unmarshal(data, &byDomain); err != nil {
		j.logger.Warn("corrupted cookie file, deleting", "path", j.path, "error", err)
		if rmErr := os.Remove(j.path); rmErr != nil {
			j.logger.Warn("failed to delete corrupted cookie file", "error", rmErr)
		}
		return nil, nil
	}

	domains := make([]string, 0, len(byDomain))
	for domain := range byDomain {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	var cookies []playwright.OptionalCookie
	for _, domain := range domains {
		cookies = append(cookies, byDomain[domain]...)
	}

	j.logger.Info("cookies loaded", "path", j.path, "count", len(cookies))
	return cookies, nil
}

// Save overwrites the jar with the current context cookies, grouped by
// domain. The write goes through a temp file and rename so a crash cannot
// leave a half-written jar behind.
func (j *CookieJar) Save(cookies []playwright.Cookie) error {
	byDomain := make(map[string][]playwright.OptionalCookie)
	for _, c := range cookies {
		byDomain[c.Domain] = append(byDomain[c.Domain], toOptionalCookie(c))
	}

	data, err := json.MarshalIndent(byDomain, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}

	tmpFile := j.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}

	if err := os.Rename(tmpFile, j.path); err != nil {
		return fmt.Errorf("failed to replace cookie file: %w", err)
	}

	j.logger.Info("cookies saved", "path", j.path, "count", len(cookies))
	return nil
}

func toOptionalCookie(c playwright.Cookie) playwright.OptionalCookie {
	return playwright.OptionalCookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   playwright.String(c.Domain),
		Path:     playwright.String(c.Path),
		Expires:  playwright.Float(c.Expires),
		HttpOnly: playwright.Bool(c.HttpOnly),
		Secure:   playwright.Bool(c.Secure),
		SameSite: c.SameSite,
	}
}
