package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/mwhitaker/amazon-uk-scraper/internal/browser"
	"github.com/mwhitaker/amazon-uk-scraper/internal/ratelimit"
)

var (
	// ErrPopupAbsent means the delivery popup never became available, either
	// because the control was missing or the dialog never opened. Distinct
	// from a popup that opened but rejected the postcode entry.
	ErrPopupAbsent = errors.New("delivery location popup did not appear")

	ErrSelectorNotFound = errors.New("no candidate selector matched")
	ErrNotVerified      = errors.New("delivery location could not be verified")
)

// State tracks progress through the location-change flow. Verified and
// Failed are terminal; no transition is retried more than once.
type State int

const (
	StateInit State = iota
	StatePopupOpened
	StatePostcodeEntered
	StateApplied
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePopupOpened:
		return "popup_opened"
	case StatePostcodeEntered:
		return "postcode_entered"
	case StateApplied:
		return "applied"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LocationState is the outcome of one location-change attempt. It lives only
// for the duration of the browser session and is never persisted.
type LocationState struct {
	TargetPostcode    string
	Verified          bool
	DisplayedLocation string
	PopupShown        bool
	State             State
	Err               string
	Screenshot        string
}

// Candidate selectors per step, tried in priority order. The first entries
// are the current site structure; the rest are fallbacks for older layouts.
var (
	deliverToSelectors = []string{
		"#nav-global-location-popover-link",
		"#glow-ingress-block",
		"a#nav-global-location-data-modal-action",
	}

	postcodeInputSelectors = []string{
		"#GLUXZipUpdateInput",
		"input[autocomplete='postal-code']",
	}

	applySelectors = []string{
		`input[aria-labelledby="GLUXZipUpdate-announce"]`,
		"#GLUXZipUpdate input[type='submit']",
		"span#GLUXZipUpdate-announce",
	}

	continueSelectors = []string{
		"button[name='glowDoneButton']",
		"button:has-text('Done')",
		"button:has-text('Continue')",
		"#GLUXConfirmClose",
	}

	locationDisplaySelector = "#glow-ingress-line2"
)

const (
	perSelectorTimeoutMS = 5000
	popupWaitTimeoutMS   = 10000
	verifyTimeoutMS      = 10000
	optionalClickMS      = 3000
)

// Setter drives the delivery-location popup to a target postcode and
// verifies the result by reading the displayed location back.
type Setter struct {
	browser *browser.Browser
	pacer   *ratelimit.Pacer
	homeURL string
	logger  *slog.Logger
}

func NewSetter(b *browser.Browser, pacer *ratelimit.Pacer, homeURL string, logger *slog.Logger) *Setter {
	return &Setter{
		browser: b,
		pacer:   pacer,
		homeURL: homeURL,
		logger:  logger.With("component", "location"),
	}
}

// SetLocation runs the location-change flow once. It never panics: every
// outcome is a LocationState with either Verified=true or a non-empty Err.
func (s *Setter) SetLocation(ctx context.Context, page playwright.Page, postcode string) LocationState {
	st := LocationState{TargetPostcode: postcode, State: StateInit}
	s.logger.Info("starting location change", "postcode", postcode)

	if err := ctx.Err(); err != nil {
		return s.fail(&st, "", "cancelled before start: "+err.Error())
	}

	_, err := page.Goto(s.homeURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		shot := s.browser.Screenshot(page, "error_homepage")
		return s.fail(&st, shot, fmt.Sprintf("failed to load home page: %v", err))
	}
	s.pacer.Sleep()
	s.browser.Screenshot(page, "01_before_location_change")

	// Popup-absent pre-check: a session restored from cookies may already
	// show the right location, in which case there is nothing to change.
	if text, ok := s.displayedLocation(page, optionalClickMS); ok && MatchesPostcode(text, postcode) {
		s.logger.Info("location already set, skipping popup", "displayed", text)
		st.DisplayedLocation = text
		st.Verified = true
		st.State = StateVerified
		return st
	}

	if err := s.retryOnce(ctx, "open popup", func() error {
		_, err := s.clickFirst(page, deliverToSelectors, perSelectorTimeoutMS)
		return err
	}); err != nil {
		shot := s.browser.Screenshot(page, "error_deliver_to_button")
		return s.fail(&st, shot, fmt.Sprintf("%v: deliver-to control not found: %v", ErrPopupAbsent, err))
	}

	if err := s.retryOnce(ctx, "wait for popup", func() error {
		return s.waitForFirst(page, postcodeInputSelectors, popupWaitTimeoutMS)
	}); err != nil {
		shot := s.browser.Screenshot(page, "error_no_popup")
		return s.fail(&st, shot, fmt.Sprintf("%v: %v", ErrPopupAbsent, err))
	}
	st.PopupShown = true
	st.State = StatePopupOpened
	s.browser.Screenshot(page, "02_popup_appeared")
	s.logger.Info("location popup opened")

	if err := s.retryOnce(ctx, "enter postcode", func() error {
		return s.enterPostcode(page, postcode)
	}); err != nil {
		shot := s.browser.Screenshot(page, "error_postcode_entry")
		return s.fail(&st, shot, fmt.Sprintf("failed to enter postcode: %v", err))
	}
	st.State = StatePostcodeEntered
	s.browser.Screenshot(page, "03_postcode_entered")

	if err := s.retryOnce(ctx, "apply", func() error {
		_, err := s.clickFirst(page, applySelectors, perSelectorTimeoutMS)
		return err
	}); err != nil {
		shot := s.browser.Screenshot(page, "error_apply_button")
		return s.fail(&st, shot, fmt.Sprintf("failed to click apply: %v", err))
	}
	st.State = StateApplied
	s.pacer.Sleep()

	// A confirmation dialog only appears for some accounts. Absence is fine.
	if sel, err := s.clickFirst(page, continueSelectors, optionalClickMS); err == nil {
		s.logger.Info("clicked confirmation control", "selector", sel)
		s.pacer.Sleep()
	}
	s.browser.Screenshot(page, "04_after_apply")

	text, ok := s.displayedLocation(page, verifyTimeoutMS)
	shot := s.browser.Screenshot(page, "05_location_verified")
	if !ok {
		return s.fail(&st, shot, fmt.Sprintf("%v: displayed location not readable", ErrNotVerified))
	}
	st.DisplayedLocation = text

	if !MatchesPostcode(text, postcode) {
		return s.fail(&st, shot, fmt.Sprintf("%v: displayed location %q does not contain %q", ErrNotVerified, text, SignificantPrefix(postcode)))
	}

	st.Verified = true
	st.State = StateVerified
	s.logger.Info("location change verified", "displayed", text)
	return st
}

func (s *Setter) fail(st *LocationState, screenshot, reason string) LocationState {
	st.State = StateFailed
	st.Verified = false
	st.Err = reason
	st.Screenshot = screenshot
	s.logger.Error("location change failed", "reason", reason, "screenshot", screenshot)
	return *st
}

// retryOnce runs a step and, on failure, retries it exactly once after a
// pacing delay. The narrow policy is deliberate: unbounded retries would
// mask real site-structure changes.
func (s *Setter) retryOnce(ctx context.Context, name string, step func() error) error {
	err := step()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	s.logger.Warn("step failed, retrying once", "step", name, "error", err)
	s.pacer.Sleep()
	return step()
}

// clickFirst tries each candidate selector in order and clicks the first one
// visible within the per-selector timeout.
func (s *Setter) clickFirst(page playwright.Page, selectors []string, timeoutMS float64) (string, error) {
	for _, sel := range selectors {
		loc := page.Locator(sel).First()
		if err := loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(timeoutMS),
		}); err != nil {
			continue
		}
		if err := loc.Click(); err != nil {
			s.logger.Warn("click failed", "selector", sel, "error", err)
			continue
		}
		return sel, nil
	}
	return "", fmt.Errorf("%w: %v", ErrSelectorNotFound, selectors)
}

func (s *Setter) waitForFirst(page playwright.Page, selectors []string, timeoutMS float64) error {
	for _, sel := range selectors {
		err := page.Locator(sel).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(timeoutMS),
		})
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrSelectorNotFound, selectors)
}

func (s *Setter) enterPostcode(page playwright.Page, postcode string) error {
	input := page.Locator(postcodeInputSelectors[0]).First()
	if n, err := input.Count(); err != nil || n == 0 {
		input = page.Locator(postcodeInputSelectors[1]).First()
	}

	if err := input.Fill(""); err != nil {
		return fmt.Errorf("failed to clear input: %w", err)
	}
	s.pacer.Sleep()

	// Typed character by character with a small delay to mimic a person.
	// Cosmetic pacing, not a correctness requirement.
	if err := input.PressSequentially(postcode, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(80),
	}); err != nil {
		return fmt.Errorf("failed to type postcode: %w", err)
	}
	s.pacer.Sleep()
	return nil
}

func (s *Setter) displayedLocation(page playwright.Page, timeoutMS float64) (string, bool) {
	loc := page.Locator(locationDisplaySelector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(timeoutMS),
	}); err != nil {
		return "", false
	}

	text, err := loc.InnerText()
	if err != nil {
		return "", false
	}

	text = strings.TrimSpace(text)
	return text, text != ""
}

// SignificantPrefix returns the leading outward part of a postcode ("SE1 1"
// -> "SE1"), which is what the site displays after a successful change.
func SignificantPrefix(postcode string) string {
	fields := strings.Fields(strings.TrimSpace(postcode))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// MatchesPostcode reports whether the displayed location text contains the
// significant prefix of the target postcode, case-insensitively.
func MatchesPostcode(displayed, postcode string) bool {
	prefix := SignificantPrefix(postcode)
	if prefix == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(displayed), prefix)
}
