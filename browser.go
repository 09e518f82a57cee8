//go:build !unittest

package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

func (s *Scraper) launchBrowser() error {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return fmt.Errorf("create stealth page: %w", err)
	}

	if err := (proto.NetworkSetUserAgentOverride{UserAgent: defaultUserAgent}).Call(page); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}

	s.browser = browser
	s.page = page

	s.setupResourceBlocking()
	return nil
}

// setupResourceBlocking drops media and analytics requests. Profile
// extraction only needs markup and text, so images, fonts and video are
// dead weight per navigation.
func (s *Scraper) setupResourceBlocking() {
	router := s.browser.HijackRequests()
	blocked := []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.mp4", "*.woff*", "*.svg", "*analytics*"}
	for _, pattern := range blocked {
		router.MustAdd(pattern, func(ctx *rod.Hijack) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}
	go router.Run()
}

// navigateSnapshot loads a URL and captures the page representations the
// extraction strategies operate on.
func (s *Scraper) navigateSnapshot(ctx context.Context, url string) (PageSnapshot, error) {
	if s.page == nil {
		return PageSnapshot{}, ErrBrowserNotReady
	}
	page := s.page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return PageSnapshot{}, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitStable(2 * time.Second); err != nil {
		return PageSnapshot{}, fmt.Errorf("wait for page stable: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return PageSnapshot{}, fmt.Errorf("read page source: %w", err)
	}

	// Body text is best effort: some representations render nothing useful
	// and the rendered-text strategy treats an empty body as a miss.
	var text string
	if body, err := page.Timeout(3 * time.Second).Element("body"); err == nil {
		text, _ = body.Text()
	}

	info, err := page.Info()
	if err != nil {
		return PageSnapshot{}, fmt.Errorf("read page info: %w", err)
	}

	return PageSnapshot{HTML: html, Text: text, URL: info.URL}, nil
}

// browserLogin automates the credential login flow. Still being on the
// login page after submit means the credentials were rejected.
func (s *Scraper) browserLogin(ctx context.Context, username, password string) error {
	if s.page == nil {
		return ErrBrowserNotReady
	}
	page := s.page.Context(ctx)

	if err := page.Navigate(s.baseURL + loginPathMarker); err != nil {
		return fmt.Errorf("navigate to login: %w", err)
	}
	if err := page.WaitStable(3 * time.Second); err != nil {
		return fmt.Errorf("wait for login page: %w", err)
	}

	usernameInput, err := page.Element(`input[name="username"]`)
	if err != nil {
		return fmt.Errorf("find username input: %w", err)
	}
	if err := usernameInput.Input(username); err != nil {
		return fmt.Errorf("type username: %w", err)
	}

	passwordInput, err := page.Element(`input[name="password"]`)
	if err != nil {
		return fmt.Errorf("find password input: %w", err)
	}
	if err := passwordInput.Input(password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}

	submitBtn, err := page.Element(`button[type="submit"]`)
	if err != nil {
		return fmt.Errorf("find submit button: %w", err)
	}
	if err := submitBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click submit: %w", err)
	}

	if err := page.WaitStable(5 * time.Second); err != nil {
		return fmt.Errorf("wait after submit: %w", err)
	}

	info, err := page.Info()
	if err != nil {
		return fmt.Errorf("read page info: %w", err)
	}
	if containsLoginPath(info.URL) {
		return fmt.Errorf("%w: still on login page", ErrLoginFailed)
	}
	return nil
}

// replaySession applies a persisted session to a fresh navigation context:
// cookies first, then localStorage, then a reload. Individual cookie or
// storage failures are skipped; one bad entry must not abort the rest.
// Returns true only if the reloaded page is not the login page.
func (s *Scraper) replaySession(ctx context.Context, state *SessionState) bool {
	if s.page == nil {
		return false
	}
	page := s.page.Context(ctx)

	if err := page.Navigate(s.baseURL); err != nil {
		return false
	}
	if err := page.WaitStable(2 * time.Second); err != nil {
		return false
	}

	for _, c := range state.Cookies {
		err := page.SetCookies([]*proto.NetworkCookieParam{{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}})
		if err != nil {
			s.logger.Debug("skip cookie", "name", c.Name, "error", err)
		}
	}

	for key, value := range state.LocalStorage {
		if _, err := page.Eval(`(k, v) => localStorage.setItem(k, v)`, key, value); err != nil {
			s.logger.Debug("skip localStorage key", "key", key, "error", err)
		}
	}

	if err := page.Reload(); err != nil {
		return false
	}
	if err := page.WaitStable(3 * time.Second); err != nil {
		return false
	}

	info, err := page.Info()
	if err != nil {
		return false
	}
	return !containsLoginPath(info.URL)
}

// captureSession reads the live cookies, localStorage and location off the
// authenticated page into a SessionState ready for persistence.
func (s *Scraper) captureSession() (*SessionState, error) {
	if s.page == nil {
		return nil, ErrBrowserNotReady
	}

	cookies, err := s.page.Cookies([]string{s.baseURL})
	if err != nil {
		return nil, fmt.Errorf("read browser cookies: %w", err)
	}

	state := &SessionState{
		Cookies:      make([]SessionCookie, 0, len(cookies)),
		LocalStorage: map[string]string{},
	}
	for _, c := range cookies {
		state.Cookies = append(state.Cookies, SessionCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}

	result, err := s.page.Eval(`() => {
		const ls = {};
		for (let i = 0; i < localStorage.length; i++) {
			const key = localStorage.key(i);
			ls[key] = localStorage.getItem(key);
		}
		return JSON.stringify(ls);
	}`)
	if err != nil {
		return nil, fmt.Errorf("read localStorage: %w", err)
	}
	if err := json.Unmarshal([]byte(result.Value.Str()), &state.LocalStorage); err != nil {
		return nil, fmt.Errorf("parse localStorage: %w", err)
	}

	if info, err := s.page.Info(); err == nil {
		state.URL = info.URL
	}
	return state, nil
}

func (s *Scraper) closeBrowser() error {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			return fmt.Errorf("close page: %w", err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			return fmt.Errorf("close browser: %w", err)
		}
		s.browser = nil
	}
	return nil
}
