//go:build unittest

package instagram

import "context"

func (s *Scraper) launchBrowser() error {
	return ErrBrowserNotReady
}

func (s *Scraper) setupResourceBlocking() {}

func (s *Scraper) navigateSnapshot(ctx context.Context, url string) (PageSnapshot, error) {
	return PageSnapshot{}, ErrBrowserNotReady
}

func (s *Scraper) browserLogin(ctx context.Context, username, password string) error {
	return ErrBrowserNotReady
}

func (s *Scraper) replaySession(ctx context.Context, state *SessionState) bool {
	return false
}

func (s *Scraper) captureSession() (*SessionState, error) {
	return nil, ErrBrowserNotReady
}

func (s *Scraper) closeBrowser() error {
	s.page = nil
	s.browser = nil
	return nil
}
