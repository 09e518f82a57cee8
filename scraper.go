package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// loginPathMarker identifies Instagram's login page. Landing on it after a
// session replay or a credential submit is the sole signal that
// authentication did not take.
const loginPathMarker = "/accounts/login/"

// Scraper acquires Instagram profile data through an authenticated headless
// browser session. A Scraper owns exactly one automation context for its
// lifetime and is not safe for concurrent use; callers needing parallel
// acquisition run independent Scraper instances with separate session files.
type Scraper struct {
	cfg      *Config
	logger   *slog.Logger
	sessions *SessionStore
	isLogged bool
	baseURL  string

	browser *rod.Browser
	page    *rod.Page

	strategies []extractStrategy

	// Fixed wait between profile navigations, plus jitter.
	navDelay time.Duration
	lastNav  time.Time
	navMu    sync.Mutex

	// Browser-dependent operations, replaceable for testing. Defaults are
	// bound to the rod-backed implementations in browser.go.
	navigateFunc func(ctx context.Context, url string) (PageSnapshot, error)
	loginFunc    func(ctx context.Context, username, password string) error
	restoreFunc  func(ctx context.Context, state *SessionState) bool
	captureFunc  func() (*SessionState, error)
}

// New creates a Scraper with sensible defaults. The browser is not launched
// until Init is called.
func New(cfg *Config) *Scraper {
	s := &Scraper{
		cfg:        cfg,
		logger:     slog.Default(),
		sessions:   NewSessionStore(cfg.SessionFile),
		baseURL:    "https://www.instagram.com",
		strategies: defaultStrategies(),
		navDelay:   2 * time.Second,
	}
	s.navigateFunc = s.navigateSnapshot
	s.loginFunc = s.browserLogin
	s.restoreFunc = s.replaySession
	s.captureFunc = s.captureSession
	return s
}

// WithLogger sets the structured logger used for progress and degradation
// events.
func (s *Scraper) WithLogger(logger *slog.Logger) *Scraper {
	s.logger = logger
	return s
}

// WithNavDelay sets the minimum delay between profile page navigations.
func (s *Scraper) WithNavDelay(d time.Duration) *Scraper {
	s.navDelay = d
	return s
}

// Init launches the stealth browser. Idempotent.
func (s *Scraper) Init() error {
	if s.browser != nil {
		return nil
	}
	return s.launchBrowser()
}

// IsLoggedIn reports whether the scraper has an active authenticated session.
func (s *Scraper) IsLoggedIn() bool {
	return s.isLogged
}

// EnsureLoggedIn makes sure the session is authenticated. It no-ops when
// already logged in, then tries to restore a persisted session, then falls
// back to interactive credential login. Login failure is fatal for the call
// and is not retried.
func (s *Scraper) EnsureLoggedIn(ctx context.Context) error {
	if s.isLogged {
		return nil
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("ensure logged in: %w", err)
	}

	if state, ok := s.sessions.Load(); ok {
		if s.restoreFunc(ctx, state) {
			s.isLogged = true
			s.logger.Info("session restored", "file", s.cfg.SessionFile)
			return nil
		}
		s.logger.Warn("persisted session rejected, falling back to login")
	}

	return s.Login(ctx)
}

// Login performs interactive credential login and persists the resulting
// session. Missing credentials are a configuration error, surfaced
// immediately.
func (s *Scraper) Login(ctx context.Context) error {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return ErrNoCredentials
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if err := s.loginFunc(ctx, s.cfg.Username, s.cfg.Password); err != nil {
		return fmt.Errorf("login as %q: %w", s.cfg.Username, err)
	}
	s.isLogged = true
	s.logger.Info("logged in", "username", s.cfg.Username)

	// Persist immediately so the next run can skip the login flow.
	state, err := s.captureFunc()
	if err != nil {
		s.logger.Warn("capture session failed", "error", err)
		return nil
	}
	if err := s.sessions.Save(state); err != nil {
		s.logger.Warn("save session failed", "error", err)
	}
	return nil
}

// AnalyzeProfile loads the profile page for username and runs the
// extraction chain over it. The returned Profile is freshly built per call
// and owned by the caller.
func (s *Scraper) AnalyzeProfile(ctx context.Context, username string) (Profile, error) {
	if username == "" {
		return Profile{}, fmt.Errorf("analyze profile: username is required")
	}
	if err := s.EnsureLoggedIn(ctx); err != nil {
		return Profile{}, fmt.Errorf("analyze profile %q: %w", username, err)
	}

	s.waitForNav()

	snap, err := s.navigateFunc(ctx, s.baseURL+"/"+username+"/")
	if err != nil {
		return Profile{}, fmt.Errorf("load profile %q: %w", username, err)
	}
	s.logger.Debug("profile page loaded", "username", username, "snapshot", describeSnapshot(snap))

	profile, strategy, err := extractProfile(snap, s.strategies)
	if err != nil {
		return Profile{}, fmt.Errorf("extract profile %q: %w", username, err)
	}

	// The rendered-text fallback cannot see the username; fill it from the
	// request so the record stays keyed.
	if profile.Username == "" {
		profile.Username = strings.TrimPrefix(username, "@")
	}

	s.logger.Info("profile extracted", "username", profile.Username, "strategy", strategy,
		"followers", profile.Followers)
	return profile, nil
}

func containsLoginPath(url string) bool {
	return strings.Contains(url, loginPathMarker)
}

// waitForNav sleeps if needed to enforce the min delay + jitter between
// profile navigations.
func (s *Scraper) waitForNav() {
	s.navMu.Lock()
	defer s.navMu.Unlock()
	if s.navDelay == 0 {
		return
	}
	elapsed := time.Since(s.lastNav)
	jitter := time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
	if wait := s.navDelay + jitter - elapsed; wait > 0 {
		time.Sleep(wait)
	}
	s.lastNav = time.Now()
}

// Close releases the headless browser if running.
func (s *Scraper) Close() error {
	s.isLogged = false
	return s.closeBrowser()
}
