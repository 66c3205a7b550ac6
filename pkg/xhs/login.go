package xhs

import (
	"context"
	"sync"
	"time"

	"autored/pkg/auth"
	"autored/pkg/browser"
	"autored/pkg/config"
	errs "autored/pkg/errors"
	"autored/pkg/logger"
)

// LoginState is the position of the login state machine
type LoginState int

const (
	StateUnstarted LoginState = iota
	StateChecking
	StateAuthenticated
	StateNeedsQR
	StateAwaitingScan
)

func (s LoginState) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateNeedsQR:
		return "needs_qr"
	case StateAwaitingScan:
		return "awaiting_scan"
	default:
		return "unknown"
	}
}

// Notifier alerts the operator outside the terminal
type Notifier interface {
	Notify(title, message string) error
}

// Authenticator establishes a logged-in creator studio session, resuming
// from stored cookies or falling back to a QR scan.
type Authenticator struct {
	session  browser.Session
	store    auth.CookieStore
	platform config.PlatformConfig
	waits    config.BrowserConfig
	notifier Notifier
	log      logger.Logger

	mu          sync.Mutex
	state       LoginState
	transitions []LoginState
}

// NewAuthenticator creates an authenticator in StateUnstarted
func NewAuthenticator(session browser.Session, store auth.CookieStore, cfg *config.Config, log logger.Logger) *Authenticator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Authenticator{
		session:  session,
		store:    store,
		platform: cfg.Platform,
		waits:    cfg.Browser,
		log:      log.WithField("component", "login"),
		state:    StateUnstarted,
	}
}

// SetNotifier sets who is asked to scan the QR code
func (a *Authenticator) SetNotifier(n Notifier) {
	a.notifier = n
}

// State returns the current state
func (a *Authenticator) State() LoginState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Transitions returns every state entered, in order
func (a *Authenticator) Transitions() []LoginState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]LoginState(nil), a.transitions...)
}

func (a *Authenticator) enter(s LoginState) {
	a.mu.Lock()
	from := a.state
	a.state = s
	a.transitions = append(a.transitions, s)
	a.mu.Unlock()

	a.log.DebugWithFields("login state", map[string]interface{}{
		"from": from.String(),
		"to":   s.String(),
	})
}

// ProbeIdentity reports whether the identity marker shows up within timeout.
// Running out of time is a plain false, not an error.
func (a *Authenticator) ProbeIdentity(ctx context.Context, timeout time.Duration) (bool, error) {
	err := a.session.WaitFor(ctx, a.platform.Selectors.IdentityMarker, timeout)
	switch {
	case err == nil:
		return true, nil
	case browser.IsTimeout(err):
		return false, nil
	default:
		return false, err
	}
}

// EnsureAuthenticated runs Login unless this session is already logged in
func (a *Authenticator) EnsureAuthenticated(ctx context.Context) error {
	if a.State() == StateAuthenticated {
		return nil
	}
	return a.Login(ctx)
}

// Login drives the state machine to StateAuthenticated. Cookies are saved
// only after a QR scan; a resumed session is not re-saved.
func (a *Authenticator) Login(ctx context.Context) error {
	a.enter(StateChecking)
	if err := a.restoreSession(ctx); err != nil {
		return err
	}

	if err := a.session.Navigate(ctx, a.platform.HomeURL); err != nil {
		if browser.IsTimeout(err) {
			return errs.LoginTimeout("open creator studio", err)
		}
		return errs.Wrap(errs.ErrorTypeNetwork, err, "open creator studio")
	}

	ok, err := a.ProbeIdentity(ctx, a.waits.ShortTimeout)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "probe identity")
	}
	if ok {
		a.enter(StateAuthenticated)
		a.log.Info("already logged in via stored session")
		return nil
	}

	a.enter(StateNeedsQR)
	if a.waits.Headless {
		a.log.Error("no valid session and the browser is headless, the QR code cannot be scanned")
		return errs.LoginRequired("no valid session; run `autored login` to scan the QR code")
	}
	a.log.Info("no valid session, starting QR code login")
	if err := a.openQR(ctx); err != nil {
		return err
	}

	a.enter(StateAwaitingScan)
	a.askForScan()

	if err := a.session.WaitFor(ctx, a.platform.Selectors.IdentityMarker, a.waits.LongTimeout); err != nil {
		if browser.IsTimeout(err) {
			return errs.LoginTimeout("wait for QR scan", err)
		}
		return errs.Wrap(errs.ErrorTypeAuth, err, "wait for QR scan")
	}

	cookies, err := a.session.ReadCookies(ctx)
	if err != nil {
		return errs.CredentialIO("read browser cookies", err)
	}
	if err := a.store.Save(cookies); err != nil {
		if errs.TypeOf(err) != errs.ErrorTypeCredentialIO {
			err = errs.CredentialIO("save session", err)
		}
		return err
	}

	a.enter(StateAuthenticated)
	a.log.InfoWithFields("login successful, session saved", map[string]interface{}{
		"cookies":  len(cookies),
		"location": a.store.Location(),
	})
	return nil
}

// restoreSession injects stored cookies. An unreadable store counts as an
// empty one.
func (a *Authenticator) restoreSession(ctx context.Context) error {
	cookies, err := a.store.Load()
	if err != nil {
		a.log.WithError(err).Warn("stored session unreadable, continuing without cookies")
		return nil
	}
	if len(cookies) == 0 {
		a.log.Debug("no stored session")
		return nil
	}
	if err := a.session.WriteCookies(ctx, cookies); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.log.WithError(err).Warn("could not inject stored cookies")
		return nil
	}
	a.log.DebugWithFields("stored session injected", map[string]interface{}{"cookies": len(cookies)})
	return nil
}

func (a *Authenticator) openQR(ctx context.Context) error {
	sel := a.platform.Selectors
	if err := a.session.WaitFor(ctx, sel.LoginTrigger, a.waits.ShortTimeout); err != nil {
		if browser.IsTimeout(err) {
			return errs.LoginTimeout("wait for login trigger", err)
		}
		return errs.Wrap(errs.ErrorTypeAuth, err, "wait for login trigger")
	}
	if err := a.session.Click(ctx, sel.LoginTrigger); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "click login trigger")
	}

	if sel.QRCode == "" {
		return nil
	}
	if err := a.session.WaitFor(ctx, sel.QRCode, a.waits.QRTimeout); err != nil {
		if browser.IsTimeout(err) {
			return errs.LoginTimeout("wait for QR code", err)
		}
		return errs.Wrap(errs.ErrorTypeAuth, err, "wait for QR code")
	}
	return nil
}

func (a *Authenticator) askForScan() {
	a.log.WarnWithFields("please scan the QR code displayed in the browser window", map[string]interface{}{
		"timeout": a.waits.LongTimeout.String(),
	})
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Notify("autored login", "Scan the QR code in the browser window"); err != nil {
		a.log.WithError(err).Debug("desktop notification failed")
	}
}
