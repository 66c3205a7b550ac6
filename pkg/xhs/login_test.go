package xhs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autored/pkg/auth"
	"autored/pkg/browser"
	"autored/pkg/browser/browsertest"
	"autored/pkg/config"
	errs "autored/pkg/errors"
	"autored/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Browser.SettleWait = time.Millisecond
	cfg.Browser.Headless = false
	return cfg
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(title, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

func TestLoginStateString(t *testing.T) {
	assert.Equal(t, "needs_qr", StateNeedsQR.String())
	assert.Equal(t, "awaiting_scan", StateAwaitingScan.String())
	assert.Equal(t, "unknown", LoginState(42).String())
}

func TestProbeIdentity(t *testing.T) {
	cfg := testConfig()
	marker := cfg.Platform.Selectors.IdentityMarker
	boom := errors.New("target closed")

	tests := []struct {
		name    string
		result  error
		want    bool
		wantErr bool
	}{
		{"present", nil, true, false},
		{"timeout is not an error", browser.ErrTimeout, false, false},
		{"driver failure", boom, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := browsertest.New().Then(marker, tt.result)
			a := NewAuthenticator(session, auth.NewMockStore(), cfg, logger.NewNopLogger())

			ok, err := a.ProbeIdentity(context.Background(), time.Second)
			assert.Equal(t, tt.want, ok)
			if tt.wantErr {
				assert.ErrorIs(t, err, boom)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// A valid stored session: no trigger click, no cookie write-back.
func TestLoginResumesStoredSession(t *testing.T) {
	cfg := testConfig()
	sel := cfg.Platform.Selectors
	stored := []auth.Cookie{{Name: "web_session", Value: "abc", Domain: ".xiaohongshu.com", Path: "/"}}

	session := browsertest.New()
	store := auth.NewMockStoreWith(stored)
	a := NewAuthenticator(session, store, cfg, logger.NewNopLogger())

	require.NoError(t, a.Login(context.Background()))

	assert.Equal(t, StateAuthenticated, a.State())
	assert.Equal(t, []LoginState{StateChecking, StateAuthenticated}, a.Transitions())
	assert.Equal(t, 0, session.Count(browsertest.OpClick, sel.LoginTrigger))
	assert.Equal(t, 0, store.Saves())
	require.Len(t, session.Written, 1)
	assert.Equal(t, stored, session.Written[0])

	// Cookies go in before the home page is opened, and the probe uses the
	// short bound.
	assert.Less(t, session.Index(browsertest.OpWriteCookies, ""), session.Index(browsertest.OpNavigate, cfg.Platform.HomeURL))
	waits := session.CallsOf(browsertest.OpWait)
	require.Len(t, waits, 1)
	assert.Equal(t, cfg.Browser.ShortTimeout, waits[0].Timeout)
}

// Same scenario against the real file store: the session file is untouched.
func TestLoginResumeDoesNotRewriteFile(t *testing.T) {
	cfg := testConfig()
	path := filepath.Join(t.TempDir(), "xhs_cookies.json")
	original := []byte("[\n    {\"name\": \"a1\", \"value\": \"x\", \"domain\": \".xiaohongshu.com\", \"path\": \"/\", \"expires\": -1, \"httpOnly\": false, \"secure\": false}\n]")
	require.NoError(t, os.WriteFile(path, original, 0600))

	session := browsertest.New()
	a := NewAuthenticator(session, auth.NewFileStore(path), cfg, logger.NewNopLogger())
	require.NoError(t, a.Login(context.Background()))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestLoginQRFlowSavesSession(t *testing.T) {
	cfg := testConfig()
	sel := cfg.Platform.Selectors
	fresh := []auth.Cookie{{Name: "web_session", Value: "new", Domain: ".xiaohongshu.com", Path: "/", Expires: 1767225600}}

	session := browsertest.New().Then(sel.IdentityMarker, browser.ErrTimeout, nil)
	session.Cookies = fresh
	store := auth.NewMockStore()
	notifier := &recordingNotifier{}
	tl := logger.NewTestLogger()

	a := NewAuthenticator(session, store, cfg, tl)
	a.SetNotifier(notifier)
	require.NoError(t, a.Login(context.Background()))

	assert.Equal(t, []LoginState{StateChecking, StateNeedsQR, StateAwaitingScan, StateAuthenticated}, a.Transitions())
	assert.Equal(t, 1, session.Count(browsertest.OpClick, sel.LoginTrigger))
	assert.Equal(t, 1, store.Saves())
	assert.Equal(t, fresh, store.Cookies())
	assert.Len(t, notifier.messages, 1)
	assert.Empty(t, session.Written, "nothing stored, nothing injected")

	waits := session.CallsOf(browsertest.OpWait)
	require.Len(t, waits, 4)
	assert.Equal(t, browsertest.Call{Op: browsertest.OpWait, Selector: sel.IdentityMarker, Timeout: 10 * time.Second}, waits[0])
	assert.Equal(t, browsertest.Call{Op: browsertest.OpWait, Selector: sel.LoginTrigger, Timeout: 10 * time.Second}, waits[1])
	assert.Equal(t, browsertest.Call{Op: browsertest.OpWait, Selector: sel.QRCode, Timeout: 30 * time.Second}, waits[2])
	assert.Equal(t, browsertest.Call{Op: browsertest.OpWait, Selector: sel.IdentityMarker, Timeout: 120 * time.Second}, waits[3])

	assert.True(t, tl.HasMessage("please scan the QR code displayed in the browser window"))
}

// No stored session and nobody scans: LoginTimeout, nothing written.
func TestLoginScanTimeout(t *testing.T) {
	cfg := testConfig()
	sel := cfg.Platform.Selectors
	path := filepath.Join(t.TempDir(), "cookies", "xhs_cookies.json")

	session := browsertest.New().Hide(sel.IdentityMarker)
	a := NewAuthenticator(session, auth.NewFileStore(path), cfg, logger.NewNopLogger())

	err := a.Login(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeLoginTimeout))
	assert.ErrorIs(t, err, browser.ErrTimeout)

	assert.Equal(t, StateAwaitingScan, a.State())
	assert.Equal(t, 1, session.Count(browsertest.OpClick, sel.LoginTrigger))
	assert.Equal(t, 0, session.Count(browsertest.OpReadCookies, ""))

	waits := session.CallsOf(browsertest.OpWait)
	last := waits[len(waits)-1]
	assert.Equal(t, sel.IdentityMarker, last.Selector)
	assert.Equal(t, 120*time.Second, last.Timeout)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(statErr), "no directory is created either")
}

func TestLoginHeadlessNeedsVisibleBrowser(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.Headless = true
	sel := cfg.Platform.Selectors

	session := browsertest.New().Hide(sel.IdentityMarker)
	notifier := &recordingNotifier{}
	a := NewAuthenticator(session, auth.NewMockStore(), cfg, logger.NewNopLogger())
	a.SetNotifier(notifier)

	err := a.Login(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeLoginRequired))
	assert.Contains(t, err.Error(), "autored login")

	assert.Equal(t, StateNeedsQR, a.State())
	assert.Equal(t, 0, session.Count(browsertest.OpClick, sel.LoginTrigger))
	assert.Equal(t, 0, session.Count(browsertest.OpWait, sel.LoginTrigger))
	assert.Empty(t, notifier.messages)
}

func TestLoginHeadlessResumesStoredSession(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.Headless = true

	a := NewAuthenticator(browsertest.New(), auth.NewMockStore(), cfg, logger.NewNopLogger())
	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, StateAuthenticated, a.State())
}

func TestLoginTriggerMissing(t *testing.T) {
	cfg := testConfig()
	sel := cfg.Platform.Selectors

	session := browsertest.New().Hide(sel.IdentityMarker, sel.LoginTrigger)
	a := NewAuthenticator(session, auth.NewMockStore(), cfg, logger.NewNopLogger())

	err := a.Login(context.Background())
	assert.True(t, errs.IsType(err, errs.ErrorTypeLoginTimeout))
	assert.Equal(t, StateNeedsQR, a.State())
	assert.Equal(t, 0, session.Count(browsertest.OpClick, sel.LoginTrigger))
}

func TestLoginWithoutQRSelector(t *testing.T) {
	cfg := testConfig()
	cfg.Platform.Selectors.QRCode = ""
	sel := cfg.Platform.Selectors

	session := browsertest.New().Then(sel.IdentityMarker, browser.ErrTimeout, nil)
	a := NewAuthenticator(session, auth.NewMockStore(), cfg, logger.NewNopLogger())

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, 0, session.Count(browsertest.OpWait, "canvas"))
}

func TestLoginUnreadableStoreDegrades(t *testing.T) {
	cfg := testConfig()
	store := auth.NewMockStore()
	store.LoadError = errs.CredentialIO("parse session file", errors.New("bad json"))
	tl := logger.NewTestLogger()

	session := browsertest.New()
	a := NewAuthenticator(session, store, cfg, tl)

	require.NoError(t, a.Login(context.Background()))
	assert.Empty(t, session.Written)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
}

func TestLoginSaveFailureAborts(t *testing.T) {
	cfg := testConfig()
	sel := cfg.Platform.Selectors
	store := auth.NewMockStore()
	store.SaveError = errors.New("disk full")

	session := browsertest.New().Then(sel.IdentityMarker, browser.ErrTimeout, nil)
	a := NewAuthenticator(session, store, cfg, logger.NewNopLogger())

	err := a.Login(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeCredentialIO))
	assert.NotEqual(t, StateAuthenticated, a.State())
}

func TestEnsureAuthenticatedOnlyOnce(t *testing.T) {
	cfg := testConfig()
	session := browsertest.New()
	a := NewAuthenticator(session, auth.NewMockStore(), cfg, logger.NewNopLogger())

	require.NoError(t, a.EnsureAuthenticated(context.Background()))
	require.NoError(t, a.EnsureAuthenticated(context.Background()))
	assert.Equal(t, 1, session.Count(browsertest.OpNavigate, cfg.Platform.HomeURL))
}
