package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"autored/pkg/auth"
	"autored/pkg/config"
	"autored/pkg/logger"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// Driver is the chromedp Session. It owns one browser process, one browsing
// context and one page, created on first use and torn down by Close.
type Driver struct {
	cfg config.BrowserConfig
	log logger.Logger

	mu          sync.Mutex
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ Session = (*Driver)(nil)

// NewDriver creates a driver; no browser is started until the first call
func NewDriver(cfg config.BrowserConfig, log logger.Logger) *Driver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Driver{cfg: cfg, log: log.WithField("component", "browser")}
}

// EnsureReady launches the browser if it is not running yet
func (d *Driver) EnsureReady(ctx context.Context) error {
	_, err := d.tab(ctx)
	return err
}

func (d *Driver) tab(ctx context.Context) (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx != nil {
		return d.ctx, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}
	if d.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.cfg.UserAgent))
	}
	if d.cfg.WindowWidth > 0 && d.cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(d.cfg.WindowWidth, d.cfg.WindowHeight))
	}

	// The browser outlives individual calls, so it hangs off Background.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	stop := context.AfterFunc(ctx, cancelTab)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		cancelTab()
		cancelAlloc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	d.ctx, d.cancelTab, d.cancelAlloc = tabCtx, cancelTab, cancelAlloc
	d.log.InfoWithFields("browser started", map[string]interface{}{
		"headless": d.cfg.Headless,
	})
	return d.ctx, nil
}

// Close shuts the browser down. It is safe to call on a driver that never
// started and to call more than once.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return nil
	}
	err := chromedp.Cancel(d.ctx)
	d.cancelTab()
	d.cancelAlloc()
	d.ctx, d.cancelTab, d.cancelAlloc = nil, nil, nil

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	d.log.Debug("browser closed")
	return nil
}

// run executes actions on the page bounded by timeout and by ctx. Running
// out of time yields ErrTimeout; cancellation of ctx yields ctx.Err().
func (d *Driver) run(ctx context.Context, timeout time.Duration, what string, actions ...chromedp.Action) error {
	tab, err := d.tab(ctx)
	if err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err = chromedp.Run(tctx, actions...)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, chromedp.ErrPollingTimeout),
		errors.Is(tctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s after %s: %w", what, timeout, ErrTimeout)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func (d *Driver) actionTimeout() time.Duration {
	if d.cfg.StepTimeout > 0 {
		return d.cfg.StepTimeout
	}
	return 10 * time.Second
}

func byOption(s selector) chromedp.QueryOption {
	if s.isText() {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	timeout := d.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	d.log.DebugWithFields("navigate", map[string]interface{}{"url": url})
	return d.run(ctx, timeout, "navigate to "+url, chromedp.Navigate(url))
}

func (d *Driver) WaitFor(ctx context.Context, sel string, timeout time.Duration) error {
	s := parseSelector(sel)
	return d.run(ctx, timeout, "wait for "+sel, chromedp.WaitVisible(s.query(), byOption(s)))
}

func (d *Driver) WaitCount(ctx context.Context, sel string, n int, timeout time.Duration) error {
	s := parseSelector(sel)
	var ok bool
	expr := fmt.Sprintf("%s >= %d", s.jsCount(), n)
	return d.run(ctx, timeout+time.Second, fmt.Sprintf("wait for %d x %s", n, sel),
		chromedp.Poll(expr, &ok,
			chromedp.WithPollingTimeout(timeout),
			chromedp.WithPollingInterval(200*time.Millisecond),
		))
}

func (d *Driver) Click(ctx context.Context, sel string) error {
	s := parseSelector(sel)
	return d.run(ctx, d.actionTimeout(), "click "+sel,
		chromedp.Click(s.query(), byOption(s), chromedp.NodeVisible))
}

func (d *Driver) Fill(ctx context.Context, sel, value string) error {
	s := parseSelector(sel)
	var cleared bool
	return d.run(ctx, d.actionTimeout(), "fill "+sel,
		chromedp.Focus(s.query(), byOption(s)),
		chromedp.Evaluate(s.jsClear(), &cleared),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !cleared {
				return fmt.Errorf("element %s disappeared", sel)
			}
			return input.InsertText(value).Do(ctx)
		}),
	)
}

func (d *Driver) SetFileInput(ctx context.Context, sel, path string) error {
	s := parseSelector(sel)
	return d.run(ctx, d.actionTimeout(), "set file on "+sel,
		chromedp.SetUploadFiles(s.query(), []string{path}, byOption(s), chromedp.NodeReady))
}

// ReadCookies returns every cookie of the browsing context, not only those
// matching the current page URL, so host-only cookies of the login hosts are
// kept too.
func (d *Driver) ReadCookies(ctx context.Context) ([]auth.Cookie, error) {
	var cookies []auth.Cookie
	err := d.run(ctx, d.actionTimeout(), "read cookies", chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		got, err := storage.GetCookies().
			WithBrowserContextID(c.BrowserContextID).
			Do(cdp.WithExecutor(ctx, c.Browser))
		if err != nil {
			return err
		}
		cookies = make([]auth.Cookie, 0, len(got))
		for _, c := range got {
			cookies = append(cookies, fromNetworkCookie(c))
		}
		return nil
	}))
	return cookies, err
}

func (d *Driver) WriteCookies(ctx context.Context, cookies []auth.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, toCookieParam(c))
	}
	return d.run(ctx, d.actionTimeout(), "write cookies", chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
}

func fromNetworkCookie(c *network.Cookie) auth.Cookie {
	expires := c.Expires
	if c.Session {
		expires = -1
	}
	return auth.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  expires,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: sameSiteOrLax(string(c.SameSite)),
	}
}

func toCookieParam(c auth.Cookie) *network.CookieParam {
	p := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
	}
	if c.SameSite != "" {
		p.SameSite = network.CookieSameSite(c.SameSite)
	}
	if t, ok := c.ExpiresAt(); ok {
		epoch := cdp.TimeSinceEpoch(t)
		p.Expires = &epoch
	}
	return p
}

// Chrome omits sameSite for cookies set without the attribute; browsers
// treat those as Lax.
func sameSiteOrLax(s string) string {
	if s == "" {
		return "Lax"
	}
	return s
}
