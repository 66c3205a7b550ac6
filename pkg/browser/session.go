// Package browser drives one browser page for the creator studio flows.
//
// Flows depend on the Session capability interface, implemented by the
// chromedp-backed Driver and by browsertest.Scripted in tests.
package browser

import (
	"context"
	"errors"
	"time"

	"autored/pkg/auth"
)

// ErrTimeout is matched (errors.Is) by every bounded wait that ran out
var ErrTimeout = errors.New("browser: wait timed out")

// Session is the set of page capabilities the login and publish flows use.
// Every call readies the underlying browser on first use.
//
// Selectors are CSS unless prefixed with "text=", which matches an element
// whose own text contains the rest of the selector.
type Session interface {
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until selector is visible or timeout elapses
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// WaitCount blocks until at least n elements match selector
	WaitCount(ctx context.Context, selector string, n int, timeout time.Duration) error

	Click(ctx context.Context, selector string) error

	// Fill replaces the content of an input, textarea or editable element
	Fill(ctx context.Context, selector, value string) error

	// SetFileInput assigns one local file to a file input
	SetFileInput(ctx context.Context, selector, path string) error

	ReadCookies(ctx context.Context) ([]auth.Cookie, error)
	WriteCookies(ctx context.Context, cookies []auth.Cookie) error
}

// IsTimeout reports whether err came from an exhausted bounded wait
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
