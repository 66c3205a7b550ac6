// Package browsertest provides a deterministic browser.Session for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autored/pkg/auth"
	"autored/pkg/browser"
)

// Operation names recorded in Call.Op
const (
	OpNavigate     = "navigate"
	OpWait         = "wait"
	OpWaitCount    = "wait_count"
	OpClick        = "click"
	OpFill         = "fill"
	OpSetFile      = "set_file"
	OpReadCookies  = "read_cookies"
	OpWriteCookies = "write_cookies"
	OpClose        = "close"
)

// Call is one recorded Session call
type Call struct {
	Op       string
	Selector string
	Value    string
	N        int
	Timeout  time.Duration
}

func (c Call) String() string {
	switch c.Op {
	case OpWait:
		return fmt.Sprintf("%s(%s, %s)", c.Op, c.Selector, c.Timeout)
	case OpWaitCount:
		return fmt.Sprintf("%s(%s >= %d, %s)", c.Op, c.Selector, c.N, c.Timeout)
	case OpFill, OpSetFile:
		return fmt.Sprintf("%s(%s, %q)", c.Op, c.Selector, c.Value)
	default:
		return fmt.Sprintf("%s(%s)", c.Op, c.Selector)
	}
}

// Scripted records every call and answers waits from a script. A wait on a
// selector listed in Absent times out; Queue overrides that per call, in
// order, until it is drained.
type Scripted struct {
	mu    sync.Mutex
	calls []Call

	// Absent selectors never appear
	Absent map[string]bool
	// Queue holds per-selector wait results consumed one per wait
	Queue map[string][]error
	// Fail makes Click, Fill, SetFileInput or Navigate on a selector (or URL)
	// return the given error
	Fail map[string]error

	// Cookies is what ReadCookies returns
	Cookies []auth.Cookie
	// Written collects every WriteCookies batch
	Written [][]auth.Cookie

	ReadCookiesErr error
	closed         int
}

var _ browser.Session = (*Scripted)(nil)

// New returns a Scripted session where every selector is present
func New() *Scripted {
	return &Scripted{
		Absent: make(map[string]bool),
		Queue:  make(map[string][]error),
		Fail:   make(map[string]error),
	}
}

// Hide makes waits on selectors time out
func (s *Scripted) Hide(selectors ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sel := range selectors {
		s.Absent[sel] = true
	}
	return s
}

// Then queues results for the next waits on selector; nil means found,
// browser.ErrTimeout means timed out
func (s *Scripted) Then(selector string, results ...error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queue[selector] = append(s.Queue[selector], results...)
	return s
}

func (s *Scripted) record(c Call) {
	s.calls = append(s.calls, c)
}

func (s *Scripted) waitResult(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q := s.Queue[selector]; len(q) > 0 {
		s.Queue[selector] = q[1:]
		return wrapTimeout(selector, q[0])
	}
	if s.Absent[selector] {
		return wrapTimeout(selector, browser.ErrTimeout)
	}
	return nil
}

func wrapTimeout(selector string, err error) error {
	if err == browser.ErrTimeout {
		return fmt.Errorf("wait for %s: %w", selector, browser.ErrTimeout)
	}
	return err
}

func (s *Scripted) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpNavigate, Selector: url})
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Fail[url]
}

func (s *Scripted) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpWait, Selector: selector, Timeout: timeout})
	return s.waitResult(ctx, selector)
}

func (s *Scripted) WaitCount(ctx context.Context, selector string, n int, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpWaitCount, Selector: selector, N: n, Timeout: timeout})
	return s.waitResult(ctx, selector)
}

func (s *Scripted) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpClick, Selector: selector})
	return s.Fail[selector]
}

func (s *Scripted) Fill(ctx context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpFill, Selector: selector, Value: value})
	return s.Fail[selector]
}

func (s *Scripted) SetFileInput(ctx context.Context, selector, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpSetFile, Selector: selector, Value: path})
	return s.Fail[selector]
}

func (s *Scripted) ReadCookies(ctx context.Context) ([]auth.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpReadCookies})
	if s.ReadCookiesErr != nil {
		return nil, s.ReadCookiesErr
	}
	return append([]auth.Cookie(nil), s.Cookies...), nil
}

func (s *Scripted) WriteCookies(ctx context.Context, cookies []auth.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpWriteCookies, N: len(cookies)})
	s.Written = append(s.Written, append([]auth.Cookie(nil), cookies...))
	return nil
}

// Close records the shutdown; it mirrors Driver.Close
func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: OpClose})
	s.closed++
	return nil
}

// Calls returns every recorded call in order
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsOf returns the recorded calls of one operation
func (s *Scripted) CallsOf(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times op was called on selector
func (s *Scripted) Count(op, selector string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Op == op && c.Selector == selector {
			n++
		}
	}
	return n
}

// Index returns the position of the first op on selector, or -1
func (s *Scripted) Index(op, selector string) int {
	for i, c := range s.Calls() {
		if c.Op == op && c.Selector == selector {
			return i
		}
	}
	return -1
}

// Closed reports how many times Close was called
func (s *Scripted) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
