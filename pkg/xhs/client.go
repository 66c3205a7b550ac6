// Package xhs automates the Xiaohongshu creator studio: logging in (stored
// session or QR scan) and publishing posts.
package xhs

import (
	"context"

	"autored/pkg/auth"
	"autored/pkg/browser"
	"autored/pkg/config"
	"autored/pkg/logger"
)

// Session is a browser session the client owns and closes
type Session interface {
	browser.Session
	Close() error
}

// Client bundles one browser session with the login and publish flows for
// a single run. It is not safe for concurrent publishing.
type Client struct {
	session   Session
	login     *Authenticator
	publisher *Publisher
}

// NewClient creates a client backed by a lazily started chromedp browser
func NewClient(cfg *config.Config, store auth.CookieStore, log logger.Logger) *Client {
	return NewClientWithSession(browser.NewDriver(cfg.Browser, log), store, cfg, log)
}

// NewClientWithSession creates a client over an existing session
func NewClientWithSession(session Session, store auth.CookieStore, cfg *config.Config, log logger.Logger) *Client {
	login := NewAuthenticator(session, store, cfg, log)
	return &Client{
		session:   session,
		login:     login,
		publisher: NewPublisher(session, login, cfg, log),
	}
}

// SetNotifier routes the scan request to the desktop
func (c *Client) SetNotifier(n Notifier) {
	c.login.SetNotifier(n)
}

// Login ensures the session is authenticated
func (c *Client) Login(ctx context.Context) error {
	return c.login.EnsureAuthenticated(ctx)
}

// Publish posts req, logging in first if needed
func (c *Client) Publish(ctx context.Context, req Request) error {
	return c.publisher.Publish(ctx, req)
}

// LoginState returns where the login state machine stands
func (c *Client) LoginState() LoginState {
	return c.login.State()
}

// Close shuts the browser down
func (c *Client) Close() error {
	return c.session.Close()
}
