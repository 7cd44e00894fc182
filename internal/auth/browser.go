package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	portalLinkXPath = `//a[contains(text(), '中央Portal登入')]`
	consentButton   = `button.btn.btn-danger[type='submit']`
	usernameInput   = `input[name="username"]`
	passwordInput   = `input[name="password"]`

	stepTimeout    = 10 * time.Second
	consentTimeout = 5 * time.Second
	settleDelay    = 5 * time.Second
	snapshotLimit  = time.Minute
)

// ErrLogin wraps every failure of the login flow.
var ErrLogin = errors.New("login failed")

// Options configures the browser session.
type Options struct {
	LoginURL string
	Account  string
	Password string

	Headless bool
	ExecPath string

	// ManualTimeout bounds how long we wait for a person to log in
	// when no credentials are configured.
	ManualTimeout time.Duration
}

// Browser is a Chrome session driven through the DevTools protocol.
// It stays open after Login so later steps can reuse the authenticated tab.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options
	log         *slog.Logger
}

// NewBrowser starts Chrome. Close must be called to terminate it.
func NewBrowser(parent context.Context, opts Options, log *slog.Logger) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	// Chrome refuses to start its sandbox as root (containers, CI).
	if os.Geteuid() == 0 {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...), slog.String("component", "chromedp"))
	}))

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Browser{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        opts,
		log:         log,
	}, nil
}

// Login walks through the portal login and returns every cookie the browser holds.
func (b *Browser) Login(ctx context.Context) ([]*http.Cookie, error) {
	b.log.Info("opening login page", slog.String("url", b.opts.LoginURL))

	err := b.run(ctx, stepTimeout,
		chromedp.Navigate(b.opts.LoginURL),
		chromedp.WaitVisible(portalLinkXPath, chromedp.BySearch),
		chromedp.Click(portalLinkXPath, chromedp.BySearch),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: portal link: %w", ErrLogin, err)
	}

	// An existing portal session only asks for consent.
	if err := b.run(ctx, consentTimeout, clickConsent()...); err != nil {
		b.log.Debug("no consent prompt, logging in", slog.Any("error", err))
		if err := b.submitCredentials(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLogin, err)
		}
	} else if err := b.run(ctx, 2*settleDelay, chromedp.Sleep(settleDelay)); err != nil {
		return nil, fmt.Errorf("%w: consent: %w", ErrLogin, err)
	}

	var raw []*network.Cookie
	err = b.run(ctx, stepTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: read cookies: %w", ErrLogin, err)
	}

	cookies := ToHTTPCookies(raw)
	b.log.Info("logged in", slog.Int("cookies", len(cookies)))
	return cookies, nil
}

func (b *Browser) submitCredentials(ctx context.Context) error {
	if b.opts.Account == "" || b.opts.Password == "" {
		b.log.Warn("no credentials configured, waiting for manual login",
			slog.Duration("timeout", b.opts.ManualTimeout))

		actions := append(clickConsent(), chromedp.Sleep(settleDelay))
		if err := b.run(ctx, b.opts.ManualTimeout, actions...); err != nil {
			return fmt.Errorf("manual login: %w", err)
		}
		return nil
	}

	err := b.run(ctx, stepTimeout,
		chromedp.WaitVisible(usernameInput, chromedp.ByQuery),
		chromedp.SendKeys(usernameInput, b.opts.Account, chromedp.ByQuery),
		chromedp.SendKeys(passwordInput, b.opts.Password, chromedp.ByQuery),
		chromedp.Submit(passwordInput, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("credentials form: %w", err)
	}

	actions := append(clickConsent(), chromedp.Sleep(settleDelay))
	if err := b.run(ctx, stepTimeout+settleDelay, actions...); err != nil {
		return fmt.Errorf("consent: %w", err)
	}
	return nil
}

// Snapshot opens target in the authenticated tab and returns the page
// printed to PDF together with its HTML.
func (b *Browser) Snapshot(ctx context.Context, target string) ([]byte, string, error) {
	var (
		pdf  []byte
		html string
	)

	err := b.run(ctx, snapshotLimit,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, "", fmt.Errorf("snapshot %s: %w", target, err)
	}
	return pdf, html, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

// run executes actions in the browser tab, bounded by timeout and by ctx.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(tctx, actions...)
}

func clickConsent() []chromedp.Action {
	return []chromedp.Action{
		chromedp.WaitVisible(consentButton, chromedp.ByQuery),
		chromedp.Click(consentButton, chromedp.ByQuery),
	}
}
