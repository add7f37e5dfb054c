package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultRenderTimeout = 30 * time.Second

// ChromeOptions configures the headless Chrome used by browser sources.
type ChromeOptions struct {
	ExecPath  string
	UserAgent string
	// Settle is waited after the page is ready so client-side rendering
	// can finish.
	Settle  time.Duration
	Timeout time.Duration
}

// ChromeBrowser starts a fresh headless Chrome per session via chromedp.
type ChromeBrowser struct {
	opts ChromeOptions
}

var _ Browser = (*ChromeBrowser)(nil)

// NewChromeBrowser returns a browser factory; nothing is started until Open.
func NewChromeBrowser(opts ChromeOptions) *ChromeBrowser {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRenderTimeout
	}
	return &ChromeBrowser{opts: opts}
}

// Open launches the browser and its first tab.
func (c *ChromeBrowser) Open(ctx context.Context) (BrowserSession, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", true), chromedp.DisableGPU)
	if c.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.opts.ExecPath))
	}
	if c.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(c.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	release := func() {
		tabCancel()
		allocCancel()
	}

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		release()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &chromeSession{ctx: tabCtx, release: release, opts: c.opts}, nil
}

type chromeSession struct {
	ctx     context.Context
	release func()
	opts    ChromeOptions
}

// Render navigates the tab and returns the rendered outer HTML.
func (s *chromeSession) Render(ctx context.Context, pageURL string) (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.opts.Settle > 0 {
		actions = append(actions, chromedp.Sleep(s.opts.Settle))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return "", err
	}
	return html, nil
}

// Close shuts the tab and the browser process.
func (s *chromeSession) Close() error {
	s.release()
	return nil
}
