package chromedp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultSettleDelay = 2 * time.Second
	networkIdle        = "networkIdle"
)

// Fetch renders a page in its own headless browser. Every call allocates and
// tears down a fresh browser, so nothing is shared between fetches.
type Fetch struct {
	Timeout     time.Duration
	SettleDelay time.Duration
	UserAgent   string
	ExecPath    string // empty uses chromedp's lookup
}

func (f Fetch) Fetch(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("invalid url")
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	settle := f.SettleDelay
	if settle < 0 {
		settle = 0
	} else if settle == 0 {
		settle = DefaultSettleDelay
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
	)
	if f.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.UserAgent))
	}
	if f.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.ExecPath))
	}
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	idle := waitForLifecycle(bctx, networkIdle)

	var html string
	err := chromedp.Run(bctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return page.SetLifecycleEventsEnabled(true).Do(ctx)
		}),
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-idle:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// waitForLifecycle returns a channel closed once the named lifecycle event
// fires for a document loaded after the listener was attached.
func waitForLifecycle(ctx context.Context, name string) <-chan struct{} {
	done := make(chan struct{})
	var once sync.Once
	var started atomic.Bool
	chromedp.ListenTarget(ctx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		switch e.Name {
		case "init":
			started.Store(true)
		case name:
			if started.Load() {
				once.Do(func() { close(done) })
			}
		}
	})
	return done
}
