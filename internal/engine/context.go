package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/statelab/renderbox/internal/infrastructure/logging"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080

	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	acceptLanguage = "en-US,en;q=0.9"

	// Quiet period that counts as network idle after the document response.
	networkIdleQuiet = 500 * time.Millisecond
	// Grace period granted to single-page apps for late DOM mutations.
	domStableGrace = 3 * time.Second
	// Sampling interval for the DOM stability check.
	domStableInterval = 300 * time.Millisecond
)

// Context is an isolated, single-request browser session: its own cookie jar,
// storage, and navigation state, created from the shared engine and never
// shared across requests.
type Context struct {
	engine  *rod.Browser // incognito browser context
	page    *rod.Page
	logger  *logging.Logger
	counter *Engine
}

// NewContext acquires a fresh isolated browser context, optionally seeded
// with a previously captured state blob. Constraints (viewport, user agent,
// accept-language) apply uniformly regardless of seed.
func (e *Engine) NewContext(ctx context.Context, restore []byte) (*Context, error) {
	inc, err := e.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	dispose := func() {
		_ = proto.TargetDisposeBrowserContext{BrowserContextID: inc.BrowserContextID}.Call(inc)
	}

	var state *stateBlob
	if len(restore) > 0 {
		state, err = decodeState(restore)
		if err != nil {
			// A snapshot that fails to decode is treated as absent.
			e.logger.Warn("Discarding undecodable session state", zap.Error(err))
		} else if len(state.Cookies) > 0 {
			if err := inc.SetCookies(state.Cookies); err != nil {
				dispose()
				return nil, fmt.Errorf("failed to restore cookies: %w", err)
			}
		}
	}

	page, err := inc.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		dispose()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: acceptLanguage,
	}); err != nil {
		_ = page.Close()
		dispose()
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		_ = page.Close()
		dispose()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if state != nil && len(state.Origins) > 0 {
		script, err := storageRestoreScript(state.Origins)
		if err == nil {
			if _, err := page.EvalOnNewDocument(script); err != nil {
				e.logger.Warn("Failed to install storage restore script", zap.Error(err))
			}
		}
	}

	e.active.Add(1)
	return &Context{engine: inc, page: page, logger: e.logger, counter: e}, nil
}

// Render navigates to the URL and returns the serialized document along with
// the response status. The caller bounds the navigation with ctx; exceeding
// its deadline surfaces as the context error.
func (c *Context) Render(ctx context.Context, rawURL string) (string, int, error) {
	page := c.page.Context(ctx)

	var status int
	waitResponse := page.EachEvent(func(ev *proto.NetworkResponseReceived) bool {
		if ev.Type == proto.NetworkResourceTypeDocument {
			status = ev.Response.Status
			return true
		}
		return false
	})

	if err := page.Navigate(rawURL); err != nil {
		return "", 0, err
	}
	waitResponse()
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	// Wait for network idle under the caller's ceiling.
	page.WaitRequestIdle(networkIdleQuiet, nil, nil, nil)()
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	// Independently race a short DOM-stability wait so single-page apps get
	// a brief grace period after idle. Losing the race is non-fatal; the
	// render proceeds with whatever DOM exists.
	graceCtx, cancel := context.WithTimeout(ctx, domStableGrace)
	if err := page.Context(graceCtx).WaitDOMStable(domStableInterval, 0); err != nil {
		c.logger.Debug("DOM did not settle within grace period", zap.Error(err))
	}
	cancel()
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	html, err := page.HTML()
	if err != nil {
		return "", 0, fmt.Errorf("failed to serialize document: %w", err)
	}

	c.logger.Debug("Page rendered",
		zap.String("url", rawURL),
		zap.Int("status", status),
		zap.String("title", documentTitle(html)),
	)
	return html, status, nil
}

// CaptureState serializes the context's persistence-relevant state: the
// browser-context cookie jar plus the current page's localStorage keyed by
// origin.
func (c *Context) CaptureState(ctx context.Context) ([]byte, error) {
	cookies, err := c.engine.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to capture cookies: %w", err)
	}

	state := &stateBlob{Cookies: cookieParams(cookies), Origins: map[string]map[string]string{}}

	if origin, items, err := c.captureLocalStorage(ctx); err != nil {
		c.logger.Debug("Skipping localStorage capture", zap.Error(err))
	} else if origin != "" && len(items) > 0 {
		state.Origins[origin] = items
	}

	return encodeState(state)
}

// Dispose closes the page and disposes the isolated browser context.
// Safe to call on a partially failed render; it must run on every exit path.
func (c *Context) Dispose() {
	_ = c.page.Close()
	_ = proto.TargetDisposeBrowserContext{BrowserContextID: c.engine.BrowserContextID}.Call(c.engine)
	c.counter.active.Add(-1)
}

func (c *Context) captureLocalStorage(ctx context.Context) (string, map[string]string, error) {
	res, err := c.page.Context(ctx).Eval(localStorageDumpJS)
	if err != nil {
		return "", nil, err
	}

	var payload struct {
		Origin string            `json:"origin"`
		Items  map[string]string `json:"items"`
	}
	if err := decodeJSON(res.Value.Str(), &payload); err != nil {
		return "", nil, err
	}
	return payload.Origin, payload.Items, nil
}

// documentTitle extracts the page title for log lines. Best effort only.
func documentTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
