package engine

import (
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/statelab/renderbox/internal/infrastructure/config"
	"github.com/statelab/renderbox/internal/infrastructure/logging"
)

const (
	probeInterval = 15 * time.Second
	probeTimeout  = 3 * time.Second
)

// Engine owns the single long-lived headless Chromium instance.
//
// The handle is created once at startup and torn down once at shutdown; no
// request path reassigns it. Creating isolated contexts from it is safe from
// many in-flight requests concurrently, which is a guarantee the browser's
// target machinery provides.
type Engine struct {
	browser    *rod.Browser
	launch     *launcher.Launcher
	probe      *resty.Client
	versionURL string
	logger     *logging.Logger

	connected atomic.Bool
	active    atomic.Int64
	done      chan struct{}
}

// New launches a headless Chromium and connects to it over CDP.
// Failure here is fatal to the process: there is no degraded-startup mode.
func New(cfg config.EngineConfig, logger *logging.Logger) (*Engine, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("ignore-certificate-errors").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if cfg.ChromiumPath != "" {
		l = l.Bin(cfg.ChromiumPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	versionURL, err := devtoolsVersionURL(controlURL)
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to derive devtools endpoint: %w", err)
	}

	e := &Engine{
		browser:    browser,
		launch:     l,
		probe:      resty.New().SetTimeout(probeTimeout),
		versionURL: versionURL,
		logger:     logger,
		done:       make(chan struct{}),
	}
	e.connected.Store(true)
	go e.monitor()

	logger.Info("Render engine connected", zap.String("devtools", versionURL))
	return e, nil
}

// Connected reports the cached engine connectivity verdict, refreshed in the
// background by the devtools probe.
func (e *Engine) Connected() bool {
	return e.connected.Load()
}

// ActiveContexts returns the number of currently open browser contexts.
func (e *Engine) ActiveContexts() int {
	return int(e.active.Load())
}

// Close disconnects from the browser and kills the launched process.
func (e *Engine) Close() error {
	close(e.done)
	e.connected.Store(false)

	err := e.browser.Close()
	e.launch.Kill()
	e.launch.Cleanup()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// monitor refreshes the cached connectivity flag by polling the devtools
// /json/version endpoint until Close.
func (e *Engine) monitor() {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			resp, err := e.probe.R().Get(e.versionURL)
			ok := err == nil && resp.StatusCode() == 200
			if ok != e.connected.Load() {
				if ok {
					e.logger.Info("Render engine reconnected")
				} else {
					e.logger.Error("Render engine unreachable", zap.Error(err))
				}
			}
			e.connected.Store(ok)
		}
	}
}

// devtoolsVersionURL converts a CDP websocket control URL into the HTTP
// /json/version endpoint of the same devtools server.
func devtoolsVersionURL(controlURL string) (string, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s/json/version", u.Host), nil
}
