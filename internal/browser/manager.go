// CLAUDE:SUMMARY Chrome lifecycle for adcover: launch or connect, heap and age based recycling, reconnect hooks.
// Package browser owns the Chrome process the live watcher drives: launch
// (or attach to a remote instance), watch its JS heap and age, recycle it,
// and tell subscribers to reopen their tabs afterwards.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// ErrClosed is returned by a Manager after Close.
var ErrClosed = errors.New("browser: manager is closed")

// Mode selects how Chrome is run.
type Mode int

const (
	ModeHeadless Mode = iota // headless + stealth
	ModeHeadful              // real window on an Xvfb display
)

func (m Mode) String() string {
	if m == ModeHeadful {
		return "headful"
	}
	return "headless"
}

// ParseMode maps a config string to a Mode. Unknown values are headless.
func ParseMode(s string) Mode {
	if s == "headful" {
		return ModeHeadful
	}
	return ModeHeadless
}

// Config configures the Manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket of an already running Chrome.
	// Empty launches a local one.
	RemoteURL string

	Mode Mode

	// MemoryLimit recycles Chrome once the JS heap exceeds it. Default: 1GB.
	MemoryLimit int64

	// RecycleInterval is the maximum age of a Chrome process. Default: 4h.
	RecycleInterval time.Duration

	// BlockResources lists request types to fail (images, fonts, media,
	// stylesheets). Overlay assets are data URIs and are never blocked.
	BlockResources []string

	// XvfbDisplay for ModeHeadful. Default: ":99".
	XvfbDisplay string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome process.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	startAt time.Time
	closed  bool

	hooksMu sync.Mutex
	hooks   []func(*rod.Browser)
}

// NewManager creates a Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// OnRecycle registers fn to run with the fresh browser after every recycle.
// Pages opened on the old browser are gone by then.
func (m *Manager) OnRecycle(fn func(*rod.Browser)) {
	m.hooksMu.Lock()
	m.hooks = append(m.hooks, fn)
	m.hooksMu.Unlock()
}

// Start launches Chrome and the monitor goroutine.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	b, err := m.launch()
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()

	go m.monitor(ctx)
	return b, nil
}

// Browser returns the current browser, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Recycle restarts Chrome and runs the OnRecycle hooks.
func (m *Manager) Recycle() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.cfg.Logger.Info("browser: recycling", "uptime", time.Since(m.startAt).Round(time.Second))

	m.cleanup()
	b, err := m.launch()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()
	m.mu.Unlock()

	// Hooks run unlocked: they open tabs through Browser().
	m.hooksMu.Lock()
	hooks := append(([]func(*rod.Browser))(nil), m.hooks...)
	m.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(b)
	}

	m.cfg.Logger.Info("browser: recycled")
	return nil
}

// Close shuts Chrome and Xvfb down.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanup()
	return nil
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Mode == ModeHeadful {
		if err := m.startXvfb(); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New()
		if m.cfg.Mode == ModeHeadful {
			l = l.Headless(false).Env("DISPLAY=" + m.cfg.XvfbDisplay)
		} else {
			l = l.Headless(true)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "mode", m.cfg.Mode)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.cfg.Logger.Debug("browser: close", "error", err)
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
}

func (m *Manager) monitor(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.RLock()
		closed, b, startAt := m.closed, m.browser, m.startAt
		m.mu.RUnlock()
		if closed {
			return
		}
		if b == nil {
			continue
		}

		if time.Since(startAt) > m.cfg.RecycleInterval {
			log.Info("browser: recycle interval reached")
			if err := m.Recycle(); err != nil {
				log.Error("browser: recycle failed", "error", err)
			}
			continue
		}

		used, err := heapUsage(b)
		if err != nil {
			log.Debug("browser: heap check failed", "error", err)
			continue
		}
		if used > m.cfg.MemoryLimit {
			log.Info("browser: memory limit exceeded", "used", used, "limit", m.cfg.MemoryLimit)
			if err := m.Recycle(); err != nil {
				log.Error("browser: recycle failed", "error", err)
			}
		}
	}
}

// heapUsage sums performance.memory.usedJSHeapSize over open pages.
func heapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil {
		return 0, err
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("no pages for heap check")
	}
	var total int64
	for _, p := range pages {
		res, err := p.Eval(`() => performance.memory ? performance.memory.usedJSHeapSize : 0`)
		if err != nil {
			continue
		}
		total += int64(res.Value.Int())
	}
	return total, nil
}
