package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is one page opened for watching.
type Tab struct {
	Page    *rod.Page
	PageURL string
	PageID  string
}

// TabOptions controls how a tab is opened.
type TabOptions struct {
	// NavigateTimeout bounds navigation and the load wait. Default: 30s.
	NavigateTimeout time.Duration
	// Plain skips the stealth patches.
	Plain bool
}

// OpenTab opens pageURL in a new tab of the manager's current browser.
func (m *Manager) OpenTab(ctx context.Context, pageURL, pageID string, opts TabOptions) (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = 30 * time.Second
	}

	var page *rod.Page
	var err error
	if opts.Plain {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	} else {
		page, err = stealth.Page(b)
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(m.cfg.BlockResources) > 0 {
		blockResources(page, m.cfg.BlockResources)
	}

	navCtx, cancel := context.WithTimeout(ctx, opts.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL, PageID: pageID}, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page == nil {
		return nil
	}
	return t.Page.Close()
}
