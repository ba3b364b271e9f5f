// Package fetcher implements the HTTP-only scan: one GET, no browser, no
// JS. The page is parsed into an in-memory document, every candidate is
// covered, and the result comes back as a Report with the covered HTML.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/adcover/dom"
	"github.com/hazyhaar/adcover/dom/htmldoc"
	"github.com/hazyhaar/adcover/event"
	"github.com/hazyhaar/adcover/idgen"
	"github.com/hazyhaar/adcover/internal/detect"
	"github.com/hazyhaar/adcover/internal/overlay"
	"github.com/hazyhaar/adcover/internal/safeurl"
)

// maxBody caps the download.
const maxBody = 10 << 20

// Fetcher scans pages over plain HTTP.
type Fetcher struct {
	client  *http.Client
	ua      string
	rules   []detect.Rule
	minArea float64
	asset   string
	public  bool
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithDetect sets the detector rules and size threshold. Zero values keep
// the detector defaults.
func WithDetect(rules []detect.Rule, minArea float64) Option {
	return func(f *Fetcher) {
		f.rules = rules
		f.minArea = minArea
	}
}

// WithAsset sets the overlay image reference.
func WithAsset(asset string) Option {
	return func(f *Fetcher) { f.asset = asset }
}

// WithPublicOnly refuses URLs that resolve to private or loopback
// addresses.
func WithPublicOnly() Option {
	return func(f *Fetcher) { f.public = true }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		ua:     "Mozilla/5.0 (compatible; adcover/1.0)",
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Scan GETs pageURL and covers it. Non-2xx responses are scanned too; the
// status is reported.
func (f *Fetcher) Scan(ctx context.Context, pageURL string) (*event.Report, error) {
	check := safeurl.Check
	if f.public {
		check = func(u string) error { return safeurl.CheckPublic(ctx, u) }
	}
	if err := check(pageURL); err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	rep, err := f.Cover(pageURL, body)
	if err != nil {
		return nil, err
	}
	rep.StatusCode = resp.StatusCode

	f.logger.Debug("fetcher: scanned",
		"url", pageURL, "status", resp.StatusCode, "size", len(body),
		"candidates", rep.Candidates, "covered", len(rep.Overlays), "sparse", rep.Sparse)
	return rep, nil
}

// Cover runs detection and overlay attachment over an HTML body.
func (f *Fetcher) Cover(pageURL string, body []byte) (*event.Report, error) {
	doc, err := htmldoc.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	root, err := doc.Root()
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	rep := &event.Report{
		ID:        idgen.New(),
		URL:       pageURL,
		Title:     Title(body),
		Sparse:    !IsSufficient(body),
		Timestamp: time.Now().UnixMilli(),
	}

	det := detect.New(detect.Config{Doc: doc, Rules: f.rules, MinArea: f.minArea, Logger: f.logger})
	found := det.Detect(root)
	rep.Candidates = found.Len()

	var reason string
	mgr := overlay.New(overlay.Config{
		Doc:   doc,
		Asset: f.asset,
		OnAttach: func(el dom.Element) {
			rep.Overlays = append(rep.Overlays, overlayEvent(rep, el, reason))
		},
		Logger: f.logger,
	})
	for _, m := range found.Matches() {
		reason = m.Rule
		mgr.Attach(m.Element)
	}

	rep.HTML = doc.HTML()
	rep.HTMLHash = event.HashHTML(rep.HTML)
	return rep, nil
}

func overlayEvent(rep *event.Report, el dom.Element, reason string) event.Overlay {
	o := event.Overlay{
		ID:        idgen.New(),
		PageID:    rep.URL,
		PageURL:   rep.URL,
		Seq:       uint64(len(rep.Overlays) + 1),
		Action:    event.Attached,
		Source:    event.SourceScan,
		Reason:    reason,
		Tag:       el.Tag(),
		XPath:     el.Path(),
		Timestamp: rep.Timestamp,
	}
	if r, err := el.Rect(); err == nil {
		o.Width, o.Height = r.Width, r.Height
	}
	return o
}

// Title returns the document title, trimmed.
func Title(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
