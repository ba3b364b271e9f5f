package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/adcover/event"
	"github.com/hazyhaar/adcover/internal/detect"
	"github.com/hazyhaar/adcover/internal/overlay"
	"github.com/hazyhaar/adcover/internal/safeurl"
)

const article = `<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor
incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation
ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit.</p>`

const page = `<!DOCTYPE html>
<html><head><title> Daily News </title></head>
<body>
<main>` + article + `</main>
<iframe src="https://tpc.googlesyndication.com/safeframe/1"></iframe>
<div class="leaderboard-ad" style="width: 728px; height: 90px"></div>
<div class="tiny-ad" style="width: 20px; height: 20px"></div>
</body></html>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("User-Agent"), "adcover") {
			t.Errorf("User-Agent: got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScan_CoversCandidates(t *testing.T) {
	srv := serve(t, http.StatusOK, page)
	f := New(WithAsset("data:image/png;base64,AAAA"))

	rep, err := f.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if rep.StatusCode != 200 {
		t.Errorf("StatusCode: got %d", rep.StatusCode)
	}
	if rep.Title != "Daily News" {
		t.Errorf("Title: got %q", rep.Title)
	}
	if rep.Candidates != 2 || len(rep.Overlays) != 2 {
		t.Fatalf("candidates/overlays: got %d/%d, want 2/2", rep.Candidates, len(rep.Overlays))
	}

	first := rep.Overlays[0]
	if first.Reason != "adsense-frame" || first.Tag != "iframe" || first.Source != event.SourceScan {
		t.Errorf("first overlay: got %+v", first)
	}
	second := rep.Overlays[1]
	if second.Reason != detect.Heuristic || second.Width != 728 || second.Seq != 2 {
		t.Errorf("second overlay: got %+v", second)
	}

	html := string(rep.HTML)
	if strings.Count(html, overlay.NodeAttr) != 2 {
		t.Errorf("covered HTML should hold 2 overlays:\n%s", html)
	}
	if !strings.Contains(html, "data:image/png;base64,AAAA") {
		t.Error("covered HTML should reference the asset")
	}
	if rep.HTMLHash != event.HashHTML(rep.HTML) {
		t.Error("HTMLHash mismatch")
	}
	if rep.Sparse {
		t.Error("article page should not be sparse")
	}
}

func TestScan_ReportsStatus(t *testing.T) {
	srv := serve(t, http.StatusNotFound, `<html><body>gone</body></html>`)
	rep, err := New().Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if rep.StatusCode != 404 || rep.Candidates != 0 {
		t.Errorf("report: got status %d, %d candidates", rep.StatusCode, rep.Candidates)
	}
	if !rep.Sparse {
		t.Error("tiny page should be sparse")
	}
}

func TestScan_CustomRules(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><body><aside class="promo">x</aside></body></html>`)
	f := New(WithDetect([]detect.Rule{{Name: "promo", Selector: ".promo"}}, 0))

	rep, err := f.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Overlays) != 1 || rep.Overlays[0].Reason != "promo" {
		t.Errorf("overlays: got %+v", rep.Overlays)
	}
}

func TestScan_BadURL(t *testing.T) {
	if _, err := New().Scan(context.Background(), "http://127.0.0.1:0/"); err == nil {
		t.Error("expected transport error")
	}
}

func TestScan_RefusesUnsafeURLs(t *testing.T) {
	ctx := context.Background()
	if _, err := New().Scan(ctx, "file:///etc/passwd"); !errors.Is(err, safeurl.ErrUnsafeScheme) {
		t.Errorf("file scheme: got %v", err)
	}

	srv := serve(t, http.StatusOK, page)
	if _, err := New(WithPublicOnly()).Scan(ctx, srv.URL); !errors.Is(err, safeurl.ErrPrivate) {
		t.Errorf("loopback with WithPublicOnly: got %v", err)
	}
}

func TestTitle(t *testing.T) {
	if got := Title([]byte(`<html><head><title>A</title><title>B</title></head></html>`)); got != "A" {
		t.Errorf("Title: got %q", got)
	}
	if got := Title([]byte(`<p>no title</p>`)); got != "" {
		t.Errorf("Title: got %q", got)
	}
}

func TestIsSufficient(t *testing.T) {
	static := []byte(`<!DOCTYPE html><html><head><title>T</title></head><body><article>` + article + `</article></body></html>`)
	if !IsSufficient(static) {
		t.Error("static article should be sufficient")
	}

	shell := []byte(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>App</title></head>
<body><div id="root"></div><script src="/static/js/main.chunk.js"></script>` + strings.Repeat(" ", 300) + `</body></html>`)
	if IsSufficient(shell) {
		t.Error("app shell should be insufficient")
	}

	scripted := []byte(`<html><body><script>` + strings.Repeat("var x = 1;", 100) + `</script></body></html>`)
	if IsSufficient(scripted) {
		t.Error("script text is not content")
	}

	if IsSufficient([]byte(`<html><body>hi</body></html>`)) {
		t.Error("short page should be insufficient")
	}
}
