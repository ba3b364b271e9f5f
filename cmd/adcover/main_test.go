package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/adcover/event"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q): got %v, want %v", in, got, want)
		}
	}
}

func TestWatchConfig(t *testing.T) {
	if _, err := watchConfig("", ""); err == nil {
		t.Error("no source: expected error")
	}
	if _, err := watchConfig("a.yaml", "https://x"); err == nil {
		t.Error("both sources: expected error")
	}
	cfg, err := watchConfig("", "https://news.example/")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Pages) != 1 || cfg.Pages[0].ID != "https://news.example/" {
		t.Errorf("pages: got %+v", cfg.Pages)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "stdout" {
		t.Errorf("sinks: got %+v", cfg.Sinks)
	}
}

func TestScanCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Front</title></head><body>
<ins class="adsbygoogle" data-ad-client="ca-pub-1"></ins></body></html>`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "covered.html")
	out, err := execute(t, "scan", srv.URL, "--out", path)
	if err != nil {
		t.Fatal(err)
	}

	v, err := event.Decode([]byte(strings.TrimSpace(out)))
	if err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	rep, ok := v.(*event.Report)
	if !ok {
		t.Fatalf("got %T, want *event.Report", v)
	}
	if rep.Title != "Front" || len(rep.Overlays) != 1 {
		t.Errorf("report: title %q, overlays %d", rep.Title, len(rep.Overlays))
	}

	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "data-adcover-node") {
		t.Error("covered HTML should contain the overlay")
	}
}

func TestScanNeedsURL(t *testing.T) {
	if _, err := execute(t, "scan"); err == nil {
		t.Error("expected an argument error")
	}
}

func TestPagesCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "pages.db")

	if _, err := execute(t, "pages", "add", "https://a.example/", "--id", "a", "--db", db); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "pages", "add", "https://b.example/", "--db", db); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "pages", "ls", "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "https://a.example/") || !strings.Contains(out, "https://b.example/") {
		t.Errorf("ls: got %q", out)
	}

	if _, err := execute(t, "pages", "rm", "a", "--db", db); err != nil {
		t.Fatal(err)
	}
	out, _ = execute(t, "pages", "ls", "--db", db)
	if strings.Contains(out, "https://a.example/") {
		t.Errorf("disabled page still listed: %q", out)
	}
}
