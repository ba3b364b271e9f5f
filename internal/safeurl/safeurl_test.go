package safeurl

import (
	"context"
	"errors"
	"testing"
)

func TestCheck(t *testing.T) {
	ok := []string{"http://a", "https://news.example/path?q=1", "HTTP://x.example"}
	for _, u := range ok {
		if err := Check(u); err != nil {
			t.Errorf("Check(%q): %v", u, err)
		}
	}

	if err := Check("ftp://files.example/"); !errors.Is(err, ErrUnsafeScheme) {
		t.Errorf("ftp: got %v", err)
	}
	if err := Check("javascript:alert(1)"); !errors.Is(err, ErrUnsafeScheme) {
		t.Errorf("javascript: got %v", err)
	}
	if err := Check("https:///nohost"); err == nil {
		t.Error("empty host: expected error")
	}
	if err := Check("://broken"); err == nil {
		t.Error("unparsable: expected error")
	}
}

func TestCheckPublic_Literals(t *testing.T) {
	ctx := context.Background()
	blocked := []string{
		"http://127.0.0.1/", "http://10.1.2.3/", "http://192.168.0.10:8080/",
		"http://172.20.0.1/", "http://169.254.169.254/", "http://[::1]/",
		"http://[fd00::1]/", "http://0.0.0.0/", "http://[::ffff:127.0.0.1]/",
	}
	for _, u := range blocked {
		if err := CheckPublic(ctx, u); !errors.Is(err, ErrPrivate) {
			t.Errorf("CheckPublic(%q): got %v, want ErrPrivate", u, err)
		}
	}
	if err := CheckPublic(ctx, "http://93.184.216.34/"); err != nil {
		t.Errorf("public literal: %v", err)
	}
	if err := CheckPublic(ctx, "gopher://1.1.1.1/"); !errors.Is(err, ErrUnsafeScheme) {
		t.Errorf("scheme: got %v", err)
	}
}
