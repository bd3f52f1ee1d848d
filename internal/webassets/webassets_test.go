package webassets

import (
	"strings"
	"testing"
)

func TestProbePageIncludesTitle(t *testing.T) {
	body, err := ProbePage("501 Not Implemented", "")
	if err != nil {
		t.Fatalf("ProbePage: %v", err)
	}
	if !strings.Contains(string(body), "501 Not Implemented") {
		t.Fatalf("page missing title: %s", body)
	}
	if strings.Contains(string(body), "Redirect") {
		t.Fatalf("expected no redirect link when location is empty")
	}
}

func TestProbePageIncludesRedirectLink(t *testing.T) {
	body, err := ProbePage("307 Temporary Redirect", "https://example.org/")
	if err != nil {
		t.Fatalf("ProbePage: %v", err)
	}
	if !strings.Contains(string(body), "https://example.org/") {
		t.Fatalf("page missing redirect location: %s", body)
	}
}

func TestFSServesEmbeddedPage(t *testing.T) {
	fsys, err := FS()
	if err != nil {
		t.Fatalf("FS: %v", err)
	}
	f, err := fsys.Open("/probe_501.html")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
}
