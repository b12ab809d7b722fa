package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "reports"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestWriteAndResolve(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write("monthly_Alpha_2024-06.pdf", []byte("%PDF-1.4 test")); err != nil {
		t.Fatalf("write: %v", err)
	}

	p, err := s.Resolve("monthly_Alpha_2024-06.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestOverwriteReplacesContent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write("report.pdf", []byte("first")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Write("report.pdf", []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	p, err := s.Resolve("report.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	data, _ := os.ReadFile(p)
	if string(data) != "second" {
		t.Fatalf("overwrite not applied: %q", data)
	}

	// no stray temp files left behind
	entries, _ := os.ReadDir(s.Root())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	s := newTestStore(t)

	// a real file outside the root must not be reachable
	outside := filepath.Join(filepath.Dir(s.Root()), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}

	for _, name := range []string{
		"../secret.txt",
		"../../etc/passwd",
		"..",
		"",
		"sub/../../secret.txt",
		".hidden.pdf",
	} {
		_, err := s.Resolve(name)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q): expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestEscapeAndMissingAreIndistinguishable(t *testing.T) {
	s := newTestStore(t)

	_, escErr := s.Resolve("../../etc/passwd")
	_, missErr := s.Resolve("does-not-exist.pdf")
	if !errors.Is(escErr, ErrNotFound) || !errors.Is(missErr, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for both, got %v and %v", escErr, missErr)
	}
	if escErr.Error() != missErr.Error() {
		t.Fatal("escape and missing must be observably identical")
	}
}

func TestWriteRejectsBadNames(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", "..", "../x.pdf", "a/b.pdf", `a\b.pdf`, ".tmp-x"} {
		if err := s.Write(name, []byte("x")); err == nil {
			t.Errorf("Write(%q): expected error", name)
		}
	}
}
