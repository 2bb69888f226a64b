package client_test

import (
	"strings"
	"testing"

	"elevate/internal/judge/client"
)

func TestResolveLanguage(t *testing.T) {
	id, err := client.ResolveLanguage("python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 71 {
		t.Fatalf("unexpected id for python: %d", id)
	}

	// Resolution is case-insensitive.
	id, err = client.ResolveLanguage("Python")
	if err != nil || id != 71 {
		t.Fatalf("case-insensitive resolution failed: id=%d err=%v", id, err)
	}
}

func TestResolveLanguageUnknown(t *testing.T) {
	_, err := client.ResolveLanguage("cobol")
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Unsupported language: cobol") {
		t.Fatalf("unexpected message: %q", msg)
	}
	for _, name := range []string{"python", "javascript", "go", "rust"} {
		if !strings.Contains(msg, name) {
			t.Fatalf("message should list %q: %q", name, msg)
		}
	}
}

func TestSupportedLanguagesSorted(t *testing.T) {
	names := client.SupportedLanguages()
	if len(names) != 19 {
		t.Fatalf("unexpected language count: %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("languages not sorted at %d: %q >= %q", i, names[i-1], names[i])
		}
	}
}
