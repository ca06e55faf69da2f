package pkg

import (
	"os"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	expected := "halc"
	if Name != expected {
		t.Errorf("Expected Name to be %q, got %q", expected, Name)
	}
}

func TestVersion(t *testing.T) {
	// Version is embedded from VERSION file, so it should not be empty.
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("Failed to read VERSION file: %v", err)
	}

	if content := string(buf); Version != content {
		t.Errorf("Expected Version to be %q, got %q", content, Version)
	}
}

func TestVersionWellFormed(t *testing.T) {
	v := strings.TrimSpace(Version)
	if v == "" {
		t.Fatal("Expected non-empty Version")
	}

	if strings.ContainsAny(v, " \t") {
		t.Errorf("Expected Version without whitespace, got %q", v)
	}
}
