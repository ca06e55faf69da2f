package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halc-lang/halc/lang"
)

func writeSource(t *testing.T, text string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "site.halc")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestReadSource_File(t *testing.T) {
	content := "config demo {}\n"
	path := writeSource(t, content)

	name, text, err := readSource(path)
	if err != nil {
		t.Fatalf("readSource: %v", err)
	}

	if name != path {
		t.Errorf("expected name %q, got %q", path, name)
	}

	if text != content {
		t.Errorf("expected content %q, got %q", content, text)
	}
}

func TestCompileSource_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.halc")

	_, err := compileSource(context.Background(), path, nil)
	if !errors.Is(err, ErrReadSource) {
		t.Errorf("expected ErrReadSource, got %v", err)
	}
}

func TestCompileSource_EnvOverridesProcess(t *testing.T) {
	t.Setenv("HALC_TEST_ADDR", "10.0.0.1")

	path := writeSource(t, `config demo {
  backend api {
    servers {
      server s1 { address: "${env("HALC_TEST_ADDR")}", port: 80 }
    }
  }
}`)

	res, err := compileSource(context.Background(), path,
		[]string{"HALC_TEST_ADDR=10.9.9.9"})
	if err != nil {
		t.Fatalf("compileSource: %v", err)
	}

	out := lang.Render(res.Config)
	if want := "server s1 10.9.9.9:80"; !strings.Contains(out, want) {
		t.Errorf("expected %q in output:\n%s", want, out)
	}
}
