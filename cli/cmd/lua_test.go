package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaterializeLua_InlineScript(t *testing.T) {
	src := writeSource(t, `config demo {
  lua ratelimit {
    source_type: "inline"
    content: "function rate() return 1 end"
  }
}`)

	res, err := compileSource(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("compileSource: %v", err)
	}

	dir := t.TempDir()
	if err := materializeLua(context.Background(), res.Config, dir); err != nil {
		t.Fatalf("materializeLua: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "ratelimit.lua"))
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}

	if got := string(b); !strings.Contains(got, "function rate()") {
		t.Errorf("unexpected script body: %q", got)
	}
}

func TestMaterializeLua_CopiesFileReference(t *testing.T) {
	scripts := t.TempDir()
	ref := filepath.Join(scripts, "auth.lua")

	if err := os.WriteFile(ref, []byte("-- auth hook\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := writeSource(t, `config demo {
  lua auth {
    path: "`+ref+`"
  }
}`)

	res, err := compileSource(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("compileSource: %v", err)
	}

	dir := t.TempDir()
	if err := materializeLua(context.Background(), res.Config, dir); err != nil {
		t.Fatalf("materializeLua: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "auth.lua"))
	if err != nil {
		t.Fatalf("reading copied script: %v", err)
	}

	if string(b) != "-- auth hook\n" {
		t.Errorf("unexpected copied body: %q", string(b))
	}
}

func TestMaterializeLua_MissingReference(t *testing.T) {
	src := writeSource(t, `config demo {
  lua ghost {
    path: "/nonexistent/ghost.lua"
  }
}`)

	res, err := compileSource(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("compileSource: %v", err)
	}

	err = materializeLua(context.Background(), res.Config, t.TempDir())
	if !errors.Is(err, ErrWriteLua) {
		t.Errorf("expected ErrWriteLua, got %v", err)
	}
}
