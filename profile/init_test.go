package profile

import "testing"

func TestConfig_OptionsCompose(t *testing.T) {
	var cfg Config = func() (string, string, bool) { return "", "", false }

	cfg = WithMode("cpu")(cfg)
	cfg = WithPath("/tmp/profiles")(cfg)
	cfg = WithQuiet(true)(cfg)

	mode, path, quiet := cfg()
	if mode != "cpu" || path != "/tmp/profiles" || !quiet {
		t.Errorf("got (%q, %q, %v)", mode, path, quiet)
	}
}

func TestConfig_StartWithoutMode(t *testing.T) {
	var cfg Config = func() (string, string, bool) { return "", "", false }

	// Must return a callable no-op, never nil.
	cfg.Start().Stop()
}
