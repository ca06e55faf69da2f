package lang

import (
	"context"
	"errors"
	"testing"
)

func TestResolve_LetBindings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		port int64
	}{
		{
			name: "top-level let",
			src: `config demo {
  let p = 9000
  backend api { servers { server s1 { address: "a", port: ${p} } } }
}`,
			port: 9000,
		},
		{
			name: "arithmetic on let",
			src: `config demo {
  let base = 8000
  backend api { servers { server s1 { address: "a", port: ${base + 80} } } }
}`,
			port: 8080,
		},
		{
			name: "let chaining",
			src: `config demo {
  let base = 8000
  let p = base + 1
  backend api { servers { server s1 { address: "a", port: ${p} } } }
}`,
			port: 8001,
		},
		{
			name: "section let shadows top-level",
			src: `config demo {
  let p = 1
  backend api {
    let p = 9999
    servers { server s1 { address: "a", port: ${p} } }
  }
}`,
			port: 9999,
		},
		{
			name: "server let shadows section",
			src: `config demo {
  backend api {
    let p = 1
    servers {
      server s1 { let p = 7070
        address: "a", port: ${p} }
    }
  }
}`,
			port: 7070,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compileConfig(t, tt.src)
			srv := findBackend(t, res.Config, "api").Servers[0].Server

			if port, ok := srv.Port.AsInt(); !ok || port != tt.port {
				t.Errorf("port: got %v, want %d", srv.Port, tt.port)
			}
		})
	}
}

func TestResolve_ExprKeepsNativeType(t *testing.T) {
	res := compileConfig(t, `config demo {
  let n = 4
  global { nbthread: ${n}, daemon: ${n > 2} }
}`)

	g := res.Config.Global

	if g.Nbthread.Kind != KindInt {
		t.Errorf("whole-field expression lost its native type: %v", g.Nbthread.Kind)
	}

	if g.Daemon.Kind != KindBool || !g.Daemon.Bool {
		t.Errorf("boolean expression: got %v", g.Daemon)
	}
}

func TestResolve_InterpolationSplices(t *testing.T) {
	res := compileConfig(t, `config demo {
  let id = 3
  backend "app${id}" {
    servers {
      server s1 { address: "10.0.0.${id}", port: 80 }
    }
  }
}`)

	be := findBackend(t, res.Config, "app3")

	srv := be.Servers[0].Server
	if srv.Address.Kind != KindString || srv.Address.Str != "10.0.0.3" {
		t.Errorf("spliced address: got %v", srv.Address)
	}
}

func TestResolve_Env(t *testing.T) {
	environ := []string{"REGION=eu-west-1", "PORT=8443"}

	t.Run("set variable", func(t *testing.T) {
		res := compileConfig(t, `config demo {
  let r = env("REGION")
  frontend "fe-${r}" { bind { address: "*", port: 80 } }
}`, WithEnviron(environ))

		findFrontend(t, res.Config, "fe-eu-west-1")
	})

	t.Run("fallback used when unset", func(t *testing.T) {
		res := compileConfig(t, `config demo {
  let r = env("MISSING", "default")
  frontend "fe-${r}" { bind { address: "*", port: 80 } }
}`, WithEnviron(environ))

		findFrontend(t, res.Config, "fe-default")
	})

	t.Run("unset without fallback fails", func(t *testing.T) {
		_, err := Compile(context.Background(), `config demo {
  let r = env("MISSING")
  frontend "fe-${r}" { bind { address: "*", port: 80 } }
}`, WithEnviron(environ))

		if !errors.Is(err, ErrEnvNotSet) {
			t.Errorf("expected ErrEnvNotSet, got %v", err)
		}
	})

	t.Run("no ambient environment", func(t *testing.T) {
		// Without WithEnviron every variable is unset, even ones present
		// in the test process environment.
		t.Setenv("AMBIENT_PROBE", "visible")

		_, err := Compile(context.Background(), `config demo {
  let r = env("AMBIENT_PROBE")
  frontend "fe-${r}" { bind { address: "*", port: 80 } }
}`)

		if !errors.Is(err, ErrEnvNotSet) {
			t.Errorf("expected ErrEnvNotSet, got %v", err)
		}
	})
}

func TestResolve_UseBeforeDeclaration(t *testing.T) {
	// A binding is only visible after its declaration site.
	_, err := Compile(context.Background(), `config demo {
  backend api { maxconn: ${late} }
  let late = 10
}`)

	if err == nil {
		t.Fatal("expected an error for use before declaration")
	}

	if !errors.Is(err, ErrExprCompile) {
		t.Errorf("expected ErrExprCompile, got %v", err)
	}
}

func TestResolve_NonIntegerResult(t *testing.T) {
	_, err := Compile(context.Background(), `config demo {
  backend api { maxconn: ${1 / 2} }
}`)

	if !errors.Is(err, ErrResolve) {
		t.Errorf("expected ErrResolve for fractional result, got %v", err)
	}
}

func TestResolve_ListElements(t *testing.T) {
	res := compileConfig(t, `config demo {
  let code = 503
  defaults {
    errorloc: [${code}, "http://err.example.com/${code}"]
  }
}`)

	loc := res.Config.Defaults.ErrorLoc
	if loc.Kind != KindList || len(loc.List) != 2 {
		t.Fatalf("errorloc: got %v", loc)
	}

	if code, _ := loc.List[0].AsInt(); code != 503 {
		t.Errorf("code element: got %v", loc.List[0])
	}

	if loc.List[1].Str != "http://err.example.com/503" {
		t.Errorf("url element: got %v", loc.List[1])
	}
}
