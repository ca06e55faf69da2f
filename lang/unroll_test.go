package lang

import (
	"context"
	"testing"
)

func TestUnroll_TopLevelCardinality(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{
			name: "simple range",
			src: `config demo {
  for i in [1..4] { backend "b${i}" { dispatch: "10.0.0.1:80" } }
}`,
			want: 4,
		},
		{
			name: "single iteration",
			src: `config demo {
  for i in [7..7] { backend "b${i}" { dispatch: "10.0.0.1:80" } }
}`,
			want: 1,
		},
		{
			name: "inverted range yields nothing",
			src: `config demo {
  for i in [3..1] { backend "b${i}" { dispatch: "10.0.0.1:80" } }
}`,
			want: 0,
		},
		{
			name: "expression bounds",
			src: `config demo {
  let n = 3
  for i in [1..${n}] { backend "b${i}" { dispatch: "10.0.0.1:80" } }
}`,
			want: 3,
		},
		{
			name: "nested loops multiply",
			src: `config demo {
  for i in [1..2] {
    for j in [1..3] { backend "b${i}x${j}" { dispatch: "10.0.0.1:80" } }
  }
}`,
			want: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compileConfig(t, tt.src)

			count := 0

			for _, item := range res.Config.Items {
				if item.Loop != nil {
					t.Fatal("loop survived unrolling")
				}

				if item.Backend != nil {
					count++
				}
			}

			if count != tt.want {
				t.Errorf("got %d backends, want %d", count, tt.want)
			}
		})
	}
}

func TestUnroll_GeneratedNamesAreDistinct(t *testing.T) {
	res := compileConfig(t, `config demo {
  for i in [1..3] { backend "b${i}" { dispatch: "10.0.0.1:80" } }
}`)

	seen := make(map[string]bool)

	for _, item := range res.Config.Items {
		name := item.Backend.Name.Str
		if seen[name] {
			t.Errorf("duplicate generated name %q", name)
		}

		seen[name] = true
	}

	for _, want := range []string{"b1", "b2", "b3"} {
		if !seen[want] {
			t.Errorf("missing backend %q", want)
		}
	}
}

func TestUnroll_ServerLoop(t *testing.T) {
	res := compileConfig(t, `config demo {
  let base = 8000
  backend api {
    servers {
      for i in [1..5] {
        server "s${i}" { address: "10.0.0.${i}", port: ${base + i} }
      }
    }
  }
}`)

	be := findBackend(t, res.Config, "api")
	if len(be.Servers) != 5 {
		t.Fatalf("got %d servers, want 5", len(be.Servers))
	}

	for i, item := range be.Servers {
		srv := item.Server

		if port, _ := srv.Port.AsInt(); port != int64(8001+i) {
			t.Errorf("server %d port: got %v, want %d", i, srv.Port, 8001+i)
		}

		want := "10.0.0." + string(rune('1'+i))
		if srv.Address.Str != want {
			t.Errorf("server %d address: got %q, want %q", i, srv.Address.Str, want)
		}
	}
}

func TestUnroll_OuterVariableVisibleInNestedBody(t *testing.T) {
	res := compileConfig(t, `config demo {
  for i in [1..2] {
    backend "b${i}" {
      servers {
        for j in [1..2] {
          server "s${i}_${j}" { address: "10.0.${i}.${j}", port: 80 }
        }
      }
    }
  }
}`)

	be := findBackend(t, res.Config, "b2")
	if len(be.Servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(be.Servers))
	}

	srv := be.Servers[1].Server
	if srv.Name.Str != "s2_2" || srv.Address.Str != "10.0.2.2" {
		t.Errorf("nested loop scope: name %q address %q", srv.Name.Str, srv.Address.Str)
	}
}

func TestUnroll_LoopLocalLets(t *testing.T) {
	res := compileConfig(t, `config demo {
  for i in [1..2] {
    let offset = i * 100
    backend "b${i}" {
      servers {
        server s1 { address: "a", port: ${8000 + offset} }
      }
    }
  }
}`)

	for i, want := range []int64{8100, 8200} {
		be := findBackend(t, res.Config, "b"+string(rune('1'+i)))

		if port, _ := be.Servers[0].Server.Port.AsInt(); port != want {
			t.Errorf("iteration %d port: got %v, want %d", i+1, be.Servers[0].Server.Port, want)
		}
	}
}

func TestUnroll_IterationsAreIndependent(t *testing.T) {
	// Each iteration resolves against its own clone; a mutation visible in
	// one must not leak into another.
	res := compileConfig(t, `config demo {
  for i in [1..3] {
    backend "b${i}" {
      maxconn: ${i * 10}
      dispatch: "10.0.0.1:80"
    }
  }
}`)

	for i := range 3 {
		be := findBackend(t, res.Config, "b"+string(rune('1'+i)))

		if mc, _ := be.Maxconn.AsInt(); mc != int64((i+1)*10) {
			t.Errorf("backend %d maxconn: got %v, want %d", i+1, be.Maxconn, (i+1)*10)
		}
	}
}

func TestUnroll_ListFieldsAreIndependent(t *testing.T) {
	// Shallow clones can share a list's backing array; resolution must not
	// write one iteration's substitution into another's list.
	res := compileConfig(t, `config demo {
  backend api {
    servers {
      for i in [1..2] {
        server "s${i}" { address: "10.0.0.${i}", port: 443, sni: ["name${i}"] }
      }
    }
  }
}`)

	be := findBackend(t, res.Config, "api")
	if len(be.Servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(be.Servers))
	}

	for i, item := range be.Servers {
		srv := item.Server

		want := "name" + string(rune('1'+i))
		if len(srv.SNI.List) != 1 || srv.SNI.List[0].Str != want {
			t.Errorf("server %d sni: got %v, want [%q]", i+1, srv.SNI, want)
		}
	}
}

func TestUnroll_BoundsMustBeIntegers(t *testing.T) {
	_, err := Compile(context.Background(), `config demo {
  let hi = "three"
  for i in [1..${hi}] { backend "b${i}" {} }
}`)

	if err == nil {
		t.Fatal("expected a loop bounds error")
	}
}
