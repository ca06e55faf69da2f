package lang

import (
	"strings"
	"testing"
)

func TestExpand_TemplateMerge(t *testing.T) {
	res := compileConfig(t, `config demo {
  template web {
    mode: http
    maxconn: 1000
    retries: 2
  }

  backend api {
    @web
    maxconn: 500
    servers {
      server s1 { address: "10.0.0.1", port: 80 }
    }
  }
}`)

	be := findBackend(t, res.Config, "api")

	// Explicit value wins over the template.
	if mc, _ := be.Maxconn.AsInt(); mc != 500 {
		t.Errorf("maxconn: got %v, want 500", be.Maxconn)
	}

	// Unset properties fill in from the template.
	if be.Mode.Str != "http" {
		t.Errorf("mode: got %v", be.Mode)
	}

	if rt, _ := be.Retries.AsInt(); rt != 2 {
		t.Errorf("retries: got %v, want 2", be.Retries)
	}
}

func TestExpand_MultipleSpreadsInOrder(t *testing.T) {
	res := compileConfig(t, `config demo {
  template first { retries: 1, mode: http }
  template second { retries: 9, maxconn: 200 }

  backend api {
    @first
    @second
    servers {
      server s1 { address: "10.0.0.1", port: 80 }
    }
  }
}`)

	be := findBackend(t, res.Config, "api")

	// The first spread claims retries; the second never overwrites it.
	if rt, _ := be.Retries.AsInt(); rt != 1 {
		t.Errorf("retries: got %v, want 1", be.Retries)
	}

	// Properties untouched by the first spread still merge from the second.
	if mc, _ := be.Maxconn.AsInt(); mc != 200 {
		t.Errorf("maxconn: got %v, want 200", be.Maxconn)
	}

	if be.Mode.Str != "http" {
		t.Errorf("mode: got %v", be.Mode)
	}
}

func TestExpand_MissingTemplateWarns(t *testing.T) {
	res := compileConfig(t, `config demo {
  template websrv { mode: http }

  backend api {
    @wbsrv
    servers {
      server s1 { address: "10.0.0.1", port: 80 }
    }
  }
}`)

	var found *Warning

	for i, w := range res.Warnings {
		if w.Rule == "unknown-template" {
			found = &res.Warnings[i]
		}
	}

	if found == nil {
		t.Fatalf("expected an unknown-template warning, got %v", res.Warnings)
	}

	// The misspelled reference suggests the closest defined name.
	if want := "did you mean websrv"; !strings.Contains(found.Msg, want) {
		t.Errorf("warning %q missing suggestion %q", found.Msg, want)
	}
}

func TestExpand_ServerSpread(t *testing.T) {
	res := compileConfig(t, `config demo {
  template probe { check: true, rise: 3, fall: 2 }

  backend api {
    servers {
      server s1 { @probe
        address: "10.0.0.1", port: 80, rise: 5 }
    }
  }
}`)

	srv := findBackend(t, res.Config, "api").Servers[0].Server

	if !srv.Check.IsTrue() {
		t.Error("check not merged from template")
	}

	// Explicit rise wins; fall merges.
	if rise, _ := srv.Rise.AsInt(); rise != 5 {
		t.Errorf("rise: got %v, want 5", srv.Rise)
	}

	if fall, _ := srv.Fall.AsInt(); fall != 2 {
		t.Errorf("fall: got %v, want 2", srv.Fall)
	}
}

func TestExpand_BindSpread(t *testing.T) {
	res := compileConfig(t, `config demo {
  template tls { ssl: true, crt: "/etc/ssl/site.pem" }

  frontend www {
    bind { @tls
      address: "*", port: 443 }
  }
}`)

	fe := findFrontend(t, res.Config, "www")
	if len(fe.Binds) != 1 {
		t.Fatalf("got %d binds", len(fe.Binds))
	}

	bind := fe.Binds[0]
	if !bind.SSL.IsTrue() || bind.Crt.Str != "/etc/ssl/site.pem" {
		t.Errorf("bind template merge: ssl %v crt %v", bind.SSL, bind.Crt)
	}
}
