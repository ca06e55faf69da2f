package lang

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var irDiffOpts = []cmp.Option{
	cmpopts.IgnoreTypes(Position{}),
	cmpopts.IgnoreUnexported(Server{}),
	cmpopts.IgnoreFields(Server{}, "Lets"),
}

func TestBuild_Timeouts(t *testing.T) {
	res := compileConfig(t, `config demo {
  defaults {
    timeout_connect: 5s
    timeout_client: 30s
    timeout_server: 30s
    timeout_http_request: 10s
    timeout_check: 2s
  }
}`)

	want := Timeouts{
		Connect:     durValue("5s", Position{}),
		Client:      durValue("30s", Position{}),
		Server:      durValue("30s", Position{}),
		HTTPRequest: durValue("10s", Position{}),
		Check:       durValue("2s", Position{}),
	}

	got := res.Config.Defaults.Timeouts
	if diff := cmp.Diff(want, got, irDiffOpts...); diff != "" {
		t.Errorf("timeouts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ServerFields(t *testing.T) {
	res := compileConfig(t, `config demo {
  backend api {
    servers {
      server s1 {
        address: "10.0.0.1"
        port: 8080
        check: true
        backup: false
        weight: 50
        rise: 3
        fall: 2
        inter: 3s
        cookie: c1
        custom_opt: v
      }
    }
  }
}`)

	be := findBackend(t, res.Config, "api")
	if len(be.Servers) != 1 || be.Servers[0].Server == nil {
		t.Fatalf("expected one server, got %+v", be.Servers)
	}

	want := &Server{
		Name:    strValue("s1", Position{}),
		Address: strValue("10.0.0.1", Position{}),
		Port:    intValue(8080, Position{}),
		Check:   boolValue(true, Position{}),
		Backup:  boolValue(false, Position{}),
		Weight:  intValue(50, Position{}),
		Rise:    intValue(3, Position{}),
		Fall:    intValue(2, Position{}),
		Inter:   durValue("3s", Position{}),
		Cookie:  strValue("c1", Position{}),
		Extra: map[string]Value{
			"custom_opt": strValue("v", Position{}),
		},
	}

	got := be.Servers[0].Server
	if diff := cmp.Diff(want, got, irDiffOpts...); diff != "" {
		t.Errorf("server mismatch (-want +got):\n%s", diff)
	}
}
