package lang

import (
	"strings"
	"testing"
)

func TestRender_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "basic backend",
			src: `config demo {
  backend api {
    balance: roundrobin
    servers {
      server s1 { address: "10.0.0.1", port: 8080, check: true, rise: 3, fall: 2 }
    }
  }
}`,
			want: `backend api
    balance roundrobin
    server s1 10.0.0.1:8080 check rise 3 fall 2
`,
		},
		{
			name: "global and defaults",
			src: `config demo {
  global {
    daemon: true
    maxconn: 2048
    nbthread: 4
  }

  defaults {
    mode: http
    retries: 3
    timeout_connect: 5s
    timeout_client: 30s
  }
}`,
			want: `global
    daemon
    maxconn 2048
    nbthread 4

defaults
    mode http
    retries 3
    timeout connect 5s
    timeout client 30s
`,
		},
		{
			name: "frontend with tls bind",
			src: `config demo {
  frontend www {
    bind { address: "*", port: 80 }
    bind { address: "*", port: 443, ssl: true, crt: "/etc/ssl/site.pem", alpn: [h2, http11] }
    default_backend: api
  }
}`,
			want: `frontend www
    bind *:80
    bind *:443 ssl crt /etc/ssl/site.pem alpn h2,http11
    default_backend api
`,
		},
		{
			name: "tcp rules",
			src: `config demo {
  frontend tcp_in {
    bind { address: "*", port: 5000 }
    mode: tcp
    acl internal "src 10.0.0.0/8"
    tcp_request {
      inspect_delay: 5s
      rule: "content accept if internal"
    }
  }
}`,
			want: `frontend tcp_in
    bind *:5000
    mode tcp
    acl internal src 10.0.0.0/8
    tcp-request inspect-delay 5s
    tcp-request content accept if internal
`,
		},
		{
			name: "health check folds into default-server",
			src: `config demo {
  backend api {
    balance: leastconn
    health_check {
      method: GET
      uri: "/healthz"
      interval: 3s
      rise: 2
      fall: 3
    }
    servers {
      server s1 { address: "10.0.0.1", port: 80, check: true }
    }
  }
}`,
			want: `backend api
    balance leastconn
    option httpchk GET /healthz
    default-server inter 3s rise 2 fall 3
    server s1 10.0.0.1:80 check
`,
		},
		{
			name: "peers and mailers",
			src: `config demo {
  peers cluster {
    peer node1 "10.0.0.1" 1024
    peer node2 "10.0.0.2" 1024
  }

  mailers alerts {
    timeout_mail: 20s
    mailer smtp1 "192.168.0.1" 25
  }
}`,
			want: `peers cluster
    peer node1 10.0.0.1:1024
    peer node2 10.0.0.2:1024

mailers alerts
    timeout mail 20s
    mailer smtp1 192.168.0.1:25
`,
		},
		{
			name: "listen with stick table",
			src: `config demo {
  listen stats {
    bind { address: "*", port: 9000 }
    mode: http
    stick_table {
      type: ip
      size: "100k"
      expire: 30s
    }
  }
}`,
			want: `listen stats
    bind *:9000
    mode http
    stick-table type ip size 100k expire 30s
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compileConfig(t, tt.src)

			got := Render(res.Config)
			if got != tt.want {
				t.Errorf("rendered output mismatch:\n--- got ---\n%s--- want ---\n%s", got, tt.want)
			}
		})
	}
}

func TestRender_QuotesWhitespaceParams(t *testing.T) {
	res := compileConfig(t, `config demo {
  backend api {
    external_check_command: "/usr/bin/check --fast"
    servers {
      server s1 { address: "10.0.0.1", port: 80 }
    }
  }
}`)

	got := Render(res.Config)

	want := `    external-check command "/usr/bin/check --fast"` + "\n"
	if !containsLine(got, want) {
		t.Errorf("command not quoted:\n%s", got)
	}
}

func TestRender_CaptureWithoutLengthIsDropped(t *testing.T) {
	res := compileConfig(t, `config demo {
  frontend www {
    capture { direction: "request" }
    capture { direction: "response", length: 64 }
    default_backend: api
  }
  backend api { dispatch: "10.0.0.1:80" }
}`)

	got := Render(res.Config)

	if !containsLine(got, "    declare capture response len 64\n") {
		t.Errorf("complete capture missing:\n%s", got)
	}

	if strings.Contains(got, "declare capture request") {
		t.Errorf("capture without a length must not render:\n%s", got)
	}
}

func containsLine(haystack, line string) bool {
	for len(haystack) > 0 {
		i := 0

		for i < len(haystack) && haystack[i] != '\n' {
			i++
		}

		if i < len(haystack) {
			i++
		}

		if haystack[:i] == line {
			return true
		}

		haystack = haystack[i:]
	}

	return false
}
