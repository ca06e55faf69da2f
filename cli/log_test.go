package cli

import "testing"

func TestLogConfig_Scan(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want logConfig
	}{
		{
			name: "level with separate value",
			args: []string{"--log-level", "debug"},
			want: logConfig{Level: "debug", Pretty: true},
		},
		{
			name: "format assigned",
			args: []string{"--log-format=json"},
			want: logConfig{Format: "json", Pretty: true},
		},
		{
			name: "negated pretty",
			args: []string{"--no-log-pretty"},
			want: logConfig{Pretty: false},
		},
		{
			name: "pretty assigned false",
			args: []string{"--log-pretty=false"},
			want: logConfig{Pretty: false},
		},
		{
			name: "bare caller flag",
			args: []string{"--log-caller"},
			want: logConfig{Caller: true, Pretty: true},
		},
		{
			name: "flags mixed with positionals",
			args: []string{"compile", "site.halc", "--log-level=warn", "-o", "out.cfg"},
			want: logConfig{Level: "warn", Pretty: true},
		},
		{
			name: "unrelated flags ignored",
			args: []string{"--output", "x", "--env", "K=V"},
			want: logConfig{Pretty: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Pretty defaults on; scan only turns it off when asked.
			f := logConfig{Pretty: true}
			f.scan(tt.args)

			if f.Level != tt.want.Level {
				t.Errorf("level: expected %q, got %q", tt.want.Level, f.Level)
			}

			if f.Format != tt.want.Format {
				t.Errorf("format: expected %q, got %q", tt.want.Format, f.Format)
			}

			if f.Pretty != tt.want.Pretty {
				t.Errorf("pretty: expected %v, got %v", tt.want.Pretty, f.Pretty)
			}

			if f.Caller != tt.want.Caller {
				t.Errorf("caller: expected %v, got %v", tt.want.Caller, f.Caller)
			}
		})
	}
}
