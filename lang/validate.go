package lang

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// The validator runs a catalogue of independent rules over the fully
// transformed IR. Rules never suppress one another: warnings accumulate,
// and every structural violation is reported before compilation aborts.

type validator struct {
	cfg      *Config
	warnings []Warning
	errs     []error
}

func validateConfig(cfg *Config) ([]Warning, error) {
	v := &validator{cfg: cfg}

	v.checkSectionNames()
	v.checkSections()
	v.checkSpreads()

	return v.warnings, errors.Join(v.errs...)
}

func (v *validator) warn(rule, msg string, pos Position) {
	v.warnings = append(v.warnings, Warning{Rule: rule, Msg: msg, Pos: pos})
}

func (v *validator) fatal(err error) {
	v.errs = append(v.errs, err)
}

// sectionName returns the literal name of a section, reporting a fatal
// error if resolution left it non-literal. Unresolved names here mean a
// transform pass failed its contract.
func (v *validator) sectionName(kind string, name Value) string {
	if name.Kind != KindString || !name.Resolved() {
		v.fatal(ErrUnresolvedValue.With(
			slog.String("section", kind),
			slog.String("value", name.Text()),
		).WithPosition(name.Pos))

		return name.Text()
	}

	return name.Str
}

func (v *validator) checkSectionNames() {
	seen := make(map[string]map[string]bool)

	claim := func(kind, name string, pos Position) {
		ns := seen[kind]
		if ns == nil {
			ns = make(map[string]bool)
			seen[kind] = ns
		}

		if ns[name] {
			v.fatal(ErrValidate.With(
				slog.String("section", kind),
				slog.String("name", name),
				slog.String("reason", "duplicate section name"),
			).WithPosition(pos))

			return
		}

		ns[name] = true
	}

	for _, item := range v.cfg.Items {
		switch {
		case item.Frontend != nil:
			claim("frontend", v.sectionName("frontend", item.Frontend.Name), item.Frontend.Pos)
		case item.Backend != nil:
			claim("backend", v.sectionName("backend", item.Backend.Name), item.Backend.Pos)
		case item.Listen != nil:
			claim("listen", v.sectionName("listen", item.Listen.Name), item.Listen.Pos)
		case item.Peers != nil:
			claim("peers", item.Peers.Name, item.Peers.Pos)
		case item.Mailers != nil:
			claim("mailers", item.Mailers.Name, item.Mailers.Pos)
		case item.Loop != nil:
			v.fatal(ErrValidate.With(
				slog.String("reason", "loop survived unrolling"),
			).WithPosition(item.Loop.Pos))
		}
	}
}

func (v *validator) checkSections() {
	for _, item := range v.cfg.Items {
		switch {
		case item.Frontend != nil:
			fe := item.Frontend
			v.checkMode(&fe.proxyCommon, &fe.ruleProps, fe.Pos)

		case item.Backend != nil:
			be := item.Backend
			v.checkMode(&be.proxyCommon, &be.ruleProps, be.Pos)
			v.checkBackendProps(&be.backendProps, be.Pos)

		case item.Listen != nil:
			li := item.Listen
			v.checkMode(&li.proxyCommon, &li.ruleProps, li.Pos)
			v.checkBackendProps(&li.backendProps, li.Pos)

		case item.Peers != nil:
			v.checkPeerNames(item.Peers)

		case item.Mailers != nil:
			v.checkMailerNames(item.Mailers)
		}
	}
}

// checkMode flags options that only make sense for the other transport
// mode. These configurations usually load, so they warn instead of fail.
func (v *validator) checkMode(c *proxyCommon, r *ruleProps, pos Position) {
	mode := ""
	if c.Mode.Kind == KindString {
		mode = c.Mode.Str
	}

	switch mode {
	case "http":
		for _, key := range slices.Sorted(maps.Keys(c.set)) {
			if strings.HasPrefix(key, "clitcpka_") || strings.HasPrefix(key, "srvtcpka_") {
				v.warn("tcp-option-in-http-mode",
					"TCP keepalive option "+key+" has no effect in http mode", pos)
			}
		}

	case "tcp":
		if len(r.HTTPRequestRules) > 0 {
			v.warn("http-rule-in-tcp-mode",
				"http_request rules have no effect in tcp mode", pos)
		}

		if c.Timeouts.HTTPRequest.IsSet() || c.Timeouts.HTTPKeepAlive.IsSet() {
			v.warn("http-rule-in-tcp-mode",
				"HTTP timeouts have no effect in tcp mode", pos)
		}
	}
}

func (v *validator) checkBackendProps(bp *backendProps, pos Position) {
	if len(bp.Servers) == 0 && !bp.Dispatch.IsSet() {
		v.warn("empty-backend",
			"section has neither servers nor a dispatch target", pos)
	}

	// Both dispatch and balance/servers render as written; the engine
	// arbitrates between them.
	if bp.Dispatch.IsSet() && bp.Balance.IsSet() && len(bp.Servers) == 0 {
		v.warn("balance-with-dispatch",
			"balance has no effect with only a dispatch target", pos)
	}

	if hc := bp.HealthCheck; hc != nil {
		if hc.Method.IsSet() && !hc.URI.IsSet() {
			v.warn("incomplete-health-check",
				"health check sets a method but no uri", hc.Pos)
		}
	}

	names := make(map[string]bool)

	for _, item := range bp.Servers {
		srv := item.Server
		if srv == nil {
			continue
		}

		name := v.sectionName("server", srv.Name)
		if names[name] {
			v.fatal(ErrValidate.With(
				slog.String("server", name),
				slog.String("reason", "duplicate server name"),
			).WithPosition(srv.Pos))
		}

		names[name] = true

		if w, ok := srv.Weight.AsInt(); ok && (w < 0 || w > 256) {
			v.warn("weight-range",
				"server "+name+" weight must be between 0 and 256", srv.Weight.Pos)
		}

		if !srv.Address.IsSet() {
			v.fatal(ErrValidate.With(
				slog.String("server", name),
				slog.String("reason", "server has no address"),
			).WithPosition(srv.Pos))
		}

		// A port is a non-negative integer or a symbolic string carried
		// through verbatim; a resolved negative integer cannot form an
		// address.
		if p, ok := srv.Port.AsInt(); ok && p < 0 {
			v.fatal(ErrValidate.With(
				slog.String("server", name),
				slog.Int64("port", p),
				slog.String("reason", "server port must not be negative"),
			).WithPosition(srv.Port.Pos))
		}
	}
}

func (v *validator) checkPeerNames(pe *Peers) {
	names := make(map[string]bool)

	for _, p := range pe.Entries {
		if names[p.Name] {
			v.fatal(ErrValidate.With(
				slog.String("peer", p.Name),
				slog.String("reason", "duplicate peer name"),
			).WithPosition(p.Pos))
		}

		names[p.Name] = true
	}
}

func (v *validator) checkMailerNames(ma *Mailers) {
	names := make(map[string]bool)

	for _, m := range ma.Entries {
		if names[m.Name] {
			v.fatal(ErrValidate.With(
				slog.String("mailer", m.Name),
				slog.String("reason", "duplicate mailer name"),
			).WithPosition(m.Pos))
		}

		names[m.Name] = true
	}
}

// checkSpreads reports every reference to a template that was never
// defined, suggesting the closest defined name.
func (v *validator) checkSpreads() {
	var defined []string
	for name := range v.cfg.Templates {
		defined = append(defined, name)
	}

	for _, ref := range v.cfg.missingSpreads {
		msg := "template " + ref.Name + " is not defined"

		if m := fuzzy.Find(ref.Name, defined); len(m) > 0 {
			msg += " (did you mean " + m[0].Str + "?)"
		}

		v.warn("unknown-template", msg, ref.Pos)
	}
}
