package lang

import (
	"sort"
	"strings"
)

// The code generator walks the validated IR and emits target-engine text.
// It is total over validated input: every branch renders something or
// nothing, never an error. Section order is fixed at global, defaults,
// then declaration order; each directive has its own serialization rule.

const indent = "    "

type renderer struct {
	sb strings.Builder
}

func renderConfig(cfg *Config) string {
	r := &renderer{}

	if cfg.Global != nil {
		r.renderGlobal(cfg.Global)
	}

	if cfg.Defaults != nil {
		r.header("defaults")
		r.common(&cfg.Defaults.proxyCommon)
	}

	for _, item := range cfg.Items {
		r.renderItem(item)
	}

	return r.sb.String()
}

// header starts a new section, separated from the previous one by a
// blank line.
func (r *renderer) header(words ...string) {
	if r.sb.Len() > 0 {
		r.sb.WriteString("\n")
	}

	r.sb.WriteString(strings.Join(words, " "))
	r.sb.WriteString("\n")
}

// line emits one indented directive line. Empty words are dropped so
// optional parts can be passed unconditionally.
func (r *renderer) line(words ...string) {
	out := words[:0:0]

	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}

	if len(out) == 0 {
		return
	}

	r.sb.WriteString(indent)
	r.sb.WriteString(strings.Join(out, " "))
	r.sb.WriteString("\n")
}

// opt emits `name value` when the value is set.
func (r *renderer) opt(name string, v Value) {
	if v.IsSet() {
		r.line(name, v.Param())
	}
}

// raw emits `name value` with the value verbatim, for rule text and other
// payloads already in engine syntax.
func (r *renderer) raw(name string, v Value) {
	if v.IsSet() {
		r.line(name, v.Text())
	}
}

// flag emits a bare directive for a true boolean and nothing otherwise.
func (r *renderer) flag(name string, v Value) {
	if v.IsTrue() {
		r.line(name)
	}
}

// hostPort joins an address and port into the engine's colon form.
func hostPort(addr, port Value) string {
	switch {
	case addr.IsSet() && port.IsSet():
		return addr.Text() + ":" + port.Text()
	case port.IsSet():
		return ":" + port.Text()
	default:
		return addr.Text()
	}
}

// ---------------------------------------------------------------------------
// global
// ---------------------------------------------------------------------------

func (r *renderer) renderGlobal(g *Global) {
	r.header("global")

	r.flag("daemon", g.Daemon)
	r.opt("user", g.User)
	r.opt("group", g.Group)
	r.opt("maxconn", g.Maxconn)
	r.opt("maxsslconn", g.Maxsslconn)
	r.opt("nbthread", g.Nbthread)
	r.opt("ulimit-n", g.UlimitN)

	for _, v := range g.Log {
		r.raw("log", v)
	}

	for _, v := range g.LuaPrependPath {
		r.opt("lua-prepend-path", v)
	}

	for _, v := range g.LuaLoad {
		r.opt("lua-load", v)
	}

	for _, v := range g.LuaLoadPerThread {
		r.opt("lua-load-per-thread", v)
	}

	keys := make([]string, 0, len(g.TuneLua))
	for k := range g.TuneLua {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		r.opt("tune.lua."+k, g.TuneLua[k])
	}
}

// ---------------------------------------------------------------------------
// proxy sections
// ---------------------------------------------------------------------------

func (r *renderer) renderItem(item TopItem) {
	switch {
	case item.Frontend != nil:
		fe := item.Frontend
		r.header("frontend", fe.Name.Text())
		r.renderBinds(fe.Binds)
		r.common(&fe.proxyCommon)
		r.renderFrontendProps(&fe.frontendProps)
		r.rules(&fe.ruleProps)

	case item.Backend != nil:
		be := item.Backend
		r.header("backend", be.Name.Text())
		r.common(&be.proxyCommon)
		r.rules(&be.ruleProps)
		r.renderBackendProps(&be.backendProps)

	case item.Listen != nil:
		li := item.Listen
		r.header("listen", li.Name.Text())
		r.renderBinds(li.Binds)
		r.common(&li.proxyCommon)
		r.renderFrontendProps(&li.frontendProps)
		r.rules(&li.ruleProps)
		r.renderBackendProps(&li.backendProps)

	case item.Peers != nil:
		pe := item.Peers
		r.header("peers", pe.Name)

		for _, p := range pe.Entries {
			r.line("peer", p.Name, hostPort(p.Host, p.Port))
		}

	case item.Mailers != nil:
		ma := item.Mailers
		r.header("mailers", ma.Name)

		if ma.TimeoutMail.IsSet() {
			r.line("timeout", "mail", ma.TimeoutMail.Text())
		}

		for _, m := range ma.Entries {
			r.line("mailer", m.Name, hostPort(m.Host, m.Port))
		}
	}
}

func (r *renderer) common(c *proxyCommon) {
	r.opt("mode", c.Mode)
	r.opt("retries", c.Retries)
	r.opt("maxconn", c.Maxconn)

	if c.RateLimitSessions.IsSet() {
		r.line("rate-limit", "sessions", c.RateLimitSessions.Text())
	}

	r.timeouts(&c.Timeouts)
	r.keepalive("clitcpka", &c.CliTCPKA)
	r.keepalive("srvtcpka", &c.SrvTCPKA)

	r.errorloc("errorloc", c.ErrorLoc)
	r.errorloc("errorloc302", c.ErrorLoc302)
	r.errorloc("errorloc303", c.ErrorLoc303)
}

// timeouts emits the DSL's underscore keys as the engine's two-word,
// hyphenated spellings.
func (r *renderer) timeouts(t *Timeouts) {
	emit := func(name string, v Value) {
		if v.IsSet() {
			r.line("timeout", name, v.Text())
		}
	}

	emit("connect", t.Connect)
	emit("client", t.Client)
	emit("server", t.Server)
	emit("http-request", t.HTTPRequest)
	emit("http-keep-alive", t.HTTPKeepAlive)
	emit("tunnel", t.Tunnel)
	emit("tarpit", t.Tarpit)
	emit("check", t.Check)
	emit("queue", t.Queue)
}

func (r *renderer) keepalive(prefix string, k *TCPKeepalive) {
	r.opt(prefix+"-cnt", k.Cnt)
	r.opt(prefix+"-idle", k.Idle)
	r.opt(prefix+"-intvl", k.Intvl)
}

// errorloc renders the [code, url] pair.
func (r *renderer) errorloc(name string, v Value) {
	if v.Kind != KindList || len(v.List) != 2 {
		return
	}

	r.line(name, v.List[0].Text(), v.List[1].Param())
}

func (r *renderer) renderBinds(binds []*Bind) {
	for _, b := range binds {
		words := []string{"bind", hostPort(b.Address, b.Port)}

		if b.SSL.IsTrue() {
			words = append(words, "ssl")
		}

		if b.Crt.IsSet() {
			words = append(words, "crt", b.Crt.Param())
		}

		if b.ALPN.IsSet() {
			words = append(words, "alpn", b.ALPN.Text())
		}

		if b.AcceptProxy.IsTrue() {
			words = append(words, "accept-proxy")
		}

		r.line(words...)
	}
}

func (r *renderer) renderFrontendProps(f *frontendProps) {
	r.opt("monitor-uri", f.MonitorURI)

	for _, c := range f.Captures {
		// Both parts are required; a capture without a length is not a
		// valid directive.
		if c.Direction.IsSet() && c.Length.IsSet() {
			r.line("declare", "capture", c.Direction.Text(), "len", c.Length.Text())
		}
	}

	r.opt("default_backend", f.DefaultBackend)
}

func (r *renderer) rules(rp *ruleProps) {
	for _, a := range rp.ACLs {
		r.line("acl", a.Name, a.Criterion.Text())
	}

	if rp.TCPRequestInspectDelay.IsSet() {
		r.line("tcp-request", "inspect-delay", rp.TCPRequestInspectDelay.Text())
	}

	for _, v := range rp.TCPRequestRules {
		r.raw("tcp-request", v)
	}

	for _, v := range rp.HTTPRequestRules {
		r.raw("http-request", v)
	}

	for _, v := range rp.TCPResponseRules {
		r.raw("tcp-response", v)
	}
}

func (r *renderer) renderBackendProps(bp *backendProps) {
	r.opt("balance", bp.Balance)
	r.opt("hash-type", bp.HashType)
	r.opt("hash-balance-factor", bp.HashBalanceFactor)
	r.opt("hash-preserve-affinity", bp.HashPreserveAffinity)

	if bp.ExternalCheck.IsTrue() {
		r.line("option", "external-check")
	}

	if bp.ExternalCheckCommand.IsSet() {
		r.line("external-check", "command", bp.ExternalCheckCommand.Param())
	}

	if bp.ExternalCheckPath.IsSet() {
		r.line("external-check", "path", bp.ExternalCheckPath.Param())
	}

	r.opt("load-server-state-from-file", bp.LoadServerStateFromFile)

	if st := bp.StickTable; st != nil {
		r.renderStickTable(st)
	}

	for _, v := range bp.StickOn {
		r.line("stick", "on", v.Text())
	}

	if cp := bp.Compression; cp != nil {
		r.opt("compression algo", cp.Algo)

		if cp.Type.IsSet() {
			r.line("compression", "type", listJoin(cp.Type, " "))
		}
	}

	if hc := bp.HealthCheck; hc != nil {
		r.renderHealthCheck(hc)
	}

	r.raw("dispatch", bp.Dispatch)
	r.opt("use-fcgi-app", bp.UseFCGIApp)

	r.renderDefaultServer(bp.DefaultServer, bp.HealthCheck)

	for _, item := range bp.Servers {
		if item.Server != nil {
			r.renderServer(item.Server)
		}
	}
}

func (r *renderer) renderStickTable(st *StickTable) {
	words := []string{"stick-table"}

	if st.Type.IsSet() {
		words = append(words, "type", st.Type.Text())
	}

	if st.Size.IsSet() {
		words = append(words, "size", st.Size.Text())
	}

	if st.Expire.IsSet() {
		words = append(words, "expire", st.Expire.Text())
	}

	if st.Store.IsSet() {
		words = append(words, "store", listJoin(st.Store, ","))
	}

	r.line(words...)
}

// renderHealthCheck emits the httpchk option family. Probe timing fields
// land on the default-server line.
func (r *renderer) renderHealthCheck(hc *HealthCheck) {
	if hc.Method.IsSet() || hc.URI.IsSet() {
		r.line("option", "httpchk",
			hc.Method.Text(), hc.URI.Text(), hc.Version.Text())
	}

	if hc.ExpectStatus.IsSet() {
		r.line("http-check", "expect", "status", hc.ExpectStatus.Text())
	}

	if hc.ExpectString.IsSet() {
		r.line("http-check", "expect", "string", hc.ExpectString.Param())
	}

	if hc.Timeout.IsSet() {
		r.line("timeout", "check", hc.Timeout.Text())
	}
}

// renderDefaultServer merges the explicit default-server options with the
// health check's probe timing. Explicit options win.
func (r *renderer) renderDefaultServer(ds *Server, hc *HealthCheck) {
	var words []string

	if ds != nil {
		words = serverOptions(ds)
	}

	if hc != nil {
		if hc.Interval.IsSet() && (ds == nil || !ds.Inter.IsSet()) {
			words = append(words, "inter", hc.Interval.Text())
		}

		if hc.Rise.IsSet() && (ds == nil || !ds.Rise.IsSet()) {
			words = append(words, "rise", hc.Rise.Text())
		}

		if hc.Fall.IsSet() && (ds == nil || !ds.Fall.IsSet()) {
			words = append(words, "fall", hc.Fall.Text())
		}
	}

	if len(words) > 0 {
		r.line(append([]string{"default-server"}, words...)...)
	}
}

func (r *renderer) renderServer(srv *Server) {
	words := []string{"server", srv.Name.Text(), hostPort(srv.Address, srv.Port)}
	words = append(words, serverOptions(srv)...)

	r.line(words...)
}

// serverOptions renders a server's option words in canonical order, with
// the open-ended extras last in sorted order.
func serverOptions(srv *Server) []string {
	var words []string

	flag := func(name string, v Value) {
		if v.IsTrue() {
			words = append(words, name)
		}
	}
	kv := func(name string, v Value) {
		if v.IsSet() {
			words = append(words, name, v.Param())
		}
	}

	flag("check", srv.Check)
	flag("backup", srv.Backup)
	flag("disabled", srv.Disabled)
	flag("ssl", srv.SSL)
	kv("sni", srv.SNI)

	if srv.ALPN.IsSet() {
		words = append(words, "alpn", srv.ALPN.Text())
	}

	flag("send-proxy", srv.SendProxy)
	flag("send-proxy-v2", srv.SendProxyV2)
	kv("cookie", srv.Cookie)
	kv("weight", srv.Weight)
	kv("minconn", srv.Minconn)
	kv("maxconn", srv.Maxconn)
	kv("maxqueue", srv.Maxqueue)
	kv("rise", srv.Rise)
	kv("fall", srv.Fall)
	kv("inter", srv.Inter)
	kv("slowstart", srv.Slowstart)

	keys := make([]string, 0, len(srv.Extra))
	for k := range srv.Extra {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		v := srv.Extra[k]
		name := strings.ReplaceAll(k, "_", "-")

		if v.Kind == KindBool {
			flag(name, v)

			continue
		}

		kv(name, v)
	}

	return words
}

// listJoin joins a list value with the given separator, falling back to
// plain text for scalar values.
func listJoin(v Value, sep string) string {
	if v.Kind != KindList {
		return v.Text()
	}

	parts := make([]string, len(v.List))
	for i, e := range v.List {
		parts[i] = e.Text()
	}

	return strings.Join(parts, sep)
}
