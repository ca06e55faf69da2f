package lang

import (
	"errors"
	"log/slog"
	"strings"
)

// errUnknownProp is returned by applyProp when a key names no field of the
// target. The builder turns it into a fatal [ErrBuild]; the template
// expander treats it as "this template key does not apply here".
var errUnknownProp = errors.New("unknown property")

// propTarget is anything a template spread can merge into.
type propTarget interface {
	applyProp(key string, v Value) error
	isSet(key string) bool
}

// normalizeKey maps DSL spellings onto IR property names. Keys may be
// written with hyphens or underscores interchangeably; the IR stores the
// underscore form.
func normalizeKey(key string) string {
	return strings.ReplaceAll(key, "-", "_")
}

// buildConfig translates the syntax tree into the typed IR. Pure
// structural translation: values are carried over literal or unresolved,
// never evaluated. Malformed directive shapes are fatal here; semantic
// checks wait for the validator.
func buildConfig(f *File) (*Config, error) {
	cfg := &Config{
		Name:      f.Name,
		Templates: make(map[string]*Template),
		Pos:       f.Pos,
	}

	b := &builder{cfg: cfg}

	for _, stmt := range f.Body.Stmts {
		if err := b.topStmt(stmt); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

type builder struct {
	cfg *Config
}

func (b *builder) topStmt(stmt Stmt) error {
	switch s := stmt.(type) {
	case *Let:
		b.cfg.Lets = append(b.cfg.Lets, *s)

		return nil

	case *For:
		loop, err := b.topLoop(s)
		if err != nil {
			return err
		}

		b.cfg.Items = append(b.cfg.Items, TopItem{Loop: loop})

		return nil

	case *Directive:
		return b.topDirective(s)

	default:
		return ErrBuild.With(
			slog.String("reason", "statement not allowed at top level"),
		).WithPosition(stmt.Position())
	}
}

func (b *builder) topDirective(d *Directive) error {
	switch normalizeKey(d.Key) {
	case "global":
		if b.cfg.Global != nil {
			return ErrDuplicateSection.With(
				slog.String("section", "global"),
			).WithPosition(d.Pos)
		}

		g, err := b.buildGlobal(d)
		if err != nil {
			return err
		}

		b.cfg.Global = g

		return nil

	case "defaults":
		if b.cfg.Defaults != nil {
			return ErrDuplicateSection.With(
				slog.String("section", "defaults"),
			).WithPosition(d.Pos)
		}

		df, err := b.buildDefaults(d)
		if err != nil {
			return err
		}

		b.cfg.Defaults = df

		return nil

	case "template":
		return b.buildTemplate(d)

	case "lua":
		lua, err := b.buildLua(d)
		if err != nil {
			return err
		}

		b.cfg.Lua = append(b.cfg.Lua, lua)

		return nil

	default:
		item, err := b.sectionItem(d)
		if err != nil {
			return err
		}

		b.cfg.Items = append(b.cfg.Items, item)

		return nil
	}
}

// sectionItem builds one frontend/backend/listen/peers/mailers entry.
func (b *builder) sectionItem(d *Directive) (TopItem, error) {
	switch normalizeKey(d.Key) {
	case "frontend":
		fe, err := b.buildFrontend(d)
		if err != nil {
			return TopItem{}, err
		}

		return TopItem{Frontend: fe}, nil

	case "backend":
		be, err := b.buildBackend(d)
		if err != nil {
			return TopItem{}, err
		}

		return TopItem{Backend: be}, nil

	case "listen":
		li, err := b.buildListen(d)
		if err != nil {
			return TopItem{}, err
		}

		return TopItem{Listen: li}, nil

	case "peers":
		pe, err := b.buildPeers(d)
		if err != nil {
			return TopItem{}, err
		}

		return TopItem{Peers: pe}, nil

	case "mailers":
		ma, err := b.buildMailers(d)
		if err != nil {
			return TopItem{}, err
		}

		return TopItem{Mailers: ma}, nil

	default:
		return TopItem{}, ErrBuild.With(
			slog.String("directive", d.Key),
			slog.String("reason", "unknown directive"),
		).WithPosition(d.Pos)
	}
}

// topLoop builds a `for` at the root: its body may contain the same
// section kinds as the root list, plus lets and nested loops.
func (b *builder) topLoop(f *For) (*Loop[TopItem], error) {
	loop := &Loop[TopItem]{Var: f.Var, Lo: f.Lo, Hi: f.Hi, Pos: f.Pos}

	for _, stmt := range f.Body.Stmts {
		switch s := stmt.(type) {
		case *Let:
			loop.Lets = append(loop.Lets, *s)

		case *For:
			inner, err := b.topLoop(s)
			if err != nil {
				return nil, err
			}

			loop.Body = append(loop.Body, TopItem{Loop: inner})

		case *Directive:
			item, err := b.sectionItem(s)
			if err != nil {
				return nil, err
			}

			loop.Body = append(loop.Body, item)

		default:
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in loop body"),
			).WithPosition(stmt.Position())
		}
	}

	return loop, nil
}

// ---------------------------------------------------------------------------
// global
// ---------------------------------------------------------------------------

func (b *builder) buildGlobal(d *Directive) (*Global, error) {
	if d.Block == nil {
		return nil, directiveErr(d, "expected block")
	}

	g := &Global{Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		switch s := stmt.(type) {
		case *Let:
			b.cfg.Lets = append(b.cfg.Lets, *s)

		case *Directive:
			v, err := directiveValue(s)
			if err != nil {
				return nil, err
			}

			if err := g.applyProp(s.Key, v); err != nil {
				return nil, propErr(s, err)
			}

		default:
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in global"),
			).WithPosition(stmt.Position())
		}
	}

	return g, nil
}

func (g *Global) applyProp(key string, v Value) error {
	if suffix, ok := strings.CutPrefix(key, "tune.lua."); ok {
		if g.TuneLua == nil {
			g.TuneLua = make(map[string]Value)
		}

		g.TuneLua[suffix] = v
		markSet(&g.set, key)

		return nil
	}

	key = normalizeKey(key)

	switch key {
	case "daemon":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		g.Daemon = v
	case "user":
		g.User = v
	case "group":
		g.Group = v
	case "maxconn":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		g.Maxconn = v
	case "maxsslconn":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		g.Maxsslconn = v
	case "nbthread":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		g.Nbthread = v
	case "ulimit_n":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		g.UlimitN = v
	case "log":
		g.Log = append(g.Log, v)
	case "lua_load":
		g.LuaLoad = append(g.LuaLoad, v)
	case "lua_load_per_thread":
		g.LuaLoadPerThread = append(g.LuaLoadPerThread, v)
	case "lua_prepend_path":
		g.LuaPrependPath = append(g.LuaPrependPath, v)
	default:
		return errUnknownProp
	}

	markSet(&g.set, key)

	return nil
}

func (g *Global) isSet(key string) bool { return g.set[normalizeKey(key)] }

// ---------------------------------------------------------------------------
// proxy sections
// ---------------------------------------------------------------------------

func (b *builder) buildDefaults(d *Directive) (*Defaults, error) {
	if d.Block == nil {
		return nil, directiveErr(d, "expected block")
	}

	df := &Defaults{Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		handled, err := b.commonStmt(stmt, &df.proxyCommon, df)
		if err != nil {
			return nil, err
		}

		if !handled {
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in defaults"),
			).WithPosition(stmt.Position())
		}
	}

	return df, nil
}

func (b *builder) buildFrontend(d *Directive) (*Frontend, error) {
	name, err := sectionName(d)
	if err != nil {
		return nil, err
	}

	fe := &Frontend{Name: name, Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		handled, err := b.commonStmt(stmt, &fe.proxyCommon, fe)
		if err != nil {
			return nil, err
		}

		if handled {
			continue
		}

		s := stmt.(*Directive)
		if handled, err = b.frontendStmt(s, &fe.ruleProps, &fe.frontendProps); err != nil {
			return nil, err
		} else if handled {
			continue
		}

		return nil, unknownDirective(s)
	}

	return fe, nil
}

func (b *builder) buildBackend(d *Directive) (*Backend, error) {
	name, err := sectionName(d)
	if err != nil {
		return nil, err
	}

	be := &Backend{Name: name, Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		handled, err := b.commonStmt(stmt, &be.proxyCommon, be)
		if err != nil {
			return nil, err
		}

		if handled {
			continue
		}

		s := stmt.(*Directive)
		if handled, err = b.backendStmt(s, &be.ruleProps, &be.backendProps, &be.proxyCommon); err != nil {
			return nil, err
		} else if handled {
			continue
		}

		return nil, unknownDirective(s)
	}

	return be, nil
}

func (b *builder) buildListen(d *Directive) (*Listen, error) {
	name, err := sectionName(d)
	if err != nil {
		return nil, err
	}

	li := &Listen{Name: name, Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		handled, err := b.commonStmt(stmt, &li.proxyCommon, li)
		if err != nil {
			return nil, err
		}

		if handled {
			continue
		}

		s := stmt.(*Directive)
		if handled, err = b.frontendStmt(s, &li.ruleProps, &li.frontendProps); err != nil {
			return nil, err
		} else if handled {
			continue
		}

		if handled, err = b.backendStmt(s, &li.ruleProps, &li.backendProps, &li.proxyCommon); err != nil {
			return nil, err
		} else if handled {
			continue
		}

		return nil, unknownDirective(s)
	}

	return li, nil
}

// commonStmt handles the statement forms every proxy section shares:
// lets, spreads, the timeout sub-block, and simple key/value properties
// applied through the section's propTarget. A false return with nil error
// means the statement is a directive the caller should try its own
// narrower handlers on.
func (b *builder) commonStmt(stmt Stmt, c *proxyCommon, target propTarget) (bool, error) {
	switch s := stmt.(type) {
	case *Let:
		c.Lets = append(c.Lets, *s)

		return true, nil

	case *Spread:
		c.spreads = append(c.spreads, spreadRef{Name: s.Name, Pos: s.Pos})

		return true, nil

	case *For:
		return false, ErrBuild.With(
			slog.String("reason", "loops are allowed only at top level and in servers blocks"),
		).WithPosition(s.Pos)

	case *Directive:
		if normalizeKey(s.Key) == "timeout" && s.Block != nil {
			return true, b.timeoutBlock(s, &c.Timeouts, c)
		}

		if s.Block != nil || s.Spread != "" || len(s.Args) > 0 {
			return false, nil
		}

		v, err := directiveValue(s)
		if err != nil {
			return false, err
		}

		err = target.applyProp(s.Key, v)
		if errors.Is(err, errUnknownProp) {
			return false, nil
		}

		if err != nil {
			return false, propErr(s, err)
		}

		return true, nil

	default:
		return false, nil
	}
}

// timeoutBlock fills the Timeouts record from a `timeout { ... }` block.
// The same keys are also reachable as flat `timeout_*` properties.
func (b *builder) timeoutBlock(d *Directive, t *Timeouts, c *proxyCommon) error {
	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok {
			return ErrBuild.With(
				slog.String("reason", "statement not allowed in timeout block"),
			).WithPosition(stmt.Position())
		}

		v, err := directiveValue(s)
		if err != nil {
			return err
		}

		key := normalizeKey(s.Key)
		if !setTimeout(t, key, v) {
			return ErrBuild.With(
				slog.String("directive", s.Key),
				slog.String("reason", "unknown timeout"),
			).WithPosition(s.Pos)
		}

		if err := checkKind(key, v, KindDuration, KindInt); err != nil {
			return propErr(s, err)
		}

		markSet(&c.set, "timeout_"+key)
	}

	return nil
}

func setTimeout(t *Timeouts, key string, v Value) bool {
	switch key {
	case "connect":
		t.Connect = v
	case "client":
		t.Client = v
	case "server":
		t.Server = v
	case "http_request":
		t.HTTPRequest = v
	case "http_keep_alive":
		t.HTTPKeepAlive = v
	case "tunnel":
		t.Tunnel = v
	case "tarpit":
		t.Tarpit = v
	case "check":
		t.Check = v
	case "queue":
		t.Queue = v
	default:
		return false
	}

	return true
}

func (c *proxyCommon) applyCommon(key string, v Value) (bool, error) {
	if suffix, ok := strings.CutPrefix(key, "timeout_"); ok {
		if setTimeout(&c.Timeouts, suffix, v) {
			if err := checkKind(key, v, KindDuration, KindInt); err != nil {
				return true, err
			}

			markSet(&c.set, key)

			return true, nil
		}

		return false, nil
	}

	if ka, rest, ok := cutKeepalive(key); ok {
		switch rest {
		case "cnt":
			if err := checkKind(key, v, KindInt); err != nil {
				return true, err
			}

			ka(c).Cnt = v
		case "idle":
			if err := checkKind(key, v, KindDuration, KindInt); err != nil {
				return true, err
			}

			ka(c).Idle = v
		case "intvl":
			if err := checkKind(key, v, KindDuration, KindInt); err != nil {
				return true, err
			}

			ka(c).Intvl = v
		default:
			return false, nil
		}

		markSet(&c.set, key)

		return true, nil
	}

	switch key {
	case "mode":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		c.Mode = v
	case "retries":
		if err := checkKind(key, v, KindInt); err != nil {
			return true, err
		}

		c.Retries = v
	case "maxconn":
		if err := checkKind(key, v, KindInt); err != nil {
			return true, err
		}

		c.Maxconn = v
	case "rate_limit_sessions":
		if err := checkKind(key, v, KindInt); err != nil {
			return true, err
		}

		c.RateLimitSessions = v
	case "errorloc":
		if err := checkKind(key, v, KindList); err != nil {
			return true, err
		}

		c.ErrorLoc = v
	case "errorloc302":
		if err := checkKind(key, v, KindList); err != nil {
			return true, err
		}

		c.ErrorLoc302 = v
	case "errorloc303":
		if err := checkKind(key, v, KindList); err != nil {
			return true, err
		}

		c.ErrorLoc303 = v
	default:
		return false, nil
	}

	markSet(&c.set, key)

	return true, nil
}

// cutKeepalive splits clitcpka_*/srvtcpka_* keys into the target triple
// and the parameter suffix.
func cutKeepalive(key string) (func(*proxyCommon) *TCPKeepalive, string, bool) {
	if rest, ok := strings.CutPrefix(key, "clitcpka_"); ok {
		return func(c *proxyCommon) *TCPKeepalive { return &c.CliTCPKA }, rest, true
	}

	if rest, ok := strings.CutPrefix(key, "srvtcpka_"); ok {
		return func(c *proxyCommon) *TCPKeepalive { return &c.SrvTCPKA }, rest, true
	}

	return nil, "", false
}

func (f *frontendProps) applyFrontend(key string, v Value) (bool, error) {
	switch key {
	case "default_backend":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		f.DefaultBackend = v
	case "monitor_uri":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		f.MonitorURI = v
	default:
		return false, nil
	}

	return true, nil
}

func (p *backendProps) applyBackend(key string, v Value) (bool, error) {
	switch key {
	case "balance":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		p.Balance = v
	case "hash_type":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		p.HashType = v
	case "hash_balance_factor":
		if err := checkKind(key, v, KindInt); err != nil {
			return true, err
		}

		p.HashBalanceFactor = v
	case "hash_preserve_affinity":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		p.HashPreserveAffinity = v
	case "dispatch":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		p.Dispatch = v
	case "use_fcgi_app":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		p.UseFCGIApp = v
	case "external_check":
		if err := checkKind(key, v, KindBool); err != nil {
			return true, err
		}

		p.ExternalCheck = v
	case "external_check_command":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		p.ExternalCheckCommand = v
	case "external_check_path":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		p.ExternalCheckPath = v
	case "load_server_state_from_file":
		if err := checkKind(key, v, KindString); err != nil {
			return true, err
		}

		p.LoadServerStateFromFile = v
	case "stick_on":
		p.StickOn = append(p.StickOn, v)
	default:
		return false, nil
	}

	return true, nil
}

func (fe *Frontend) applyProp(key string, v Value) error {
	return applySection(key, v, &fe.proxyCommon,
		fe.frontendProps.applyFrontend)
}

func (be *Backend) applyProp(key string, v Value) error {
	return applySection(key, v, &be.proxyCommon,
		be.backendProps.applyBackend)
}

func (li *Listen) applyProp(key string, v Value) error {
	return applySection(key, v, &li.proxyCommon,
		li.frontendProps.applyFrontend, li.backendProps.applyBackend)
}

func (df *Defaults) applyProp(key string, v Value) error {
	return applySection(key, v, &df.proxyCommon)
}

func applySection(key string, v Value, c *proxyCommon,
	extra ...func(string, Value) (bool, error),
) error {
	key = normalizeKey(key)

	handled, err := c.applyCommon(key, v)
	if handled || err != nil {
		return err
	}

	for _, apply := range extra {
		handled, err = apply(key, v)
		if err != nil {
			return err
		}

		if handled {
			markSet(&c.set, key)

			return nil
		}
	}

	return errUnknownProp
}

func (fe *Frontend) isSet(key string) bool { return fe.set[normalizeKey(key)] }
func (be *Backend) isSet(key string) bool  { return be.set[normalizeKey(key)] }
func (li *Listen) isSet(key string) bool   { return li.set[normalizeKey(key)] }
func (df *Defaults) isSet(key string) bool { return df.set[normalizeKey(key)] }

// frontendStmt handles the directive forms specific to client-facing
// sections: binds, captures, and the rule chains.
func (b *builder) frontendStmt(d *Directive, r *ruleProps, f *frontendProps) (bool, error) {
	switch normalizeKey(d.Key) {
	case "bind":
		bind, err := b.buildBind(d)
		if err != nil {
			return false, err
		}

		f.Binds = append(f.Binds, bind)

		return true, nil

	case "capture":
		cpt, err := b.buildCapture(d)
		if err != nil {
			return false, err
		}

		f.Captures = append(f.Captures, cpt)

		return true, nil

	default:
		return b.ruleStmt(d, r)
	}
}

// backendStmt handles the directive forms specific to server-facing
// sections.
func (b *builder) backendStmt(d *Directive, r *ruleProps, p *backendProps, c *proxyCommon) (bool, error) {
	switch normalizeKey(d.Key) {
	case "servers":
		if d.Block == nil {
			return false, directiveErr(d, "expected block")
		}

		items, err := b.buildServers(d.Block, c)
		if err != nil {
			return false, err
		}

		p.Servers = append(p.Servers, items...)

		return true, nil

	case "default_server":
		if d.Block == nil {
			return false, directiveErr(d, "expected block")
		}

		srv := &Server{Pos: d.Pos}
		if err := b.serverBody(d.Block, srv); err != nil {
			return false, err
		}

		p.DefaultServer = srv

		return true, nil

	case "health_check":
		hc, err := b.buildHealthCheck(d)
		if err != nil {
			return false, err
		}

		p.HealthCheck = hc

		return true, nil

	case "stick_table":
		st, err := b.buildStickTable(d)
		if err != nil {
			return false, err
		}

		p.StickTable = st

		return true, nil

	case "compression":
		cp, err := b.buildCompression(d)
		if err != nil {
			return false, err
		}

		p.Compression = cp

		return true, nil

	default:
		return b.ruleStmt(d, r)
	}
}

// ruleStmt handles ACL declarations and the raw rule chains shared by
// frontend, backend, and listen sections.
func (b *builder) ruleStmt(d *Directive, r *ruleProps) (bool, error) {
	switch normalizeKey(d.Key) {
	case "acl":
		if len(d.Args) != 2 {
			return false, directiveErr(d, "expected acl <name> <criterion>")
		}

		name, ok := literalString(d.Args[0])
		if !ok {
			return false, directiveErr(d, "acl name must be a plain string")
		}

		r.ACLs = append(r.ACLs, &ACL{
			Name:      name,
			Criterion: d.Args[1],
			Pos:       d.Pos,
		})

		return true, nil

	case "http_request":
		if d.Val == nil {
			return false, directiveErr(d, "expected rule text")
		}

		r.HTTPRequestRules = append(r.HTTPRequestRules, *d.Val)

		return true, nil

	case "tcp_request":
		return true, b.ruleChain(d, &r.TCPRequestRules, &r.TCPRequestInspectDelay)

	case "tcp_response":
		return true, b.ruleChain(d, &r.TCPResponseRules, nil)

	default:
		return false, nil
	}
}

// ruleChain accepts both the flat `tcp_request: "rule"` form and the
// block form with repeated rule entries and an optional inspect delay.
func (b *builder) ruleChain(d *Directive, rules *[]Value, delay *Value) error {
	if d.Val != nil {
		*rules = append(*rules, *d.Val)

		return nil
	}

	if d.Block == nil {
		return directiveErr(d, "expected rule text or block")
	}

	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok || s.Val == nil {
			return ErrBuild.With(
				slog.String("reason", "expected rule: or inspect_delay: entries"),
			).WithPosition(stmt.Position())
		}

		switch normalizeKey(s.Key) {
		case "rule":
			*rules = append(*rules, *s.Val)
		case "inspect_delay":
			if delay == nil {
				return directiveErr(s, "inspect_delay is not valid here")
			}

			if err := checkKind("inspect_delay", *s.Val, KindDuration, KindInt); err != nil {
				return propErr(s, err)
			}

			*delay = *s.Val
		default:
			return unknownDirective(s)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// bind / capture / stick-table / compression / health-check
// ---------------------------------------------------------------------------

func (b *builder) buildBind(d *Directive) (*Bind, error) {
	if d.Block == nil {
		return nil, directiveErr(d, "expected block")
	}

	bind := &Bind{Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		switch s := stmt.(type) {
		case *Spread:
			bind.spreads = append(bind.spreads, spreadRef{Name: s.Name, Pos: s.Pos})

		case *Directive:
			v, err := directiveValue(s)
			if err != nil {
				return nil, err
			}

			if err := bind.applyProp(s.Key, v); err != nil {
				return nil, propErr(s, err)
			}

		default:
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in bind"),
			).WithPosition(stmt.Position())
		}
	}

	return bind, nil
}

func (bn *Bind) applyProp(key string, v Value) error {
	key = normalizeKey(key)

	switch key {
	case "address":
		if err := checkKind(key, v, KindString); err != nil {
			return err
		}

		bn.Address = v
	case "port":
		if err := checkKind(key, v, KindInt, KindString); err != nil {
			return err
		}

		bn.Port = v
	case "ssl":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		bn.SSL = v
	case "crt":
		if err := checkKind(key, v, KindString); err != nil {
			return err
		}

		bn.Crt = v
	case "alpn":
		if err := checkKind(key, v, KindList, KindString); err != nil {
			return err
		}

		bn.ALPN = v
	case "accept_proxy":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		bn.AcceptProxy = v
	default:
		return errUnknownProp
	}

	markSet(&bn.set, key)

	return nil
}

func (bn *Bind) isSet(key string) bool { return bn.set[normalizeKey(key)] }

func (b *builder) buildCapture(d *Directive) (*Capture, error) {
	if d.Block == nil {
		return nil, directiveErr(d, "expected block")
	}

	cpt := &Capture{Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok {
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in capture"),
			).WithPosition(stmt.Position())
		}

		v, err := directiveValue(s)
		if err != nil {
			return nil, err
		}

		switch key := normalizeKey(s.Key); key {
		case "direction":
			if err := checkKind(key, v, KindString); err != nil {
				return nil, propErr(s, err)
			}

			cpt.Direction = v
		case "length":
			if err := checkKind(key, v, KindInt); err != nil {
				return nil, propErr(s, err)
			}

			cpt.Length = v
		default:
			return nil, unknownDirective(s)
		}
	}

	return cpt, nil
}

func (b *builder) buildStickTable(d *Directive) (*StickTable, error) {
	if d.Block == nil {
		return nil, directiveErr(d, "expected block")
	}

	st := &StickTable{Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok {
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in stick_table"),
			).WithPosition(stmt.Position())
		}

		v, err := directiveValue(s)
		if err != nil {
			return nil, err
		}

		switch key := normalizeKey(s.Key); key {
		case "type":
			st.Type = v
		case "size":
			if err := checkKind(key, v, KindInt, KindString); err != nil {
				return nil, propErr(s, err)
			}

			st.Size = v
		case "expire":
			if err := checkKind(key, v, KindDuration, KindInt); err != nil {
				return nil, propErr(s, err)
			}

			st.Expire = v
		case "store":
			if err := checkKind(key, v, KindList, KindString); err != nil {
				return nil, propErr(s, err)
			}

			st.Store = v
		default:
			return nil, unknownDirective(s)
		}
	}

	return st, nil
}

func (b *builder) buildCompression(d *Directive) (*Compression, error) {
	if d.Block == nil {
		return nil, directiveErr(d, "expected block")
	}

	cp := &Compression{Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok {
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in compression"),
			).WithPosition(stmt.Position())
		}

		v, err := directiveValue(s)
		if err != nil {
			return nil, err
		}

		switch normalizeKey(s.Key) {
		case "algo":
			cp.Algo = v
		case "type":
			cp.Type = v
		default:
			return nil, unknownDirective(s)
		}
	}

	return cp, nil
}

// buildHealthCheck accepts the block form and the `health_check @name`
// spread shorthand, which is equivalent to a block containing only the
// spread.
func (b *builder) buildHealthCheck(d *Directive) (*HealthCheck, error) {
	hc := &HealthCheck{Pos: d.Pos}

	if d.Spread != "" {
		hc.spreads = append(hc.spreads, spreadRef{Name: d.Spread, Pos: d.Pos})

		return hc, nil
	}

	if d.Block == nil {
		return nil, directiveErr(d, "expected block or @template")
	}

	for _, stmt := range d.Block.Stmts {
		switch s := stmt.(type) {
		case *Spread:
			hc.spreads = append(hc.spreads, spreadRef{Name: s.Name, Pos: s.Pos})

		case *Directive:
			v, err := directiveValue(s)
			if err != nil {
				return nil, err
			}

			if err := hc.applyProp(s.Key, v); err != nil {
				return nil, propErr(s, err)
			}

		default:
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in health_check"),
			).WithPosition(stmt.Position())
		}
	}

	return hc, nil
}

func (hc *HealthCheck) applyProp(key string, v Value) error {
	key = normalizeKey(key)

	switch key {
	case "method":
		if err := checkKind(key, v, KindString); err != nil {
			return err
		}

		hc.Method = v
	case "uri":
		if err := checkKind(key, v, KindString); err != nil {
			return err
		}

		hc.URI = v
	case "version":
		if err := checkKind(key, v, KindString); err != nil {
			return err
		}

		hc.Version = v
	case "expect_status":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		hc.ExpectStatus = v
	case "expect_string":
		if err := checkKind(key, v, KindString); err != nil {
			return err
		}

		hc.ExpectString = v
	case "interval":
		if err := checkKind(key, v, KindDuration, KindInt); err != nil {
			return err
		}

		hc.Interval = v
	case "rise":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		hc.Rise = v
	case "fall":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		hc.Fall = v
	case "timeout":
		if err := checkKind(key, v, KindDuration, KindInt); err != nil {
			return err
		}

		hc.Timeout = v
	default:
		return errUnknownProp
	}

	markSet(&hc.set, key)

	return nil
}

func (hc *HealthCheck) isSet(key string) bool { return hc.set[normalizeKey(key)] }

// ---------------------------------------------------------------------------
// servers
// ---------------------------------------------------------------------------

// buildServers walks a servers block. Entries are server declarations and
// `for` loops; lets declared here land on the owning section so they are
// visible to every following server.
func (b *builder) buildServers(blk *Block, c *proxyCommon) ([]ServerItem, error) {
	var items []ServerItem

	for _, stmt := range blk.Stmts {
		switch s := stmt.(type) {
		case *Let:
			c.Lets = append(c.Lets, *s)

		case *For:
			loop, err := b.serverLoop(s)
			if err != nil {
				return nil, err
			}

			items = append(items, ServerItem{Loop: loop})

		case *Directive:
			if normalizeKey(s.Key) != "server" {
				return nil, unknownDirective(s)
			}

			srv, err := b.buildServer(s)
			if err != nil {
				return nil, err
			}

			items = append(items, ServerItem{Server: srv})

		default:
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in servers"),
			).WithPosition(stmt.Position())
		}
	}

	return items, nil
}

func (b *builder) serverLoop(f *For) (*Loop[ServerItem], error) {
	loop := &Loop[ServerItem]{Var: f.Var, Lo: f.Lo, Hi: f.Hi, Pos: f.Pos}

	for _, stmt := range f.Body.Stmts {
		switch s := stmt.(type) {
		case *Let:
			loop.Lets = append(loop.Lets, *s)

		case *For:
			inner, err := b.serverLoop(s)
			if err != nil {
				return nil, err
			}

			loop.Body = append(loop.Body, ServerItem{Loop: inner})

		case *Directive:
			if normalizeKey(s.Key) != "server" {
				return nil, unknownDirective(s)
			}

			srv, err := b.buildServer(s)
			if err != nil {
				return nil, err
			}

			loop.Body = append(loop.Body, ServerItem{Server: srv})

		default:
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in loop body"),
			).WithPosition(stmt.Position())
		}
	}

	return loop, nil
}

func (b *builder) buildServer(d *Directive) (*Server, error) {
	name, err := sectionName(d)
	if err != nil {
		return nil, err
	}

	srv := &Server{Name: name, Pos: d.Pos}
	if err := b.serverBody(d.Block, srv); err != nil {
		return nil, err
	}

	return srv, nil
}

func (b *builder) serverBody(blk *Block, srv *Server) error {
	for _, stmt := range blk.Stmts {
		switch s := stmt.(type) {
		case *Let:
			srv.Lets = append(srv.Lets, *s)

		case *Spread:
			srv.spreads = append(srv.spreads, spreadRef{Name: s.Name, Pos: s.Pos})

		case *Directive:
			v, err := directiveValue(s)
			if err != nil {
				return err
			}

			if err := srv.applyProp(s.Key, v); err != nil {
				return propErr(s, err)
			}

		default:
			return ErrBuild.With(
				slog.String("reason", "statement not allowed in server"),
			).WithPosition(stmt.Position())
		}
	}

	return nil
}

// applyProp on Server never reports an unknown key: anything outside the
// first-class field set passes through the Extra map verbatim.
func (srv *Server) applyProp(key string, v Value) error {
	key = normalizeKey(key)

	switch key {
	case "address":
		if err := checkKind(key, v, KindString); err != nil {
			return err
		}

		srv.Address = v
	case "port":
		if err := checkKind(key, v, KindInt, KindString); err != nil {
			return err
		}

		srv.Port = v
	case "check":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		srv.Check = v
	case "backup":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		srv.Backup = v
	case "ssl":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		srv.SSL = v
	case "send_proxy":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		srv.SendProxy = v
	case "send_proxy_v2":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		srv.SendProxyV2 = v
	case "disabled":
		if err := checkKind(key, v, KindBool); err != nil {
			return err
		}

		srv.Disabled = v
	case "rise":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		srv.Rise = v
	case "fall":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		srv.Fall = v
	case "weight":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		srv.Weight = v
	case "minconn":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		srv.Minconn = v
	case "maxconn":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		srv.Maxconn = v
	case "maxqueue":
		if err := checkKind(key, v, KindInt); err != nil {
			return err
		}

		srv.Maxqueue = v
	case "inter":
		if err := checkKind(key, v, KindDuration, KindInt); err != nil {
			return err
		}

		srv.Inter = v
	case "slowstart":
		if err := checkKind(key, v, KindDuration, KindInt); err != nil {
			return err
		}

		srv.Slowstart = v
	case "sni":
		srv.SNI = v
	case "cookie":
		srv.Cookie = v
	case "alpn":
		if err := checkKind(key, v, KindList, KindString); err != nil {
			return err
		}

		srv.ALPN = v
	default:
		if srv.Extra == nil {
			srv.Extra = make(map[string]Value)
		}

		srv.Extra[key] = v
	}

	markSet(&srv.set, key)

	return nil
}

func (srv *Server) isSet(key string) bool { return srv.set[normalizeKey(key)] }

// ---------------------------------------------------------------------------
// peers / mailers
// ---------------------------------------------------------------------------

func (b *builder) buildPeers(d *Directive) (*Peers, error) {
	name, err := literalSectionName(d)
	if err != nil {
		return nil, err
	}

	pe := &Peers{Name: name, Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok || normalizeKey(s.Key) != "peer" {
			return nil, ErrBuild.With(
				slog.String("reason", "expected peer <name> <host> <port>"),
			).WithPosition(stmt.Position())
		}

		if len(s.Args) != 3 {
			return nil, directiveErr(s, "expected peer <name> <host> <port>")
		}

		pname, ok := literalString(s.Args[0])
		if !ok {
			return nil, directiveErr(s, "peer name must be a plain string")
		}

		pe.Entries = append(pe.Entries, &Peer{
			Name: pname,
			Host: s.Args[1],
			Port: s.Args[2],
			Pos:  s.Pos,
		})
	}

	return pe, nil
}

func (b *builder) buildMailers(d *Directive) (*Mailers, error) {
	name, err := literalSectionName(d)
	if err != nil {
		return nil, err
	}

	ma := &Mailers{Name: name, Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok {
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in mailers"),
			).WithPosition(stmt.Position())
		}

		switch normalizeKey(s.Key) {
		case "timeout_mail":
			v, err := directiveValue(s)
			if err != nil {
				return nil, err
			}

			if err := checkKind("timeout_mail", v, KindDuration, KindInt); err != nil {
				return nil, propErr(s, err)
			}

			ma.TimeoutMail = v

		case "mailer":
			if len(s.Args) != 3 {
				return nil, directiveErr(s, "expected mailer <name> <host> <port>")
			}

			mname, ok := literalString(s.Args[0])
			if !ok {
				return nil, directiveErr(s, "mailer name must be a plain string")
			}

			ma.Entries = append(ma.Entries, &Mailer{
				Name: mname,
				Host: s.Args[1],
				Port: s.Args[2],
				Pos:  s.Pos,
			})

		default:
			return nil, unknownDirective(s)
		}
	}

	return ma, nil
}

// ---------------------------------------------------------------------------
// templates / lua
// ---------------------------------------------------------------------------

func (b *builder) buildTemplate(d *Directive) error {
	name, err := literalSectionName(d)
	if err != nil {
		return err
	}

	if _, exists := b.cfg.Templates[name]; exists {
		return ErrDuplicateSection.With(
			slog.String("template", name),
		).WithPosition(d.Pos)
	}

	tpl := &Template{
		Name:  name,
		Props: make(map[string]Value),
		Pos:   d.Pos,
	}

	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok {
			return ErrBuild.With(
				slog.String("reason", "templates hold only key/value properties"),
			).WithPosition(stmt.Position())
		}

		v, err := directiveValue(s)
		if err != nil {
			return err
		}

		key := normalizeKey(s.Key)
		if _, dup := tpl.Props[key]; dup {
			return ErrBuild.With(
				slog.String("template", name),
				slog.String("property", key),
				slog.String("reason", "duplicate template property"),
			).WithPosition(s.Pos)
		}

		tpl.Keys = append(tpl.Keys, key)
		tpl.Props[key] = v
	}

	b.cfg.Templates[name] = tpl

	return nil
}

func (b *builder) buildLua(d *Directive) (*LuaScript, error) {
	name, err := literalSectionName(d)
	if err != nil {
		return nil, err
	}

	lua := &LuaScript{Name: name, Pos: d.Pos}

	for _, stmt := range d.Block.Stmts {
		s, ok := stmt.(*Directive)
		if !ok {
			return nil, ErrBuild.With(
				slog.String("reason", "statement not allowed in lua"),
			).WithPosition(stmt.Position())
		}

		v, err := directiveValue(s)
		if err != nil {
			return nil, err
		}

		switch key := normalizeKey(s.Key); key {
		case "source_type":
			if err := checkKind(key, v, KindString); err != nil {
				return nil, propErr(s, err)
			}

			lua.SourceType = v
		case "path":
			if err := checkKind(key, v, KindString); err != nil {
				return nil, propErr(s, err)
			}

			lua.Path = v
		case "content":
			if err := checkKind(key, v, KindString); err != nil {
				return nil, propErr(s, err)
			}

			lua.Content = v
		default:
			return nil, unknownDirective(s)
		}
	}

	return lua, nil
}

// ---------------------------------------------------------------------------
// shared helpers
// ---------------------------------------------------------------------------

// directiveValue extracts the value of a key/value directive. A bare
// directive with no value, arguments, or block is boolean true, so flags
// read naturally: `daemon` alone enables the daemon.
func directiveValue(d *Directive) (Value, error) {
	if d.Val != nil {
		return *d.Val, nil
	}

	if len(d.Args) == 0 && d.Block == nil && d.Spread == "" {
		return boolValue(true, d.Pos), nil
	}

	return Value{}, directiveErr(d, "expected key: value")
}

// sectionName extracts the single name argument of a named block
// directive. Names may be interpolated so loop bodies can generate them.
func sectionName(d *Directive) (Value, error) {
	if len(d.Args) != 1 || d.Block == nil {
		return Value{}, directiveErr(d, "expected "+d.Key+" <name> { ... }")
	}

	name := d.Args[0]
	if name.Kind != KindString && name.Kind != KindExpr {
		return Value{}, directiveErr(d, d.Key+" name must be a string")
	}

	return name, nil
}

// literalSectionName is sectionName restricted to plain strings, for
// constructs that name compile-time entities (templates, peers, mailers,
// lua scripts) and therefore cannot be loop-generated.
func literalSectionName(d *Directive) (string, error) {
	name, err := sectionName(d)
	if err != nil {
		return "", err
	}

	s, ok := literalString(name)
	if !ok {
		return "", directiveErr(d, d.Key+" name must be a plain string")
	}

	return s, nil
}

func literalString(v Value) (string, bool) {
	if v.Kind != KindString || v.Segs != nil {
		return "", false
	}

	return v.Str, true
}

// checkKind verifies a literal value's type. Unresolved values pass
// unchecked: expression results are not re-checked after resolution, so a
// kind mismatch there shows up in the rendered output.
func checkKind(key string, v Value, want ...Kind) error {
	if !v.Resolved() || v.Kind == KindExpr {
		return nil
	}

	for _, k := range want {
		if v.Kind == k {
			return nil
		}
	}

	wants := make([]string, len(want))
	for i, k := range want {
		wants[i] = k.String()
	}

	return ErrBuild.With(
		slog.String("property", key),
		slog.String("want", strings.Join(wants, " or ")),
		slog.String("got", v.Kind.String()),
	).WithPosition(v.Pos)
}

func markSet(set *map[string]bool, key string) {
	if *set == nil {
		*set = make(map[string]bool)
	}

	(*set)[key] = true
}

func directiveErr(d *Directive, reason string) error {
	return ErrBuild.With(
		slog.String("directive", d.Key),
		slog.String("reason", reason),
	).WithPosition(d.Pos)
}

func propErr(d *Directive, err error) error {
	if errors.Is(err, errUnknownProp) {
		return unknownDirective(d)
	}

	return err
}

func unknownDirective(d *Directive) error {
	return ErrBuild.With(
		slog.String("directive", d.Key),
		slog.String("reason", "unknown directive"),
	).WithPosition(d.Pos)
}
