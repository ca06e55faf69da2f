package lang

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// resolver evaluates every pending expression in the IR against the
// injected environment. All expression semantics are delegated to
// expr-lang; this file only manages scope and converts results back into
// tagged values.
type resolver struct {
	environ map[string]string
}

// binding is one let-bound name. Evaluation is lazy: the source is
// compiled and run the first time the name is visible at a use site.
// Synthetic bindings (loop variables, captured loop scopes) carry a
// negative offset and are visible everywhere in their scope.
type binding struct {
	name string
	src  string
	pos  Position
	val  any
	done bool
}

// scope is one frame of the lexical chain: file, section, server, loop
// iteration. Visibility is positional: a binding applies at a use site
// only if it was declared earlier in the source.
type scope struct {
	parent *scope
	binds  []*binding
}

func newScope(parent *scope, lets []Let) *scope {
	sc := &scope{parent: parent}

	for _, l := range lets {
		sc.binds = append(sc.binds, &binding{name: l.Name, src: l.Src, pos: l.Pos})
	}

	return sc
}

// bind adds a pre-evaluated binding, used for loop variables and
// captured loop environments.
func (sc *scope) bind(name string, val any) {
	sc.binds = append(sc.binds, &binding{
		name: name,
		val:  val,
		done: true,
		pos:  Position{Offset: -1},
	})
}

// scopeFromEnv rebuilds a scope frame from a captured loop environment.
func scopeFromEnv(env map[string]any) *scope {
	sc := &scope{}

	for name, val := range env {
		sc.bind(name, val)
	}

	return sc
}

// flatten collects the bindings visible at pos into a fresh map, outer
// frames first so inner names shadow outer ones. Lazy bindings are forced
// on the way; a binding's own expression sees only bindings declared
// before it, so reference cycles cannot form.
func (r *resolver) flatten(sc *scope, pos Position) (map[string]any, error) {
	var (
		env map[string]any
		err error
	)

	if sc.parent != nil {
		env, err = r.flatten(sc.parent, pos)
		if err != nil {
			return nil, err
		}
	} else {
		env = make(map[string]any)
	}

	for _, b := range sc.binds {
		if b.pos.Offset >= 0 && b.pos.Offset >= pos.Offset {
			continue
		}

		if !b.done {
			val, err := r.eval(sc, b.src, b.pos)
			if err != nil {
				return nil, err
			}

			b.val = val
			b.done = true
		}

		env[b.name] = b.val
	}

	return env, nil
}

// eval compiles and runs one expression at the given use site.
func (r *resolver) eval(sc *scope, src string, pos Position) (any, error) {
	env, err := r.flatten(sc, pos)
	if err != nil {
		return nil, err
	}

	env["env"] = r.envFunc()

	program, err := expr.Compile(src, expr.Env(env))
	if err != nil {
		return nil, ErrExprCompile.Wrap(err).
			With(slog.String("source", src)).
			WithPosition(pos)
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return nil, ErrExprEvaluate.Wrap(err).
			With(slog.String("source", src)).
			WithPosition(pos)
	}

	return out, nil
}

// envFunc returns the built-in env() function. One argument fails hard on
// an unset variable; a second argument is the fallback.
func (r *resolver) envFunc() func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, ErrResolve.With(
				slog.String("reason", "env() takes one or two arguments"),
			)
		}

		name, ok := args[0].(string)
		if !ok {
			return nil, ErrResolve.With(
				slog.String("reason", "env() name must be a string"),
			)
		}

		if val, set := r.environ[name]; set {
			return val, nil
		}

		if len(args) == 2 {
			return args[1], nil
		}

		return nil, ErrEnvNotSet.With(slog.String("name", name))
	}
}

// value resolves a single tagged value. Whole-field expressions keep
// their native result type; interpolation segments splice textually.
func (r *resolver) value(v Value, sc *scope) (Value, error) {
	switch v.Kind {
	case KindExpr:
		out, err := r.eval(sc, v.Expr, v.Pos)
		if err != nil {
			return Value{}, err
		}

		return fromNative(out, v.Pos)

	case KindString:
		if v.Segs == nil {
			return v, nil
		}

		var text []byte

		for _, seg := range v.Segs {
			if !seg.IsExpr {
				text = append(text, seg.Lit...)

				continue
			}

			out, err := r.eval(sc, seg.Expr, v.Pos)
			if err != nil {
				return Value{}, err
			}

			spliced, err := splice(out, seg.Expr, v.Pos)
			if err != nil {
				return Value{}, err
			}

			text = append(text, spliced...)
		}

		return strValue(string(text), v.Pos), nil

	case KindList:
		// Resolve into a fresh slice. Shallow IR clones may share the
		// backing array, so writing in place would leak one loop
		// iteration's results into the next.
		elems := make([]Value, len(v.List))

		for i, e := range v.List {
			rv, err := r.value(e, sc)
			if err != nil {
				return Value{}, err
			}

			elems[i] = rv
		}

		v.List = elems

		return v, nil

	default:
		return v, nil
	}
}

// fromNative converts an expr-lang result into a tagged value.
func fromNative(out any, pos Position) (Value, error) {
	switch x := out.(type) {
	case int:
		return intValue(int64(x), pos), nil
	case int64:
		return intValue(x, pos), nil
	case float64:
		if x != math.Trunc(x) {
			return Value{}, ErrResolve.With(
				slog.String("reason", "expression yielded a non-integer number"),
				slog.String("value", strconv.FormatFloat(x, 'g', -1, 64)),
			).WithPosition(pos)
		}

		return intValue(int64(x), pos), nil
	case bool:
		return boolValue(x, pos), nil
	case string:
		return strValue(x, pos), nil
	case []any:
		elems := make([]Value, len(x))

		for i, e := range x {
			ev, err := fromNative(e, pos)
			if err != nil {
				return Value{}, err
			}

			elems[i] = ev
		}

		return listValue(elems, pos), nil
	default:
		return Value{}, ErrResolve.With(
			slog.String("reason", "unsupported expression result type"),
		).WithPosition(pos)
	}
}

// splice renders an expression result for insertion into a string.
func splice(out any, src string, pos Position) (string, error) {
	switch x := out.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", ErrResolve.With(
			slog.String("reason", "expression result cannot be interpolated"),
			slog.String("source", src),
		).WithPosition(pos)
	}
}

// ---------------------------------------------------------------------------
// IR walk
// ---------------------------------------------------------------------------

// resolveConfig resolves every reachable value in the IR. Loop bodies are
// left untouched: the unroller resolves each cloned iteration against the
// scope captured on the loop header here.
func (r *resolver) resolveConfig(cfg *Config) error {
	root := newScope(nil, cfg.Lets)

	if cfg.Global != nil {
		if err := r.resolveGlobal(cfg.Global, root); err != nil {
			return err
		}
	}

	if cfg.Defaults != nil {
		sc := newScope(root, cfg.Defaults.Lets)
		if err := r.resolveCommon(&cfg.Defaults.proxyCommon, sc); err != nil {
			return err
		}
	}

	for i := range cfg.Items {
		if err := r.resolveItem(&cfg.Items[i], root); err != nil {
			return err
		}
	}

	for _, tpl := range cfg.Templates {
		for key, v := range tpl.Props {
			rv, err := r.value(v, root)
			if err != nil {
				return err
			}

			tpl.Props[key] = rv
		}
	}

	for _, lua := range cfg.Lua {
		err := r.values(root, &lua.SourceType, &lua.Path, &lua.Content)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *resolver) resolveItem(item *TopItem, sc *scope) error {
	switch {
	case item.Loop != nil:
		return r.loopHeader(item.Loop, sc)

	case item.Frontend != nil:
		fe := item.Frontend
		fsc := newScope(sc, fe.Lets)

		if err := r.values(fsc, &fe.Name); err != nil {
			return err
		}

		if err := r.resolveCommon(&fe.proxyCommon, fsc); err != nil {
			return err
		}

		if err := r.resolveRules(&fe.ruleProps, fsc); err != nil {
			return err
		}

		return r.resolveFrontendProps(&fe.frontendProps, fsc)

	case item.Backend != nil:
		be := item.Backend
		bsc := newScope(sc, be.Lets)

		if err := r.values(bsc, &be.Name); err != nil {
			return err
		}

		if err := r.resolveCommon(&be.proxyCommon, bsc); err != nil {
			return err
		}

		if err := r.resolveRules(&be.ruleProps, bsc); err != nil {
			return err
		}

		return r.resolveBackendProps(&be.backendProps, bsc)

	case item.Listen != nil:
		li := item.Listen
		lsc := newScope(sc, li.Lets)

		if err := r.values(lsc, &li.Name); err != nil {
			return err
		}

		if err := r.resolveCommon(&li.proxyCommon, lsc); err != nil {
			return err
		}

		if err := r.resolveRules(&li.ruleProps, lsc); err != nil {
			return err
		}

		if err := r.resolveFrontendProps(&li.frontendProps, lsc); err != nil {
			return err
		}

		return r.resolveBackendProps(&li.backendProps, lsc)

	case item.Peers != nil:
		for _, p := range item.Peers.Entries {
			if err := r.values(sc, &p.Host, &p.Port); err != nil {
				return err
			}
		}

		return nil

	case item.Mailers != nil:
		ma := item.Mailers
		if err := r.values(sc, &ma.TimeoutMail); err != nil {
			return err
		}

		for _, m := range ma.Entries {
			if err := r.values(sc, &m.Host, &m.Port); err != nil {
				return err
			}
		}

		return nil

	default:
		return nil
	}
}

// loopHeader resolves the loop bounds to literal integers and captures
// the bindings visible at the loop site for per-iteration resolution.
func (r *resolver) loopHeader(loop *Loop[TopItem], sc *scope) error {
	return resolveLoopHeader(r, loop, sc)
}

func (r *resolver) serverLoopHeader(loop *Loop[ServerItem], sc *scope) error {
	return resolveLoopHeader(r, loop, sc)
}

func resolveLoopHeader[T any](r *resolver, loop *Loop[T], sc *scope) error {
	for _, bound := range []*Value{&loop.Lo, &loop.Hi} {
		rv, err := r.value(*bound, sc)
		if err != nil {
			return err
		}

		if rv.Kind != KindInt {
			return ErrLoopBounds.With(
				slog.String("loop", loop.Var),
				slog.String("got", rv.Kind.String()),
			).WithPosition(loop.Pos)
		}

		*bound = rv
	}

	env, err := r.flatten(sc, loop.Pos)
	if err != nil {
		return err
	}

	loop.env = env

	return nil
}

func (r *resolver) resolveCommon(c *proxyCommon, sc *scope) error {
	err := r.values(sc,
		&c.Mode, &c.Retries, &c.Maxconn, &c.RateLimitSessions,
		&c.Timeouts.Connect, &c.Timeouts.Client, &c.Timeouts.Server,
		&c.Timeouts.HTTPRequest, &c.Timeouts.HTTPKeepAlive,
		&c.Timeouts.Tunnel, &c.Timeouts.Tarpit,
		&c.Timeouts.Check, &c.Timeouts.Queue,
		&c.CliTCPKA.Cnt, &c.CliTCPKA.Idle, &c.CliTCPKA.Intvl,
		&c.SrvTCPKA.Cnt, &c.SrvTCPKA.Idle, &c.SrvTCPKA.Intvl,
		&c.ErrorLoc, &c.ErrorLoc302, &c.ErrorLoc303,
	)
	if err != nil {
		return err
	}

	return nil
}

func (r *resolver) resolveRules(rp *ruleProps, sc *scope) error {
	for _, a := range rp.ACLs {
		if err := r.values(sc, &a.Criterion); err != nil {
			return err
		}
	}

	if err := r.valueSlice(sc, rp.HTTPRequestRules); err != nil {
		return err
	}

	if err := r.valueSlice(sc, rp.TCPRequestRules); err != nil {
		return err
	}

	if err := r.valueSlice(sc, rp.TCPResponseRules); err != nil {
		return err
	}

	return r.values(sc, &rp.TCPRequestInspectDelay)
}

func (r *resolver) resolveFrontendProps(fp *frontendProps, sc *scope) error {
	for _, b := range fp.Binds {
		err := r.values(sc,
			&b.Address, &b.Port, &b.SSL, &b.Crt, &b.ALPN, &b.AcceptProxy)
		if err != nil {
			return err
		}
	}

	for _, c := range fp.Captures {
		if err := r.values(sc, &c.Direction, &c.Length); err != nil {
			return err
		}
	}

	return r.values(sc, &fp.DefaultBackend, &fp.MonitorURI)
}

func (r *resolver) resolveBackendProps(bp *backendProps, sc *scope) error {
	err := r.values(sc,
		&bp.Balance, &bp.HashType, &bp.HashBalanceFactor,
		&bp.HashPreserveAffinity, &bp.Dispatch, &bp.UseFCGIApp,
		&bp.ExternalCheck, &bp.ExternalCheckCommand, &bp.ExternalCheckPath,
		&bp.LoadServerStateFromFile,
	)
	if err != nil {
		return err
	}

	if st := bp.StickTable; st != nil {
		if err := r.values(sc, &st.Type, &st.Size, &st.Expire, &st.Store); err != nil {
			return err
		}
	}

	if err := r.valueSlice(sc, bp.StickOn); err != nil {
		return err
	}

	if cp := bp.Compression; cp != nil {
		if err := r.values(sc, &cp.Algo, &cp.Type); err != nil {
			return err
		}
	}

	if hc := bp.HealthCheck; hc != nil {
		if err := r.resolveHealthCheck(hc, sc); err != nil {
			return err
		}
	}

	if ds := bp.DefaultServer; ds != nil {
		if err := r.resolveServer(ds, sc); err != nil {
			return err
		}
	}

	for i := range bp.Servers {
		if err := r.resolveServerItem(&bp.Servers[i], sc); err != nil {
			return err
		}
	}

	return nil
}

func (r *resolver) resolveServerItem(item *ServerItem, sc *scope) error {
	if item.Loop != nil {
		return r.serverLoopHeader(item.Loop, sc)
	}

	return r.resolveServer(item.Server, sc)
}

func (r *resolver) resolveServer(srv *Server, sc *scope) error {
	ssc := newScope(sc, srv.Lets)

	err := r.values(ssc,
		&srv.Name, &srv.Address, &srv.Port,
		&srv.Check, &srv.Backup, &srv.SSL,
		&srv.SendProxy, &srv.SendProxyV2, &srv.Disabled,
		&srv.Rise, &srv.Fall, &srv.Weight,
		&srv.Minconn, &srv.Maxconn, &srv.Maxqueue,
		&srv.Inter, &srv.Slowstart,
		&srv.SNI, &srv.Cookie, &srv.ALPN,
	)
	if err != nil {
		return err
	}

	for key, v := range srv.Extra {
		rv, err := r.value(v, ssc)
		if err != nil {
			return err
		}

		srv.Extra[key] = rv
	}

	return nil
}

func (r *resolver) resolveHealthCheck(hc *HealthCheck, sc *scope) error {
	return r.values(sc,
		&hc.Method, &hc.URI, &hc.Version,
		&hc.ExpectStatus, &hc.ExpectString,
		&hc.Interval, &hc.Rise, &hc.Fall, &hc.Timeout,
	)
}

func (r *resolver) resolveGlobal(g *Global, sc *scope) error {
	err := r.values(sc,
		&g.Daemon, &g.User, &g.Group,
		&g.Maxconn, &g.Maxsslconn, &g.Nbthread, &g.UlimitN,
	)
	if err != nil {
		return err
	}

	for _, vals := range [][]Value{g.Log, g.LuaLoad, g.LuaLoadPerThread, g.LuaPrependPath} {
		if err := r.valueSlice(sc, vals); err != nil {
			return err
		}
	}

	for key, v := range g.TuneLua {
		rv, err := r.value(v, sc)
		if err != nil {
			return err
		}

		g.TuneLua[key] = rv
	}

	return nil
}

func (r *resolver) values(sc *scope, vals ...*Value) error {
	for _, v := range vals {
		rv, err := r.value(*v, sc)
		if err != nil {
			return err
		}

		*v = rv
	}

	return nil
}

func (r *resolver) valueSlice(sc *scope, vals []Value) error {
	for i := range vals {
		rv, err := r.value(vals[i], sc)
		if err != nil {
			return err
		}

		vals[i] = rv
	}

	return nil
}
