package lang

import "maps"

// Config is the root of the typed intermediate representation. It is
// constructed once per compilation, mutated in place by each pass, and
// handed read-only to the code generator. Nothing in it outlives a single
// [Compile] call.
type Config struct {
	Name      string
	Global    *Global
	Defaults  *Defaults
	Items     []TopItem // frontends/backends/listens/peers/mailers, declaration order
	Templates map[string]*Template
	Lua       []*LuaScript

	Lets []Let // top-level bindings, declaration order

	// missing spread targets recorded by the expander for the validator
	missingSpreads []spreadRef

	Pos Position
}

// TopItem is one entry of the root section list. Exactly one field is
// non-nil. Loop entries exist only between the build and unroll passes.
type TopItem struct {
	Frontend *Frontend
	Backend  *Backend
	Listen   *Listen
	Peers    *Peers
	Mailers  *Mailers
	Loop     *Loop[TopItem]
}

// Loop is a pending `for var in [lo..hi]` construct. Bounds are literal
// integers after the resolve pass; env snapshots the bindings visible at
// the loop site so each unrolled iteration resolves against the same
// scope the loop body saw in source.
type Loop[T any] struct {
	Var  string
	Lo   Value
	Hi   Value
	Body []T
	Lets []Let
	Pos  Position

	env map[string]any
}

type spreadRef struct {
	Name string
	Pos  Position
}

// Template is a named bag of default properties applied via @name spread.
// It is never rendered itself, only merged into consumers. Keys preserves
// declaration order so multi-property merges are deterministic.
type Template struct {
	Name  string
	Keys  []string
	Props map[string]Value
	Pos   Position
}

// Global carries process-level engine tuning.
type Global struct {
	Daemon     Value
	User       Value
	Group      Value
	Maxconn    Value
	Maxsslconn Value
	Nbthread   Value
	UlimitN    Value

	Log []Value

	LuaLoad          []Value
	LuaLoadPerThread []Value
	LuaPrependPath   []Value
	TuneLua          map[string]Value // key suffix after "tune.lua."

	set map[string]bool
	Pos Position
}

// Timeouts groups the per-section timeout knobs. DSL keys use
// underscores; the renderer emits the engine's hyphenated spellings.
type Timeouts struct {
	Connect       Value
	Client        Value
	Server        Value
	HTTPRequest   Value
	HTTPKeepAlive Value
	Tunnel        Value
	Tarpit        Value
	Check         Value
	Queue         Value
}

// TCPKeepalive holds the cnt/idle/intvl triple shared by the clitcpka-*
// and srvtcpka-* directive families.
type TCPKeepalive struct {
	Cnt   Value
	Idle  Value
	Intvl Value
}

// proxyCommon holds the fields accepted by defaults, frontend, backend,
// and listen sections alike.
type proxyCommon struct {
	Mode              Value
	Retries           Value
	Maxconn           Value
	RateLimitSessions Value

	Timeouts Timeouts

	CliTCPKA TCPKeepalive
	SrvTCPKA TCPKeepalive

	ErrorLoc    Value // list [code, url]
	ErrorLoc302 Value
	ErrorLoc303 Value

	set     map[string]bool
	spreads []spreadRef
	Lets    []Let
}

// ruleProps holds the ACL and rule-chain collections shared by frontend,
// backend, and listen sections.
type ruleProps struct {
	ACLs []*ACL

	HTTPRequestRules []Value // raw rule strings
	TCPRequestRules  []Value
	TCPResponseRules []Value

	TCPRequestInspectDelay Value
}

// frontendProps holds the client-facing fields of frontend and listen.
type frontendProps struct {
	Binds          []*Bind
	DefaultBackend Value
	MonitorURI     Value
	Captures       []*Capture
}

// backendProps holds the server-facing fields of backend and listen.
type backendProps struct {
	Balance              Value
	HashType             Value
	HashBalanceFactor    Value
	HashPreserveAffinity Value

	Dispatch   Value
	UseFCGIApp Value

	ExternalCheck        Value
	ExternalCheckCommand Value
	ExternalCheckPath    Value

	LoadServerStateFromFile Value

	StickTable *StickTable
	StickOn    []Value

	Compression *Compression

	HealthCheck   *HealthCheck
	DefaultServer *Server

	Servers []ServerItem
}

// Frontend is a client-facing proxy section.
type Frontend struct {
	Name Value
	Pos  Position

	proxyCommon
	ruleProps
	frontendProps
}

// Backend is a server-facing proxy section.
type Backend struct {
	Name Value
	Pos  Position

	proxyCommon
	ruleProps
	backendProps
}

// Listen combines a frontend and a backend in one section.
type Listen struct {
	Name Value
	Pos  Position

	proxyCommon
	ruleProps
	frontendProps
	backendProps
}

// Defaults seeds every following proxy section.
type Defaults struct {
	Pos Position

	proxyCommon
}

// ServerItem is one entry of a servers block: a server or a pending loop.
type ServerItem struct {
	Server *Server
	Loop   *Loop[ServerItem]
}

// Server is one dispatch target. Common options are first-class fields;
// rarely used flags pass through the open-ended Extra map verbatim.
type Server struct {
	Name    Value
	Address Value
	Port    Value // integer, or symbolic string carried through verbatim

	Check       Value
	Backup      Value
	SSL         Value
	SendProxy   Value
	SendProxyV2 Value
	Disabled    Value

	Rise     Value
	Fall     Value
	Weight   Value
	Minconn  Value
	Maxconn  Value
	Maxqueue Value

	Inter     Value
	Slowstart Value

	SNI    Value
	Cookie Value
	ALPN   Value

	Extra map[string]Value

	set     map[string]bool
	spreads []spreadRef
	Lets    []Let
	Pos     Position
}

// Bind is one listening socket of a frontend or listen section.
type Bind struct {
	Address     Value
	Port        Value
	SSL         Value
	Crt         Value
	ALPN        Value
	AcceptProxy Value

	set     map[string]bool
	spreads []spreadRef
	Pos     Position
}

// HealthCheck describes the active check probing a backend's servers.
type HealthCheck struct {
	Method       Value
	URI          Value
	Version      Value
	ExpectStatus Value
	ExpectString Value

	Interval Value
	Rise     Value
	Fall     Value
	Timeout  Value

	set     map[string]bool
	spreads []spreadRef
	Pos     Position
}

// StickTable declares the session-affinity persistence table.
type StickTable struct {
	Type   Value
	Size   Value
	Expire Value
	Store  Value // list
	Pos    Position
}

// Compression enables response compression on a backend.
type Compression struct {
	Algo Value
	Type Value // list of MIME types
	Pos  Position
}

// Capture is a `declare capture` slot on a frontend.
type Capture struct {
	Direction Value // request or response
	Length    Value
	Pos       Position
}

// ACL is a named boolean condition usable in rule if/unless clauses.
type ACL struct {
	Name      string
	Criterion Value
	Pos       Position
}

// Peers is a peers section for stick-table synchronization.
type Peers struct {
	Name    string
	Entries []*Peer
	Pos     Position
}

// Peer is one `peer <name> <host> <port>` entry.
type Peer struct {
	Name string
	Host Value
	Port Value
	Pos  Position
}

// Mailers is a mailers section for email alerting.
type Mailers struct {
	Name        string
	TimeoutMail Value
	Entries     []*Mailer
	Pos         Position
}

// Mailer is one `mailer <name> <host> <port>` entry.
type Mailer struct {
	Name string
	Host Value
	Port Value
	Pos  Position
}

// LuaScript is a top-level lua declaration: either a reference to a
// script on disk or an inline body to be materialized by the caller.
type LuaScript struct {
	Name       string
	SourceType Value // "file" or "inline"
	Path       Value
	Content    Value
	Pos        Position
}

// ---------------------------------------------------------------------------
// Deep cloning, used by the loop unroller. Every clone is independent of
// its source so per-iteration substitution never aliases.
// ---------------------------------------------------------------------------

func cloneLets(lets []Let) []Let {
	if lets == nil {
		return nil
	}

	out := make([]Let, len(lets))
	copy(out, lets)

	return out
}

func cloneSpreads(refs []spreadRef) []spreadRef {
	if refs == nil {
		return nil
	}

	out := make([]spreadRef, len(refs))
	copy(out, refs)

	return out
}

func cloneSet(set map[string]bool) map[string]bool {
	if set == nil {
		return nil
	}

	return maps.Clone(set)
}

func cloneValues(vals []Value) []Value {
	if vals == nil {
		return nil
	}

	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = v.Clone()
	}

	return out
}

func (t Timeouts) clone() Timeouts {
	return Timeouts{
		Connect:       t.Connect.Clone(),
		Client:        t.Client.Clone(),
		Server:        t.Server.Clone(),
		HTTPRequest:   t.HTTPRequest.Clone(),
		HTTPKeepAlive: t.HTTPKeepAlive.Clone(),
		Tunnel:        t.Tunnel.Clone(),
		Tarpit:        t.Tarpit.Clone(),
		Check:         t.Check.Clone(),
		Queue:         t.Queue.Clone(),
	}
}

func (k TCPKeepalive) clone() TCPKeepalive {
	return TCPKeepalive{
		Cnt:   k.Cnt.Clone(),
		Idle:  k.Idle.Clone(),
		Intvl: k.Intvl.Clone(),
	}
}

func (c proxyCommon) clone() proxyCommon {
	out := c
	out.Timeouts = c.Timeouts.clone()
	out.CliTCPKA = c.CliTCPKA.clone()
	out.SrvTCPKA = c.SrvTCPKA.clone()
	out.ErrorLoc = c.ErrorLoc.Clone()
	out.ErrorLoc302 = c.ErrorLoc302.Clone()
	out.ErrorLoc303 = c.ErrorLoc303.Clone()
	out.set = cloneSet(c.set)
	out.spreads = cloneSpreads(c.spreads)
	out.Lets = cloneLets(c.Lets)

	return out
}

func (r ruleProps) clone() ruleProps {
	out := r

	if r.ACLs != nil {
		out.ACLs = make([]*ACL, len(r.ACLs))
		for i, a := range r.ACLs {
			c := *a
			c.Criterion = a.Criterion.Clone()
			out.ACLs[i] = &c
		}
	}

	out.HTTPRequestRules = cloneValues(r.HTTPRequestRules)
	out.TCPRequestRules = cloneValues(r.TCPRequestRules)
	out.TCPResponseRules = cloneValues(r.TCPResponseRules)
	out.TCPRequestInspectDelay = r.TCPRequestInspectDelay.Clone()

	return out
}

func (f frontendProps) clone() frontendProps {
	out := f

	if f.Binds != nil {
		out.Binds = make([]*Bind, len(f.Binds))
		for i, b := range f.Binds {
			out.Binds[i] = b.clone()
		}
	}

	if f.Captures != nil {
		out.Captures = make([]*Capture, len(f.Captures))
		for i, c := range f.Captures {
			cc := *c
			cc.Direction = c.Direction.Clone()
			cc.Length = c.Length.Clone()
			out.Captures[i] = &cc
		}
	}

	return out
}

func (b backendProps) clone() backendProps {
	out := b

	if b.StickTable != nil {
		st := *b.StickTable
		st.Store = b.StickTable.Store.Clone()
		out.StickTable = &st
	}

	out.StickOn = cloneValues(b.StickOn)

	if b.Compression != nil {
		cp := *b.Compression
		cp.Type = b.Compression.Type.Clone()
		out.Compression = &cp
	}

	if b.HealthCheck != nil {
		out.HealthCheck = b.HealthCheck.clone()
	}

	if b.DefaultServer != nil {
		out.DefaultServer = b.DefaultServer.clone()
	}

	if b.Servers != nil {
		out.Servers = make([]ServerItem, len(b.Servers))
		for i, item := range b.Servers {
			out.Servers[i] = item.clone()
		}
	}

	return out
}

func (s *Server) clone() *Server {
	out := *s

	out.Name = s.Name.Clone()
	out.Address = s.Address.Clone()
	out.Port = s.Port.Clone()
	out.ALPN = s.ALPN.Clone()

	if s.Extra != nil {
		out.Extra = make(map[string]Value, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v.Clone()
		}
	}

	out.set = cloneSet(s.set)
	out.spreads = cloneSpreads(s.spreads)
	out.Lets = cloneLets(s.Lets)

	return &out
}

func (b *Bind) clone() *Bind {
	out := *b
	out.Address = b.Address.Clone()
	out.ALPN = b.ALPN.Clone()
	out.set = cloneSet(b.set)
	out.spreads = cloneSpreads(b.spreads)

	return &out
}

func (h *HealthCheck) clone() *HealthCheck {
	out := *h
	out.set = cloneSet(h.set)
	out.spreads = cloneSpreads(h.spreads)

	return &out
}

func (item ServerItem) clone() ServerItem {
	if item.Loop != nil {
		return ServerItem{Loop: item.Loop.clone(func(e ServerItem) ServerItem {
			return e.clone()
		})}
	}

	return ServerItem{Server: item.Server.clone()}
}

func (item TopItem) clone() TopItem {
	switch {
	case item.Loop != nil:
		return TopItem{Loop: item.Loop.clone(func(e TopItem) TopItem {
			return e.clone()
		})}
	case item.Frontend != nil:
		fe := *item.Frontend
		fe.Name = item.Frontend.Name.Clone()
		fe.proxyCommon = item.Frontend.proxyCommon.clone()
		fe.ruleProps = item.Frontend.ruleProps.clone()
		fe.frontendProps = item.Frontend.frontendProps.clone()

		return TopItem{Frontend: &fe}
	case item.Backend != nil:
		be := *item.Backend
		be.Name = item.Backend.Name.Clone()
		be.proxyCommon = item.Backend.proxyCommon.clone()
		be.ruleProps = item.Backend.ruleProps.clone()
		be.backendProps = item.Backend.backendProps.clone()

		return TopItem{Backend: &be}
	case item.Listen != nil:
		li := *item.Listen
		li.Name = item.Listen.Name.Clone()
		li.proxyCommon = item.Listen.proxyCommon.clone()
		li.ruleProps = item.Listen.ruleProps.clone()
		li.frontendProps = item.Listen.frontendProps.clone()
		li.backendProps = item.Listen.backendProps.clone()

		return TopItem{Listen: &li}
	case item.Peers != nil:
		pe := *item.Peers
		pe.Entries = make([]*Peer, len(item.Peers.Entries))

		for i, p := range item.Peers.Entries {
			pp := *p
			pp.Host = p.Host.Clone()
			pp.Port = p.Port.Clone()
			pe.Entries[i] = &pp
		}

		return TopItem{Peers: &pe}
	case item.Mailers != nil:
		ma := *item.Mailers
		ma.TimeoutMail = item.Mailers.TimeoutMail.Clone()
		ma.Entries = make([]*Mailer, len(item.Mailers.Entries))

		for i, m := range item.Mailers.Entries {
			mm := *m
			mm.Host = m.Host.Clone()
			mm.Port = m.Port.Clone()
			ma.Entries[i] = &mm
		}

		return TopItem{Mailers: &ma}
	default:
		return TopItem{}
	}
}

func (l *Loop[T]) clone(cloneElem func(T) T) *Loop[T] {
	out := *l
	out.Lo = l.Lo.Clone()
	out.Hi = l.Hi.Clone()
	out.Lets = cloneLets(l.Lets)
	out.Body = make([]T, len(l.Body))

	for i, e := range l.Body {
		out.Body[i] = cloneElem(e)
	}

	if l.env != nil {
		out.env = maps.Clone(l.env)
	}

	return &out
}
