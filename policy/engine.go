// Package policy decides what fakedns answers.
//
// An Engine owns the state shared by every request of one listener: the address pool
// with its per-name memo and the failure budget. Both are guarded by one mutex held
// across the whole check, decide and update sequence of a request.
package policy

import (
	"net/netip"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/treemana/fakedns/pool"
	"github.com/treemana/fakedns/wire"
)

// HostInfo resolves the addresses behind the ResponseA keywords.
type HostInfo interface {
	FirstNonLoopback() (netip.Addr, error)
	HostAddress() (netip.Addr, error)
}

type state struct {
	mu     sync.Mutex
	pool   *pool.Pool // nil unless ResponseA is a network range
	budget failureBudget
}

type Engine struct {
	config  Config
	mode    addressMode
	literal netip.Addr
	ncsi    netip.Addr
	host    HostInfo
	logger  *zap.SugaredLogger

	state state
}

func New(config Config, host HostInfo, logger *zap.SugaredLogger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if config.ResponseMX == "" {
		config.ResponseMX = DefaultResponseMX
	}
	if config.ResponseTXT == "" {
		config.ResponseTXT = DefaultResponseTXT
	}
	config.ResponseMX = wire.TrimDot(config.ResponseMX)
	if err := wire.CheckName(config.ResponseMX); err != nil {
		return nil, err
	}

	mode, literal, prefix, err := parseResponseA(config.ResponseA)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:  config,
		mode:    mode,
		literal: literal,
		ncsi:    netip.MustParseAddr(ncsiAddress),
		host:    host,
		logger:  logger,
	}
	e.state.budget.remaining = config.NXDomains

	if mode == modePool {
		if e.state.pool, err = pool.New(prefix); err != nil {
			return nil, err
		}
	}

	logger.Debugf("policy mode=%s, nxdomains=%d, failonce=%t, mx=%s, txt=%s",
		mode, config.NXDomains, config.FailOnce, config.ResponseMX, config.ResponseTXT)

	return e, nil
}

// Respond builds the reply to req. It never returns nil: queries it cannot or will not
// answer get a reply without answers.
func (e *Engine) Respond(req *wire.Message) *wire.Message {
	reply := wire.NewReply(req)

	if req.Header.Response {
		e.logger.Debugf("id=%d, not a query", req.Header.ID)
		return reply
	}

	if req.Header.Opcode != wire.OpcodeQuery {
		e.logger.Debugf("id=%d, unsupported opcode %d", req.Header.ID, req.Header.Opcode)
		reply.Header.Rcode = wire.RcodeNotImplemented
		return reply
	}

	// case preserved for logging
	qname := wire.TrimDot(req.Question.Name)
	qtype := req.Question.Type

	e.logger.Infof("Received %s request for domain '%s'.", wire.TypeString(qtype), qname)

	switch qtype {
	case wire.TypeA:
		e.answerA(reply, qname)

	case wire.TypeMX:
		e.logger.Infof("Responding with '%s'", e.config.ResponseMX)
		e.answer(reply, &wire.MX{Preference: mxPreference, Exchange: e.config.ResponseMX})

	case wire.TypeTXT:
		e.logger.Infof("Responding with '%s'", e.config.ResponseTXT)
		e.answer(reply, &wire.TXT{Text: wire.SplitTXT(e.config.ResponseTXT)})
	}

	return reply
}

func (e *Engine) answerA(reply *wire.Message, qname string) {
	var (
		addr   netip.Addr
		ok     bool
		pooled bool
	)

	// derived addresses are looked up before taking the lock
	switch {
	case strings.Contains(qname, ncsiDomain):
		addr, ok = e.ncsi, true
	case e.mode == modeLiteral:
		addr, ok = e.literal, true
	case e.mode == modeFirstNonLoopback, e.mode == modeHostByName:
		addr, ok = e.derive()
	case e.mode == modePool:
		pooled = true
	}

	e.state.mu.Lock()
	if pooled {
		addr, ok = e.allocate(qname)
	}
	budget := e.state.budget.remaining
	suppress := e.state.budget.suppress() || !ok
	if suppress && ok {
		// unresolvable names do not burn the budget
		e.state.budget.consume()
	}
	e.state.mu.Unlock()

	if suppress {
		// negative replies are SERVFAIL
		reply.Header.Rcode = wire.RcodeServerFailure
		e.logger.Infof("Ignoring query. NXDomains: %d", budget)
		return
	}

	e.logger.Infof("Responding with '%s'", addr)
	e.answer(reply, &wire.A{Addr: addr})
}

// allocate must be called with state.mu held.
func (e *Engine) allocate(qname string) (netip.Addr, bool) {
	addr, fresh, err := e.state.pool.Next(qname)
	if err != nil {
		e.logger.Warnf("domain '%s' error=[%+v]", qname, err)
		return netip.Addr{}, false
	}

	if fresh && e.config.FailOnce {
		e.logger.Infof("domain '%s' first lookup, failing once", qname)
		return netip.Addr{}, false
	}

	return addr, true
}

func (e *Engine) derive() (netip.Addr, bool) {
	if e.host == nil {
		return netip.Addr{}, false
	}

	var (
		addr netip.Addr
		err  error
	)
	if e.mode == modeFirstNonLoopback {
		addr, err = e.host.FirstNonLoopback()
	} else {
		addr, err = e.host.HostAddress()
	}
	if err != nil {
		e.logger.Warnf("%s error=[%+v]", e.mode, err)
		return netip.Addr{}, false
	}
	if addr = addr.Unmap(); !addr.Is4() {
		e.logger.Warnf("%s returned %s, not ipv4", e.mode, addr)
		return netip.Addr{}, false
	}
	return addr, true
}

func (e *Engine) answer(reply *wire.Message, data wire.RData) {
	reply.Answers = append(reply.Answers, wire.RR{
		Name:  reply.Question.Name,
		Class: wire.ClassINET,
		TTL:   e.config.TTL,
		Data:  data,
	})
}

// Remaining returns the number of A queries still to be failed on purpose.
func (e *Engine) Remaining() int {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	return e.state.budget.remaining
}

// Allocated returns the number of names holding a pool address.
func (e *Engine) Allocated() int {
	if e.state.pool == nil {
		return 0
	}
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	return e.state.pool.Len()
}
