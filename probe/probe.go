// Package probe sends test queries to a running listener and reports what came back.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	timeoutDial     = time.Second
	timeoutExchange = 2 * time.Second
)

// ErrIDMismatch is returned when a reply carries a different id than its query.
var ErrIDMismatch = errors.New("unmatched request and response")

// Types are the query types Run sends, in order.
var Types = []uint16{dns.TypeA, dns.TypeMX, dns.TypeTXT}

type Prober struct {
	network string // udp | tcp
	address string
	logger  *zap.SugaredLogger
}

// Result is the outcome of one query.
type Result struct {
	Type    uint16
	Rcode   int
	Answers []dns.RR
	Elapsed time.Duration
	Err     error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s error=[%+v]", dns.TypeToString[r.Type], r.Err)
	}

	answers := make([]string, 0, len(r.Answers))
	for _, rr := range r.Answers {
		answers = append(answers, rr.String())
	}

	return fmt.Sprintf("%s %s cost %s [%s]", dns.TypeToString[r.Type], dns.RcodeToString[r.Rcode], r.Elapsed, strings.Join(answers, "; "))
}

func New(network, address string, logger *zap.SugaredLogger) (*Prober, error) {
	network = strings.ToLower(network)
	if network != "udp" && network != "tcp" {
		return nil, fmt.Errorf("unknown network %q", network)
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return nil, fmt.Errorf("address %q: %w", address, err)
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Prober{network: network, address: address, logger: logger}, nil
}

// Run queries name once for every type in Types.
func (p *Prober) Run(ctx context.Context, name string) []Result {
	results := make([]Result, 0, len(Types))
	for _, qtype := range Types {
		results = append(results, p.Query(ctx, name, qtype))
	}
	return results
}

func (p *Prober) Query(ctx context.Context, name string, qtype uint16) Result {
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(name), qtype)

	start := time.Now()
	resp, err := p.Resolve(ctx, req)
	result := Result{Type: qtype, Elapsed: time.Since(start), Err: err}
	if err != nil {
		return result
	}

	result.Rcode = resp.Rcode
	result.Answers = resp.Answer
	return result
}

// Resolve sends req on a fresh connection and waits for its reply.
func (p *Prober) Resolve(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	dialer := &net.Dialer{Timeout: timeoutDial}
	conn, err := dialer.DialContext(ctx, p.network, p.address)
	if err != nil {
		return nil, fmt.Errorf("dial %s/%s: %w", p.network, p.address, err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(timeoutExchange)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err = conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	dnsConn := dns.Conn{Conn: conn}
	if err = dnsConn.WriteMsg(req); err != nil {
		p.logger.Errorf("sending request to %s error=[%+v]", p.address, err)
		return nil, err
	}

	var resp *dns.Msg
	if resp, err = dnsConn.ReadMsg(); err != nil {
		p.logger.Errorf("%s %s [%s]", p.address, err, req.Question[0].String())
		return nil, err
	}

	if req.Id != resp.Id {
		p.logger.Info("unmatched request and response")
		return nil, ErrIDMismatch
	}

	p.logger.Debugf("%s/%s response %s", p.network, p.address, dns.RcodeToString[resp.Rcode])

	return resp, nil
}
