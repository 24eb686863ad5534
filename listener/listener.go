// Package listener runs one fake DNS listener: it owns the configuration, builds the
// policy engine and starts the datagram or stream server chosen by the configuration.
package listener

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/treemana/fakedns/log"
	"github.com/treemana/fakedns/policy"
	"github.com/treemana/fakedns/tcp"
	"github.com/treemana/fakedns/udp"
)

const (
	ProtocolUDP = "udp"
	ProtocolTCP = "tcp"

	DefaultName    = "DNS"
	DefaultAddress = "0.0.0.0"
	DefaultPort    = dnsPort
	DefaultTimeout = 5 // seconds
)

// ErrUnknownProtocol is returned by Start when Protocol is neither udp nor tcp.
var ErrUnknownProtocol = errors.New("unknown protocol")

type Config struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Protocol string `json:"protocol" yaml:"protocol" toml:"protocol"` // udp | tcp, case insensitive
	Address  string `json:"address" yaml:"address" toml:"address"`
	Port     int    `json:"port" yaml:"port" toml:"port"`          // 0 picks an ephemeral port
	Timeout  int    `json:"timeout" yaml:"timeout" toml:"timeout"` // stream read timeout, seconds

	policy.Config `yaml:",inline"`
}

// server is what udp.Server and tcp.Server have in common.
type server interface {
	Start()
	Stop() error
	Addr() net.Addr
}

type Listener struct {
	config Config
	host   policy.HostInfo
	logger *zap.SugaredLogger

	mu     sync.Mutex
	engine *policy.Engine
	server server
}

// New returns a stopped listener. host resolves the GetFirstNonLoopback and
// GetHostByName keywords, it may be nil when neither is used.
func New(config Config, host policy.HostInfo) *Listener {
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Address == "" {
		config.Address = DefaultAddress
	}

	return &Listener{
		config: config,
		host:   host,
		logger: log.Named(config.Name),
	}
}

func (l *Listener) Name() string { return l.config.Name }

// Start validates the configuration, builds fresh policy state and starts serving in
// the background. Nothing is bound when it fails.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return fmt.Errorf("%s already started", l.config.Name)
	}

	protocol := strings.ToLower(l.config.Protocol)
	if protocol != ProtocolUDP && protocol != ProtocolTCP {
		return fmt.Errorf("%s: %w %q", l.config.Name, ErrUnknownProtocol, l.config.Protocol)
	}

	ip := net.ParseIP(l.config.Address)
	if ip == nil {
		return fmt.Errorf("%s: invalid address %q", l.config.Name, l.config.Address)
	}

	engine, err := policy.New(l.config.Config, l.host, l.logger)
	if err != nil {
		return fmt.Errorf("%s: %w", l.config.Name, err)
	}

	handler := &pipeline{engine: engine, logger: l.logger}

	var srv server
	switch protocol {
	case ProtocolUDP:
		l.logger.Debug("Starting UDP ...")
		srv, err = udp.New(ip, l.config.Port, handler, l.logger)
	case ProtocolTCP:
		l.logger.Debug("Starting TCP ...")
		timeout := time.Duration(l.config.Timeout) * time.Second
		srv, err = tcp.New(ip, l.config.Port, timeout, handler, l.logger)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", l.config.Name, err)
	}

	srv.Start()
	l.engine, l.server = engine, srv

	return nil
}

// Stop stops accepting work and releases the socket. Requests being handled are not
// interrupted. Stopping a stopped listener is a no-op.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server == nil {
		return nil
	}

	l.logger.Debug("Stopping...")
	err := l.server.Stop()
	l.server, l.engine = nil, nil

	return err
}

// Addr returns the bound address, nil when the listener is not running.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server == nil {
		return nil
	}
	return l.server.Addr()
}

// Engine returns the policy engine of the running listener, nil when stopped.
func (l *Listener) Engine() *policy.Engine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine
}

// Taste scores data addressed to dport, see the package level Taste.
func (l *Listener) Taste(data []byte, dport int) int {
	return Taste(data, dport)
}
