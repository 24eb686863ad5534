package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/treemana/fakedns/model"
)

const (
	maxPacketSize = 65535

	// ipv4Flags asks the kernel for the destination address and the interface of every
	// datagram, so the reply can leave from the address the client talked to
	ipv4Flags = ipv4.FlagDst | ipv4.FlagInterface
)

type Server struct {
	address *net.UDPAddr
	conn    *net.UDPConn
	pconn   *ipv4.PacketConn // nil when control messages are unavailable
	status  atomic.Bool      // running status
	closed  atomic.Bool

	handler model.Handler
	logger  *zap.SugaredLogger

	readWG sync.WaitGroup
	serial atomic.Uint64
}

// New binds an IPv4 datagram socket on ip:port. Port 0 picks an ephemeral port.
func New(ip net.IP, port int, handler model.Handler, logger *zap.SugaredLogger) (*Server, error) {

	if len(ip) == 0 || ip.To4() == nil {
		return nil, fmt.Errorf("invalid ip=%s", ip)
	}

	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port=%d", port)
	}

	if handler == nil {
		return nil, errors.New("nil handler")
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := Server{
		address: &net.UDPAddr{Port: port, IP: ip},
		handler: handler,
		logger:  logger,
	}

	if err := s.setConn(); err != nil {
		return nil, fmt.Errorf("set conn error=[%w]", err)
	}

	return &s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Server) Start() {
	s.status.Store(true)

	s.readWG.Add(1)
	go s.read()

	s.logger.Infof("udp server running on %s ...", s.Addr())
}

// Stop closes the socket and waits for the read loop to exit. Handlers still running
// finish on their own, their replies fail to send.
func (s *Server) Stop() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.logger.Info("udp server stopping")
	s.status.Store(false)

	err := s.conn.Close()
	s.readWG.Wait()

	s.logger.Infof("udp server stopped, serial=%d", s.serial.Load())
	return err
}

func (s *Server) setConn() error {
	var err error
	if s.conn, err = net.ListenUDP("udp4", s.address); err != nil {
		s.logger.Errorf("udp [%s] listen error=[%+v]", s.address, err)
		return err
	}

	pconn := ipv4.NewPacketConn(s.conn)
	if err = pconn.SetControlMessage(ipv4Flags, true); err != nil {
		s.logger.Warnf("udp [%s] control message unavailable, replies use the default source, error=[%+v]", s.address, err)
		return nil
	}
	s.pconn = pconn

	return nil
}
