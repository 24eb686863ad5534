package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/treemana/fakedns/model"
)

const (
	DefaultTimeout = 5 * time.Second

	acceptBackoff = 50 * time.Millisecond
)

type Server struct {
	address  *net.TCPAddr
	listener *net.TCPListener
	timeout  time.Duration
	status   atomic.Bool // running status
	closed   atomic.Bool

	handler model.Handler
	logger  *zap.SugaredLogger

	acceptWG sync.WaitGroup
	serial   atomic.Uint64
}

// New listens on ip:port. Port 0 picks an ephemeral port. timeout bounds the wait for
// a request on every connection, zero means DefaultTimeout.
func New(ip net.IP, port int, timeout time.Duration, handler model.Handler, logger *zap.SugaredLogger) (*Server, error) {

	if len(ip) == 0 || ip.To4() == nil {
		return nil, fmt.Errorf("invalid ip=%s", ip)
	}

	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port=%d", port)
	}

	if handler == nil {
		return nil, errors.New("nil handler")
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := Server{
		address: &net.TCPAddr{Port: port, IP: ip},
		timeout: timeout,
		handler: handler,
		logger:  logger,
	}

	var err error
	if s.listener, err = net.ListenTCP("tcp4", s.address); err != nil {
		s.logger.Errorf("tcp [%s] listen error=[%+v]", s.address, err)
		return nil, fmt.Errorf("listen error=[%w]", err)
	}

	return &s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Start() {
	s.status.Store(true)

	s.acceptWG.Add(1)
	go s.accept()

	s.logger.Infof("tcp server running on %s ...", s.Addr())
}

// Stop closes the listener and waits for the accept loop to exit. Connections already
// accepted are served until their own deadline.
func (s *Server) Stop() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.logger.Info("tcp server stopping")
	s.status.Store(false)

	err := s.listener.Close()
	s.acceptWG.Wait()

	s.logger.Infof("tcp server stopped, serial=%d", s.serial.Load())
	return err
}

func (s *Server) accept() {
	defer s.acceptWG.Done()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.status.Load() {
				s.logger.Warn("tcp server listener closed")
				break
			}
			// e.g. out of file descriptors, give the system a moment
			s.logger.Errorf("tcp server accept error=[%+v]", err)
			time.Sleep(acceptBackoff)
			continue
		}

		go s.serve(conn, s.serial.Add(1))
	}
}
