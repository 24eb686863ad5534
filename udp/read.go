package udp

import (
	"errors"
	"net"
)

func (s *Server) read() {
	defer s.readWG.Done()

	bytes := make([]byte, maxPacketSize)
	for {
		n, local, remoteAddr, err := s.readFrom(bytes)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.status.Load() {
				s.logger.Warn("udp server read connection closed")
				break
			}
			s.logger.Error("udp server read error : ", err)
			continue
		}

		if !s.status.Load() {
			s.logger.Info("udp server read after stopped")
			break
		}

		if n <= 0 || remoteAddr == nil {
			s.logger.Warn("udp server read 0 byte")
			continue
		}

		// the buffer is reused by the next read, the handler goroutine gets its own copy
		packet := make([]byte, n)
		copy(packet, bytes)

		go s.serve(packet, remoteAddr, local, s.serial.Add(1))
	}
}

// readFrom returns the datagram, its destination address when known, and its source.
func (s *Server) readFrom(buf []byte) (int, net.IP, *net.UDPAddr, error) {
	if s.pconn == nil {
		n, remoteAddr, err := s.conn.ReadFromUDP(buf)
		return n, nil, remoteAddr, err
	}

	n, cm, src, err := s.pconn.ReadFrom(buf)
	if err != nil {
		return -1, nil, nil, err
	}

	remoteAddr, _ := src.(*net.UDPAddr)
	var local net.IP
	if cm != nil {
		local = cm.Dst
	}

	return n, local, remoteAddr, nil
}
