package udp

import (
	"net"

	"golang.org/x/net/ipv4"

	"github.com/treemana/fakedns/model"
)

func (s *Server) serve(packet []byte, remoteAddr *net.UDPAddr, local net.IP, sn uint64) {
	peer := &model.Peer{
		SN:         sn,
		Network:    "udp",
		RemoteAddr: remoteAddr,
	}
	if local != nil {
		peer.LocalAddr = &net.UDPAddr{IP: local, Port: s.Addr().(*net.UDPAddr).Port}
	}

	reply := s.handler.Handle(packet, peer)
	if reply == nil {
		return
	}

	if err := s.write(reply, remoteAddr, local); err != nil {
		s.logger.Errorf("sn=%d, udp connection write error=[%+v]", sn, err)
		return
	}

	s.logger.Debugf("sn=%d, %d bytes to %s", sn, len(reply), remoteAddr)
}

// write sends b to remoteAddr, from local when the kernel told us where the query went.
func (s *Server) write(b []byte, remoteAddr *net.UDPAddr, local net.IP) error {
	if s.pconn != nil && local != nil && (local.IsLoopback() || local.IsGlobalUnicast()) {
		_, err := s.pconn.WriteTo(b, &ipv4.ControlMessage{Src: local}, remoteAddr)
		if err == nil {
			return nil
		}
		// directed broadcast and similar destinations cannot be used as a source
		s.logger.Debugf("udp write from %s error=[%+v], retrying from default source", local, err)
	}

	_, err := s.conn.WriteToUDP(b, remoteAddr)
	return err
}
