package tcp

import (
	"errors"
	"io"
	"math"
	"net"
	"time"

	"github.com/bassosimone/runtimex"

	"github.com/treemana/fakedns/model"
)

// serve runs exactly one request/reply exchange on conn and closes it.
func (s *Server) serve(conn *net.TCPConn, sn uint64) {
	defer func() { _ = conn.Close() }()

	remoteAddr := conn.RemoteAddr()

	if err := conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		s.logger.Errorf("sn=%d, %s set deadline error=[%+v]", sn, remoteAddr, err)
		return
	}

	packet, err := readFrame(conn)
	if err != nil {
		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			s.logger.Warnf("sn=%d, %s connection timeout", sn, remoteAddr)
		case errors.Is(err, io.EOF):
			s.logger.Debugf("sn=%d, %s closed before sending a request", sn, remoteAddr)
		default:
			s.logger.Errorf("sn=%d, %s read error=[%+v]", sn, remoteAddr, err)
		}
		return
	}

	reply := s.handler.Handle(packet, &model.Peer{
		SN:         sn,
		Network:    "tcp",
		RemoteAddr: remoteAddr,
		LocalAddr:  conn.LocalAddr(),
	})
	if reply == nil {
		return
	}

	if len(reply) > math.MaxUint16 {
		s.logger.Errorf("sn=%d, reply of %d bytes does not fit a frame", sn, len(reply))
		return
	}

	if err = conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		s.logger.Errorf("sn=%d, %s set deadline error=[%+v]", sn, remoteAddr, err)
		return
	}

	if _, err = conn.Write(newFrame(reply)); err != nil {
		s.logger.Errorf("sn=%d, %s write error=[%+v]", sn, remoteAddr, err)
		return
	}

	s.logger.Debugf("sn=%d, %d bytes to %s", sn, len(reply), remoteAddr)
}

// readFrame reads one message prefixed by its 2-byte big-endian length.
func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := int(header[0])<<8 | int(header[1])

	msg := make([]byte, length)
	if _, err := io.ReadFull(r, msg); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return msg, nil
}

// newFrame prefixes msg with its 2-byte big-endian length.
func newFrame(msg []byte) []byte {
	runtimex.Assert(len(msg) <= math.MaxUint16)
	frame := make([]byte, 0, len(msg)+2)
	frame = append(frame, byte(len(msg)>>8), byte(len(msg)))
	return append(frame, msg...)
}
