package listener

import (
	"errors"

	"go.uber.org/zap"

	"github.com/treemana/fakedns/log"
	"github.com/treemana/fakedns/model"
	"github.com/treemana/fakedns/policy"
	"github.com/treemana/fakedns/wire"
)

// pipeline is the transport independent decode, decide, encode path shared by the
// datagram and the stream server.
type pipeline struct {
	engine *policy.Engine
	logger *zap.SugaredLogger
}

var _ model.Handler = (*pipeline)(nil)

func (p *pipeline) Handle(packet []byte, peer *model.Peer) (reply []byte) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("sn=%d, %s/%s panic=[%+v]", peer.SN, peer.Network, peer.RemoteAddr, r)
			reply = nil
		}
	}()

	req, err := wire.Decode(packet)
	if err != nil {
		p.logger.Errorf("sn=%d, %s/%s Error: Invalid DNS Request error=[%+v]", peer.SN, peer.Network, peer.RemoteAddr, err)
		if errors.Is(err, wire.ErrMalformed) {
			log.Dump(p.logger, packet)
		}
		return nil
	}

	p.logger.Debugf("sn=%d, id=%d, %s/%s", peer.SN, req.Header.ID, peer.Network, peer.RemoteAddr)

	resp := p.engine.Respond(req)

	if reply, err = wire.Encode(resp); err != nil {
		p.logger.Errorf("sn=%d, id=%d, encode error=[%+v]", peer.SN, req.Header.ID, err)
		return nil
	}

	p.logger.Debugf("sn=%d, id=%d, %s answer %d", peer.SN, resp.Header.ID, wire.RcodeString(resp.Header.Rcode), len(resp.Answers))

	return reply
}
