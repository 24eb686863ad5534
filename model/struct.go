package model

import (
	"net"
)

// Peer describes where a request came from.
type Peer struct {
	// SN serial number of the exchange within its listener, for log correlation
	SN uint64

	Network    string // "udp" or "tcp"
	RemoteAddr net.Addr

	// LocalAddr the address the request was sent to, nil when unknown
	LocalAddr net.Addr
}

// Handler turns one raw request into one raw reply. A nil reply means nothing is sent.
//
// Handle is called concurrently, once per datagram or connection. Each call owns its
// packet.
type Handler interface {
	Handle(packet []byte, peer *Peer) []byte
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(packet []byte, peer *Peer) []byte

func (f HandlerFunc) Handle(packet []byte, peer *Peer) []byte { return f(packet, peer) }
