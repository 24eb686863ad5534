// Package wire implements the subset of the RFC 1035 message format served by fakedns.
//
// Decode parses the header and the first question of a query and ignores everything
// after it. Encode serializes a reply made of the header, the echoed question and the
// answers in the order they were appended. Only A, MX and TXT payloads are encodable.
package wire

import (
	"errors"
	"net/netip"
	"strings"

	"github.com/bassosimone/runtimex"
)

var (
	// ErrMalformed is wrapped by every Decode failure.
	ErrMalformed = errors.New("malformed dns message")

	// ErrInvalidName is wrapped by Encode when a name cannot be put on the wire.
	ErrInvalidName = errors.New("invalid dns name")
)

type Header struct {
	ID                 uint16
	Response           bool // QR
	Opcode             uint8
	Authoritative      bool
	Truncated          bool
	RecursionDesired   bool
	RecursionAvailable bool
	Zero               uint8 // Z, AD and CD bits, kept as they arrived
	Rcode              uint8

	// section counts as read from the wire, Encode recomputes them
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

type Question struct {
	Name  string // presentation form with trailing dot, case preserved
	Type  uint16
	Class uint16
}

type Message struct {
	Header   Header
	Question Question
	Answers  []RR
}

// RData is the type specific payload of a resource record.
type RData interface {
	Type() uint16
	pack(b []byte) ([]byte, error)
	String() string
}

type RR struct {
	Name  string
	Class uint16
	TTL   uint32
	Data  RData
}

func (rr RR) Type() uint16 { return rr.Data.Type() }

type A struct {
	Addr netip.Addr
}

func (*A) Type() uint16 { return TypeA }

func (a *A) pack(b []byte) ([]byte, error) {
	runtimex.Assert(a.Addr.Is4())
	ip := a.Addr.As4()
	return append(b, ip[:]...), nil
}

func (a *A) String() string { return a.Addr.String() }

type MX struct {
	Preference uint16
	Exchange   string
}

func (*MX) Type() uint16 { return TypeMX }

func (mx *MX) pack(b []byte) ([]byte, error) {
	b = append(b, byte(mx.Preference>>8), byte(mx.Preference))
	return packName(b, mx.Exchange)
}

func (mx *MX) String() string { return mx.Exchange }

// TXT holds one or more character-strings of at most 255 bytes each.
type TXT struct {
	Text []string
}

func (*TXT) Type() uint16 { return TypeTXT }

func (t *TXT) pack(b []byte) ([]byte, error) {
	for _, s := range t.Text {
		runtimex.Assert(len(s) <= maxTXTLen)
		b = append(b, byte(len(s)))
		b = append(b, s...)
	}
	return b, nil
}

func (t *TXT) String() string { return strings.Join(t.Text, "") }

// SplitTXT cuts s into character-strings accepted by TXT.
func SplitTXT(s string) []string {
	if len(s) == 0 {
		return []string{""}
	}
	var chunks []string
	for len(s) > maxTXTLen {
		chunks = append(chunks, s[:maxTXTLen])
		s = s[maxTXTLen:]
	}
	return append(chunks, s)
}

// NewReply returns an empty reply for req: same ID, opcode, RD and Z bits, the question
// echoed verbatim, and QR, AA and RA set.
func NewReply(req *Message) *Message {
	return &Message{
		Header: Header{
			ID:                 req.Header.ID,
			Response:           true,
			Opcode:             req.Header.Opcode,
			Authoritative:      true,
			RecursionDesired:   req.Header.RecursionDesired,
			RecursionAvailable: true,
			Zero:               req.Header.Zero,
		},
		Question: req.Question,
	}
}

// TrimDot strips trailing root-label separators. Escaped dots are kept.
func TrimDot(name string) string {
	for len(name) > 0 && name[len(name)-1] == '.' && !escapedAt(name, len(name)-1) {
		name = name[:len(name)-1]
	}
	return name
}

// escapedAt reports whether name[i] is preceded by an odd run of backslashes.
func escapedAt(name string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && name[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
