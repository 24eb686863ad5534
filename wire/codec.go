package wire

import (
	"encoding/binary"
	"fmt"
)

// Decode parses the header and the first question of b.
//
// Remaining questions and the answer, authority and additional sections are ignored.
// Every error wraps ErrMalformed.
func Decode(b []byte) (*Message, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrMalformed, len(b), headerSize)
	}

	var m Message
	unpackHeader(&m.Header, b)

	if m.Header.QDCount == 0 {
		return nil, fmt.Errorf("%w: no question", ErrMalformed)
	}

	name, off, err := unpackName(b, headerSize)
	if err != nil {
		return nil, err
	}
	if off+4 > len(b) {
		return nil, fmt.Errorf("%w: truncated question", ErrMalformed)
	}

	m.Question = Question{
		Name:  name,
		Type:  binary.BigEndian.Uint16(b[off:]),
		Class: binary.BigEndian.Uint16(b[off+2:]),
	}

	return &m, nil
}

// Encode serializes m. Section counts are derived from m itself: one question and
// len(m.Answers) answers.
func Encode(m *Message) ([]byte, error) {
	b := make([]byte, headerSize, 512)
	packHeader(b, &m.Header, uint16(len(m.Answers)))

	var err error
	if b, err = packName(b, m.Question.Name); err != nil {
		return nil, err
	}
	b = binary.BigEndian.AppendUint16(b, m.Question.Type)
	b = binary.BigEndian.AppendUint16(b, m.Question.Class)

	for i := range m.Answers {
		if b, err = packRR(b, &m.Answers[i]); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func unpackHeader(h *Header, b []byte) {
	flags := binary.BigEndian.Uint16(b[2:])

	h.ID = binary.BigEndian.Uint16(b[0:])
	h.Response = flags&(1<<15) != 0
	h.Opcode = uint8(flags>>11) & 0xF
	h.Authoritative = flags&(1<<10) != 0
	h.Truncated = flags&(1<<9) != 0
	h.RecursionDesired = flags&(1<<8) != 0
	h.RecursionAvailable = flags&(1<<7) != 0
	h.Zero = uint8(flags>>4) & 0x7
	h.Rcode = uint8(flags) & 0xF
	h.QDCount = binary.BigEndian.Uint16(b[4:])
	h.ANCount = binary.BigEndian.Uint16(b[6:])
	h.NSCount = binary.BigEndian.Uint16(b[8:])
	h.ARCount = binary.BigEndian.Uint16(b[10:])
}

func packHeader(b []byte, h *Header, answers uint16) {
	var flags uint16
	if h.Response {
		flags |= 1 << 15
	}
	flags |= uint16(h.Opcode&0xF) << 11
	if h.Authoritative {
		flags |= 1 << 10
	}
	if h.Truncated {
		flags |= 1 << 9
	}
	if h.RecursionDesired {
		flags |= 1 << 8
	}
	if h.RecursionAvailable {
		flags |= 1 << 7
	}
	flags |= uint16(h.Zero&0x7) << 4
	flags |= uint16(h.Rcode & 0xF)

	binary.BigEndian.PutUint16(b[0:], h.ID)
	binary.BigEndian.PutUint16(b[2:], flags)
	binary.BigEndian.PutUint16(b[4:], 1)
	binary.BigEndian.PutUint16(b[6:], answers)
	binary.BigEndian.PutUint16(b[8:], 0)
	binary.BigEndian.PutUint16(b[10:], 0)
}

func packRR(b []byte, rr *RR) ([]byte, error) {
	var err error
	if b, err = packName(b, rr.Name); err != nil {
		return nil, err
	}
	b = binary.BigEndian.AppendUint16(b, rr.Data.Type())
	b = binary.BigEndian.AppendUint16(b, rr.Class)
	b = binary.BigEndian.AppendUint32(b, rr.TTL)

	// rdlength is patched once the payload is written
	lenOff := len(b)
	b = append(b, 0, 0)
	if b, err = rr.Data.pack(b); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(b[lenOff:], uint16(len(b)-lenOff-2))

	return b, nil
}
