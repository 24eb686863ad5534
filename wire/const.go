package wire

import "strconv"

const (
	headerSize = 12

	maxLabelLen = 63
	maxNameLen  = 255 // wire length, including the root label
	maxTXTLen   = 255 // one character-string
	maxPointers = 32  // compression pointers followed per name

	// MaxMsgSize is the largest message carried by a stream frame.
	MaxMsgSize = 65535
)

// record types
const (
	TypeA    uint16 = 1
	TypeNS   uint16 = 2
	TypeSOA  uint16 = 6
	TypePTR  uint16 = 12
	TypeMX   uint16 = 15
	TypeTXT  uint16 = 16
	TypeAAAA uint16 = 28
	TypeANY  uint16 = 255
)

const ClassINET uint16 = 1

const OpcodeQuery uint8 = 0

// reply codes
const (
	RcodeSuccess        uint8 = 0
	RcodeFormatError    uint8 = 1
	RcodeServerFailure  uint8 = 2
	RcodeNameError      uint8 = 3
	RcodeNotImplemented uint8 = 4
	RcodeRefused        uint8 = 5
)

var typeToString = map[uint16]string{
	TypeA:    "A",
	TypeNS:   "NS",
	TypeSOA:  "SOA",
	TypePTR:  "PTR",
	TypeMX:   "MX",
	TypeTXT:  "TXT",
	TypeAAAA: "AAAA",
	TypeANY:  "ANY",
}

var rcodeToString = map[uint8]string{
	RcodeSuccess:        "NOERROR",
	RcodeFormatError:    "FORMERR",
	RcodeServerFailure:  "SERVFAIL",
	RcodeNameError:      "NXDOMAIN",
	RcodeNotImplemented: "NOTIMP",
	RcodeRefused:        "REFUSED",
}

// TypeString returns the mnemonic of t, or TYPEnnn for types without one.
func TypeString(t uint16) string {
	if s, ok := typeToString[t]; ok {
		return s
	}
	return "TYPE" + strconv.Itoa(int(t))
}

// RcodeString returns the mnemonic of rcode, or RCODEnnn.
func RcodeString(rcode uint8) string {
	if s, ok := rcodeToString[rcode]; ok {
		return s
	}
	return "RCODE" + strconv.Itoa(int(rcode))
}
