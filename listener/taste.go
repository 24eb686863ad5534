package listener

import "github.com/treemana/fakedns/wire"

const dnsPort = 53

// Taste scores how likely data, sent to dport, is DNS: one point for the well known
// port and two more when data decodes as a DNS message.
func Taste(data []byte, dport int) int {
	var confidence int
	if dport == dnsPort {
		confidence = 1
	}

	if _, err := wire.Decode(data); err != nil {
		return confidence
	}

	return confidence + 2
}
