package log

import (
	"fmt"
	"strings"
)

const (
	dumpWidth = 16
	separator = "--------------------------------------------------------------------------------"
)

// Hexdump renders data as lines of "OFFS: HEX ASCII", 16 bytes per line, with
// non-printable bytes shown as '.'.
func Hexdump(data []byte) []string {
	lines := make([]string, 0, (len(data)+dumpWidth-1)/dumpWidth)

	for off := 0; off < len(data); off += dumpWidth {
		chunk := data[off:min(off+dumpWidth, len(data))]

		var hex, ascii strings.Builder
		for i, b := range chunk {
			if i > 0 {
				hex.WriteByte(' ')
			}
			fmt.Fprintf(&hex, "%02X", b)

			if b > 31 && b < 127 {
				ascii.WriteByte(b)
			} else {
				ascii.WriteByte('.')
			}
		}

		lines = append(lines, fmt.Sprintf("%04X: %-*s %s", off, dumpWidth*3, hex.String(), ascii.String()))
	}

	return lines
}
