package wire

import (
	"fmt"
	"strconv"
)

// packName appends the uncompressed wire form of a presentation name to b.
func packName(b []byte, name string) ([]byte, error) {
	if name == "" || name == "." {
		return append(b, 0), nil
	}

	var (
		label = make([]byte, 0, maxLabelLen)
		total int
	)

	flush := func() error {
		if len(label) == 0 {
			return fmt.Errorf("%w: empty label in %q", ErrInvalidName, name)
		}
		if len(label) > maxLabelLen {
			return fmt.Errorf("%w: label longer than %d in %q", ErrInvalidName, maxLabelLen, name)
		}
		total += len(label) + 1
		b = append(b, byte(len(label)))
		b = append(b, label...)
		label = label[:0]
		return nil
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '\\':
			if i+1 >= len(name) {
				return nil, fmt.Errorf("%w: dangling escape in %q", ErrInvalidName, name)
			}
			if isDigit(name[i+1]) {
				if i+3 >= len(name) || !isDigit(name[i+2]) || !isDigit(name[i+3]) {
					return nil, fmt.Errorf("%w: short decimal escape in %q", ErrInvalidName, name)
				}
				v, _ := strconv.Atoi(name[i+1 : i+4])
				if v > 255 {
					return nil, fmt.Errorf("%w: escape out of range in %q", ErrInvalidName, name)
				}
				label = append(label, byte(v))
				i += 3
				continue
			}
			label = append(label, name[i+1])
			i++
		case c == '.':
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			label = append(label, c)
		}
	}
	if len(label) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	if total+1 > maxNameLen {
		return nil, fmt.Errorf("%w: %q longer than %d octets", ErrInvalidName, name, maxNameLen)
	}
	return append(b, 0), nil
}

// unpackName reads the name starting at msg[off] and returns it together with the offset
// of the first byte after it in the uncompressed stream.
func unpackName(msg []byte, off int) (string, int, error) {
	var (
		name     = make([]byte, 0, 64)
		wireLen  int
		pointers int
		next     = -1 // resume offset once the first pointer was followed
	)

	for {
		if off >= len(msg) {
			return "", 0, fmt.Errorf("%w: name overflows message", ErrMalformed)
		}
		c := int(msg[off])
		off++

		switch c & 0xC0 {
		case 0x00:
			if c == 0 {
				if len(name) == 0 {
					name = append(name, '.')
				}
				if next < 0 {
					next = off
				}
				return string(name), next, nil
			}
			if off+c > len(msg) {
				return "", 0, fmt.Errorf("%w: label overflows message", ErrMalformed)
			}
			wireLen += c + 1
			if wireLen+1 > maxNameLen {
				return "", 0, fmt.Errorf("%w: name longer than %d octets", ErrMalformed, maxNameLen)
			}
			for _, b := range msg[off : off+c] {
				name = appendEscaped(name, b)
			}
			name = append(name, '.')
			off += c

		case 0xC0:
			if off >= len(msg) {
				return "", 0, fmt.Errorf("%w: truncated compression pointer", ErrMalformed)
			}
			if pointers++; pointers > maxPointers {
				return "", 0, fmt.Errorf("%w: too many compression pointers", ErrMalformed)
			}
			if next < 0 {
				next = off + 1
			}
			off = (c&0x3F)<<8 | int(msg[off])

		default:
			return "", 0, fmt.Errorf("%w: unsupported label type 0x%02x", ErrMalformed, c&0xC0)
		}
	}
}

func appendEscaped(name []byte, b byte) []byte {
	switch {
	case b == '.' || b == '\\':
		return append(name, '\\', b)
	case b < '!' || b > '~':
		return append(name, '\\', '0'+b/100, '0'+b/10%10, '0'+b%10)
	default:
		return append(name, b)
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// CheckName reports whether name can be encoded.
func CheckName(name string) error {
	_, err := packName(nil, name)
	return err
}
