package frame

import (
	"errors"
	"fmt"
)

const hexDigits = "0123456789ABCDEF"

var (
	ErrHexLength = errors.New("frame: invalid hex length")
	ErrHexDigit  = errors.New("frame: invalid hex digit")
)

// Render maps each byte to two uppercase hex characters with no separators.
// No line terminator is added.
func Render(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, x := range b {
		out = append(out, hexDigits[x>>4], hexDigits[x&0x0F])
	}
	return string(out)
}

// Parse is the inverse of Render. Lower-case digits are accepted.
func Parse(s string) (Frame, error) {
	var f Frame
	if len(s) != Size*2 {
		return f, fmt.Errorf("%w: got %d characters, want %d", ErrHexLength, len(s), Size*2)
	}
	for i := range f {
		hi, ok1 := nibble(s[2*i])
		lo, ok2 := nibble(s[2*i+1])
		if !ok1 || !ok2 {
			return Frame{}, fmt.Errorf("%w at offset %d: %q", ErrHexDigit, 2*i, s[2*i:2*i+2])
		}
		f[i] = hi<<4 | lo
	}
	return f, nil
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
