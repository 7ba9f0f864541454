package osc

import (
	"bytes"
	"fmt"
)

var zeros [bit32Size]byte

// appendPaddedString writes str, its NUL terminator and the padding bytes
// needed to reach a 4 byte boundary.
func appendPaddedString(b []byte, str string) []byte {
	b = append(b, str...)
	b = append(b, 0)
	return append(b, zeros[:padBytesNeeded(len(str)+1)]...)
}

// parsePaddedString reads a padded string from data and returns the string
// and the number of bytes consumed, padding included.
func parsePaddedString(data []byte) (string, int, error) {
	pos := bytes.IndexByte(data, 0)
	if pos == -1 {
		return "", 0, fmt.Errorf("parsePaddedString: missing terminator: %w", ErrMalformed)
	}

	n := paddedLen(pos)
	if n > len(data) {
		return "", 0, fmt.Errorf("parsePaddedString: short padding: %w", ErrMalformed)
	}
	return string(data[:pos]), n, nil
}

// paddedLen is the encoded size of a string of strLen bytes.
func paddedLen(strLen int) int {
	return strLen + 1 + padBytesNeeded(strLen+1)
}

// padBytesNeeded determines how many bytes are needed to fill up to the next 4
// byte length.
func padBytesNeeded(elementLen int) int {
	return (4 - (elementLen % 4)) % 4
}
