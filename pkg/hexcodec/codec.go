// Package hexcodec encodes single precision floats and 32-bit colors as
// fixed-width lowercase hex strings.
//
// A float is written as its IEEE-754 bit pattern, most significant byte
// first, so decoding reproduces the value bit for bit on any architecture:
// signed zeros, subnormals, infinities and NaN payloads included. Decimal
// text only ever appears in an optional trailing comment.
package hexcodec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Width is the number of hex digits of every encoded value.
const Width = 8

// ErrLength is returned when a value does not have exactly Width digits.
var ErrLength = errors.New("hexcodec: value must be 8 hex digits")

// EncodeFloat32 returns the bit pattern of f as 8 lowercase hex digits.
func EncodeFloat32(f float32) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], math.Float32bits(f))
	return hex.EncodeToString(buf[:])
}

// DecodeFloat32 is the exact inverse of EncodeFloat32.
func DecodeFloat32(s string) (float32, error) {
	bits, err := decodeWord(s)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// EncodeColor formats a 32-bit alpha/red/green/blue color as RRGGBBAA.
// Negative values, as produced by hosts that expose colors as signed
// 32-bit integers, are masked into the unsigned range first.
func EncodeColor(argb int64) string {
	s := fmt.Sprintf("%08x", uint32(argb&0xffffffff))
	return s[2:] + s[:2]
}

// DecodeColor parses an RRGGBBAA string back into an ARGB value.
func DecodeColor(s string) (uint32, error) {
	rgba, err := decodeWord(s)
	if err != nil {
		return 0, err
	}
	return rgba>>8 | rgba<<24, nil
}

// Comment renders values as a human readable "# " prefixed comment. It
// carries no normative value.
func Comment(values ...float32) string {
	var sb strings.Builder
	sb.WriteString("#")
	for _, v := range values {
		fmt.Fprintf(&sb, " %6.2f", v)
	}
	return sb.String()
}

func decodeWord(s string) (uint32, error) {
	if len(s) != Width {
		return 0, fmt.Errorf("%w: %q", ErrLength, s)
	}
	var buf [4]byte
	if _, err := hex.Decode(buf[:], []byte(s)); err != nil {
		return 0, fmt.Errorf("decode %q: %w", s, err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}
