// Package leb128 implements the Little-Endian Base-128 variable-length
// integer encoding: 7 value bits per byte, least-significant group first,
// with the high bit of each byte signalling continuation.
package leb128

import "github.com/pkg/errors"

// ErrTruncated reports that the buffer ended while the last byte read still
// had its continuation bit set.
var ErrTruncated = errors.New("leb128: truncated encoding")

// Uint decodes an unsigned value from the start of b. It returns the value
// and the number of bytes consumed.
func Uint(b []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, c := range b {
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errors.WithStack(ErrTruncated)
}

// Int decodes a signed value from the start of b, sign-extending from the
// sign bit of the final group. It returns the value and the number of bytes
// consumed.
func Int(b []byte) (int64, int, error) {
	var v uint64
	var shift uint
	for i, c := range b {
		v |= uint64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if c&0x40 != 0 && shift < 64 {
				v |= ^uint64(0) << shift
			}
			return int64(v), i + 1, nil
		}
	}
	return 0, 0, errors.WithStack(ErrTruncated)
}

// AppendUint appends the unsigned encoding of v to dst.
func AppendUint(dst []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		dst = append(dst, c)
		if v == 0 {
			return dst
		}
	}
}

// AppendInt appends the signed encoding of v to dst. The final group's sign
// bit must match the sign of v, which can require one extra group when the
// magnitude is an exact multiple of 7 bits.
func AppendInt(dst []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(dst, c)
		}
		dst = append(dst, c|0x80)
	}
}
