// Package binary provides generic fixed-width integer load/store helpers
// parameterized by byte order. It replaces repeated encoding/binary call
// sites where the integer width is driven by a type parameter.
package binary

import (
	stdbin "encoding/binary"
	"fmt"

	"golang.org/x/exp/constraints"
)

// Get reads a fixed-width integer of type T from the start of b using bo.
// b must hold at least the width of T.
func Get[T constraints.Integer](b []byte, bo stdbin.ByteOrder) T {
	var r T // only used for type detection
	switch any(r).(type) {
	case int8:
		return T(int8(b[0]))
	case uint8:
		return T(b[0])
	case int16:
		return T(int16(bo.Uint16(b)))
	case uint16:
		return T(bo.Uint16(b))
	case int32:
		return T(int32(bo.Uint32(b)))
	case uint32:
		return T(bo.Uint32(b))
	case int64:
		return T(int64(bo.Uint64(b)))
	case uint64:
		return T(bo.Uint64(b))
	}
	panic(fmt.Sprintf("unsupported type that passed the type constraint %T", r))
}

// Put writes v at the start of b using bo. b must hold at least the width of T.
func Put[T constraints.Integer](b []byte, v T, bo stdbin.ByteOrder) {
	switch any(v).(type) {
	case int8, uint8:
		b[0] = byte(v)
	case int16, uint16:
		bo.PutUint16(b, uint16(v))
	case int32, uint32:
		bo.PutUint32(b, uint32(v))
	case int64, uint64:
		bo.PutUint64(b, uint64(v))
	default:
		panic(fmt.Sprintf("unsupported type that passed the type constraint %T", v))
	}
}

// Append appends the encoding of v to dst and returns the extended slice.
func Append[T constraints.Integer](dst []byte, v T, bo stdbin.ByteOrder) []byte {
	var b [8]byte
	switch any(v).(type) {
	case int8, uint8:
		Put(b[:1], v, bo)
		return append(dst, b[:1]...)
	case int16, uint16:
		Put(b[:2], v, bo)
		return append(dst, b[:2]...)
	case int32, uint32:
		Put(b[:4], v, bo)
		return append(dst, b[:4]...)
	}
	Put(b[:8], v, bo)
	return append(dst, b[:8]...)
}

// AppendUint appends the low "width" bytes of v to dst using bo. width must
// be 1, 2, 4 or 8.
func AppendUint(dst []byte, v uint64, width int, bo stdbin.ByteOrder) []byte {
	switch width {
	case 1:
		return append(dst, byte(v))
	case 2:
		return Append(dst, uint16(v), bo)
	case 4:
		return Append(dst, uint32(v), bo)
	case 8:
		return Append(dst, v, bo)
	}
	panic(fmt.Sprintf("AppendUint() width must be 1, 2, 4 or 8, got %d", width))
}

// Uint reads an unsigned integer of the given byte width from the start of b
// using bo. width must be 1, 2, 4 or 8.
func Uint(b []byte, width int, bo stdbin.ByteOrder) uint64 {
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(bo.Uint16(b))
	case 4:
		return uint64(bo.Uint32(b))
	case 8:
		return bo.Uint64(b)
	}
	panic(fmt.Sprintf("Uint() width must be 1, 2, 4 or 8, got %d", width))
}
