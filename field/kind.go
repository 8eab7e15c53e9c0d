package field

import (
	stdbin "encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/binarytools/strata/internal/binary"
)

// Kind identifies a raw fixed-width native encoding.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPad          // padding byte, no value
	KindChar         // single byte, concatenated into byte runs
	KindBytes        // fixed byte run
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindLong  // native signed long, 4 or 8 bytes by word size
	KindUlong // native unsigned long
	KindPtr   // native pointer
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindPad:     "pad",
	KindChar:    "char",
	KindBytes:   "bytes",
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindUint16:  "uint16",
	KindInt32:   "int32",
	KindUint32:  "uint32",
	KindInt64:   "int64",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindLong:    "long",
	KindUlong:   "ulong",
	KindPtr:     "ptr",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Width returns the encoded byte width of the kind. Word-size dependent
// kinds resolve against ws; word sizes other than 4 and 8 fail with
// ErrWordSize.
func (k Kind) Width(ws int) (int, error) {
	switch k {
	case KindPad, KindChar, KindBytes, KindInt8, KindUint8:
		return 1, nil
	case KindInt16, KindUint16:
		return 2, nil
	case KindInt32, KindUint32, KindFloat32:
		return 4, nil
	case KindInt64, KindUint64, KindFloat64:
		return 8, nil
	case KindLong, KindUlong, KindPtr:
		switch ws {
		case 4, 8:
			return ws, nil
		}
		return 0, errors.Wrapf(ErrWordSize, "%s with word size %d", k, ws)
	}
	return 0, errors.Wrapf(ErrValueType, "invalid kind %d", uint8(k))
}

// Signed reports whether the kind decodes to a signed integer.
func (k Kind) Signed() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64, KindLong:
		return true
	}
	return false
}

// Run reports whether elements of this kind concatenate into a single byte
// sequence instead of a list of scalars.
func (k Kind) Run() bool {
	return k == KindChar || k == KindBytes
}

// decodeScalar reads one value of the kind from buf at off and returns it
// with the bytes consumed.
func (k Kind) decodeScalar(buf []byte, off, ws int, order stdbin.ByteOrder) (Value, int, error) {
	w, err := k.Width(ws)
	if err != nil {
		return nil, 0, err
	}
	if err := checkLen(buf, off, w); err != nil {
		return nil, 0, err
	}
	b := buf[off : off+w]
	switch k {
	case KindPad:
		return nil, 1, nil
	case KindChar, KindBytes:
		return []byte{b[0]}, 1, nil
	case KindInt8:
		return int8(b[0]), 1, nil
	case KindUint8:
		return b[0], 1, nil
	case KindInt16:
		return binary.Get[int16](b, order), 2, nil
	case KindUint16:
		return binary.Get[uint16](b, order), 2, nil
	case KindInt32:
		return binary.Get[int32](b, order), 4, nil
	case KindUint32:
		return binary.Get[uint32](b, order), 4, nil
	case KindInt64:
		return binary.Get[int64](b, order), 8, nil
	case KindUint64:
		return binary.Get[uint64](b, order), 8, nil
	case KindFloat32:
		return math.Float32frombits(binary.Get[uint32](b, order)), 4, nil
	case KindFloat64:
		return math.Float64frombits(binary.Get[uint64](b, order)), 8, nil
	case KindLong:
		if w == 4 {
			return binary.Get[int32](b, order), 4, nil
		}
		return binary.Get[int64](b, order), 8, nil
	case KindUlong, KindPtr:
		if w == 4 {
			return binary.Get[uint32](b, order), 4, nil
		}
		return binary.Get[uint64](b, order), 8, nil
	}
	return nil, 0, errors.Wrapf(ErrValueType, "invalid kind %d", uint8(k))
}

// appendScalar encodes one value of the kind onto dst. Integer values of any
// width are accepted and truncated to the kind's width, which is what the
// masked-group packing of bit fields relies on.
func (k Kind) appendScalar(dst []byte, v Value, ws int, order stdbin.ByteOrder) ([]byte, error) {
	w, err := k.Width(ws)
	if err != nil {
		return nil, err
	}
	switch k {
	case KindPad:
		return append(dst, 0), nil
	case KindChar, KindBytes:
		switch x := v.(type) {
		case []byte:
			if len(x) == 0 {
				return append(dst, 0), nil
			}
			return append(dst, x[0]), nil
		case byte:
			return append(dst, x), nil
		}
		return nil, errors.Wrapf(ErrValueType, "%s scalar requires bytes, got %T", k, v)
	case KindFloat32:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return binary.Append(dst, math.Float32bits(float32(f)), order), nil
	case KindFloat64:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return binary.Append(dst, math.Float64bits(f), order), nil
	}
	u, err := toUint64(v)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", k)
	}
	return binary.AppendUint(dst, u, w, order), nil
}

func toFloat64(v Value) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, errors.Wrapf(ErrValueType, "float required, got %T", v)
}
