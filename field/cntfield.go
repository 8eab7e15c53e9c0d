package field

import (
	stdbin "encoding/binary"

	"github.com/pkg/errors"
)

// CntField decodes a leading primitive element count followed by that many
// elements. The count's own encoding (byte, word or dword, signed or not) is
// part of the template. A zero count yields an explicit empty result and
// consumes only the count's width; element decoding is never attempted.
//
// The template itself is immutable: the declared count encoding is never
// overwritten by a decode or a failed encode, so a template shared between
// records cannot be corrupted.
type CntField struct {
	common
	elemKind  Kind
	countKind Kind

	decoded      bool
	decodedSize  int
	decodedCount int
}

// NewCnt returns a counted-sequence template. countKind must be a 1, 2 or
// 4 byte integer kind.
func NewCnt(elemKind, countKind Kind, name string, opts ...Option) *CntField {
	f := &CntField{elemKind: elemKind, countKind: countKind}
	f.name = name
	f.apply(opts)
	return f
}

// Kind returns the element encoding.
func (f *CntField) Kind() Kind { return f.elemKind }

// CountKind returns the encoding of the leading count.
func (f *CntField) CountKind() Kind { return f.countKind }

// DecodedCount returns the element count recovered by the last decode.
func (f *CntField) DecodedCount() int { return f.decodedCount }

func (f *CntField) Size(ctx *Context) (int, bool) {
	if f.decoded {
		return f.decodedSize, true
	}
	return 0, false
}

func (f *CntField) AlignValue(ctx *Context) int {
	if f.align > 0 {
		return f.align
	}
	w, err := f.countKind.Width(ctx.wordSize())
	if err != nil {
		return 0
	}
	return w
}

func (f *CntField) Align(offset int, ctx *Context) int {
	return alignTo(offset, f.AlignValue(ctx))
}

func (f *CntField) Decode(buf []byte, off int, ctx *Context) (Value, int, error) {
	ws, order := ctx.wordSize(), f.byteOrder(ctx)
	cv, cn, err := f.countKind.decodeScalar(buf, off, ws, order)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "count of %q", f.name)
	}
	cnt, err := toCount(cv)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "count of %q", f.name)
	}

	v, n, err := decodeElems(f.elemKind, cnt, buf, off+cn, ws, order)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "elements of %q", f.name)
	}
	f.decoded = true
	f.decodedSize = cn + n
	f.decodedCount = cnt
	return v, cn + n, nil
}

// Encode derives the count from the length of the supplied sequence, writes
// it in the declared count encoding, then the elements.
func (f *CntField) Encode(v Value, ctx *Context) ([]byte, error) {
	ws, order := ctx.wordSize(), f.byteOrder(ctx)
	cnt, err := seqLen(f.elemKind, v)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", f.name)
	}
	out, err := f.countKind.appendScalar(nil, cnt, ws, order)
	if err != nil {
		return nil, errors.Wrapf(err, "count of %q", f.name)
	}
	return encodeElems(f.elemKind, out, v, ws, order)
}

func (f *CntField) Clone(owner Record) Field {
	c := *f
	c.owner = owner
	c.decoded = false
	c.decodedSize = 0
	c.decodedCount = 0
	return &c
}

func (f *CntField) Equal(o Field) bool {
	of, ok := o.(*CntField)
	if !ok {
		return false
	}
	return f.elemKind == of.elemKind && f.countKind == of.countKind && f.equalTemplate(&of.common)
}

// decodeElems reads cnt elements of kind k at off. Byte-run kinds produce a
// single []byte; scalar kinds produce a []Value. A zero count produces an
// empty result without touching the buffer.
func decodeElems(k Kind, cnt int, buf []byte, off, ws int, order stdbin.ByteOrder) (Value, int, error) {
	if cnt == 0 {
		if k.Run() {
			return []byte{}, 0, nil
		}
		return []Value{}, 0, nil
	}
	if k.Run() {
		if err := checkLen(buf, off, cnt); err != nil {
			return nil, 0, err
		}
		return append([]byte(nil), buf[off:off+cnt]...), cnt, nil
	}
	out := make([]Value, 0, cnt)
	pos := off
	for i := 0; i < cnt; i++ {
		v, n, err := k.decodeScalar(buf, pos, ws, order)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
		pos += n
	}
	return out, pos - off, nil
}

func encodeElems(k Kind, dst []byte, v Value, ws int, order stdbin.ByteOrder) ([]byte, error) {
	if k.Run() {
		b, ok := asBytes(v)
		if !ok {
			return nil, errors.Wrapf(ErrValueType, "%s sequence requires bytes, got %T", k, v)
		}
		return append(dst, b...), nil
	}
	seq, ok := v.([]Value)
	if !ok {
		return nil, errors.Wrapf(ErrValueType, "%s sequence requires []Value, got %T", k, v)
	}
	var err error
	for i, ev := range seq {
		dst, err = k.appendScalar(dst, ev, ws, order)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
	}
	return dst, nil
}

// seqLen returns the element count of a value to be encoded as a sequence.
func seqLen(k Kind, v Value) (int, error) {
	if k.Run() {
		b, ok := asBytes(v)
		if !ok {
			return 0, errors.Wrapf(ErrValueType, "%s sequence requires bytes, got %T", k, v)
		}
		return len(b), nil
	}
	if seq, ok := v.([]Value); ok {
		return len(seq), nil
	}
	return 0, errors.Wrapf(ErrValueType, "%s sequence requires []Value, got %T", k, v)
}
