package field

import (
	"github.com/pkg/errors"
)

// RawField decodes and encodes fixed-width native scalars and fixed-length
// byte or character runs. A count of 0 yields a single value; a count > 0
// yields that many consecutive values ([]Value for scalar kinds, one
// concatenated []byte for byte-run kinds).
type RawField struct {
	common
	kind  Kind
	count int

	decoded     bool
	decodedSize int
}

// NewRaw returns a raw field template.
func NewRaw(kind Kind, count int, name string, opts ...Option) *RawField {
	f := &RawField{kind: kind, count: count}
	f.name = name
	f.apply(opts)
	return f
}

// Kind returns the native encoding of the field's elements.
func (f *RawField) Kind() Kind { return f.kind }

// Count returns 0 for a single value or the fixed array length.
func (f *RawField) Count() int { return f.count }

func (f *RawField) n() int {
	if f.count > 0 {
		return f.count
	}
	return 1
}

// Size returns the fixed byte width of the field, or false when a
// pointer-sized kind cannot resolve against the call's word size.
func (f *RawField) Size(ctx *Context) (int, bool) {
	w, err := f.kind.Width(ctx.wordSize())
	if err != nil {
		return 0, false
	}
	return w * f.n(), true
}

// AlignValue is the natural width of the resolved encoding unless the
// template overrides it.
func (f *RawField) AlignValue(ctx *Context) int {
	if f.align > 0 {
		return f.align
	}
	w, err := f.kind.Width(ctx.wordSize())
	if err != nil {
		return 0
	}
	return w
}

func (f *RawField) Align(offset int, ctx *Context) int {
	return alignTo(offset, f.AlignValue(ctx))
}

func (f *RawField) Decode(buf []byte, off int, ctx *Context) (Value, int, error) {
	ws, order := ctx.wordSize(), f.byteOrder(ctx)
	w, err := f.kind.Width(ws)
	if err != nil {
		return nil, 0, err
	}
	total := w * f.n()
	if err := checkLen(buf, off, total); err != nil {
		return nil, 0, err
	}

	var v Value
	switch {
	case f.kind == KindPad:
		v = nil
	case f.kind.Run():
		v = append([]byte(nil), buf[off:off+total]...)
	case f.count == 0:
		v, _, err = f.kind.decodeScalar(buf, off, ws, order)
		if err != nil {
			return nil, 0, err
		}
	default:
		out := make([]Value, 0, f.count)
		pos := off
		for i := 0; i < f.count; i++ {
			ev, n, err := f.kind.decodeScalar(buf, pos, ws, order)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, ev)
			pos += n
		}
		v = out
	}
	f.decoded = true
	f.decodedSize = total
	return v, total, nil
}

func (f *RawField) Encode(v Value, ctx *Context) ([]byte, error) {
	ws, order := ctx.wordSize(), f.byteOrder(ctx)
	w, err := f.kind.Width(ws)
	if err != nil {
		return nil, err
	}
	total := w * f.n()

	switch {
	case f.kind == KindPad:
		return make([]byte, total), nil
	case f.kind.Run():
		b, ok := asBytes(v)
		if !ok {
			return nil, errors.Wrapf(ErrValueType, "%s field %q requires bytes, got %T", f.kind, f.name, v)
		}
		out := make([]byte, total)
		copy(out, b) // short input zero-pads, long input truncates
		return out, nil
	case f.count == 0:
		return f.kind.appendScalar(nil, v, ws, order)
	}

	seq, ok := v.([]Value)
	if !ok {
		return nil, errors.Wrapf(ErrValueType, "%s array field %q requires []Value, got %T", f.kind, f.name, v)
	}
	if len(seq) != f.count {
		return nil, errors.Wrapf(ErrValueType, "array field %q requires %d elements, got %d", f.name, f.count, len(seq))
	}
	out := make([]byte, 0, total)
	for _, ev := range seq {
		out, err = f.kind.appendScalar(out, ev, ws, order)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *RawField) Clone(owner Record) Field {
	c := *f
	c.owner = owner
	c.decoded = false
	c.decodedSize = 0
	return &c
}

func (f *RawField) Equal(o Field) bool {
	of, ok := o.(*RawField)
	if !ok {
		return false
	}
	return f.kind == of.kind && f.count == of.count && f.equalTemplate(&of.common)
}

func asBytes(v Value) ([]byte, bool) {
	switch x := v.(type) {
	case []byte:
		return x, true
	case string:
		return []byte(x), true
	case byte:
		return []byte{x}, true
	}
	return nil, false
}
