package field

import (
	"github.com/pkg/errors"
)

// BoundField decodes like CntField except the element count is not inline:
// it is read from the already-decoded value of a named sibling field in the
// same owning record. The sibling must precede this field in declaration
// order; decoding it first is the record's job, and a violation surfaces as
// ErrBindOrder without consuming any bytes.
//
// Encoding packs the elements only. The sibling's value is read, never
// written.
type BoundField struct {
	common
	elemKind Kind
	sibling  string

	decoded      bool
	decodedSize  int
	decodedCount int
}

// NewBound returns a sibling-bound sequence template.
func NewBound(elemKind Kind, sibling, name string, opts ...Option) *BoundField {
	f := &BoundField{elemKind: elemKind, sibling: sibling}
	f.name = name
	f.apply(opts)
	return f
}

// Kind returns the element encoding.
func (f *BoundField) Kind() Kind { return f.elemKind }

// Sibling returns the name of the field supplying the element count.
func (f *BoundField) Sibling() string { return f.sibling }

// DecodedCount returns the element count recovered by the last decode.
func (f *BoundField) DecodedCount() int { return f.decodedCount }

func (f *BoundField) Size(ctx *Context) (int, bool) {
	if f.decoded {
		return f.decodedSize, true
	}
	return 0, false
}

func (f *BoundField) AlignValue(ctx *Context) int {
	if f.align > 0 {
		return f.align
	}
	w, err := f.elemKind.Width(ctx.wordSize())
	if err != nil {
		return 0
	}
	return w
}

func (f *BoundField) Align(offset int, ctx *Context) int {
	return alignTo(offset, f.AlignValue(ctx))
}

func (f *BoundField) Decode(buf []byte, off int, ctx *Context) (Value, int, error) {
	rec := f.owner
	if rec == nil {
		rec = ctx.record()
	}
	if rec == nil {
		return nil, 0, errors.Wrapf(ErrBindOrder, "field %q is bound to %q but has no owning record", f.name, f.sibling)
	}
	cv, ok := rec.Decoded(f.sibling)
	if !ok {
		return nil, 0, errors.Wrapf(ErrBindOrder, "field %q is bound to %q", f.name, f.sibling)
	}
	cnt, err := toCount(cv)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "count of %q from sibling %q", f.name, f.sibling)
	}

	v, n, err := decodeElems(f.elemKind, cnt, buf, off, ctx.wordSize(), f.byteOrder(ctx))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "elements of %q", f.name)
	}
	f.decoded = true
	f.decodedSize = n
	f.decodedCount = cnt
	return v, n, nil
}

func (f *BoundField) Encode(v Value, ctx *Context) ([]byte, error) {
	return encodeElems(f.elemKind, nil, v, ctx.wordSize(), f.byteOrder(ctx))
}

func (f *BoundField) Clone(owner Record) Field {
	c := *f
	c.owner = owner
	c.decoded = false
	c.decodedSize = 0
	c.decodedCount = 0
	return &c
}

func (f *BoundField) Equal(o Field) bool {
	of, ok := o.(*BoundField)
	if !ok {
		return false
	}
	return f.elemKind == of.elemKind && f.sibling == of.sibling && f.equalTemplate(&of.common)
}
