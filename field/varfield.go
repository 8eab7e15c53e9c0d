package field

import (
	"github.com/pkg/errors"
)

// Predicate decides whether the run a VarField is decoding terminates at the
// just-decoded element.
type Predicate func(v Value, f *VarField) bool

// VarField decodes a run of fixed-width elements whose length is unknown
// until a predicate over the most recently decoded element signals
// termination. The terminating element is part of the result and of the
// consumed size. Size is undetermined before the first decode.
//
// The default predicate stops at the zero value: numeric zero, or the single
// null byte for byte-run kinds.
type VarField struct {
	common
	kind Kind
	pred Predicate // nil selects the zero-value terminator

	decoded      bool
	decodedSize  int
	decodedCount int
}

// NewVar returns a terminated-sequence template over the given element kind.
func NewVar(kind Kind, name string, opts ...Option) *VarField {
	f := &VarField{kind: kind}
	f.name = name
	f.apply(opts)
	return f
}

// Kind returns the element encoding.
func (f *VarField) Kind() Kind { return f.kind }

// SetTerminate installs a custom termination predicate on this instance. It
// must be called before decoding; clones keep the installed predicate.
func (f *VarField) SetTerminate(p Predicate) { f.pred = p }

// DecodedCount returns the number of elements recovered by the last decode.
func (f *VarField) DecodedCount() int { return f.decodedCount }

func (f *VarField) terminate(v Value) bool {
	if f.pred != nil {
		return f.pred(v, f)
	}
	return isZero(v)
}

func (f *VarField) Size(ctx *Context) (int, bool) {
	if f.decoded {
		return f.decodedSize, true
	}
	return 0, false
}

func (f *VarField) AlignValue(ctx *Context) int {
	if f.align > 0 {
		return f.align
	}
	w, err := f.kind.Width(ctx.wordSize())
	if err != nil {
		return 0
	}
	return w
}

func (f *VarField) Align(offset int, ctx *Context) int {
	return alignTo(offset, f.AlignValue(ctx))
}

func (f *VarField) Decode(buf []byte, off int, ctx *Context) (Value, int, error) {
	ws, order := ctx.wordSize(), f.byteOrder(ctx)
	pos := off
	var elems []Value
	for {
		v, n, err := f.kind.decodeScalar(buf, pos, ws, order)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "element %d of %q", len(elems), f.name)
		}
		elems = append(elems, v)
		pos += n
		if f.terminate(v) {
			break
		}
	}
	f.decoded = true
	f.decodedSize = pos - off
	f.decodedCount = len(elems)

	if f.kind.Run() {
		out := make([]byte, 0, len(elems))
		for _, e := range elems {
			out = append(out, e.([]byte)...)
		}
		return out, pos - off, nil
	}
	return elems, pos - off, nil
}

// Encode packs the full supplied sequence verbatim. The caller decides
// whether a terminator element is part of the value.
func (f *VarField) Encode(v Value, ctx *Context) ([]byte, error) {
	ws, order := ctx.wordSize(), f.byteOrder(ctx)
	if f.kind.Run() {
		b, ok := asBytes(v)
		if !ok {
			return nil, errors.Wrapf(ErrValueType, "%s sequence %q requires bytes, got %T", f.kind, f.name, v)
		}
		return append([]byte(nil), b...), nil
	}
	seq, ok := v.([]Value)
	if !ok {
		return nil, errors.Wrapf(ErrValueType, "sequence %q requires []Value, got %T", f.name, v)
	}
	var out []byte
	var err error
	for i, ev := range seq {
		out, err = f.kind.appendScalar(out, ev, ws, order)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d of %q", i, f.name)
		}
	}
	return out, nil
}

func (f *VarField) Clone(owner Record) Field {
	c := *f
	c.owner = owner
	c.decoded = false
	c.decodedSize = 0
	c.decodedCount = 0
	return &c
}

func (f *VarField) Equal(o Field) bool {
	of, ok := o.(*VarField)
	if !ok {
		return false
	}
	return f.kind == of.kind && f.equalTemplate(&of.common)
}
