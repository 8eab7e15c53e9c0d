package field

import (
	"github.com/pkg/errors"

	"github.com/binarytools/strata/internal/leb128"
)

// Leb128Field decodes and encodes LEB128 variable-length integers. The
// signedness of the declared base kind selects the unsigned or signed
// variant; the byte width of the base kind has no effect on the wire form.
// Size is undetermined before the first decode.
type Leb128Field struct {
	common
	kind   Kind
	signed bool

	decoded     bool
	decodedSize int
}

// NewLeb128 returns a LEB128 template. kind supplies only the signedness.
func NewLeb128(kind Kind, name string, opts ...Option) *Leb128Field {
	f := &Leb128Field{kind: kind, signed: kind.Signed()}
	f.name = name
	f.apply(opts)
	return f
}

// Signed reports whether the field carries the signed variant.
func (f *Leb128Field) Signed() bool { return f.signed }

func (f *Leb128Field) Size(ctx *Context) (int, bool) {
	if f.decoded {
		return f.decodedSize, true
	}
	return 0, false
}

func (f *Leb128Field) AlignValue(ctx *Context) int {
	if f.align > 0 {
		return f.align
	}
	return 1
}

func (f *Leb128Field) Align(offset int, ctx *Context) int {
	return alignTo(offset, f.AlignValue(ctx))
}

func (f *Leb128Field) Decode(buf []byte, off int, ctx *Context) (Value, int, error) {
	if err := checkLen(buf, off, 1); err != nil {
		return nil, 0, err
	}
	var v Value
	var n int
	var err error
	if f.signed {
		v, n, err = leb128.Int(buf[off:])
	} else {
		v, n, err = leb128.Uint(buf[off:])
	}
	if err != nil {
		return nil, 0, errors.Wrapf(ErrShortBuffer, "leb128 at offset %d: %v", off, err)
	}
	f.decoded = true
	f.decodedSize = n
	return v, n, nil
}

func (f *Leb128Field) Encode(v Value, ctx *Context) ([]byte, error) {
	if f.signed {
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return leb128.AppendInt(nil, i), nil
	}
	u, err := toUint64(v)
	if err != nil {
		return nil, err
	}
	return leb128.AppendUint(nil, u), nil
}

func (f *Leb128Field) Clone(owner Record) Field {
	c := *f
	c.owner = owner
	c.decoded = false
	c.decodedSize = 0
	return &c
}

func (f *Leb128Field) Equal(o Field) bool {
	of, ok := o.(*Leb128Field)
	if !ok {
		return false
	}
	return f.kind == of.kind && f.signed == of.signed && f.equalTemplate(&of.common)
}
