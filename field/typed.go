package field

import (
	"github.com/pkg/errors"
)

// TypedField delegates decoding and encoding to a named type resolved
// through the registry at first use. Definitions may forward-reference each
// other freely; an unresolvable name only fails once the field decodes.
type TypedField struct {
	common
	typeName string
	typ      Type // cached after first resolution
	count    int

	decoded     bool
	decodedSize int
}

// NewTyped returns a field template referencing a registered type by name.
func NewTyped(typeName string, count int, name string, opts ...Option) *TypedField {
	f := &TypedField{typeName: typeName, count: count}
	f.name = name
	f.apply(opts)
	return f
}

// NewTypedOf returns a field template carrying a direct type handle instead
// of a registry key.
func NewTypedOf(t Type, typeName string, count int, name string, opts ...Option) *TypedField {
	f := NewTyped(typeName, count, name, opts...)
	f.typ = t
	return f
}

// TypeName returns the registry key this field resolves through.
func (f *TypedField) TypeName() string { return f.typeName }

// Count returns 0 for a single value or the fixed array length.
func (f *TypedField) Count() int { return f.count }

// ResolveType resolves and caches the referenced type eagerly. Decoding
// resolves lazily on its own; this is for callers that need the type before
// any decode, such as bit group concatenation.
func (f *TypedField) ResolveType(r Resolver) error {
	if f.typ != nil {
		return nil
	}
	if r == nil {
		return errors.Wrapf(ErrTypeNotFound, "%q (nil resolver)", f.typeName)
	}
	t, err := r.Resolve(f.typeName)
	if err != nil {
		return err
	}
	f.typ = t
	return nil
}

func (f *TypedField) resolve(ctx *Context) (Type, error) {
	if f.typ != nil {
		return f.typ, nil
	}
	t, err := ctx.resolve(f.typeName)
	if err != nil {
		return nil, err
	}
	f.typ = t
	return t, nil
}

func (f *TypedField) n() int {
	if f.count > 0 {
		return f.count
	}
	return 1
}

// Size is the referenced type's size times the count once the type is
// resolvable and fixed-width; otherwise it is undetermined until decoded.
func (f *TypedField) Size(ctx *Context) (int, bool) {
	if f.decoded {
		return f.decodedSize, true
	}
	t, err := f.resolve(ctx)
	if err != nil {
		return 0, false
	}
	sz, ok := t.SizeOf(ctx.wordSize())
	if !ok {
		return 0, false
	}
	return sz * f.n(), true
}

func (f *TypedField) AlignValue(ctx *Context) int {
	if f.align > 0 {
		return f.align
	}
	if f.typ != nil {
		return f.typ.AlignOf(ctx.wordSize())
	}
	return ctx.wordSize()
}

func (f *TypedField) Align(offset int, ctx *Context) int {
	return alignTo(offset, f.AlignValue(ctx))
}

// Decode reads count consecutive instances of the referenced type. Each
// instance advances the offset by its own decoded size, not by a fixed
// guess, because the type may itself be variable-length.
func (f *TypedField) Decode(buf []byte, off int, ctx *Context) (Value, int, error) {
	t, err := f.resolve(ctx)
	if err != nil {
		return nil, 0, err
	}
	if f.count == 0 {
		v, n, err := t.Decode(buf, off, ctx)
		if err != nil {
			return nil, 0, err
		}
		f.decoded = true
		f.decodedSize = n
		return v, n, nil
	}

	out := make([]Value, 0, f.count)
	pos := off
	for i := 0; i < f.count; i++ {
		v, n, err := t.Decode(buf, pos, ctx)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "%s[%d]", f.typeName, i)
		}
		out = append(out, v)
		pos += n
	}
	f.decoded = true
	f.decodedSize = pos - off
	return out, pos - off, nil
}

func (f *TypedField) Encode(v Value, ctx *Context) ([]byte, error) {
	t, err := f.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if f.count == 0 {
		return t.Encode(v, ctx)
	}
	seq, ok := v.([]Value)
	if !ok {
		return nil, errors.Wrapf(ErrValueType, "array field %q requires []Value, got %T", f.name, v)
	}
	if len(seq) != f.count {
		return nil, errors.Wrapf(ErrValueType, "array field %q requires %d elements, got %d", f.name, f.count, len(seq))
	}
	var out []byte
	for i, ev := range seq {
		b, err := t.Encode(ev, ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", f.typeName, i)
		}
		out = append(out, b...)
	}
	return out, nil
}

func (f *TypedField) Clone(owner Record) Field {
	c := *f
	c.owner = owner
	c.decoded = false
	c.decodedSize = 0
	return &c
}

func (f *TypedField) Equal(o Field) bool {
	of, ok := o.(*TypedField)
	if !ok {
		return false
	}
	return f.typeName == of.typeName && f.count == of.count && f.equalTemplate(&of.common)
}
