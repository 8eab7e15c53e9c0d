package field

import (
	"github.com/pkg/errors"

	"github.com/binarytools/strata/internal/bits"
)

// BitField splits one raw primitive value into named sub-ranges of bits,
// least-significant range first. Decoding yields a map from sub-name to
// unsigned value; encoding packs the map back into the primitive.
//
// The sub-range order always runs from LSB to MSB regardless of the byte
// order the primitive itself is read with.
type BitField struct {
	common
	kind   Kind
	widths []int
	names  []string

	decoded     bool
	decodedSize int
}

// NewBits returns a bit group template over the given primitive kind. widths
// and names are parallel lists; extra entries on either side are ignored,
// the shorter list wins.
func NewBits(kind Kind, widths []int, names []string, opts ...Option) *BitField {
	f := &BitField{kind: kind, widths: widths, names: names}
	f.apply(opts)
	return f
}

// Kind returns the backing primitive encoding.
func (f *BitField) Kind() Kind { return f.kind }

// Subnames returns the sub-range names, LSB first. Records merge these into
// their value table since the group itself carries no field name.
func (f *BitField) Subnames() []string { return f.names }

// Widths returns the sub-range bit widths, LSB first.
func (f *BitField) Widths() []int { return f.widths }

func (f *BitField) Size(ctx *Context) (int, bool) {
	w, err := f.kind.Width(ctx.wordSize())
	if err != nil {
		return 0, false
	}
	return w, true
}

func (f *BitField) AlignValue(ctx *Context) int {
	if f.align > 0 {
		return f.align
	}
	w, err := f.kind.Width(ctx.wordSize())
	if err != nil {
		return 0
	}
	return w
}

func (f *BitField) Align(offset int, ctx *Context) int {
	return alignTo(offset, f.AlignValue(ctx))
}

func (f *BitField) Decode(buf []byte, off int, ctx *Context) (Value, int, error) {
	v, n, err := f.kind.decodeScalar(buf, off, ctx.wordSize(), f.byteOrder(ctx))
	if err != nil {
		return nil, 0, err
	}
	u, err := toUint64(v)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "bit group over %s", f.kind)
	}
	out := splitBits(u, f.widths, f.names)
	f.decoded = true
	f.decodedSize = n
	return out, n, nil
}

func (f *BitField) Encode(v Value, ctx *Context) ([]byte, error) {
	u, err := joinBits(v, f.widths, f.names)
	if err != nil {
		return nil, errors.Wrapf(err, "bit group over %s", f.kind)
	}
	return f.kind.appendScalar(nil, u, ctx.wordSize(), f.byteOrder(ctx))
}

// Concat moves sub-ranges from o onto f while the cumulative bit width stays
// within f's byte capacity, letting one packed word be declared across
// several textual lines. It fails with ErrBitOverflow when sub-ranges
// remain undistributed after capacity is exhausted.
func (f *BitField) Concat(o *BitField) error {
	w, err := f.kind.Width(0)
	if err != nil {
		return err
	}
	return concatRanges(&f.widths, &f.names, o.widths, o.names, w*8)
}

func (f *BitField) Clone(owner Record) Field {
	c := *f
	c.owner = owner
	c.decoded = false
	c.decodedSize = 0
	c.widths = append([]int(nil), f.widths...)
	c.names = append([]string(nil), f.names...)
	return &c
}

func (f *BitField) Equal(o Field) bool {
	of, ok := o.(*BitField)
	if !ok {
		return false
	}
	return f.kind == of.kind && eqInts(f.widths, of.widths) &&
		eqStrings(f.names, of.names) && f.equalTemplate(&of.common)
}

// TypedBitField is a bit group whose backing primitive is a registry
// resolved type (a typedef or macro type) rather than a literal native
// encoding. Behavior is otherwise identical to BitField.
type TypedBitField struct {
	common
	typeName string
	typ      Type
	widths   []int
	names    []string

	decoded     bool
	decodedSize int
}

// NewTypedBits returns a bit group template over a named type.
func NewTypedBits(typeName string, widths []int, names []string, opts ...Option) *TypedBitField {
	f := &TypedBitField{typeName: typeName, widths: widths, names: names}
	f.apply(opts)
	return f
}

// TypeName returns the registry key of the backing type.
func (f *TypedBitField) TypeName() string { return f.typeName }

// Subnames returns the sub-range names, LSB first.
func (f *TypedBitField) Subnames() []string { return f.names }

// Widths returns the sub-range bit widths, LSB first.
func (f *TypedBitField) Widths() []int { return f.widths }

// ResolveType resolves and caches the backing type, which Concat needs
// before any decode has run.
func (f *TypedBitField) ResolveType(r Resolver) error {
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

func (f *TypedBitField) resolve(ctx *Context) (Type, error) {
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

func (f *TypedBitField) Size(ctx *Context) (int, bool) {
	t, err := f.resolve(ctx)
	if err != nil {
		return 0, false
	}
	return t.SizeOf(ctx.wordSize())
}

func (f *TypedBitField) AlignValue(ctx *Context) int {
	if f.align > 0 {
		return f.align
	}
	if f.typ != nil {
		return f.typ.AlignOf(ctx.wordSize())
	}
	return ctx.wordSize()
}

func (f *TypedBitField) Align(offset int, ctx *Context) int {
	return alignTo(offset, f.AlignValue(ctx))
}

func (f *TypedBitField) Decode(buf []byte, off int, ctx *Context) (Value, int, error) {
	t, err := f.resolve(ctx)
	if err != nil {
		return nil, 0, err
	}
	v, n, err := t.Decode(buf, off, ctx)
	if err != nil {
		return nil, 0, err
	}
	u, err := toUint64(v)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "bit group over %s", f.typeName)
	}
	out := splitBits(u, f.widths, f.names)
	f.decoded = true
	f.decodedSize = n
	return out, n, nil
}

func (f *TypedBitField) Encode(v Value, ctx *Context) ([]byte, error) {
	t, err := f.resolve(ctx)
	if err != nil {
		return nil, err
	}
	u, err := joinBits(v, f.widths, f.names)
	if err != nil {
		return nil, errors.Wrapf(err, "bit group over %s", f.typeName)
	}
	return t.Encode(u, ctx)
}

// Concat behaves like BitField.Concat. The backing type must have been
// resolved (see ResolveType) so the bit capacity is known.
func (f *TypedBitField) Concat(o *TypedBitField) error {
	if f.typ == nil {
		return errors.Wrapf(ErrTypeNotFound, "%q not resolved before concat", f.typeName)
	}
	sz, ok := f.typ.SizeOf(0)
	if !ok {
		return errors.Wrapf(ErrBitOverflow, "%q has no fixed size", f.typeName)
	}
	return concatRanges(&f.widths, &f.names, o.widths, o.names, sz*8)
}

func (f *TypedBitField) Clone(owner Record) Field {
	c := *f
	c.owner = owner
	c.decoded = false
	c.decodedSize = 0
	c.widths = append([]int(nil), f.widths...)
	c.names = append([]string(nil), f.names...)
	return &c
}

func (f *TypedBitField) Equal(o Field) bool {
	of, ok := o.(*TypedBitField)
	if !ok {
		return false
	}
	return f.typeName == of.typeName && eqInts(f.widths, of.widths) &&
		eqStrings(f.names, of.names) && f.equalTemplate(&of.common)
}

// splitBits extracts the named sub-ranges from u, LSB first.
func splitBits(u uint64, widths []int, names []string) map[string]uint64 {
	n := len(widths)
	if len(names) < n {
		n = len(names)
	}
	out := make(map[string]uint64, n)
	var at uint64
	for i := 0; i < n; i++ {
		w := uint64(widths[i])
		out[names[i]] = bits.Extract(u, at, at+w)
		at += w
	}
	return out
}

// joinBits packs the named sub-values of v back into a single unsigned
// value, masking each to its declared width.
func joinBits(v Value, widths []int, names []string) (uint64, error) {
	m, err := asBitMap(v)
	if err != nil {
		return 0, err
	}
	n := len(widths)
	if len(names) < n {
		n = len(names)
	}
	var u, at uint64
	for i := 0; i < n; i++ {
		w := uint64(widths[i])
		u = bits.Insert(u, m[names[i]], at, at+w)
		at += w
	}
	return u, nil
}

func asBitMap(v Value) (map[string]uint64, error) {
	switch m := v.(type) {
	case map[string]uint64:
		return m, nil
	case map[string]Value:
		out := make(map[string]uint64, len(m))
		for k, ev := range m {
			u, err := toUint64(ev)
			if err != nil {
				return nil, errors.Wrapf(err, "sub-range %q", k)
			}
			out[k] = u
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrValueType, "bit group requires map[string]uint64, got %T", v)
}

func concatRanges(widths *[]int, names *[]string, ow []int, on []string, capacity int) error {
	total := 0
	for _, w := range *widths {
		total += w
	}
	i := 0
	for i < len(ow) && total+ow[i] <= capacity {
		*widths = append(*widths, ow[i])
		total += ow[i]
		if i < len(on) {
			*names = append(*names, on[i])
		}
		i++
	}
	if i < len(ow) {
		return errors.Wrapf(ErrBitOverflow, "%d bits over a %d bit capacity", total+ow[i], capacity)
	}
	return nil
}

func eqInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func eqStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
