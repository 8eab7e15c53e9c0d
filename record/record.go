// Package record implements the structure layer on top of the field codec:
// an ordered, named collection of field templates (Def) and the per-decode
// instances cloned from it (Record). A Def implements field.Type, so
// structures nest inside other structures as element types.
package record

import (
	"github.com/pkg/errors"

	"github.com/binarytools/strata/field"
)

// Def is an immutable structure definition: ordered field templates plus the
// struct/union/typedef flavor. Create one per layout and share it freely;
// every decode works on a fresh Record cloned from it.
type Def struct {
	name    string
	fields  []field.Field
	packed  bool
	union   bool
	typedef bool
	source  string
}

// Option adjusts a definition at construction time.
type Option func(*Def)

// Packed disables alignment padding between fields, the C "packed" layout.
func Packed() Option {
	return func(d *Def) { d.packed = true }
}

// Source attaches the textual declaration the definition was parsed from.
func Source(s string) Option {
	return func(d *Def) { d.source = s }
}

// NewDef returns a struct definition over the given field templates.
func NewDef(name string, fields []field.Field, opts ...Option) *Def {
	d := &Def{name: name, fields: fields}
	for _, o := range opts {
		o(d)
	}
	return d
}

// NewUnion returns a union definition: every member decodes from the same
// offset and the size is the widest member's.
func NewUnion(name string, fields []field.Field, opts ...Option) *Def {
	d := NewDef(name, fields, opts...)
	d.union = true
	return d
}

// NewTypedef returns a single-field definition whose decode passes the
// field's value through instead of producing a Record.
func NewTypedef(name string, f field.Field, opts ...Option) *Def {
	d := NewDef(name, []field.Field{f}, opts...)
	d.typedef = true
	return d
}

// Name returns the definition's registered name.
func (d *Def) Name() string { return d.name }

// Fields returns the ordered field templates. Callers must not mutate them.
func (d *Def) Fields() []field.Field { return d.fields }

// Source returns the textual declaration, if one was attached.
func (d *Def) Source() string { return d.source }

// IsUnion reports the union flavor.
func (d *Def) IsUnion() bool { return d.union }

// IsTypedef reports the typedef flavor.
func (d *Def) IsTypedef() bool { return d.typedef }

// FieldByName returns the template for the named field.
func (d *Def) FieldByName(name string) (field.Field, bool) {
	for _, f := range d.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// AlignOf returns the definition's natural alignment: the largest member
// alignment, at least 1.
func (d *Def) AlignOf(ws int) int {
	ctx := &field.Context{WordSize: ws}
	a := 1
	for _, f := range d.fields {
		if fa := f.AlignValue(ctx); fa > a {
			a = fa
		}
	}
	return a
}

// SizeOf returns the definition's encoded size computed from the templates,
// or false while any member's size is undetermined. Unless packed, member
// offsets are aligned and the total is padded to the struct alignment.
func (d *Def) SizeOf(ws int) (int, bool) {
	ctx := &field.Context{WordSize: ws}
	sz := 0
	for _, f := range d.fields {
		fsz, ok := f.Size(ctx)
		if !ok {
			return 0, false
		}
		if d.union {
			if fsz > sz {
				sz = fsz
			}
			continue
		}
		if !d.packed {
			sz = f.Align(sz, ctx)
		}
		sz += fsz
	}
	if !d.packed {
		sz = alignTo(sz, d.AlignOf(ws))
	}
	return sz, true
}

// widest returns the index of the widest member, for union encoding.
func (d *Def) widest(ws int) int {
	ctx := &field.Context{WordSize: ws}
	best, bestSz := 0, -1
	for i, f := range d.fields {
		if sz, ok := f.Size(ctx); ok && sz > bestSz {
			best, bestSz = i, sz
		}
	}
	return best
}

// OffsetOf returns the byte offset of the named field within the encoded
// structure. Union members all live at offset 0. Fields behind a
// variable-length member have no static offset and report an error.
func (d *Def) OffsetOf(name string, ws int) (int, error) {
	if d.union {
		if _, ok := d.FieldByName(name); ok {
			return 0, nil
		}
		return 0, errors.Errorf("%s has no field %q", d.name, name)
	}
	ctx := &field.Context{WordSize: ws}
	off := 0
	for _, f := range d.fields {
		if !d.packed {
			off = f.Align(off, ctx)
		}
		if f.Name() == name {
			return off, nil
		}
		sz, ok := f.Size(ctx)
		if !ok {
			return 0, errors.Errorf("%s.%s has no static offset: %q is variable-length", d.name, name, f.Name())
		}
		off += sz
	}
	return 0, errors.Errorf("%s has no field %q", d.name, name)
}

// Equal compares two definitions on flavor and member templates.
func (d *Def) Equal(o *Def) bool {
	if d.packed != o.packed || d.union != o.union || d.typedef != o.typedef ||
		len(d.fields) != len(o.fields) {
		return false
	}
	for i, f := range d.fields {
		if !f.Equal(o.fields[i]) {
			return false
		}
	}
	return true
}

// New clones the templates into a fresh Record owned by this definition.
func (d *Def) New() *Record {
	r := &Record{def: d, values: map[string]field.Value{}}
	r.fields = make([]field.Field, len(d.fields))
	for i, f := range d.fields {
		r.fields[i] = f.Clone(r)
	}
	return r
}

// Decode implements field.Type: it decodes a fresh instance and returns it
// as the value. Typedefs return the inner field's value directly. The
// consumed size of an unpacked struct is padded to the struct alignment so
// that arrays of nested structures advance correctly.
func (d *Def) Decode(buf []byte, off int, ctx *field.Context) (field.Value, int, error) {
	inst := d.New()
	n, err := inst.Decode(buf, off, ctx)
	if err != nil {
		return nil, 0, err
	}
	if !d.packed && !d.union {
		n = alignTo(n, d.AlignOf(wordSizeOf(ctx)))
	}
	if d.typedef {
		v, _ := inst.Decoded(d.fields[0].Name())
		return v, n, nil
	}
	return inst, n, nil
}

// Encode implements field.Type. It accepts a *Record, a map of field values,
// or, for typedefs, the inner field's raw value.
func (d *Def) Encode(v field.Value, ctx *field.Context) ([]byte, error) {
	if d.typedef {
		if r, ok := v.(*Record); ok {
			return r.Encode(ctx)
		}
		return d.fields[0].Encode(v, ctx)
	}
	switch x := v.(type) {
	case *Record:
		return x.Encode(ctx)
	case map[string]field.Value:
		inst := d.New()
		for k, ev := range x {
			inst.Set(k, ev)
		}
		return inst.Encode(ctx)
	}
	return nil, errors.Wrapf(field.ErrValueType, "%s requires *Record or map[string]Value, got %T", d.name, v)
}

// Record is one decodable/encodable instance of a Def. It exclusively owns
// its field clones and the decoded value table. A Record must be driven by
// one goroutine at a time; concurrency is partitioned per record, never per
// field, because bound fields read the shared value table.
type Record struct {
	def    *Def
	fields []field.Field
	values map[string]field.Value
}

// Def returns the definition this record was cloned from.
func (r *Record) Def() *Def { return r.def }

// Fields returns the record's own field clones.
func (r *Record) Fields() []field.Field { return r.fields }

// Decoded implements field.Record for sibling lookups.
func (r *Record) Decoded(name string) (field.Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Get returns the named value or nil.
func (r *Record) Get(name string) field.Value {
	return r.values[name]
}

// Set stores a value for the named field, for building a record to encode.
func (r *Record) Set(name string, v field.Value) {
	r.values[name] = v
}

// subnamed is the extra surface of bit group fields: they carry no field
// name, and their decoded sub-values merge directly into the record.
type subnamed interface {
	Subnames() []string
}

// Decode decodes every field in declaration order, aligning offsets unless
// the definition is packed. Union members all decode from the same offset
// and the consumed size is the widest member's. The returned size is the
// exact consumed byte count, without trailing struct padding.
func (r *Record) Decode(buf []byte, off int, ctx *field.Context) (int, error) {
	cctx := ctx.WithRecord(r)
	start := off
	maxN := 0
	for _, f := range r.fields {
		fo := off
		if !r.def.union && !r.def.packed {
			fo = f.Align(fo, cctx)
		}
		v, n, err := f.Decode(buf, fo, cctx)
		if err != nil {
			return 0, errors.Wrapf(err, "%s.%s", r.def.name, fieldLabel(f))
		}
		if name := f.Name(); name != "" {
			r.values[name] = v
		} else if sn, ok := f.(subnamed); ok {
			groups, ok := v.(map[string]uint64)
			if !ok {
				return 0, errors.Wrapf(field.ErrValueType, "%s: bit group decoded to %T", r.def.name, v)
			}
			for _, sub := range sn.Subnames() {
				r.values[sub] = groups[sub]
			}
		}
		if r.def.union {
			if n > maxN {
				maxN = n
			}
			continue
		}
		off = fo + n
	}
	if r.def.union {
		return maxN, nil
	}
	return off - start, nil
}

// Encode renders the record's values in declaration order, padding between
// fields unless packed and zero-filling up to the struct size when it is
// statically known. Unions encode only their widest member.
func (r *Record) Encode(ctx *field.Context) ([]byte, error) {
	cctx := ctx.WithRecord(r)
	if r.def.union {
		f := r.fields[r.def.widest(wordSizeOf(cctx))]
		v, err := r.valueFor(f)
		if err != nil {
			return nil, err
		}
		return f.Encode(v, cctx)
	}

	var out []byte
	for _, f := range r.fields {
		v, err := r.valueFor(f)
		if err != nil {
			return nil, err
		}
		if !r.def.packed {
			if pad := f.Align(len(out), cctx) - len(out); pad > 0 {
				out = append(out, make([]byte, pad)...)
			}
		}
		b, err := f.Encode(v, cctx)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", r.def.name, fieldLabel(f))
		}
		out = append(out, b...)
	}
	if !r.def.packed {
		if sz, ok := r.def.SizeOf(wordSizeOf(cctx)); ok && sz > len(out) {
			out = append(out, make([]byte, sz-len(out))...)
		}
	}
	return out, nil
}

func (r *Record) valueFor(f field.Field) (field.Value, error) {
	if name := f.Name(); name != "" {
		v, ok := r.values[name]
		if !ok {
			return nil, errors.Errorf("%s.%s has no value to encode", r.def.name, name)
		}
		return v, nil
	}
	if sn, ok := f.(subnamed); ok {
		m := make(map[string]uint64, len(sn.Subnames()))
		for _, sub := range sn.Subnames() {
			u, err := asUint(r.values[sub])
			if err != nil {
				return nil, errors.Wrapf(err, "%s.%s", r.def.name, sub)
			}
			m[sub] = u
		}
		return m, nil
	}
	// nameless non-group fields are padding; they encode from a nil value
	return nil, nil
}

// ByteSize is the actual size of this instance: fixed members contribute
// their width, variable members the size recovered by decoding. It differs
// from Def.SizeOf once variable-length members have been decoded.
func (r *Record) ByteSize(ctx *field.Context) int {
	sz := 0
	for _, f := range r.fields {
		fsz, ok := f.Size(ctx)
		if !ok {
			continue
		}
		if r.def.union {
			if fsz > sz {
				sz = fsz
			}
			continue
		}
		if !r.def.packed {
			sz = f.Align(sz, ctx)
		}
		sz += fsz
	}
	if !r.def.packed {
		sz = alignTo(sz, r.def.AlignOf(wordSizeOf(ctx)))
	}
	return sz
}

func wordSizeOf(ctx *field.Context) int {
	if ctx == nil {
		return 0
	}
	return ctx.WordSize
}

func fieldLabel(f field.Field) string {
	if n := f.Name(); n != "" {
		return n
	}
	if sn, ok := f.(subnamed); ok && len(sn.Subnames()) > 0 {
		return sn.Subnames()[0]
	}
	return "_"
}

func asUint(v field.Value) (uint64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case uint64:
		return x, nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case int:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	}
	return 0, errors.Wrapf(field.ErrValueType, "integer required, got %T", v)
}

func alignTo(off, a int) int {
	if a <= 0 {
		return off
	}
	if rem := off % a; rem != 0 {
		return off + (a - rem)
	}
	return off
}
