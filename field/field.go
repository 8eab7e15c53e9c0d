// Package field implements the declarative field descriptors that convert
// between raw byte buffers and typed values. A field descriptor is an
// immutable template; cloning it into an owning record produces an instance
// that accumulates decode-time state (consumed size, element count).
//
// Seven kinds cover the layouts binary formats are built from: registry-typed
// fields, raw fixed-width scalars and byte runs, bit-packed groups (raw and
// registry-typed), terminated sequences, LEB128 integers, counted sequences
// and sibling-bound sequences.
package field

import (
	stdbin "encoding/binary"

	"github.com/pkg/errors"
)

// Value is a decoded field value. The domain is: typed Go integers and
// floats for scalar kinds, []byte for byte runs, []Value for arrays,
// map[string]uint64 for bit-packed groups, and whatever a registry type's
// Decode returns for typed fields.
type Value = any

// Resolver resolves a type name to its registered codec. Implemented by the
// registry package.
type Resolver interface {
	Resolve(name string) (Type, error)
}

// Record is the owning structure a field instance was cloned into. Bound
// fields consult it for the already-decoded value of a sibling; fields never
// hold it for lifetime control.
type Record interface {
	// Decoded returns the decoded value of the named field, or false if
	// that field has not been decoded yet.
	Decoded(name string) (Value, bool)
}

// Type is the capability set the registry stores for a named type.
type Type interface {
	// SizeOf returns the encoded byte size, or false if the size cannot be
	// known before decoding.
	SizeOf(wordSize int) (int, bool)
	// AlignOf returns the natural alignment.
	AlignOf(wordSize int) int
	// Decode reads one value from buf at off and reports the bytes consumed.
	Decode(buf []byte, off int, ctx *Context) (Value, int, error)
	// Encode renders v to bytes.
	Encode(v Value, ctx *Context) ([]byte, error)
}

// Field is the contract shared by all field kinds. Size reports (n, true)
// when the encoded size is known, either fixed by the kind or recovered by a
// decode, and (0, false) while it is still undetermined.
type Field interface {
	Name() string
	Size(ctx *Context) (int, bool)
	AlignValue(ctx *Context) int
	Align(offset int, ctx *Context) int
	Decode(buf []byte, off int, ctx *Context) (Value, int, error)
	Encode(v Value, ctx *Context) ([]byte, error)
	// Clone produces a fresh instance of this template attached to owner.
	// Decode-time state is not carried over.
	Clone(owner Record) Field
	// Equal compares template properties only; decode-time state never
	// participates.
	Equal(o Field) bool
}

// Context carries the per-call decode/encode parameters. Every call is
// independently parameterizable; there is no global state, so 32-bit and
// 64-bit layouts can be decoded concurrently from one process.
type Context struct {
	// Order is the default byte order for fields without their own
	// override. nil means little-endian.
	Order stdbin.ByteOrder
	// WordSize resolves pointer-sized kinds, 4 or 8. 0 means the call is
	// not pointer sensitive; pointer-typed fields then fail with
	// ErrWordSize.
	WordSize int
	// Types resolves named types for fields that delegate to a registry.
	Types Resolver
	// Record is the record instance currently being decoded.
	Record Record
}

func (c *Context) byteOrder() stdbin.ByteOrder {
	if c == nil || c.Order == nil {
		return stdbin.LittleEndian
	}
	return c.Order
}

func (c *Context) wordSize() int {
	if c == nil {
		return 0
	}
	return c.WordSize
}

func (c *Context) record() Record {
	if c == nil {
		return nil
	}
	return c.Record
}

func (c *Context) resolve(name string) (Type, error) {
	if c == nil || c.Types == nil {
		return nil, errors.Wrapf(ErrTypeNotFound, "%q (no resolver in context)", name)
	}
	return c.Types.Resolve(name)
}

// WithRecord returns a copy of c bound to rec. The receiver is not mutated,
// so a context can be shared across records.
func (c *Context) WithRecord(rec Record) *Context {
	var cp Context
	if c != nil {
		cp = *c
	}
	cp.Record = rec
	return &cp
}

// common holds the template properties every field kind shares and the
// back-reference set when a template is cloned into a record.
type common struct {
	name    string
	ord     stdbin.ByteOrder // nil defers to the context
	align   int              // 0 falls back to the kind's natural alignment
	comment string

	owner Record
}

// Option adjusts the optional template properties at construction time.
type Option func(*common)

// WithOrder forces the byte order of this field regardless of the order the
// decode call was made with.
func WithOrder(bo stdbin.ByteOrder) Option {
	return func(c *common) { c.ord = bo }
}

// WithAlign overrides the field's natural alignment.
func WithAlign(n int) Option {
	return func(c *common) { c.align = n }
}

// WithComment attaches documentation to the field. It has no semantic
// effect.
func WithComment(s string) Option {
	return func(c *common) { c.comment = s }
}

func (c *common) apply(opts []Option) {
	for _, o := range opts {
		o(c)
	}
}

// Name returns the label the decoded value is stored under in its record.
func (c *common) Name() string { return c.name }

// Comment returns the field documentation.
func (c *common) Comment() string { return c.comment }

// Owner returns the record this instance was cloned into, or nil for a
// template.
func (c *common) Owner() Record { return c.owner }

func (c *common) byteOrder(ctx *Context) stdbin.ByteOrder {
	if c.ord != nil {
		return c.ord
	}
	return ctx.byteOrder()
}

// equalTemplate compares the shared template properties. The field name and
// comment are labels, not layout, and are excluded.
func (c *common) equalTemplate(o *common) bool {
	return c.ord == o.ord && c.align == o.align
}

// alignTo rounds off up to the next multiple of a. a == 0 means no
// alignment.
func alignTo(off, a int) int {
	if a <= 0 {
		return off
	}
	if r := off % a; r != 0 {
		return off + (a - r)
	}
	return off
}

// toUint64 widens any decoded integer value. Signed negatives convert
// two's-complement style; counts reject them separately.
func toUint64(v Value) (uint64, error) {
	switch x := v.(type) {
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case uint:
		return uint64(x), nil
	case int8:
		return uint64(x), nil
	case int16:
		return uint64(x), nil
	case int32:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	case int:
		return uint64(x), nil
	}
	return 0, errors.Wrapf(ErrValueType, "integer required, got %T", v)
}

func toInt64(v Value) (int64, error) {
	u, err := toUint64(v)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

// toCount converts a decoded value into an element count. Values outside the
// integer domain, and negative counts, are rejected rather than guessed at.
func toCount(v Value) (int, error) {
	switch v.(type) {
	case uint8, uint16, uint32, uint64, uint:
		u, _ := toUint64(v)
		return int(u), nil
	case int8, int16, int32, int64, int:
		i, _ := toInt64(v)
		if i < 0 {
			return 0, errors.Wrapf(ErrValueType, "negative element count %d", i)
		}
		return int(i), nil
	}
	return 0, errors.Wrapf(ErrValueType, "element count must be an integer, got %T", v)
}

// isZero reports whether a decoded element is the zero terminator: numeric
// zero, or the single null byte for byte runs.
func isZero(v Value) bool {
	switch x := v.(type) {
	case []byte:
		return len(x) == 1 && x[0] == 0
	case float32:
		return x == 0
	case float64:
		return x == 0
	case nil:
		return true
	}
	u, err := toUint64(v)
	return err == nil && u == 0
}
