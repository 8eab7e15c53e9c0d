// Package strata decodes and encodes structured binary data from declarative
// field descriptions. Structures are declared in a compact text language,
// registered under a name, and then decoded from or encoded to byte buffers
// with per-call byte order and word size.
//
// Basic use:
//
//	reg := strata.NewRegistry()
//	def, err := strata.Struct(reg, "Header", `
//	B  : tag
//	H  :> length
//	B  : version
//	`)
//	if err != nil { ... }
//
//	inst := def.New()
//	n, err := inst.Decode(buf, 0, &strata.Context{Types: reg})
package strata

import (
	"github.com/binarytools/strata/define"
	"github.com/binarytools/strata/field"
	"github.com/binarytools/strata/record"
	"github.com/binarytools/strata/registry"
)

// Value is a decoded field value.
type Value = field.Value

// Context carries the per-call decode/encode parameters.
type Context = field.Context

// Field is the contract shared by all field kinds.
type Field = field.Field

// Kind identifies a raw fixed-width native encoding.
type Kind = field.Kind

// The raw encoding kinds.
const (
	KindPad     = field.KindPad
	KindChar    = field.KindChar
	KindBytes   = field.KindBytes
	KindInt8    = field.KindInt8
	KindUint8   = field.KindUint8
	KindInt16   = field.KindInt16
	KindUint16  = field.KindUint16
	KindInt32   = field.KindInt32
	KindUint32  = field.KindUint32
	KindInt64   = field.KindInt64
	KindUint64  = field.KindUint64
	KindFloat32 = field.KindFloat32
	KindFloat64 = field.KindFloat64
	KindLong    = field.KindLong
	KindUlong   = field.KindUlong
	KindPtr     = field.KindPtr
)

// Def is a structure definition; Record is one decodable instance of it.
type (
	Def    = record.Def
	Record = record.Record
)

// Registry maps type names to their codecs.
type Registry = registry.Registry

// NewRegistry returns an empty type registry with the builtin fixed-width
// integer aliases registered.
func NewRegistry() *Registry {
	reg := registry.New()
	// builtins only use raw letters, registration cannot fail
	if err := define.RegisterBuiltins(reg); err != nil {
		panic(err)
	}
	return reg
}

// Struct parses a declaration source and registers the struct in reg.
func Struct(reg *Registry, name, src string) (*Def, error) {
	return define.Struct(reg, name, src)
}

// Union parses a declaration source and registers the union in reg.
func Union(reg *Registry, name, src string) (*Def, error) {
	return define.Union(reg, name, src)
}

// Typedef registers name as an alias for a single base field.
func Typedef(reg *Registry, name, base string) (*Def, error) {
	return define.Typedef(reg, name, base, 0, 0)
}
