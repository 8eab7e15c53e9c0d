// Package define parses the line-oriented structure declaration language and
// turns it into field templates and registered structure definitions.
//
// Each non-empty line declares one field:
//
//	T[*length] : [<|>]name [; comment]
//
// T is either a single raw type letter (the usual struct-packing alphabet) or
// the name of a previously registered structure. The optional length suffix
// selects the field flavor:
//
//	I*4      : regs      array of four uint32
//	B*#3/5   : flags     bit-packed group, sub-widths 3 and 5, names split on /
//	c*~      : name      zero-terminated byte sequence
//	B*~H     : data      counted sequence, uint16 count prefix
//	B*.count : payload   length bound to the sibling field "count"
//	I*%leb128: tag       LEB128 variable-length integer
//
// A '<' or '>' before the field name forces little or big endian for that
// field only. Text after ';' is a comment attached to the field.
package define

import (
	"context"
	stdbin "encoding/binary"
	"strconv"
	"strings"

	"github.com/johnsiilver/halfpike"
	"github.com/pkg/errors"

	"github.com/binarytools/strata/field"
	"github.com/binarytools/strata/record"
	"github.com/binarytools/strata/registry"
)

// rawKinds maps the raw type letters to their field kind.
var rawKinds = map[string]field.Kind{
	"x": field.KindPad,
	"c": field.KindChar,
	"s": field.KindBytes,
	"p": field.KindBytes,
	"b": field.KindInt8,
	"B": field.KindUint8,
	"h": field.KindInt16,
	"H": field.KindUint16,
	"i": field.KindInt32,
	"I": field.KindUint32,
	"l": field.KindLong,
	"L": field.KindUlong,
	"n": field.KindLong,
	"N": field.KindUlong,
	"q": field.KindInt64,
	"Q": field.KindUint64,
	"f": field.KindFloat32,
	"d": field.KindFloat64,
	"P": field.KindPtr,
}

// cntKinds maps the counter letter of a counted sequence ("~H" etc) to the
// kind of its leading count.
var cntKinds = map[byte]field.Kind{
	'b': field.KindInt8,
	'B': field.KindUint8,
	'h': field.KindInt16,
	'H': field.KindUint16,
	'i': field.KindInt32,
	'I': field.KindUint32,
}

// Option adjusts parsing.
type Option func(*declParser)

// WithTypes supplies the resolver used for non-raw type names. Without it,
// typed fields still parse but resolve lazily at first decode, and adjacent
// single-range typed bit groups cannot be merged.
func WithTypes(r field.Resolver) Option {
	return func(p *declParser) { p.types = r }
}

// WithOrder sets the default byte order for fields that carry no '<' or '>'
// marker of their own.
func WithOrder(bo stdbin.ByteOrder) Option {
	return func(p *declParser) { p.order = bo }
}

// Parse parses a declaration source into field templates, in declaration
// order.
func Parse(src string, opts ...Option) ([]field.Field, error) {
	p := &declParser{}
	for _, o := range opts {
		o(p)
	}
	// halfpike only delivers newline-terminated lines; without this a
	// final line missing its "\n" would be dropped.
	if !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	if err := halfpike.Parse(context.Background(), src, p); err != nil {
		return nil, err
	}
	return p.fields, nil
}

// Struct parses src and registers the resulting struct definition under name
// in reg.
func Struct(reg *registry.Registry, name, src string, opts ...Option) (*record.Def, error) {
	opts = append([]Option{WithTypes(reg)}, opts...)
	fields, err := Parse(src, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "struct %s", name)
	}
	d := record.NewDef(name, fields, record.Source(src))
	reg.Register(name, d)
	return d, nil
}

// Packed parses src and registers a struct definition without alignment
// padding between fields.
func Packed(reg *registry.Registry, name, src string, opts ...Option) (*record.Def, error) {
	opts = append([]Option{WithTypes(reg)}, opts...)
	fields, err := Parse(src, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "struct %s", name)
	}
	d := record.NewDef(name, fields, record.Source(src), record.Packed())
	reg.Register(name, d)
	return d, nil
}

// Union parses src and registers the resulting union definition under name
// in reg.
func Union(reg *registry.Registry, name, src string, opts ...Option) (*record.Def, error) {
	opts = append([]Option{WithTypes(reg)}, opts...)
	fields, err := Parse(src, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "union %s", name)
	}
	d := record.NewUnion(name, fields, record.Source(src))
	reg.Register(name, d)
	return d, nil
}

// Typedef registers name as an alias for a single base field. count > 0
// makes the alias an array type; align > 0 overrides its alignment.
func Typedef(reg *registry.Registry, name, base string, count, align int) (*record.Def, error) {
	src := base + " : _"
	if count > 0 {
		src = base + "*" + strconv.Itoa(count) + " : _"
	}
	opts := []Option{WithTypes(reg)}
	fields, err := Parse(src, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "typedef %s", name)
	}
	if len(fields) == 0 {
		return nil, errors.Errorf("typedef %s: %q declares no field", name, src)
	}
	f := fields[0]
	if align > 0 {
		// reparse with the override; field templates are immutable
		fields, err = Parse(src, append(opts, withFieldAlign(align))...)
		if err != nil {
			return nil, errors.Wrapf(err, "typedef %s", name)
		}
		f = fields[0]
	}
	d := record.NewTypedef(name, f, record.Source(src))
	reg.Register(name, d)
	return d, nil
}

func withFieldAlign(n int) Option {
	return func(p *declParser) { p.align = n }
}

// RegisterBuiltins registers the fixed-width integer aliases (uint8 through
// uint64 and their signed forms, plus byte) in reg.
func RegisterBuiltins(reg *registry.Registry) error {
	builtins := []struct {
		name string
		base string
	}{
		{"byte", "B"},
		{"int8", "b"},
		{"uint8", "B"},
		{"int16", "h"},
		{"uint16", "H"},
		{"int32", "i"},
		{"uint32", "I"},
		{"int64", "q"},
		{"uint64", "Q"},
	}
	for _, b := range builtins {
		if _, err := Typedef(reg, b.name, b.base, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// declParser implements the halfpike callbacks for the declaration language.
type declParser struct {
	types  field.Resolver
	order  stdbin.ByteOrder
	align  int
	fields []field.Field
	err    error
}

// Validate implements halfpike.Validator.
func (p *declParser) Validate() error {
	return p.err
}

// Start is the entry point for halfpike parsing.
func (p *declParser) Start(_ context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	return p.parseLines
}

func (p *declParser) parseLines(_ context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	for {
		line := hp.Next()
		if hp.EOF(line) {
			return nil
		}
		raw := strings.TrimSpace(strings.TrimSuffix(line.Raw, "\n"))
		if raw == "" || strings.HasPrefix(raw, ";") {
			continue
		}
		if err := p.parseDecl(raw); err != nil {
			p.err = errors.Wrapf(err, "line %d", line.LineNum)
			return nil
		}
	}
}

// parseDecl parses one field declaration and appends the resulting template,
// merging single-range bit groups into the previous field when they fit.
func (p *declParser) parseDecl(raw string) error {
	typePart, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return errors.Errorf("missing ':' in %q", raw)
	}
	rest, comment, _ := strings.Cut(rest, ";")
	name := strings.TrimSpace(rest)
	comment = strings.TrimSpace(comment)

	var opts []field.Option
	switch {
	case strings.HasPrefix(name, "<"):
		opts = append(opts, field.WithOrder(stdbin.LittleEndian))
		name = strings.TrimSpace(name[1:])
	case strings.HasPrefix(name, ">"):
		opts = append(opts, field.WithOrder(stdbin.BigEndian))
		name = strings.TrimSpace(name[1:])
	default:
		if p.order != nil {
			opts = append(opts, field.WithOrder(p.order))
		}
	}
	if name == "" {
		return errors.Errorf("missing field name in %q", raw)
	}
	if comment != "" {
		opts = append(opts, field.WithComment(comment))
	}
	if p.align > 0 {
		opts = append(opts, field.WithAlign(p.align))
	}

	typeName, length, _ := strings.Cut(strings.TrimSpace(typePart), "*")
	typeName = strings.TrimSpace(typeName)
	length = strings.TrimSpace(length)

	f, err := p.buildField(typeName, length, name, opts)
	if err != nil {
		return err
	}
	p.appendField(f, length)
	return nil
}

func (p *declParser) buildField(typeName, length, name string, opts []field.Option) (field.Field, error) {
	kind, raw := rawKinds[typeName]
	if !raw {
		return p.buildTyped(typeName, length, name, opts)
	}

	switch {
	case length == "":
		return field.NewRaw(kind, 0, name, opts...), nil
	case strings.HasPrefix(length, "#"):
		widths, err := parseWidths(length[1:])
		if err != nil {
			return nil, err
		}
		names := strings.Split(name, "/")
		if len(names) != len(widths) {
			return nil, errors.Errorf("bit group %q declares %d ranges but %d names", name, len(widths), len(names))
		}
		return field.NewBits(kind, widths, names, opts...), nil
	case length == "~":
		return field.NewVar(kind, name, opts...), nil
	case strings.HasPrefix(length, "~"):
		ck, ok := cntKinds[length[1]]
		if len(length) != 2 || !ok {
			return nil, errors.Errorf("bad count indicator %q for field %q", length, name)
		}
		return field.NewCnt(kind, ck, name, opts...), nil
	case strings.HasPrefix(length, "."):
		return field.NewBound(kind, length[1:], name, opts...), nil
	case length == "%leb128":
		return field.NewLeb128(kind, name, opts...), nil
	}
	count, err := strconv.Atoi(length)
	if err != nil || count < 0 {
		return nil, errors.Errorf("bad length %q for field %q", length, name)
	}
	return field.NewRaw(kind, count, name, opts...), nil
}

func (p *declParser) buildTyped(typeName, length, name string, opts []field.Option) (field.Field, error) {
	if strings.HasPrefix(length, "#") {
		widths, err := parseWidths(length[1:])
		if err != nil {
			return nil, err
		}
		names := strings.Split(name, "/")
		if len(names) != len(widths) {
			return nil, errors.Errorf("bit group %q declares %d ranges but %d names", name, len(widths), len(names))
		}
		f := field.NewTypedBits(typeName, widths, names, opts...)
		if p.types != nil {
			// best effort; unresolved names still resolve at decode
			_ = f.ResolveType(p.types)
		}
		return f, nil
	}
	count := 0
	if length != "" {
		c, err := strconv.Atoi(length)
		if err != nil || c < 0 {
			return nil, errors.Errorf("bad length %q for typed field %q", length, name)
		}
		count = c
	}
	return field.NewTyped(typeName, count, name, opts...), nil
}

// appendField adds f to the parsed list. A bit group declaring a single
// range is first offered to the previous field; if the previous field is a
// compatible bit group with room left, the range is merged into it and f is
// dropped.
func (p *declParser) appendField(f field.Field, length string) {
	if !strings.HasPrefix(length, "#") || strings.Contains(length, "/") || len(p.fields) == 0 {
		p.fields = append(p.fields, f)
		return
	}
	prev := p.fields[len(p.fields)-1]
	switch nf := f.(type) {
	case *field.BitField:
		if pb, ok := prev.(*field.BitField); ok && pb.Concat(nf) == nil {
			return
		}
	case *field.TypedBitField:
		if pb, ok := prev.(*field.TypedBitField); ok && pb.Concat(nf) == nil {
			return
		}
	}
	p.fields = append(p.fields, f)
}

func parseWidths(s string) ([]int, error) {
	parts := strings.Split(s, "/")
	widths := make([]int, 0, len(parts))
	for _, part := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || w <= 0 {
			return nil, errors.Errorf("bad bit range %q", part)
		}
		widths = append(widths, w)
	}
	return widths, nil
}
