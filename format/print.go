package format

import (
	"fmt"
	"strings"

	"github.com/binarytools/strata/field"
	"github.com/binarytools/strata/record"
)

// Printer renders records as aligned "name : value" listings, one structure
// per block headed by its definition name. Keys without an explicit
// formatter print through Default.
type Printer struct {
	prefix string
	keys   map[string]Func
}

// NewPrinter returns a printer with no per-key formatters.
func NewPrinter() *Printer {
	return &Printer{keys: map[string]Func{}}
}

// Set assigns a formatter to one or more keys.
func (p *Printer) Set(f Func, keys ...string) *Printer {
	for _, k := range keys {
		p.keys[k] = f
	}
	return p
}

// SetPrefix prepends a string to every printed line.
func (p *Printer) SetPrefix(s string) *Printer {
	p.prefix = s
	return p
}

// Record renders one record:
//
//	[Name]
//	field1              :value
//	field2              :value
//
// Nested records indent under their field, list values print one element per
// line, and bit group sub-values print as individual lines. Fields named "_"
// are skipped.
func (p *Printer) Record(r *record.Record) string {
	def := r.Def()
	ksz := 0
	for _, f := range r.Fields() {
		if n := len(f.Name()); n > ksz {
			ksz = n
		}
		if sn, ok := f.(interface{ Subnames() []string }); ok {
			for _, sub := range sn.Subnames() {
				if len(sub) > ksz {
					ksz = len(sub)
				}
			}
		}
	}

	var lines []string
	for _, f := range r.Fields() {
		switch {
		case f.Name() != "" && f.Name() != "_":
			lines = append(lines, p.line(r, f.Name(), ksz))
		default:
			sn, ok := f.(interface{ Subnames() []string })
			if !ok {
				continue
			}
			for _, sub := range sn.Subnames() {
				if sub == "_" {
					continue
				}
				lines = append(lines, p.line(r, sub, ksz))
			}
		}
	}
	return fmt.Sprintf("[%s]\n%s", def.Name(), strings.Join(lines, "\n"))
}

func (p *Printer) line(r *record.Record, key string, ksz int) string {
	v, ok := r.Decoded(key)
	rendered := "None"
	if ok {
		rendered = p.value(key, v)
	}
	s := fmt.Sprintf("%s%-*s:%s", p.prefix, ksz, key, rendered)
	// continuation lines of nested output align under the value column
	if strings.Contains(s, "\n") {
		s = strings.ReplaceAll(s, "\n", "\n "+strings.Repeat(" ", ksz))
	}
	return s
}

func (p *Printer) value(key string, v field.Value) string {
	switch x := v.(type) {
	case *record.Record:
		return p.Record(x)
	case []field.Value:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = p.value(key, e)
		}
		return strings.Join(parts, "\n")
	}
	f, ok := p.keys[key]
	if !ok {
		f = Default
	}
	return f(key, v)
}
