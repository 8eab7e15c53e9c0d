// Package format renders decoded records for humans. Values print through
// per-key formatter functions (hex addresses, masks, symbolic constant names,
// flag sets, versions, timestamps) and the output can be syntax colored for
// terminals.
package format

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/binarytools/strata/field"
)

// Func renders the value of the named key to a display string.
type Func func(key string, v field.Value) string

var (
	constMu sync.RWMutex
	consts  = map[string]map[uint64]string{}

	colorMu sync.RWMutex
	color   bool
	style   = "monokai"
)

// DefineConsts registers a value-to-symbol table under a namespace. The Name
// and Flag formatters look names up by "<namespace>.<key>" first and fall
// back to the bare key, so tables can be scoped per structure or shared.
func DefineConsts(namespace string, table map[uint64]string) {
	constMu.Lock()
	defer constMu.Unlock()
	m, ok := consts[namespace]
	if !ok {
		m = map[uint64]string{}
		consts[namespace] = m
	}
	for v, name := range table {
		m[v] = name
	}
}

// ConstName returns the symbol registered for v in the namespace.
func ConstName(namespace string, v uint64) (string, bool) {
	constMu.RLock()
	defer constMu.RUnlock()
	name, ok := consts[namespace][v]
	return name, ok
}

// SetColor toggles terminal coloring of formatted output. Off by default.
func SetColor(on bool) {
	colorMu.Lock()
	defer colorMu.Unlock()
	color = on
}

// SetStyle selects the chroma style used when coloring is on.
func SetStyle(name string) {
	colorMu.Lock()
	defer colorMu.Unlock()
	style = name
}

// highlight renders one token through the configured style, or returns the
// bare text when coloring is off.
func highlight(tt chroma.TokenType, s string) string {
	colorMu.RLock()
	on, styleName := color, style
	colorMu.RUnlock()
	if !on {
		return s
	}
	st := styles.Get(styleName)
	if st == nil {
		st = styles.Fallback
	}
	f := formatters.Get("terminal256")
	if f == nil {
		f = formatters.Fallback
	}
	var buf strings.Builder
	if err := f.Format(&buf, st, chroma.Literator(chroma.Token{Type: tt, Value: s})); err != nil {
		return s
	}
	return buf.String()
}

// Default prints the value the plain way: integers in decimal, byte runs as
// quoted strings, everything else through fmt.
func Default(key string, v field.Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case []byte:
		return fmt.Sprintf("%q", x)
	case string:
		return fmt.Sprintf("%q", x)
	}
	return highlight(chroma.Text, fmt.Sprint(v))
}

// Address prints the value as a hexadecimal address.
func Address(key string, v field.Value) string {
	u, err := asUint(v)
	if err != nil {
		return Default(key, v)
	}
	return highlight(chroma.LiteralNumberHex, fmt.Sprintf("%#x", u))
}

// Mask prints the value as a hexadecimal constant.
func Mask(key string, v field.Value) string {
	u, err := asUint(v)
	if err != nil {
		return Default(key, v)
	}
	return highlight(chroma.LiteralNumber, fmt.Sprintf("%#x", u))
}

// Name returns a formatter that prints the value's symbolic name from the
// namespace's constant table, falling back to the decimal value when the
// table has no entry.
func Name(namespace string) Func {
	return func(key string, v field.Value) string {
		u, err := asUint(v)
		if err != nil {
			return Default(key, v)
		}
		if sym, ok := lookupConst(namespace, key, u); ok {
			return highlight(chroma.NameConstant, sym)
		}
		return highlight(chroma.LiteralNumber, fmt.Sprint(u))
	}
}

// Flag returns a formatter that prints the value as a comma-joined set of
// the namespace's flag names whose bits are set, or a hex mask when none
// match.
func Flag(namespace string) Func {
	return func(key string, v field.Value) string {
		u, err := asUint(v)
		if err != nil {
			return Default(key, v)
		}
		constMu.RLock()
		table, ok := consts[namespace+"."+key]
		if !ok {
			table = consts[key]
		}
		names := make([]string, 0, len(table))
		for bit, name := range table {
			if u&bit != 0 {
				names = append(names, name)
			}
		}
		constMu.RUnlock()
		if len(names) == 0 {
			return Mask(key, v)
		}
		for i, n := range names {
			names[i] = highlight(chroma.NameConstant, n)
		}
		return strings.Join(names, ",")
	}
}

// Version prints the value as dot-separated bytes, low byte first.
func Version(key string, v field.Value) string {
	u, err := asUint(v)
	if err != nil {
		return Default(key, v)
	}
	var parts []string
	for u != 0 {
		parts = append(parts, fmt.Sprintf("%d", u&0xff))
		u >>= 8
	}
	if len(parts) == 0 {
		parts = []string{"0"}
	}
	return highlight(chroma.LiteralString, strings.Join(parts, "."))
}

// Bytes prints the value as space-separated hex bytes, low byte first.
func Bytes(key string, v field.Value) string {
	if b, ok := v.([]byte); ok {
		parts := make([]string, len(b))
		for i, c := range b {
			parts[i] = fmt.Sprintf("%02X", c)
		}
		return highlight(chroma.LiteralString, strings.Join(parts, " "))
	}
	u, err := asUint(v)
	if err != nil {
		return Default(key, v)
	}
	var parts []string
	for u != 0 {
		parts = append(parts, fmt.Sprintf("%02X", u&0xff))
		u >>= 8
	}
	return highlight(chroma.LiteralString, strings.Join(parts, " "))
}

// DateTime prints the value as a UTC timestamp interpreted as Unix seconds.
func DateTime(key string, v field.Value) string {
	i, err := asInt(v)
	if err != nil {
		return Default(key, v)
	}
	t := time.Unix(i, 0).UTC()
	return highlight(chroma.LiteralDate, t.Format("2006-01-02 15:04:05"))
}

func lookupConst(namespace, key string, u uint64) (string, bool) {
	constMu.RLock()
	defer constMu.RUnlock()
	if sym, ok := consts[namespace+"."+key][u]; ok {
		return sym, true
	}
	sym, ok := consts[key][u]
	return sym, ok
}

func asUint(v field.Value) (uint64, error) {
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
	return 0, fmt.Errorf("not an integer: %T", v)
}

func asInt(v field.Value) (int64, error) {
	u, err := asUint(v)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}
