package define

import (
	stdbin "encoding/binary"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/binarytools/strata/field"
	"github.com/binarytools/strata/registry"
)

func TestParse(t *testing.T) {
	tests := []struct {
		desc string
		src  string
		want []field.Field
		err  bool
	}{
		{
			desc: "Error: missing colon",
			src:  "B count",
			err:  true,
		},
		{
			desc: "Error: missing field name",
			src:  "B : ",
			err:  true,
		},
		{
			desc: "Error: bad length",
			src:  "B*huh : x",
			err:  true,
		},
		{
			desc: "Error: bit range and name counts differ",
			src:  "B*#3/5 : a",
			err:  true,
		},
		{
			desc: "Success: raw scalar",
			src:  "I : value",
			want: []field.Field{field.NewRaw(field.KindUint32, 0, "value")},
		},
		{
			desc: "Success: raw array",
			src:  "H*4 : regs",
			want: []field.Field{field.NewRaw(field.KindUint16, 4, "regs")},
		},
		{
			desc: "Success: byte order markers",
			src: `H :> big
H :< little`,
			want: []field.Field{
				field.NewRaw(field.KindUint16, 0, "big", field.WithOrder(stdbin.BigEndian)),
				field.NewRaw(field.KindUint16, 0, "little", field.WithOrder(stdbin.LittleEndian)),
			},
		},
		{
			desc: "Success: comment attaches to the field",
			src:  "B : tag ; header tag",
			want: []field.Field{field.NewRaw(field.KindUint8, 0, "tag", field.WithComment("header tag"))},
		},
		{
			desc: "Success: bit group",
			src:  "B*#3/5 : low/high",
			want: []field.Field{field.NewBits(field.KindUint8, []int{3, 5}, []string{"low", "high"})},
		},
		{
			desc: "Success: terminated sequence",
			src:  "c*~ : name",
			want: []field.Field{field.NewVar(field.KindChar, "name")},
		},
		{
			desc: "Success: counted sequence",
			src:  "B*~H : data",
			want: []field.Field{field.NewCnt(field.KindUint8, field.KindUint16, "data")},
		},
		{
			desc: "Success: sibling bound sequence",
			src:  "B*.count : data",
			want: []field.Field{field.NewBound(field.KindUint8, "count", "data")},
		},
		{
			desc: "Success: leb128",
			src:  "I*%leb128 : tag",
			want: []field.Field{field.NewLeb128(field.KindUint32, "tag")},
		},
		{
			desc: "Success: typed field",
			src:  "Header*2 : hdrs",
			want: []field.Field{field.NewTyped("Header", 2, "hdrs")},
		},
		{
			desc: "Success: word size dependent letters",
			src: `l : slong
N : usize
P : ptr`,
			want: []field.Field{
				field.NewRaw(field.KindLong, 0, "slong"),
				field.NewRaw(field.KindUlong, 0, "usize"),
				field.NewRaw(field.KindPtr, 0, "ptr"),
			},
		},
		{
			desc: "Success: no trailing newline",
			src:  "B : tag",
			want: []field.Field{field.NewRaw(field.KindUint8, 0, "tag")},
		},
		{
			desc: "Success: blank lines skipped",
			src: `
B : a

B : b
`,
			want: []field.Field{
				field.NewRaw(field.KindUint8, 0, "a"),
				field.NewRaw(field.KindUint8, 0, "b"),
			},
		},
	}

	for _, test := range tests {
		got, err := Parse(test.src)
		switch {
		case err == nil && test.err:
			t.Errorf("TestParse(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestParse(%s): got err == %s, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}
		if len(got) != len(test.want) {
			t.Errorf("TestParse(%s): got %d fields, want %d", test.desc, len(got), len(test.want))
			continue
		}
		for i := range got {
			if !got[i].Equal(test.want[i]) {
				t.Errorf("TestParse(%s): field %d: got %s, want %s",
					test.desc, i, pretty.Sprint(got[i]), pretty.Sprint(test.want[i]))
			}
			if got[i].Name() != test.want[i].Name() {
				t.Errorf("TestParse(%s): field %d name: got %q, want %q",
					test.desc, i, got[i].Name(), test.want[i].Name())
			}
		}
	}
}

// Consecutive single-range bit groups over the same backing kind merge into
// one field; a range that does not fit starts a new group instead.
func TestParseBitGroupConcat(t *testing.T) {
	tests := []struct {
		desc string
		src  string
		want []field.Field
	}{
		{
			desc: "two singles merge",
			src: `B*#3 : low
B*#5 : high`,
			want: []field.Field{
				field.NewBits(field.KindUint8, []int{3, 5}, []string{"low", "high"}),
			},
		},
		{
			desc: "overflow starts a fresh group",
			src: `B*#6 : a
B*#4 : b`,
			want: []field.Field{
				field.NewBits(field.KindUint8, []int{6}, []string{"a"}),
				field.NewBits(field.KindUint8, []int{4}, []string{"b"}),
			},
		},
		{
			desc: "multi-range group never merges into previous",
			src: `B*#3 : a
B*#2/2 : b/c`,
			want: []field.Field{
				field.NewBits(field.KindUint8, []int{3}, []string{"a"}),
				field.NewBits(field.KindUint8, []int{2, 2}, []string{"b", "c"}),
			},
		},
		{
			desc: "non-group field breaks the chain",
			src: `B*#3 : a
B : plain
B*#5 : b`,
			want: []field.Field{
				field.NewBits(field.KindUint8, []int{3}, []string{"a"}),
				field.NewRaw(field.KindUint8, 0, "plain"),
				field.NewBits(field.KindUint8, []int{5}, []string{"b"}),
			},
		},
	}

	for _, test := range tests {
		got, err := Parse(test.src)
		if err != nil {
			t.Errorf("TestParseBitGroupConcat(%s): got err == %s, want err == nil", test.desc, err)
			continue
		}
		if len(got) != len(test.want) {
			t.Errorf("TestParseBitGroupConcat(%s): got %d fields, want %d", test.desc, len(got), len(test.want))
			continue
		}
		for i := range got {
			if !got[i].Equal(test.want[i]) {
				t.Errorf("TestParseBitGroupConcat(%s): field %d: got %s, want %s",
					test.desc, i, pretty.Sprint(got[i]), pretty.Sprint(test.want[i]))
			}
		}
	}
}

func TestStructRegistersAndDecodes(t *testing.T) {
	reg := registry.New()
	if _, err := Struct(reg, "Inner", "H : v"); err != nil {
		t.Fatalf("TestStructRegistersAndDecodes: got err == %s, want err == nil", err)
	}
	if _, err := Struct(reg, "Outer", `B : tag
Inner : in`); err != nil {
		t.Fatalf("TestStructRegistersAndDecodes: got err == %s, want err == nil", err)
	}

	d, err := reg.Resolve("Outer")
	if err != nil {
		t.Fatalf("TestStructRegistersAndDecodes: resolve: got err == %s, want err == nil", err)
	}
	v, n, err := d.Decode([]byte{0x01, 0x00, 0x34, 0x12}, 0, &field.Context{Types: reg, WordSize: 8})
	if err != nil {
		t.Fatalf("TestStructRegistersAndDecodes: decode: got err == %s, want err == nil", err)
	}
	if n != 4 {
		t.Errorf("TestStructRegistersAndDecodes: consumed: got %d, want 4", n)
	}
	rec := v.(interface {
		Decoded(string) (field.Value, bool)
	})
	if tag, _ := rec.Decoded("tag"); tag != uint8(1) {
		t.Errorf("TestStructRegistersAndDecodes: tag: got %v, want 1", tag)
	}
}

func TestTypedefBuiltins(t *testing.T) {
	reg := registry.New()
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("TestTypedefBuiltins: got err == %s, want err == nil", err)
	}
	d, err := reg.Resolve("uint32")
	if err != nil {
		t.Fatalf("TestTypedefBuiltins: got err == %s, want err == nil", err)
	}
	v, n, err := d.Decode([]byte{1, 0, 0, 0}, 0, nil)
	if err != nil {
		t.Fatalf("TestTypedefBuiltins: decode: got err == %s, want err == nil", err)
	}
	if v != uint32(1) || n != 4 {
		t.Errorf("TestTypedefBuiltins: got (%v, %d), want (1, 4)", v, n)
	}
}

// Typedef builds its declaration source itself, on a single line with no
// trailing newline; the one field it declares must still come back.
func TestTypedefSingleLineSource(t *testing.T) {
	reg := registry.New()
	if _, err := Typedef(reg, "word", "H", 0, 0); err != nil {
		t.Fatalf("TestTypedefSingleLineSource: got err == %s, want err == nil", err)
	}
	d, err := reg.Resolve("word")
	if err != nil {
		t.Fatalf("TestTypedefSingleLineSource: resolve: got err == %s, want err == nil", err)
	}
	if n, ok := d.SizeOf(8); !ok || n != 2 {
		t.Errorf("TestTypedefSingleLineSource: SizeOf: got (%d, %v), want (2, true)", n, ok)
	}
}

func TestLibrary(t *testing.T) {
	reg := registry.New()
	defs, err := Library(reg, `
; message layouts
typedef u16 H

struct Header packed
  B  : tag
  u16 :> length

union Word
  I : word
  H : half

struct Message packed
  Header : hdr
  B*.count : data ; needs count
  B : count
`)
	if err != nil {
		t.Fatalf("TestLibrary: got err == %s, want err == nil", err)
	}
	if len(defs) != 4 {
		t.Fatalf("TestLibrary: got %d definitions, want 4", len(defs))
	}
	names := []string{defs[0].Name(), defs[1].Name(), defs[2].Name(), defs[3].Name()}
	if diff := pretty.Compare([]string{"u16", "Header", "Word", "Message"}, names); diff != "" {
		t.Errorf("TestLibrary: -want/+got:\n%s", diff)
	}
	if !defs[2].IsUnion() {
		t.Errorf("TestLibrary: Word: got IsUnion == false, want true")
	}
	if !defs[0].IsTypedef() {
		t.Errorf("TestLibrary: u16: got IsTypedef == false, want true")
	}
}

func TestLibraryErrors(t *testing.T) {
	tests := []struct {
		desc string
		src  string
	}{
		{desc: "field outside definition", src: "B : stray"},
		{desc: "header without name", src: "struct"},
		{desc: "typedef without base", src: "typedef name"},
	}
	for _, test := range tests {
		if _, err := Library(registry.New(), test.src); err == nil {
			t.Errorf("TestLibraryErrors(%s): got err == nil, want err != nil", test.desc)
		}
	}
}
