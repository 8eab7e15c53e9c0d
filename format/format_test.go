package format

import (
	"strings"
	"testing"

	"github.com/binarytools/strata/field"
	"github.com/binarytools/strata/record"
)

func TestFormatters(t *testing.T) {
	DefineConsts("pkt.kind", map[uint64]string{0xd1: "IVT", 0xd2: "DCD"})
	DefineConsts("pkt.flags", map[uint64]string{1: "READ", 2: "WRITE", 4: "EXEC"})

	tests := []struct {
		desc string
		f    Func
		key  string
		v    field.Value
		want string
	}{
		{desc: "default integer", f: Default, key: "x", v: uint16(42), want: "42"},
		{desc: "default bytes quote", f: Default, key: "x", v: []byte("hi"), want: `"hi"`},
		{desc: "default nil", f: Default, key: "x", v: nil, want: "nil"},
		{desc: "address hex", f: Address, key: "x", v: uint32(0x8000), want: "0x8000"},
		{desc: "mask hex", f: Mask, key: "x", v: uint8(0xff), want: "0xff"},
		{desc: "name hit", f: Name("pkt"), key: "kind", v: uint8(0xd1), want: "IVT"},
		{desc: "name miss falls back to decimal", f: Name("pkt"), key: "kind", v: uint8(0x99), want: "153"},
		{desc: "flag single", f: Flag("pkt"), key: "flags", v: uint8(4), want: "EXEC"},
		{desc: "flag none falls back to mask", f: Flag("pkt"), key: "flags", v: uint8(8), want: "0x8"},
		{desc: "version", f: Version, key: "x", v: uint32(0x00010203), want: "3.2.1"},
		{desc: "version zero", f: Version, key: "x", v: uint32(0), want: "0"},
		{desc: "bytes from run", f: Bytes, key: "x", v: []byte{0xde, 0xad}, want: "DE AD"},
		{desc: "datetime epoch", f: DateTime, key: "x", v: uint32(0), want: "1970-01-01 00:00:00"},
	}

	for _, test := range tests {
		if got := test.f(test.key, test.v); got != test.want {
			t.Errorf("TestFormatters(%s): got %q, want %q", test.desc, got, test.want)
		}
	}
}

func TestFlagMultiple(t *testing.T) {
	DefineConsts("perm.bits", map[uint64]string{1: "READ", 2: "WRITE"})
	got := Flag("perm")("bits", uint8(3))
	if !strings.Contains(got, "READ") || !strings.Contains(got, "WRITE") {
		t.Errorf("TestFlagMultiple: got %q, want both READ and WRITE", got)
	}
}

func TestPrinterRecord(t *testing.T) {
	d := record.NewDef("Header", []field.Field{
		field.NewRaw(field.KindUint8, 0, "tag"),
		field.NewRaw(field.KindUint16, 0, "length"),
		field.NewBits(field.KindUint8, []int{3, 5}, []string{"low", "_"}),
	}, record.Packed())

	inst := d.New()
	if _, err := inst.Decode([]byte{0xd1, 0x34, 0x12, 0x0b}, 0, nil); err != nil {
		t.Fatalf("TestPrinterRecord: got err == %s, want err == nil", err)
	}

	DefineConsts("Header.tag", map[uint64]string{0xd1: "IVT"})
	got := NewPrinter().Set(Name("Header"), "tag").Record(inst)

	want := strings.Join([]string{
		"[Header]",
		"tag   :IVT",
		"length:4660",
		"low   :3",
	}, "\n")
	if got != want {
		t.Errorf("TestPrinterRecord: got:\n%s\nwant:\n%s", got, want)
	}
}
