package field

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestCntFieldDecode(t *testing.T) {
	tests := []struct {
		desc  string
		field *CntField
		buf   []byte
		want  Value
		n     int
		count int
		err   bool
	}{
		{
			desc:  "Error: buffer shorter than declared count",
			field: NewCnt(KindUint8, KindUint8, "v"),
			buf:   []byte{5, 1, 2},
			err:   true,
		},
		{
			desc:  "Success: zero count consumes only the count width",
			field: NewCnt(KindUint8, KindUint16, "v"),
			buf:   []byte{0, 0, 0xde, 0xad},
			want:  []Value{},
			n:     2,
			count: 0,
		},
		{
			desc:  "Success: byte elements with uint8 count",
			field: NewCnt(KindBytes, KindUint8, "v"),
			buf:   []byte{3, 'a', 'b', 'c', 'x'},
			want:  []byte{'a', 'b', 'c'},
			n:     4,
			count: 3,
		},
		{
			desc:  "Success: uint16 elements with uint16 count",
			field: NewCnt(KindUint16, KindUint16, "v"),
			buf:   []byte{2, 0, 1, 0, 2, 0},
			want:  []Value{uint16(1), uint16(2)},
			n:     6,
			count: 2,
		},
	}

	for _, test := range tests {
		got, n, err := test.field.Decode(test.buf, 0, nil)
		switch {
		case err == nil && test.err:
			t.Errorf("TestCntFieldDecode(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestCntFieldDecode(%s): got err == %s, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}
		if n != test.n {
			t.Errorf("TestCntFieldDecode(%s): consumed: got %d, want %d", test.desc, n, test.n)
		}
		if diff := pretty.Compare(test.want, got); diff != "" {
			t.Errorf("TestCntFieldDecode(%s): -want/+got:\n%s", test.desc, diff)
		}
		if test.field.DecodedCount() != test.count {
			t.Errorf("TestCntFieldDecode(%s): count: got %d, want %d", test.desc, test.field.DecodedCount(), test.count)
		}
	}
}

func TestCntFieldEncode(t *testing.T) {
	tests := []struct {
		desc  string
		field *CntField
		v     Value
		want  []byte
		err   bool
	}{
		{
			desc:  "Error: not a sequence",
			field: NewCnt(KindUint8, KindUint8, "v"),
			v:     uint8(1),
			err:   true,
		},
		{
			desc:  "Success: count derived from element length",
			field: NewCnt(KindBytes, KindUint8, "v"),
			v:     []byte{'a', 'b', 'c'},
			want:  []byte{3, 'a', 'b', 'c'},
		},
		{
			desc:  "Success: empty sequence writes zero count",
			field: NewCnt(KindUint16, KindUint16, "v"),
			v:     []Value{},
			want:  []byte{0, 0},
		},
		{
			desc:  "Success: scalar elements after the count",
			field: NewCnt(KindUint16, KindUint8, "v"),
			v:     []Value{uint16(1), uint16(2)},
			want:  []byte{2, 1, 0, 2, 0},
		},
	}

	for _, test := range tests {
		got, err := test.field.Encode(test.v, nil)
		switch {
		case err == nil && test.err:
			t.Errorf("TestCntFieldEncode(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestCntFieldEncode(%s): got err == %s, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}
		if diff := pretty.Compare(test.want, got); diff != "" {
			t.Errorf("TestCntFieldEncode(%s): -want/+got:\n%s", test.desc, diff)
		}
	}
}

// A decode must never alter the template's declared count encoding; a second
// decode from the same template instance sees the declaration, not leftovers.
func TestCntFieldTemplateImmutable(t *testing.T) {
	tmpl := NewCnt(KindUint8, KindUint16, "v")

	inst1 := tmpl.Clone(nil).(*CntField)
	if _, _, err := inst1.Decode([]byte{2, 0, 7, 8}, 0, nil); err != nil {
		t.Fatalf("TestCntFieldTemplateImmutable: got err == %s, want err == nil", err)
	}
	if tmpl.CountKind() != KindUint16 || tmpl.decoded {
		t.Errorf("TestCntFieldTemplateImmutable: template mutated by instance decode")
	}

	inst2 := tmpl.Clone(nil).(*CntField)
	got, n, err := inst2.Decode([]byte{1, 0, 9}, 0, nil)
	if err != nil {
		t.Fatalf("TestCntFieldTemplateImmutable: got err == %s, want err == nil", err)
	}
	if n != 3 {
		t.Errorf("TestCntFieldTemplateImmutable: consumed: got %d, want 3", n)
	}
	if diff := pretty.Compare([]Value{uint8(9)}, got); diff != "" {
		t.Errorf("TestCntFieldTemplateImmutable: -want/+got:\n%s", diff)
	}
}
