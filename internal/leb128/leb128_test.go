package leb128

import (
	"bytes"
	"testing"
)

func TestUint(t *testing.T) {
	tests := []struct {
		desc string
		buf  []byte
		want uint64
		n    int
		err  bool
	}{
		{desc: "Error: empty buffer", buf: nil, err: true},
		{desc: "Error: continuation bit on last byte", buf: []byte{0x80}, err: true},
		{desc: "Success: zero", buf: []byte{0x00}, want: 0, n: 1},
		{desc: "Success: single byte max", buf: []byte{0x7f}, want: 127, n: 1},
		{desc: "Success: two bytes", buf: []byte{0x80, 0x01}, want: 128, n: 2},
		{desc: "Success: three bytes", buf: []byte{0x80, 0x80, 0x01}, want: 16384, n: 3},
		{desc: "Success: five bytes", buf: []byte{0xff, 0xff, 0xff, 0xff, 0x7f}, want: 1<<35 - 1, n: 5},
		{desc: "Success: trailing bytes ignored", buf: []byte{0x08, 0xff}, want: 8, n: 1},
	}

	for _, test := range tests {
		got, n, err := Uint(test.buf)
		switch {
		case err == nil && test.err:
			t.Errorf("TestUint(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestUint(%s): got err == %s, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}
		if got != test.want || n != test.n {
			t.Errorf("TestUint(%s): got (%d, %d), want (%d, %d)", test.desc, got, n, test.want, test.n)
		}
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		desc string
		buf  []byte
		want int64
		n    int
		err  bool
	}{
		{desc: "Error: empty buffer", buf: nil, err: true},
		{desc: "Success: zero", buf: []byte{0x00}, want: 0, n: 1},
		{desc: "Success: minus one", buf: []byte{0x7f}, want: -1, n: 1},
		{desc: "Success: minus 64", buf: []byte{0x40}, want: -64, n: 1},
		{desc: "Success: minus 65", buf: []byte{0xbf, 0x7f}, want: -65, n: 2},
		{desc: "Success: 63", buf: []byte{0x3f}, want: 63, n: 1},
		{desc: "Success: 64 needs two bytes", buf: []byte{0xc0, 0x00}, want: 64, n: 2},
	}

	for _, test := range tests {
		got, n, err := Int(test.buf)
		switch {
		case err == nil && test.err:
			t.Errorf("TestInt(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestInt(%s): got err == %s, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}
		if got != test.want || n != test.n {
			t.Errorf("TestInt(%s): got (%d, %d), want (%d, %d)", test.desc, got, n, test.want, test.n)
		}
	}
}

func TestAppendRoundTrip(t *testing.T) {
	uvals := []uint64{0, 1, 127, 128, 300, 16384, 1<<35 - 1, 1<<64 - 1}
	for _, v := range uvals {
		b := AppendUint(nil, v)
		got, n, err := Uint(b)
		if err != nil {
			t.Errorf("TestAppendRoundTrip(uint %d): got err == %s, want err == nil", v, err)
			continue
		}
		if got != v || n != len(b) {
			t.Errorf("TestAppendRoundTrip(uint %d): got (%d, %d), want (%d, %d)", v, got, n, v, len(b))
		}
	}

	ivals := []int64{0, 1, -1, 63, 64, -64, -65, 300, -300, 1<<62 - 1, -(1 << 62)}
	for _, v := range ivals {
		b := AppendInt(nil, v)
		got, n, err := Int(b)
		if err != nil {
			t.Errorf("TestAppendRoundTrip(int %d): got err == %s, want err == nil", v, err)
			continue
		}
		if got != v || n != len(b) {
			t.Errorf("TestAppendRoundTrip(int %d): got (%d, %d), want (%d, %d)", v, got, n, v, len(b))
		}
	}
}

func TestAppendUintKnown(t *testing.T) {
	if got := AppendUint(nil, 624485); !bytes.Equal(got, []byte{0xe5, 0x8e, 0x26}) {
		t.Errorf("TestAppendUintKnown: got %x, want e58e26", got)
	}
	if got := AppendInt(nil, -123456); !bytes.Equal(got, []byte{0xc0, 0xbb, 0x78}) {
		t.Errorf("TestAppendUintKnown: got %x, want c0bb78", got)
	}
}
