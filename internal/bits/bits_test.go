package bits

import "testing"

func TestMask(t *testing.T) {
	tests := []struct {
		desc       string
		start, end uint64
		want       uint64
	}{
		{desc: "low three bits", start: 0, end: 3, want: 0b111},
		{desc: "interior range", start: 3, end: 8, want: 0b11111000},
		{desc: "full word", start: 0, end: 64, want: ^uint64(0)},
	}
	for _, test := range tests {
		if got := Mask[uint64](test.start, test.end); got != test.want {
			t.Errorf("TestMask(%s): got %#x, want %#x", test.desc, got, test.want)
		}
	}
}

func TestMaskPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("TestMaskPanics: got no panic, want panic")
		}
	}()
	Mask[uint64](3, 3)
}

func TestExtractInsert(t *testing.T) {
	// a:5 | b:17<<3 | c:200<<8
	const packed = uint64(0xC88D)

	if got := Extract(packed, 0, 3); got != 5 {
		t.Errorf("TestExtractInsert(a): got %d, want 5", got)
	}
	if got := Extract(packed, 3, 8); got != 17 {
		t.Errorf("TestExtractInsert(b): got %d, want 17", got)
	}
	if got := Extract(packed, 8, 16); got != 200 {
		t.Errorf("TestExtractInsert(c): got %d, want 200", got)
	}

	var u uint64
	u = Insert(u, 5, 0, 3)
	u = Insert(u, 17, 3, 8)
	u = Insert(u, 200, 8, 16)
	if u != packed {
		t.Errorf("TestExtractInsert(pack): got %#x, want %#x", u, packed)
	}

	// oversized values mask to the range width
	if got := Insert(uint64(0), 0xff, 0, 3); got != 0b111 {
		t.Errorf("TestExtractInsert(mask): got %#x, want 0x7", got)
	}
}
