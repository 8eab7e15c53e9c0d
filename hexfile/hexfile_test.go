package hexfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `:10010000214601360121470136007EFE09D2190140
:100110002146017E17C20001FF5F16002148011928
:00000001FF
`

func TestParseLine(t *testing.T) {
	tests := []struct {
		desc string
		in   string
		err  bool
	}{
		{desc: "Error: missing lead colon", in: "10010000214601360121470136007EFE09D2190140", err: true},
		{desc: "Error: odd hex digits", in: ":100100002", err: true},
		{desc: "Error: bad checksum", in: ":10010000214601360121470136007EFE09D2190141", err: true},
		{desc: "Error: count disagrees with payload", in: ":0A010000214601360121470136007EFE09D21901F6", err: true},
		{desc: "Success: data record", in: ":10010000214601360121470136007EFE09D2190140"},
		{desc: "Success: end of file record", in: ":00000001FF"},
	}

	for _, test := range tests {
		_, err := ParseLine(test.in)
		if test.err {
			require.Error(t, err, test.desc)
			continue
		}
		require.NoError(t, err, test.desc)
	}
}

func TestParseLineFields(t *testing.T) {
	l, err := ParseLine(":10010000214601360121470136007EFE09D2190140")
	require.NoError(t, err)
	require.Equal(t, 16, l.Count)
	require.Equal(t, uint16(0x0100), l.Address)
	require.Equal(t, Data, l.Type)
	require.Equal(t, byte(0x40), l.Checksum)
	require.Len(t, l.Data, 16)
	require.Equal(t, byte(0x21), l.Data[0])
}

func TestParseLineDataIsByteRun(t *testing.T) {
	l, err := ParseLine(":02010000DEAD72")
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, l.Data)
}

// Pack derives count and checksum from the payload; a stale Checksum on the
// line must not leak into the output.
func TestPackRecomputesChecksum(t *testing.T) {
	l := &Line{Address: 0x0100, Type: Data, Data: []byte{0xde, 0xad}, Checksum: 0xFF}
	require.Equal(t, ":02010000DEAD72", l.Pack())
}

func TestPackRoundTrip(t *testing.T) {
	for _, in := range strings.Fields(sample) {
		l, err := ParseLine(in)
		require.NoError(t, err)
		require.Equal(t, in, l.Pack())
	}
}

func TestParseFile(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, f.Lines, 3)
	require.Equal(t, EndOfFile, f.Lines[2].Type)

	segs := f.Segments()
	require.Len(t, segs, 1, "adjacent data records must merge")
	require.Equal(t, uint64(0x0100), segs[0].Addr)
	require.Len(t, segs[0].Data, 32)
}

func TestExtendedLinearAddress(t *testing.T) {
	src := `:020000040800F2
:04010000DEADBEEFC3
:00000001FF
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	segs := f.Segments()
	require.Len(t, segs, 1)
	require.Equal(t, uint64(0x08000100), segs[0].Addr)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, segs[0].Data)
}

func TestExtendedSegmentAddress(t *testing.T) {
	src := `:020000021000EC
:02000000AABB99
:00000001FF
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	segs := f.Segments()
	require.Len(t, segs, 1)
	require.Equal(t, uint64(0x1000*16), segs[0].Addr)
}

func TestStartLinearAddress(t *testing.T) {
	src := ":04000005080001A945\n:00000001FF\n"
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, uint64(0x080001A9), f.Entry)
}

func TestEncode(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Encode(&buf))
	require.Equal(t, sample, buf.String())
}
