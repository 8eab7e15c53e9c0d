// Package srec reads and writes the Motorola S-Record image format. Each
// line is "S" followed by a type digit, a byte count, an address whose width
// the type selects (16, 24 or 32 bits), the payload and a checksum.
package srec

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/binarytools/strata/define"
	"github.com/binarytools/strata/field"
	"github.com/binarytools/strata/format"
	"github.com/binarytools/strata/record"
	"github.com/binarytools/strata/registry"
)

// RecordType identifies the kind of one S-Record.
type RecordType uint8

const (
	Header  RecordType = 0
	Data16  RecordType = 1
	Data24  RecordType = 2
	Data32  RecordType = 3
	Count16 RecordType = 5
	Count24 RecordType = 6
	Start32 RecordType = 7
	Start24 RecordType = 8
	Start16 RecordType = 9
)

func init() {
	format.DefineConsts("srec.type", map[uint64]string{
		uint64(Header):  "Header",
		uint64(Data16):  "Data16",
		uint64(Data24):  "Data24",
		uint64(Data32):  "Data32",
		uint64(Count16): "Count16",
		uint64(Count24): "Count24",
		uint64(Start32): "Start32",
		uint64(Start24): "Start24",
		uint64(Start16): "Start16",
	})
}

// addrDigits is the hex digit width of the address per record type.
var addrDigits = [10]int{4, 4, 6, 8, 0, 4, 6, 8, 6, 4}

// lineDef is the wire layout of one record once the type digit has been read
// and the rest of the text line hex-decoded: a count byte, then count bytes
// of body holding the address, the payload and the checksum. The address
// width depends on the record type, so the body is split after decoding.
var lineDef = func() *record.Def {
	reg := registry.New()
	d, err := define.Packed(reg, "srecline", `
B        : count
s*.count : body
`)
	if err != nil {
		panic(fmt.Sprintf("srecline layout: %v", err))
	}
	return d
}()

// IsData reports whether the type carries loadable payload.
func (t RecordType) IsData() bool {
	return t == Data16 || t == Data24 || t == Data32
}

// IsStart reports whether the type carries the image entrypoint.
func (t RecordType) IsStart() bool {
	return t == Start16 || t == Start24 || t == Start32
}

// IsCount reports whether the type carries a data record count.
func (t RecordType) IsCount() bool {
	return t == Count16 || t == Count24
}

// Line is one parsed S-Record.
type Line struct {
	Type     RecordType
	Count    int
	Address  uint64
	Data     []byte
	Checksum byte

	// addrDigits is the hex width the address was read with, kept so Pack
	// reproduces the original line exactly.
	addrDigits int
}

// ParseLine parses one "S..." text line, verifying the length and checksum.
func ParseLine(s string) (*Line, error) {
	s = strings.TrimSpace(s)
	if len(s) < 10 || s[0] != 'S' {
		return nil, errors.Errorf("srec record %q: missing 'S' lead", s)
	}
	if s[1] < '0' || s[1] > '9' {
		return nil, errors.Errorf("srec record %q: bad type digit", s)
	}
	l := &Line{Type: RecordType(s[1] - '0')}
	if l.Type == 4 {
		return nil, errors.Errorf("srec record %q: reserved type S4", s)
	}

	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, errors.Wrapf(err, "srec record %q", s)
	}

	inst := lineDef.New()
	n, err := inst.Decode(raw, 0, &field.Context{})
	if err != nil {
		return nil, errors.Wrapf(err, "srec record %q", s)
	}
	if n != len(raw) {
		return nil, errors.Errorf("srec record %q: %d bytes declared, %d present", s, raw[0], len(raw)-1)
	}
	l.Count = int(inst.Get("count").(uint8))
	body := inst.Get("body").([]byte)

	digits := addrDigits[l.Type]
	// count records stretch to whatever width the writer used
	if l.Type.IsCount() {
		if r := 2*l.Count - 2; r != digits {
			digits = r
		}
	}
	l.addrDigits = digits
	addrBytes := digits / 2
	if len(body) < addrBytes+1 {
		return nil, errors.Errorf("srec record %q: too short for a %d digit address", s, digits)
	}
	for _, b := range body[:addrBytes] {
		l.Address = l.Address<<8 | uint64(b)
	}
	l.Data = append([]byte(nil), body[addrBytes:len(body)-1]...)
	l.Checksum = body[len(body)-1]

	if got := checksum(raw[:len(raw)-1]); got != l.Checksum {
		return nil, errors.Errorf("srec record %q: checksum %02X, want %02X", s, l.Checksum, got)
	}
	return l, nil
}

// checksum is the ones' complement of the byte sum over count, address and
// data.
func checksum(raw []byte) byte {
	sum := byte(0)
	for _, b := range raw {
		sum += b
	}
	return sum ^ 0xFF
}

// Pack renders the line back to its text form, recomputing the count and
// checksum.
func (l *Line) Pack() string {
	digits := l.addrDigits
	if digits == 0 {
		digits = addrDigits[l.Type]
	}
	addrBytes := digits / 2
	body := make([]byte, 0, addrBytes+len(l.Data)+1)
	for i := addrBytes - 1; i >= 0; i-- {
		body = append(body, byte(l.Address>>(8*i)))
	}
	body = append(body, l.Data...)
	cnt := byte(len(body) + 1)
	sum := cnt
	for _, b := range body {
		sum += b
	}
	body = append(body, sum^0xFF)

	inst := lineDef.New()
	inst.Set("count", cnt)
	inst.Set("body", body)
	raw, err := inst.Encode(&field.Context{})
	if err != nil {
		// layout is fixed and all values are in range
		panic(fmt.Sprintf("srecline encode: %v", err))
	}
	return fmt.Sprintf("S%d%s", l.Type, strings.ToUpper(hex.EncodeToString(raw)))
}

func (l *Line) String() string {
	name := format.Name("srec")("type", uint64(l.Type))
	switch {
	case l.Type == Header:
		return fmt.Sprintf("[%s] %s: %s", name,
			format.Address("address", l.Address), string(l.Data))
	case l.Type.IsData():
		return fmt.Sprintf("[%s] %s: %s", name,
			format.Address("address", l.Address), hex.EncodeToString(l.Data))
	case l.Type.IsCount():
		return fmt.Sprintf("[%s] %d", name, l.Address)
	case l.Type.IsStart():
		return fmt.Sprintf("[%s] %s", name, format.Address("address", l.Address))
	}
	return fmt.Sprintf("[%s]", name)
}

// Segment is a contiguous run of loaded bytes.
type Segment struct {
	Addr uint64
	Data []byte
}

// File is a parsed S-Record image.
type File struct {
	Lines []*Line

	// Header is the text of the S0 record, usually a module name.
	Header string
	// Entry is the entrypoint from the start record, 0 when absent.
	Entry uint64
}

// Parse reads an S-Record image from r. Blank lines are skipped. A count
// record that disagrees with the number of data records seen since the last
// start record fails the parse.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	sc := bufio.NewScanner(r)
	n, dataCount := 0, uint64(0)
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		l, err := ParseLine(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		switch {
		case l.Type == Header:
			f.Header = string(l.Data)
		case l.Type.IsData():
			dataCount++
		case l.Type.IsCount():
			if l.Address != dataCount {
				return nil, errors.Errorf("line %d: record count %d, %d data records seen", n, l.Address, dataCount)
			}
		case l.Type.IsStart():
			if l.Address != 0 {
				f.Entry = l.Address
			}
			dataCount = 0
		}
		f.Lines = append(f.Lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// Segments merges adjacent data records into contiguous runs, sorted by
// address.
func (f *File) Segments() []Segment {
	lines := make([]*Line, 0, len(f.Lines))
	for _, l := range f.Lines {
		if l.Type.IsData() {
			lines = append(lines, l)
		}
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Address < lines[j].Address })

	var out []Segment
	for _, l := range lines {
		if n := len(out); n > 0 && out[n-1].Addr+uint64(len(out[n-1].Data)) == l.Address {
			out[n-1].Data = append(out[n-1].Data, l.Data...)
			continue
		}
		out = append(out, Segment{Addr: l.Address, Data: append([]byte(nil), l.Data...)})
	}
	return out
}

// Encode renders the whole image back to text, one record per line.
func (f *File) Encode(w io.Writer) error {
	for _, l := range f.Lines {
		if _, err := io.WriteString(w, l.Pack()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) String() string {
	parts := make([]string, len(f.Lines))
	for i, l := range f.Lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}
