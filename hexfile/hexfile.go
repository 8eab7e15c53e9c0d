// Package hexfile reads and writes the Intel HEX image format. Each text
// line carries one record: a byte count, a 16 bit load address, a record
// type, the payload and a checksum. Extended segment and linear address
// records widen the 16 bit address space; start address records carry the
// image entrypoint.
package hexfile

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

// RecordType identifies the kind of one HEX record.
type RecordType uint8

const (
	Data                   RecordType = 0
	EndOfFile              RecordType = 1
	ExtendedSegmentAddress RecordType = 2
	StartSegmentAddress    RecordType = 3
	ExtendedLinearAddress  RecordType = 4
	StartLinearAddress     RecordType = 5
)

func init() {
	format.DefineConsts("hex.type", map[uint64]string{
		uint64(Data):                   "Data",
		uint64(EndOfFile):              "EndOfFile",
		uint64(ExtendedSegmentAddress): "ExtendedSegmentAddress",
		uint64(StartSegmentAddress):    "StartSegmentAddress",
		uint64(ExtendedLinearAddress):  "ExtendedLinearAddress",
		uint64(StartLinearAddress):     "StartLinearAddress",
	})
}

// lineDef is the wire layout of one record once the text line has been
// hex-decoded: count, big-endian address, type, count bytes of payload,
// checksum. The payload is a byte run, so it decodes to one []byte.
var lineDef = func() *record.Def {
	reg := registry.New()
	d, err := define.Packed(reg, "hexline", `
B        : count
H        :> address
B        : type
s*.count : data
B        : checksum
`)
	if err != nil {
		panic(fmt.Sprintf("hexline layout: %v", err))
	}
	return d
}()

// Line is one parsed HEX record.
type Line struct {
	Count    int
	Address  uint16
	Type     RecordType
	Data     []byte
	Checksum byte
}

// ParseLine parses one ":..." text line, verifying the length and checksum.
func ParseLine(s string) (*Line, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, ":") {
		return nil, errors.Errorf("hex record %q: missing ':' lead", s)
	}
	raw, err := hex.DecodeString(s[1:])
	if err != nil {
		return nil, errors.Wrapf(err, "hex record %q", s)
	}

	inst := lineDef.New()
	if _, err := inst.Decode(raw, 0, &field.Context{}); err != nil {
		return nil, errors.Wrapf(err, "hex record %q", s)
	}
	l := &Line{
		Count:    int(inst.Get("count").(uint8)),
		Address:  inst.Get("address").(uint16),
		Type:     RecordType(inst.Get("type").(uint8)),
		Data:     inst.Get("data").([]byte),
		Checksum: inst.Get("checksum").(uint8),
	}
	if len(raw) != 5+l.Count {
		return nil, errors.Errorf("hex record %q: %d payload bytes declared, %d present", s, l.Count, len(raw)-5)
	}
	sum := byte(0)
	for _, b := range raw {
		sum += b
	}
	if sum != 0 {
		return nil, errors.Errorf("hex record %q: checksum mismatch", s)
	}
	return l, nil
}

// checksum is the record checksum over count, address, type and payload:
// the two's complement of their byte sum.
func (l *Line) checksum() byte {
	sum := byte(len(l.Data)) + byte(l.Address>>8) + byte(l.Address) + byte(l.Type)
	for _, b := range l.Data {
		sum += b
	}
	return -sum
}

// Pack renders the line back to its text form, recomputing the count and
// checksum from the payload.
func (l *Line) Pack() string {
	inst := lineDef.New()
	inst.Set("count", uint8(len(l.Data)))
	inst.Set("address", l.Address)
	inst.Set("type", uint8(l.Type))
	inst.Set("data", l.Data)
	inst.Set("checksum", l.checksum())
	raw, err := inst.Encode(&field.Context{})
	if err != nil {
		// layout is fixed and all values are in range
		panic(fmt.Sprintf("hexline encode: %v", err))
	}
	return ":" + strings.ToUpper(hex.EncodeToString(raw))
}

// Base returns the segment base of an extended segment address record.
func (l *Line) Base() uint32 {
	if l.Type != ExtendedSegmentAddress || len(l.Data) != 2 {
		return 0
	}
	return uint32(l.Data[0])<<8 | uint32(l.Data[1])
}

// StartSegment returns the CS:IP pair of a start segment address record.
func (l *Line) StartSegment() (cs, ip uint16) {
	if l.Type != StartSegmentAddress || len(l.Data) != 4 {
		return 0, 0
	}
	cs = uint16(l.Data[0])<<8 | uint16(l.Data[1])
	ip = uint16(l.Data[2])<<8 | uint16(l.Data[3])
	return cs, ip
}

// ExtendedLinear returns the upper 16 address bits of an extended linear
// address record.
func (l *Line) ExtendedLinear() uint32 {
	if l.Type != ExtendedLinearAddress || len(l.Data) != 2 {
		return 0
	}
	return uint32(l.Data[0])<<8 | uint32(l.Data[1])
}

// StartLinear returns the 32 bit entrypoint of a start linear address
// record.
func (l *Line) StartLinear() uint32 {
	if l.Type != StartLinearAddress || len(l.Data) != 4 {
		return 0
	}
	return uint32(l.Data[0])<<24 | uint32(l.Data[1])<<16 |
		uint32(l.Data[2])<<8 | uint32(l.Data[3])
}

func (l *Line) String() string {
	name := format.Name("hex")("type", uint64(l.Type))
	switch l.Type {
	case Data:
		return fmt.Sprintf("[%s] %s: '%s'", name,
			format.Address("address", l.Address), hex.EncodeToString(l.Data))
	case EndOfFile:
		return fmt.Sprintf("[%s]", name)
	case ExtendedSegmentAddress:
		return fmt.Sprintf("[%s] %s", name, format.Address("base", l.Base()))
	case StartSegmentAddress:
		cs, ip := l.StartSegment()
		return fmt.Sprintf("[%s] %s:%s", name,
			format.Address("cs", cs), format.Address("ip", ip))
	case ExtendedLinearAddress:
		return fmt.Sprintf("[%s] %s", name, format.Address("ela", l.ExtendedLinear()))
	case StartLinearAddress:
		return fmt.Sprintf("[%s] %s", name, format.Address("eip", l.StartLinear()))
	}
	return fmt.Sprintf("[%s]", name)
}

// Segment is a contiguous run of loaded bytes.
type Segment struct {
	Addr uint64
	Data []byte
}

// File is a parsed HEX image.
type File struct {
	Lines []*Line

	// Entry is the image entrypoint from a start linear address record, or
	// the CS:IP pair folded to a linear address for start segment records.
	Entry uint64
}

// Parse reads a HEX image from r. Blank lines are skipped; any malformed
// record aborts the parse.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	sc := bufio.NewScanner(r)
	n := 0
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
		switch l.Type {
		case StartSegmentAddress:
			cs, ip := l.StartSegment()
			f.Entry = uint64(cs)<<4 + uint64(ip)
		case StartLinearAddress:
			f.Entry = uint64(l.StartLinear())
		}
		f.Lines = append(f.Lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// Segments resolves the data records against the extended segment and
// linear address records that precede them and merges adjacent runs,
// sorted by address.
func (f *File) Segments() []Segment {
	var seg, ela uint64
	type run struct {
		addr uint64
		data []byte
	}
	var runs []run
	for _, l := range f.Lines {
		switch l.Type {
		case ExtendedSegmentAddress:
			seg = uint64(l.Base())
		case ExtendedLinearAddress:
			ela = uint64(l.ExtendedLinear())
		case Data:
			addr := uint64(l.Address)
			if ela != 0 {
				addr += ela << 16
			} else if seg != 0 {
				addr += seg * 16
			}
			runs = append(runs, run{addr, l.Data})
		}
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].addr < runs[j].addr })

	var out []Segment
	for _, r := range runs {
		if n := len(out); n > 0 && out[n-1].Addr+uint64(len(out[n-1].Data)) == r.addr {
			out[n-1].Data = append(out[n-1].Data, r.data...)
			continue
		}
		out = append(out, Segment{Addr: r.addr, Data: append([]byte(nil), r.data...)})
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
