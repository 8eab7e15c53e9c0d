package define

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/binarytools/strata/record"
	"github.com/binarytools/strata/registry"
)

// Library parses a source holding several definitions and registers each in
// reg. A definition opens with a header line and runs until the next header:
//
//	struct Name [packed]
//	  <field declarations>
//
//	union Name
//	  <field declarations>
//
//	typedef Name base [count [align]]
//
// Definitions are registered in order, so later definitions can use earlier
// names as field types. The registered definitions are returned in source
// order.
func Library(reg *registry.Registry, src string, opts ...Option) ([]*record.Def, error) {
	var defs []*record.Def

	var kind, name string
	var packed bool
	var body []string

	flush := func() error {
		if kind == "" {
			return nil
		}
		text := strings.Join(body, "\n")
		var d *record.Def
		var err error
		switch kind {
		case "struct":
			if packed {
				d, err = Packed(reg, name, text, opts...)
			} else {
				d, err = Struct(reg, name, text, opts...)
			}
		case "union":
			d, err = Union(reg, name, text, opts...)
		}
		if err != nil {
			return err
		}
		defs = append(defs, d)
		kind, name, packed, body = "", "", false, nil
		return nil
	}

	for i, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		fields := strings.Fields(trimmed)
		if len(fields) == 0 || strings.HasPrefix(trimmed, ";") {
			continue
		}
		switch fields[0] {
		case "struct", "union":
			if err := flush(); err != nil {
				return nil, err
			}
			if len(fields) < 2 {
				return nil, errors.Errorf("line %d: %s header needs a name", i+1, fields[0])
			}
			kind, name = fields[0], fields[1]
			packed = len(fields) > 2 && fields[2] == "packed"
			if fields[0] == "union" && len(fields) > 2 {
				return nil, errors.Errorf("line %d: unexpected %q after union name", i+1, fields[2])
			}
		case "typedef":
			if err := flush(); err != nil {
				return nil, err
			}
			d, err := parseTypedefHeader(reg, fields, i+1)
			if err != nil {
				return nil, err
			}
			defs = append(defs, d)
		default:
			if kind == "" {
				return nil, errors.Errorf("line %d: field declaration outside a definition", i+1)
			}
			body = append(body, trimmed)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return defs, nil
}

func parseTypedefHeader(reg *registry.Registry, fields []string, lineNum int) (*record.Def, error) {
	if len(fields) < 3 || len(fields) > 5 {
		return nil, errors.Errorf("line %d: typedef needs a name and a base type", lineNum)
	}
	count, align := 0, 0
	if len(fields) > 3 {
		c, err := strconv.Atoi(fields[3])
		if err != nil || c < 0 {
			return nil, errors.Errorf("line %d: bad typedef count %q", lineNum, fields[3])
		}
		count = c
	}
	if len(fields) > 4 {
		a, err := strconv.Atoi(fields[4])
		if err != nil || a < 0 {
			return nil, errors.Errorf("line %d: bad typedef alignment %q", lineNum, fields[4])
		}
		align = a
	}
	d, err := Typedef(reg, fields[1], fields[2], count, align)
	if err != nil {
		return nil, errors.Wrapf(err, "line %d", lineNum)
	}
	return d, nil
}
