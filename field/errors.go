package field

import "github.com/pkg/errors"

// Sentinel errors for the field codec. Callers match them with errors.Is
// (or errors.Cause); call sites wrap them with positional context.
var (
	// ErrTypeNotFound reports a type name that could not be resolved at
	// first use. Definitions may be mutually forward-referencing, so this
	// is only raised at decode/encode time, never at declaration time.
	ErrTypeNotFound = errors.New("type not found")

	// ErrWordSize reports a pointer-sized kind used with a word size other
	// than 4 or 8.
	ErrWordSize = errors.New("unsupported word size")

	// ErrShortBuffer reports a read past the end of the input buffer. It is
	// raised before any decode-time state is recorded.
	ErrShortBuffer = errors.New("buffer too short")

	// ErrBitOverflow reports bit ranges that exceed the capacity of the
	// value they are packed into. Raised when definitions are merged, not
	// at decode time.
	ErrBitOverflow = errors.New("bit ranges exceed field capacity")

	// ErrBindOrder reports a sibling-bound field decoded before its count
	// sibling. This is a caller ordering bug, not a data error.
	ErrBindOrder = errors.New("bound sibling not decoded yet")

	// ErrValueType reports a value outside the domain a field operates on,
	// such as a non-integer used as an element count.
	ErrValueType = errors.New("unsupported value type")
)

// checkLen verifies that buf holds n bytes at off.
func checkLen(buf []byte, off, n int) error {
	if off < 0 || n < 0 || off+n > len(buf) {
		return errors.Wrapf(ErrShortBuffer, "need %d bytes at offset %d, have %d", n, off, len(buf))
	}
	return nil
}
