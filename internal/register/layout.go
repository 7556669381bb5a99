// internal/register/layout.go
package register

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Layout is a decode structure for a run of register bytes, written in the
// struct notation used by device vendors' docs: an optional byte order
// prefix followed by format codes with optional repeat counts, e.g. ">h",
// "<HH", ">2xh".
//
// Only the first non-pad item carries the value.
type Layout struct {
	format string
	order  binary.ByteOrder
	items  []layoutItem
	size   int
}

type layoutItem struct {
	code   byte
	offset int
	size   int
}

var codeSizes = map[byte]int{
	'x': 1, 'c': 1, 'b': 1, 'B': 1, '?': 1,
	'h': 2, 'H': 2, 'e': 2,
	'i': 4, 'I': 4, 'l': 4, 'L': 4, 'f': 4,
	'q': 8, 'Q': 8, 'd': 8,
}

// ParseLayout parses a structure format string.
func ParseLayout(format string) (Layout, error) {
	l := Layout{format: format, order: binary.LittleEndian}

	s := strings.TrimSpace(format)
	if s == "" {
		return Layout{}, errors.New("empty structure")
	}

	// native order ('@', '=', or no prefix) is taken as little-endian
	switch s[0] {
	case '>', '!':
		l.order = binary.BigEndian
		s = s[1:]
	case '<', '=', '@':
		s = s[1:]
	}

	for len(s) > 0 {
		if s[0] == ' ' || s[0] == '\t' {
			s = s[1:]
			continue
		}

		n := 0
		for n < len(s) && s[n] >= '0' && s[n] <= '9' {
			n++
		}
		repeat := 1
		if n > 0 {
			r, err := strconv.Atoi(s[:n])
			if err != nil {
				return Layout{}, errors.Wrapf(err, "bad repeat count in %q", format)
			}
			repeat = r
			s = s[n:]
		}
		if len(s) == 0 {
			return Layout{}, errors.Errorf("repeat count without format code in %q", format)
		}

		code := s[0]
		size, ok := codeSizes[code]
		if !ok {
			return Layout{}, errors.Errorf("bad char %q in structure %q", code, format)
		}
		for i := 0; i < repeat; i++ {
			l.items = append(l.items, layoutItem{code: code, offset: l.size, size: size})
			l.size += size
		}
		s = s[1:]
	}

	if l.valueItem() == nil {
		return Layout{}, errors.Errorf("structure %q has no value", format)
	}

	return l, nil
}

// Size is the packed byte size.
func (l Layout) Size() int { return l.size }

func (l Layout) String() string { return l.format }

func (l Layout) valueItem() *layoutItem {
	for i := range l.items {
		if l.items[i].code != 'x' {
			return &l.items[i]
		}
	}
	return nil
}

// Decode unpacks the value item from buf.
func (l Layout) Decode(buf []byte) (float64, error) {
	if len(buf) != l.size {
		return 0, errors.Errorf("unpack %q requires %d bytes, got %d", l.format, l.size, len(buf))
	}

	it := l.valueItem()
	b := buf[it.offset : it.offset+it.size]

	switch it.code {
	case 'c', 'B':
		return asFloat(b[0]), nil
	case 'b':
		return asFloat(int8(b[0])), nil
	case '?':
		if b[0] != 0 {
			return 1, nil
		}
		return 0, nil
	case 'h':
		return asFloat(int16(l.order.Uint16(b))), nil
	case 'H':
		return asFloat(l.order.Uint16(b)), nil
	case 'e':
		return float16ToFloat64(l.order.Uint16(b)), nil
	case 'i', 'l':
		return asFloat(int32(l.order.Uint32(b))), nil
	case 'I', 'L':
		return asFloat(l.order.Uint32(b)), nil
	case 'f':
		return asFloat(math.Float32frombits(l.order.Uint32(b))), nil
	case 'q':
		return asFloat(int64(l.order.Uint64(b))), nil
	case 'Q':
		return asFloat(l.order.Uint64(b)), nil
	case 'd':
		return math.Float64frombits(l.order.Uint64(b)), nil
	}

	return 0, errors.Errorf("unsupported code %q", it.code)
}

// Encode packs v into the value item; pad and trailing items are zero.
// Integer codes truncate toward zero and reject out-of-range values.
func (l Layout) Encode(v float64) ([]byte, error) {
	buf := make([]byte, l.size)

	it := l.valueItem()
	b := buf[it.offset : it.offset+it.size]

	switch it.code {
	case 'c', 'B':
		n, err := truncate[uint8](v, 0, math.MaxUint8+1)
		if err != nil {
			return nil, err
		}
		b[0] = n
	case 'b':
		n, err := truncate[int8](v, math.MinInt8, math.MaxInt8+1)
		if err != nil {
			return nil, err
		}
		b[0] = byte(n)
	case '?':
		if v != 0 {
			b[0] = 1
		}
	case 'h':
		n, err := truncate[int16](v, math.MinInt16, math.MaxInt16+1)
		if err != nil {
			return nil, err
		}
		l.order.PutUint16(b, uint16(n))
	case 'H':
		n, err := truncate[uint16](v, 0, math.MaxUint16+1)
		if err != nil {
			return nil, err
		}
		l.order.PutUint16(b, n)
	case 'e':
		l.order.PutUint16(b, float64ToFloat16(v))
	case 'i', 'l':
		n, err := truncate[int32](v, math.MinInt32, math.MaxInt32+1)
		if err != nil {
			return nil, err
		}
		l.order.PutUint32(b, uint32(n))
	case 'I', 'L':
		n, err := truncate[uint32](v, 0, math.MaxUint32+1)
		if err != nil {
			return nil, err
		}
		l.order.PutUint32(b, n)
	case 'f':
		l.order.PutUint32(b, math.Float32bits(float32(v)))
	case 'q':
		n, err := truncate[int64](v, math.MinInt64, math.MaxInt64+1)
		if err != nil {
			return nil, err
		}
		l.order.PutUint64(b, uint64(n))
	case 'Q':
		n, err := truncate[uint64](v, 0, math.MaxUint64+1)
		if err != nil {
			return nil, err
		}
		l.order.PutUint64(b, n)
	case 'd':
		l.order.PutUint64(b, math.Float64bits(v))
	default:
		return nil, errors.Errorf("unsupported code %q", it.code)
	}

	return buf, nil
}

func asFloat[T constraints.Integer | constraints.Float](v T) float64 {
	return float64(v)
}

// truncate converts v to T within [lo, hi).
func truncate[T constraints.Integer](v, lo, hi float64) (T, error) {
	t := math.Trunc(v)
	if math.IsNaN(t) || t < lo || t >= hi {
		return 0, errors.Errorf("value %v out of range [%v, %v)", v, lo, hi)
	}
	return T(t), nil
}

// ---- IEEE 754 half precision ----

func float16ToFloat64(h uint16) float64 {
	exp := int(h>>10) & 0x1f
	frac := float64(h & 0x3ff)

	var f float64
	switch exp {
	case 0:
		f = math.Ldexp(frac, -24)
	case 0x1f:
		if frac == 0 {
			f = math.Inf(1)
		} else {
			f = math.NaN()
		}
	default:
		f = math.Ldexp(frac+1024, exp-25)
	}

	if h&0x8000 != 0 {
		return -f
	}
	return f
}

func float64ToFloat16(f float64) uint16 {
	var sign uint16
	if math.Signbit(f) {
		sign = 0x8000
		f = -f
	}

	switch {
	case math.IsNaN(f):
		return 0x7e00
	case f == 0:
		return sign
	case math.IsInf(f, 0) || f >= 65520:
		return sign | 0x7c00
	}

	frac, exp := math.Frexp(f) // f = frac * 2^exp, frac in [0.5, 1)
	e := exp - 1

	if e < -14 {
		// subnormal; a carry into 0x400 lands on the smallest normal
		return sign | uint16(math.RoundToEven(math.Ldexp(f, 24)))
	}

	m := math.RoundToEven((frac*2 - 1) * 1024)
	if m == 1024 {
		m = 0
		e++
	}
	if e > 15 {
		return sign | 0x7c00
	}
	return sign | uint16(e+15)<<10 | uint16(m)
}
