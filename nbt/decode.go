package nbt

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// DefaultMaxDepth bounds list/compound nesting. The format itself imposes no
// limit, so without one a crafted record could exhaust the stack.
const DefaultMaxDepth = 512

// Decoder decodes tree nodes from an in-memory buffer. The zero value is ready
// to use and applies DefaultMaxDepth.
type Decoder struct {
	MaxDepth int
}

// Decode reads one named value starting at offset and returns its name, its
// value and the offset just past it.
func Decode(buf []byte, offset int) (name string, v any, next int, err error) {
	return Decoder{}.Decode(buf, offset)
}

// DecodeTagged reads the payload of a value whose tag is already known. The
// returned name is always Unnamed.
func DecodeTagged(buf []byte, offset int, tag Tag) (name string, v any, next int, err error) {
	return Decoder{}.DecodeTagged(buf, offset, tag)
}

func (d Decoder) Decode(buf []byte, offset int) (string, any, int, error) {
	r := d.reader(buf, offset)
	name, v, err := r.named()
	if err != nil {
		return "", nil, offset, err
	}
	return name, v, r.off, nil
}

func (d Decoder) DecodeTagged(buf []byte, offset int, tag Tag) (string, any, int, error) {
	r := d.reader(buf, offset)
	v, err := r.payload(tag)
	if err != nil {
		return "", nil, offset, err
	}
	return Unnamed, v, r.off, nil
}

func (d Decoder) reader(buf []byte, offset int) *reader {
	maxDepth := d.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &reader{buf: buf, off: offset, maxDepth: maxDepth}
}

type reader struct {
	buf      []byte
	off      int
	depth    int
	maxDepth int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off < 0 || r.off > len(r.buf) || len(r.buf)-r.off < n {
		return nil, formatErrorf("truncated input: need %d bytes at offset %d, have %d", n, r.off, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// length reads a signed 32-bit length or count and rejects negatives.
func (r *reader) length(what string) (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if int32(n) < 0 {
		return 0, formatErrorf("negative %s %d at offset %d", what, int32(n), r.off-4)
	}
	return int(int32(n)), nil
}

func (r *reader) named() (string, any, error) {
	t, err := r.u8()
	if err != nil {
		return "", nil, err
	}
	tag := Tag(t)
	if tag == TagEnd {
		return "", End{}, nil
	}
	if !tag.Valid() {
		return "", nil, formatErrorf("unknown tag %d at offset %d", t, r.off-1)
	}
	n, err := r.u16()
	if err != nil {
		return "", nil, err
	}
	raw, err := r.take(int(n))
	if err != nil {
		return "", nil, err
	}
	if !utf8.Valid(raw) {
		return "", nil, formatErrorf("tag name at offset %d is not valid UTF-8", r.off-int(n))
	}
	v, err := r.payload(tag)
	if err != nil {
		return "", nil, err
	}
	return string(raw), v, nil
}

func (r *reader) payload(tag Tag) (any, error) {
	switch tag {
	case TagByte:
		b, err := r.u8()
		return int8(b), err

	case TagShort:
		v, err := r.u16()
		return int16(v), err

	case TagInt:
		v, err := r.u32()
		return int32(v), err

	case TagLong:
		v, err := r.u64()
		return int64(v), err

	case TagFloat:
		v, err := r.u32()
		return math.Float32frombits(v), err

	case TagDouble:
		v, err := r.u64()
		return math.Float64frombits(v), err

	case TagByteArray:
		n, err := r.length("byte array length")
		if err != nil {
			return nil, err
		}
		raw, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), raw...), nil

	case TagString:
		n, err := r.u16()
		if err != nil {
			return nil, err
		}
		if int16(n) < 0 {
			return nil, formatErrorf("negative string length %d at offset %d", int16(n), r.off-2)
		}
		raw, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, formatErrorf("string at offset %d is not valid UTF-8", r.off-int(n))
		}
		return string(raw), nil

	case TagList:
		return r.list()

	case TagCompound:
		return r.compound()

	case TagIntArray:
		n, err := r.length("int array length")
		if err != nil {
			return nil, err
		}
		raw, err := r.take(n * 4)
		if err != nil {
			return nil, err
		}
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
		}
		return out, nil

	case TagLongArray:
		n, err := r.length("long array length")
		if err != nil {
			return nil, err
		}
		raw, err := r.take(n * 8)
		if err != nil {
			return nil, err
		}
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(binary.BigEndian.Uint64(raw[i*8:]))
		}
		return out, nil

	default:
		return nil, formatErrorf("unknown tag %d at offset %d", byte(tag), r.off)
	}
}

func (r *reader) enter() error {
	r.depth++
	if r.depth > r.maxDepth {
		return formatErrorf("nesting deeper than %d at offset %d", r.maxDepth, r.off)
	}
	return nil
}

func (r *reader) list() (any, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer func() { r.depth-- }()

	t, err := r.u8()
	if err != nil {
		return nil, err
	}
	count, err := r.length("list count")
	if err != nil {
		return nil, err
	}
	// Every element takes at least one byte, which bounds the preallocation.
	items := make([]any, 0, min(count, len(r.buf)-r.off))
	for i := 0; i < count; i++ {
		v, err := r.payload(Tag(t))
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return List{Type: Tag(t), Items: items}, nil
}

func (r *reader) compound() (any, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer func() { r.depth-- }()

	out := make(Compound)
	for {
		start := r.off
		name, v, err := r.named()
		if err != nil {
			return nil, err
		}
		if _, ok := v.(End); ok {
			return out, nil
		}
		if _, dup := out[name]; dup {
			return nil, formatErrorf("duplicate key %q in compound at offset %d", name, start)
		}
		out[name] = v
	}
}
