package nbt

// Typed accessors. A missing key or a value of the wrong kind is reported as a
// format violation, since chunk records are expected to follow a fixed shape.

func (c Compound) Has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c Compound) Byte(key string) (int8, error) {
	return get[int8](c, key, TagByte)
}

func (c Compound) Short(key string) (int16, error) {
	return get[int16](c, key, TagShort)
}

func (c Compound) Int(key string) (int32, error) {
	return get[int32](c, key, TagInt)
}

func (c Compound) Long(key string) (int64, error) {
	return get[int64](c, key, TagLong)
}

func (c Compound) Bytes(key string) ([]byte, error) {
	return get[[]byte](c, key, TagByteArray)
}

func (c Compound) StringValue(key string) (string, error) {
	return get[string](c, key, TagString)
}

func (c Compound) List(key string) (List, error) {
	return get[List](c, key, TagList)
}

func (c Compound) Compound(key string) (Compound, error) {
	return get[Compound](c, key, TagCompound)
}

func get[T any](c Compound, key string, want Tag) (T, error) {
	var zero T
	v, ok := c[key]
	if !ok {
		return zero, formatErrorf("missing %s %q", want, key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, formatErrorf("%q is %s, want %s", key, TagOf(v), want)
	}
	return t, nil
}

// TagOf returns the tag kind of a decoded value, or TagEnd for values that
// the decoder never produces.
func TagOf(v any) Tag {
	switch v.(type) {
	case int8:
		return TagByte
	case int16:
		return TagShort
	case int32:
		return TagInt
	case int64:
		return TagLong
	case float32:
		return TagFloat
	case float64:
		return TagDouble
	case []byte:
		return TagByteArray
	case string:
		return TagString
	case List:
		return TagList
	case Compound:
		return TagCompound
	case []int32:
		return TagIntArray
	case []int64:
		return TagLongArray
	default:
		return TagEnd
	}
}
