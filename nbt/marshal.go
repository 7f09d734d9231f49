package nbt

import (
	"io"
	"math"
	"reflect"
	"sort"

	"github.com/cockroachdb/errors"
)

// Marshal writes v as an unnamed root value.
func Marshal(w io.Writer, v interface{}) error {
	return NewEncoder(w).Encode(v)
}

// Encoder writes Go values in the tagged tree format. It accepts the value
// shapes returned by the decoder as well as structs (field names or `nbt`
// struct tags become keys) and maps with string keys.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(v interface{}) error {
	return e.EncodeNamed("", v)
}

func (e *Encoder) EncodeNamed(name string, v interface{}) error {
	return e.marshal(reflect.ValueOf(v), name)
}

var (
	listType = reflect.TypeOf(List{})
	endType  = reflect.TypeOf(End{})
)

func (e *Encoder) marshal(val reflect.Value, tagName string) error {
	tag, err := tagOfValue(val)
	if err != nil {
		return errors.Wrapf(err, "whilst serializing %q", tagName)
	}
	if tag == TagEnd {
		_, err := e.w.Write([]byte{byte(TagEnd)})
		return err
	}
	if err := e.writeTag(tag, tagName); err != nil {
		return err
	}
	return e.marshalPayload(val, tag)
}

func tagOfValue(val reflect.Value) (Tag, error) {
	if !val.IsValid() {
		return 0, errors.New("nil value")
	}
	if val.Kind() == reflect.Interface || val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return 0, errors.New("nil value")
		}
		return tagOfValue(val.Elem())
	}
	return tagOfType(val.Type())
}

func tagOfType(t reflect.Type) (Tag, error) {
	switch t {
	case listType:
		return TagList, nil
	case endType:
		return TagEnd, nil
	}

	switch t.Kind() {
	case reflect.Int8, reflect.Uint8, reflect.Bool:
		return TagByte, nil
	case reflect.Int16:
		return TagShort, nil
	case reflect.Int32, reflect.Int:
		return TagInt, nil
	case reflect.Int64:
		return TagLong, nil
	case reflect.Float32:
		return TagFloat, nil
	case reflect.Float64:
		return TagDouble, nil
	case reflect.String:
		return TagString, nil
	case reflect.Array, reflect.Slice:
		switch t.Elem().Kind() {
		case reflect.Uint8:
			return TagByteArray, nil
		case reflect.Int32:
			return TagIntArray, nil
		case reflect.Int64:
			return TagLongArray, nil
		}
		return TagList, nil
	case reflect.Struct:
		return TagCompound, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return 0, errors.Newf("unknown key type %s for map", t)
		}
		return TagCompound, nil
	case reflect.Pointer:
		return tagOfType(t.Elem())
	}
	return 0, errors.Newf("unknown type %s", t)
}

func (e *Encoder) marshalPayload(val reflect.Value, tag Tag) error {
	for val.Kind() == reflect.Interface || val.Kind() == reflect.Pointer {
		val = val.Elem()
	}

	switch tag {
	case TagEnd:
		return nil

	case TagByte:
		var b byte
		switch val.Kind() {
		case reflect.Uint8:
			b = byte(val.Uint())
		case reflect.Bool:
			if val.Bool() {
				b = 1
			}
		default:
			b = byte(val.Int())
		}
		_, err := e.w.Write([]byte{b})
		return err

	case TagShort:
		return e.writeInt16(int16(val.Int()))

	case TagInt:
		return e.writeInt32(int32(val.Int()))

	case TagLong:
		return e.writeInt64(val.Int())

	case TagFloat:
		return e.writeInt32(int32(math.Float32bits(float32(val.Float()))))

	case TagDouble:
		return e.writeInt64(int64(math.Float64bits(val.Float())))

	case TagString:
		if err := e.writeInt16(int16(val.Len())); err != nil {
			return err
		}
		_, err := io.WriteString(e.w, val.String())
		return err

	case TagByteArray:
		n := val.Len()
		if err := e.writeInt32(int32(n)); err != nil {
			return err
		}
		raw := make([]byte, n)
		reflect.Copy(reflect.ValueOf(raw), val)
		_, err := e.w.Write(raw)
		return err

	case TagIntArray:
		n := val.Len()
		if err := e.writeInt32(int32(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := e.writeInt32(int32(val.Index(i).Int())); err != nil {
				return err
			}
		}
		return nil

	case TagLongArray:
		n := val.Len()
		if err := e.writeInt32(int32(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := e.writeInt64(val.Index(i).Int()); err != nil {
				return err
			}
		}
		return nil

	case TagList:
		if val.Type() == listType {
			l := val.Interface().(List)
			return e.marshalList(l.Type, reflect.ValueOf(l.Items))
		}
		elemTag, err := sliceElemTag(val)
		if err != nil {
			return err
		}
		return e.marshalList(elemTag, val)

	case TagCompound:
		if val.Kind() == reflect.Map {
			return e.marshalMap(val)
		}
		return e.marshalStruct(val)
	}
	return errors.Newf("unknown tag %s", tag)
}

// sliceElemTag finds the element kind of a Go slice. Slices of interfaces must
// hold a single concrete kind; an empty one becomes a list of TagEnd.
func sliceElemTag(val reflect.Value) (Tag, error) {
	if val.Type().Elem().Kind() != reflect.Interface {
		return tagOfType(val.Type().Elem())
	}
	if val.Len() == 0 {
		return TagEnd, nil
	}
	first, err := tagOfValue(val.Index(0))
	if err != nil {
		return 0, err
	}
	return first, nil
}

func (e *Encoder) marshalList(elemTag Tag, items reflect.Value) error {
	if _, err := e.w.Write([]byte{byte(elemTag)}); err != nil {
		return err
	}
	n := items.Len()
	if err := e.writeInt32(int32(n)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		item := items.Index(i)
		got, err := tagOfValue(item)
		if err != nil {
			return err
		}
		if got != elemTag {
			return errors.Newf("mixed types in list: found %s and %s", got, elemTag)
		}
		if err := e.marshalPayload(item, elemTag); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) marshalStruct(val reflect.Value) error {
	n := val.NumField()
	for i := 0; i < n; i++ {
		f := val.Type().Field(i)
		tag := f.Tag.Get("nbt")
		if (f.PkgPath != "" && !f.Anonymous) || tag == "-" {
			continue // Private field
		}

		tagName := f.Name
		if tag != "" {
			tagName = tag
		}

		if err := e.marshal(val.Field(i), tagName); err != nil {
			return err
		}
	}
	_, err := e.w.Write([]byte{byte(TagEnd)})
	return err
}

func (e *Encoder) marshalMap(val reflect.Value) error {
	keys := val.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		if err := e.marshal(val.MapIndex(k), k.String()); err != nil {
			return err
		}
	}
	_, err := e.w.Write([]byte{byte(TagEnd)})
	return err
}

func (e *Encoder) writeTag(tagType Tag, tagName string) error {
	if _, err := e.w.Write([]byte{byte(tagType)}); err != nil {
		return err
	}
	if err := e.writeInt16(int16(len(tagName))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, tagName)
	return err
}

func (e *Encoder) writeInt16(n int16) error {
	_, err := e.w.Write([]byte{byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt32(n int32) error {
	_, err := e.w.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt64(n int64) error {
	_, err := e.w.Write([]byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}
