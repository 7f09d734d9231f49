// Package nbt decodes the tagged binary tree format used by chunk records.
//
// Decoded values use plain Go types: int8, int16, int32, int64, float32,
// float64, []byte, string, List, Compound, []int32, []int64 and End.
package nbt

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Tag identifies the kind of a tree node.
type Tag byte

const (
	TagEnd Tag = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var tagNames = [...]string{
	TagEnd:       "TAG_End",
	TagByte:      "TAG_Byte",
	TagShort:     "TAG_Short",
	TagInt:       "TAG_Int",
	TagLong:      "TAG_Long",
	TagFloat:     "TAG_Float",
	TagDouble:    "TAG_Double",
	TagByteArray: "TAG_Byte_Array",
	TagString:    "TAG_String",
	TagList:      "TAG_List",
	TagCompound:  "TAG_Compound",
	TagIntArray:  "TAG_Int_Array",
	TagLongArray: "TAG_Long_Array",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("TAG_Unknown(%d)", byte(t))
}

// Valid reports whether t is one of the 13 known tag kinds.
func (t Tag) Valid() bool {
	return t <= TagLongArray
}

// Unnamed is the name reported for values decoded with an explicit tag, such
// as list elements, which carry no name on the wire.
const Unnamed = "UNNAMED"

// ErrFormat marks every error caused by malformed input.
var ErrFormat = errors.New("nbt: format violation")

func formatErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf("nbt: "+format, args...), ErrFormat)
}

// End is the decoded form of a bare terminator tag.
type End struct{}

// List is a homogeneous sequence of unnamed values of kind Type.
type List struct {
	Type  Tag
	Items []any
}

// Compound maps child names to values. Names are unique within a compound.
type Compound map[string]any
