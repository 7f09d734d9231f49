package nbt

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Dump writes a human readable rendering of a decoded value to w. Arrays
// longer than maxArray elements are replaced by a length summary; a
// non-positive maxArray prints everything.
func Dump(w io.Writer, name string, v any, maxArray int) {
	fmt.Fprintf(w, "%s (%s):\n", name, TagOf(v))
	dumpConfig.Fdump(w, summarize(v, maxArray))
}

type arraySummary string

func summarize(v any, maxArray int) any {
	if maxArray <= 0 {
		return v
	}
	switch t := v.(type) {
	case []byte:
		if len(t) > maxArray {
			return arraySummary(fmt.Sprintf("%s len=%d", TagByteArray, len(t)))
		}
	case []int32:
		if len(t) > maxArray {
			return arraySummary(fmt.Sprintf("%s len=%d", TagIntArray, len(t)))
		}
	case []int64:
		if len(t) > maxArray {
			return arraySummary(fmt.Sprintf("%s len=%d", TagLongArray, len(t)))
		}
	case List:
		items := make([]any, len(t.Items))
		for i, item := range t.Items {
			items[i] = summarize(item, maxArray)
		}
		return List{Type: t.Type, Items: items}
	case Compound:
		out := make(Compound, len(t))
		for k, item := range t {
			out[k] = summarize(item, maxArray)
		}
		return out
	}
	return v
}
