// Package regiontest builds container files for tests.
package regiontest

import (
	"bytes"
	"encoding/binary"
	"os"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/astei/savemap/region"
)

type entry struct {
	timestamp uint32
	method    region.CompressionMethod
	body      []byte
}

// Builder assembles a container file in memory. Records are laid out in slot
// order, each starting on a sector boundary after the header.
type Builder struct {
	entries     map[int]entry
	exactLength bool
}

func NewBuilder() *Builder {
	return &Builder{entries: make(map[int]entry)}
}

// Add stores payload zlib-compressed at slot.
func (b *Builder) Add(slot int, timestamp uint32, payload []byte) *Builder {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write(payload)
	_ = w.Close()
	return b.AddRaw(slot, timestamp, region.CompressionZlib, buf.Bytes())
}

// ExactLength makes stored lengths count only the compressed bytes instead of
// also counting the compression byte, as the game does.
func (b *Builder) ExactLength() *Builder {
	b.exactLength = true
	return b
}

// AddRaw stores body verbatim with the given compression tag.
func (b *Builder) AddRaw(slot int, timestamp uint32, method region.CompressionMethod, body []byte) *Builder {
	b.entries[slot] = entry{timestamp: timestamp, method: method, body: body}
	return b
}

func (b *Builder) Bytes() []byte {
	slots := make([]int, 0, len(b.entries))
	for slot := range b.entries {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	header := make([]byte, region.HeaderSize)
	var body bytes.Buffer
	sector := uint32(region.HeaderSize / region.SectorSize)
	for _, slot := range slots {
		e := b.entries[slot]
		var prefix [5]byte
		length := len(e.body) + 1
		if b.exactLength {
			length = len(e.body)
		}
		binary.BigEndian.PutUint32(prefix[:4], uint32(length))
		prefix[4] = byte(e.method)

		start := body.Len()
		body.Write(prefix[:])
		body.Write(e.body)
		used := body.Len() - start
		sectors := (used + region.SectorSize - 1) / region.SectorSize
		body.Write(make([]byte, sectors*region.SectorSize-used))

		binary.BigEndian.PutUint32(header[slot*4:], sector<<8|uint32(sectors&0xff))
		binary.BigEndian.PutUint32(header[region.SectorSize+slot*4:], e.timestamp)
		sector += uint32(sectors)
	}
	return append(header, body.Bytes()...)
}

func (b *Builder) WriteFile(path string) error {
	return os.WriteFile(path, b.Bytes(), 0644)
}
