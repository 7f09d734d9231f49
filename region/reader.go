// Package region reads McRegion container files: 1024 independently
// compressed chunk records addressed by a fixed 8 KiB header.
package region

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
	"github.com/willf/bitset"
)

const (
	// Slots is the number of chunk positions in a region (32×32).
	Slots = 1024
	// SectorSize is the allocation unit of a container file.
	SectorSize = 4096
	// HeaderSize covers the offset table and the timestamp table.
	HeaderSize = 2 * SectorSize
)

type CompressionMethod byte

const (
	// CompressionGzip is defined by the format but never used in McRegion
	// files; readers reject it.
	CompressionGzip CompressionMethod = 1
	CompressionZlib CompressionMethod = 2
)

// ErrFormat marks every error caused by a malformed container.
var ErrFormat = errors.New("region: format violation")

var (
	ErrInvalidCompression = errors.New("region: invalid compression format")
	ErrInvalidOffset      = errors.New("region: invalid chunk offset")
	ErrTruncatedHeader    = errors.New("region: truncated header")
	ErrCorruptRecord      = errors.New("region: corrupt record")
)

func violation(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrFormat)
}

// Record is one decompressed chunk record.
type Record struct {
	// Slot is the header index, x + z*32 in region-local chunk coordinates.
	Slot      int
	Data      []byte
	Timestamp uint32
}

// Reader reads records out of one container file. Reads go through
// io.ReaderAt, so a Reader may be shared between goroutines.
type Reader struct {
	source     io.ReaderAt
	size       int64
	offsets    [Slots]uint32
	timestamps [Slots]uint32
	occupied   *bitset.BitSet
	Name       string
}

// Open opens the container file at path. The returned Reader must be closed.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	reader, err := NewReader(file, info.Size())
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "region %s", path)
	}
	reader.Name = path
	return reader, nil
}

// NewReader reads the header of a container of the given size. If source is
// an io.Closer, ownership passes to the Reader.
func NewReader(source io.ReaderAt, size int64) (*Reader, error) {
	reader := &Reader{
		source:   source,
		size:     size,
		occupied: bitset.New(Slots),
	}
	if err := reader.readHeader(); err != nil {
		return nil, err
	}
	return reader, nil
}

func (r *Reader) readHeader() error {
	if r.size < HeaderSize {
		return violation(ErrTruncatedHeader, "%d bytes", r.size)
	}
	raw := make([]byte, HeaderSize)
	if _, err := r.source.ReadAt(raw, 0); err != nil {
		return err
	}

	in := bytes.NewReader(raw)
	var locations [Slots]uint32
	if err := binary.Read(in, binary.BigEndian, &locations); err != nil {
		return err
	}
	if err := binary.Read(in, binary.BigEndian, &r.timestamps); err != nil {
		return err
	}
	for slot, location := range locations {
		// The low byte is the sector count, which the length prefix makes
		// redundant.
		r.offsets[slot] = location >> 8
		if r.offsets[slot] != 0 {
			r.occupied.Set(uint(slot))
		}
	}
	return nil
}

// Occupied returns the set of slots holding a record.
func (r *Reader) Occupied() *bitset.BitSet {
	return r.occupied.Clone()
}

// Count returns the number of occupied slots.
func (r *Reader) Count() int {
	return int(r.occupied.Count())
}

func (r *Reader) ChunkExists(slot int) bool {
	return r.occupied.Test(uint(slot))
}

func (r *Reader) Timestamp(slot int) uint32 {
	return r.timestamps[slot]
}

// ReadSlot reads and inflates the record at slot.
func (r *Reader) ReadSlot(slot int) (Record, error) {
	if slot < 0 || slot >= Slots {
		return Record{}, errors.Newf("region: slot %d out of range", slot)
	}
	sector := r.offsets[slot]
	if sector == 0 {
		return Record{}, errors.Newf("region: slot %d is empty", slot)
	}
	offset := int64(sector) * SectorSize
	if offset < HeaderSize || offset+5 > r.size {
		return Record{}, violation(ErrInvalidOffset, "slot %d: byte offset %d in %d byte file", slot, offset, r.size)
	}

	var prefix [5]byte
	if _, err := r.source.ReadAt(prefix[:], offset); err != nil {
		return Record{}, errors.Wrapf(err, "slot %d", slot)
	}
	// Writers disagree on whether the stored length counts the compression
	// byte, so the zlib stream end marks the end of the data.
	length := int64(binary.BigEndian.Uint32(prefix[:4]))
	if length < 1 || offset+4+length > r.size {
		return Record{}, violation(ErrInvalidOffset, "slot %d: record length %d at offset %d", slot, length, offset)
	}
	if method := CompressionMethod(prefix[4]); method != CompressionZlib {
		return Record{}, violation(ErrInvalidCompression, "slot %d: method %d", slot, method)
	}

	payload := io.NewSectionReader(r.source, offset+5, min(length, r.size-offset-5))
	inflater, err := zlib.NewReader(payload)
	if err != nil {
		return Record{}, violation(ErrCorruptRecord, "slot %d: %v", slot, err)
	}
	defer inflater.Close()
	data, err := io.ReadAll(inflater)
	if err != nil {
		return Record{}, violation(ErrCorruptRecord, "slot %d: %v", slot, err)
	}
	return Record{Slot: slot, Data: data, Timestamp: r.timestamps[slot]}, nil
}

// Each calls fn for every occupied slot in header order. The first error,
// from reading or from fn, stops the walk.
func (r *Reader) Each(fn func(Record) error) error {
	for slot, ok := r.occupied.NextSet(0); ok; slot, ok = r.occupied.NextSet(slot + 1) {
		record, err := r.ReadSlot(int(slot))
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

// Records reads every record in header order.
func (r *Reader) Records() ([]Record, error) {
	records := make([]Record, 0, r.Count())
	err := r.Each(func(record Record) error {
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Reader) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadRecords reads every record of the container file at path.
func ReadRecords(path string) ([]Record, error) {
	reader, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	records, err := reader.Records()
	if err != nil {
		return nil, errors.Wrapf(err, "region %s", path)
	}
	return records, nil
}
