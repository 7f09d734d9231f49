package tiles

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"

	"github.com/astei/savemap/region"
)

// Surface dumps keep the raw ids of a rendered region so that it can be
// colored again without reparsing the save. Layout, big endian:
//
//	magic u16, version u8, region x i32, region z i32,
//	compressed length u32, uncompressed length u32, zstd data.
const (
	dumpMagic   = 0x5346
	dumpVersion = 1
	// maxCompressed is above zstd's worst case for one surface.
	maxCompressed = len(Surface{}) + len(Surface{})/128 + 1024
)

var ErrCorruptDump = errors.New("tiles: corrupt surface dump")

type dumpHeader struct {
	Magic   uint16
	Version uint8
	RegionX int32
	RegionZ int32
}

// WriteSurface writes the dump of the region at coord.
func WriteSurface(w io.Writer, coord region.Coord, s *Surface) error {
	header := dumpHeader{
		Magic:   dumpMagic,
		Version: dumpVersion,
		RegionX: int32(coord.X),
		RegionZ: int32(coord.Z),
	}
	if err := binary.Write(w, binary.BigEndian, header); err != nil {
		return err
	}

	var compressed bytes.Buffer
	enc, err := zstd.NewWriter(&compressed)
	if err != nil {
		return err
	}
	if _, err := enc.Write(s[:]); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, uint32(compressed.Len())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err = compressed.WriteTo(w)
	return err
}

// ReadSurface reads a dump written by WriteSurface.
func ReadSurface(r io.Reader) (region.Coord, *Surface, error) {
	var header dumpHeader
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return region.Coord{}, nil, errors.Mark(errors.Wrap(err, "reading header"), ErrCorruptDump)
	}
	if header.Magic != dumpMagic {
		return region.Coord{}, nil, errors.Wrapf(ErrCorruptDump, "bad magic %#x", header.Magic)
	}
	if header.Version != dumpVersion {
		return region.Coord{}, nil, errors.Wrapf(ErrCorruptDump, "unsupported version %d", header.Version)
	}
	coord := region.Coord{X: int(header.RegionX), Z: int(header.RegionZ)}

	var lengths [2]uint32
	if err := binary.Read(r, binary.BigEndian, &lengths); err != nil {
		return coord, nil, errors.Mark(errors.Wrap(err, "reading lengths"), ErrCorruptDump)
	}
	if lengths[1] != uint32(len(Surface{})) {
		return coord, nil, errors.Wrapf(ErrCorruptDump, "%d ids, want %d", lengths[1], len(Surface{}))
	}
	if lengths[0] > uint32(maxCompressed) {
		return coord, nil, errors.Wrapf(ErrCorruptDump, "compressed length %d exceeds %d", lengths[0], maxCompressed)
	}
	compressed := make([]byte, lengths[0])
	if _, err := io.ReadFull(r, compressed); err != nil {
		return coord, nil, errors.Mark(errors.Wrap(err, "reading data"), ErrCorruptDump)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return coord, nil, err
	}
	defer dec.Close()
	s := new(Surface)
	ids, err := dec.DecodeAll(compressed, s[:0])
	if err != nil {
		return coord, nil, errors.Mark(errors.Wrap(err, "decompressing"), ErrCorruptDump)
	}
	if len(ids) != len(s) {
		return coord, nil, errors.Wrapf(ErrCorruptDump, "decompressed %d ids, want %d", len(ids), len(s))
	}
	return coord, s, nil
}

// DumpName returns the file name of the dump of coord.
func DumpName(coord region.Coord) string {
	return fmt.Sprintf("r.%d.%d.dat.zst", coord.X, coord.Z)
}

func SaveSurface(path string, coord region.Coord, s *Surface) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	if err := WriteSurface(w, coord, s); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return w.Flush()
}

func LoadSurface(path string) (region.Coord, *Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return region.Coord{}, nil, err
	}
	defer f.Close()
	coord, s, err := ReadSurface(bufio.NewReader(f))
	if err != nil {
		return coord, nil, errors.Wrapf(err, "surface dump %s", path)
	}
	return coord, s, nil
}
