package region_test

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/savemap/region"
	"github.com/astei/savemap/region/regiontest"
)

func TestReadRecordsInSlotOrder(t *testing.T) {
	slots := []int{1023, 0, 31, 32, 500}
	b := regiontest.NewBuilder()
	for i, slot := range slots {
		b.Add(slot, uint32(1000+slot), []byte(fmt.Sprintf("payload-%d-%d", slot, i)))
	}
	path := filepath.Join(t.TempDir(), "r.0.0.mcr")
	require.NoError(t, b.WriteFile(path))

	records, err := region.ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, len(slots))

	wantOrder := []int{0, 31, 32, 500, 1023}
	for i, record := range records {
		assert.Equal(t, wantOrder[i], record.Slot)
		assert.Equal(t, uint32(1000+record.Slot), record.Timestamp)
		assert.Contains(t, string(record.Data), fmt.Sprintf("payload-%d-", record.Slot))
	}
}

func TestReadAllSlots(t *testing.T) {
	b := regiontest.NewBuilder()
	for slot := 0; slot < region.Slots; slot++ {
		b.Add(slot, uint32(slot), bytes.Repeat([]byte{byte(slot)}, slot%7+1))
	}
	raw := b.Bytes()
	reader, err := region.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	assert.Equal(t, region.Slots, reader.Count())

	records, err := reader.Records()
	require.NoError(t, err)
	require.Len(t, records, region.Slots)
	for slot, record := range records {
		assert.Equal(t, bytes.Repeat([]byte{byte(slot)}, slot%7+1), record.Data)
		assert.Equal(t, uint32(slot), record.Timestamp)
	}
}

func TestLargeRecordSpansSectors(t *testing.T) {
	payload := make([]byte, 3*region.SectorSize)
	for i := range payload {
		payload[i] = byte(i*31 + i/7)
	}
	raw := regiontest.NewBuilder().
		Add(5, 77, payload).
		Add(6, 78, []byte("next")).
		Bytes()
	reader, err := region.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	record, err := reader.ReadSlot(5)
	require.NoError(t, err)
	assert.Equal(t, payload, record.Data)

	record, err = reader.ReadSlot(6)
	require.NoError(t, err)
	assert.Equal(t, []byte("next"), record.Data)
}

func TestRecordLengthConventions(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte("hello chunk"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	body := buf.Bytes()

	for _, exact := range []bool{false, true} {
		t.Run(fmt.Sprintf("exact=%v", exact), func(t *testing.T) {
			b := regiontest.NewBuilder().AddRaw(0, 9, region.CompressionZlib, body)
			if exact {
				b.ExactLength()
			}
			raw := b.Bytes()
			for _, size := range []int{len(raw), region.HeaderSize + 5 + len(body)} {
				reader, err := region.NewReader(bytes.NewReader(raw[:size]), int64(size))
				require.NoError(t, err)
				record, err := reader.ReadSlot(0)
				require.NoError(t, err, "file size %d", size)
				assert.Equal(t, []byte("hello chunk"), record.Data)
			}
		})
	}
}

func TestEmptyRegion(t *testing.T) {
	raw := regiontest.NewBuilder().Bytes()
	reader, err := region.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	records, err := reader.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.True(t, reader.Occupied().None())
}

func TestFormatViolations(t *testing.T) {
	t.Run("gzip compression", func(t *testing.T) {
		raw := regiontest.NewBuilder().
			Add(0, 1, []byte("ok")).
			AddRaw(1, 1, region.CompressionGzip, []byte{1, 2, 3}).
			Bytes()
		reader, err := region.NewReader(bytes.NewReader(raw), int64(len(raw)))
		require.NoError(t, err)
		_, err = reader.Records()
		require.Error(t, err)
		assert.True(t, errors.Is(err, region.ErrInvalidCompression))
		assert.True(t, errors.Is(err, region.ErrFormat))
	})

	t.Run("corrupt zlib", func(t *testing.T) {
		raw := regiontest.NewBuilder().
			AddRaw(0, 1, region.CompressionZlib, []byte{0xde, 0xad, 0xbe, 0xef}).
			Bytes()
		reader, err := region.NewReader(bytes.NewReader(raw), int64(len(raw)))
		require.NoError(t, err)
		_, err = reader.ReadSlot(0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, region.ErrFormat))
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := region.NewReader(bytes.NewReader(make([]byte, 100)), 100)
		assert.True(t, errors.Is(err, region.ErrTruncatedHeader))
	})

	t.Run("offset past end", func(t *testing.T) {
		raw := make([]byte, region.HeaderSize)
		raw[0], raw[1], raw[2] = 0, 0, 9
		reader, err := region.NewReader(bytes.NewReader(raw), int64(len(raw)))
		require.NoError(t, err)
		_, err = reader.ReadSlot(0)
		assert.True(t, errors.Is(err, region.ErrInvalidOffset))
	})
}

func TestParseName(t *testing.T) {
	c, err := region.ParseName("/world/region/r.-3.12.mcr")
	require.NoError(t, err)
	assert.Equal(t, region.Coord{X: -3, Z: 12}, c)
	assert.Equal(t, "r.-3.12.mcr", c.FileName())

	for _, bad := range []string{"r.1.mcr", "x.1.2.mcr", "r.a.2.mcr", "r.1.2.mca", "level.dat"} {
		_, err := region.ParseName(bad)
		assert.Error(t, err, bad)
	}
}
