package index

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/calder-ai/semsearch/internal/domain"
)

// Snapshot layout, little-endian:
//
//	magic   uint32  "FVI1"
//	dim     uint32
//	count   uint32
//	data    float32[count*dim]
//
// The header is followed by raw IEEE 754 float32 rows in position order.
const (
	snapshotMagic  = uint32('F') | uint32('V')<<8 | uint32('I')<<16 | uint32('1')<<24
	snapshotHeader = 12
)

// Load reads a snapshot file written by Write. It fails on a missing file,
// bad magic, or a payload whose size disagrees with the header.
func Load(path string) (*Flat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("index: read snapshot %s: %w", path, err)
	}
	return Decode(data)
}

// Decode restores an index from snapshot bytes.
func Decode(data []byte) (*Flat, error) {
	if len(data) < snapshotHeader {
		return nil, fmt.Errorf("index: snapshot too short (%d bytes): %w", len(data), domain.ErrIndexCorrupt)
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != snapshotMagic {
		return nil, fmt.Errorf("index: bad snapshot magic %#x: %w", magic, domain.ErrIndexCorrupt)
	}
	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	count := int(binary.LittleEndian.Uint32(data[8:12]))

	if count == 0 {
		return &Flat{}, nil
	}
	if dim == 0 {
		return nil, fmt.Errorf("index: snapshot has %d vectors with dim 0: %w", count, domain.ErrIndexCorrupt)
	}

	// Validate by division so a crafted count/dim pair cannot overflow the
	// expected-size product or drive a huge allocation.
	payload := data[snapshotHeader:]
	if dim > len(payload)/4 || len(payload)%(dim*4) != 0 || len(payload)/(dim*4) != count {
		return nil, fmt.Errorf("index: snapshot payload %d bytes disagrees with header count=%d dim=%d: %w",
			len(payload), count, dim, domain.ErrIndexCorrupt)
	}

	vecs := make([]float32, count*dim)
	for i := range vecs {
		vecs[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	return &Flat{data: vecs, dim: dim, count: count}, nil
}

// Write encodes the index to w in snapshot format.
func (f *Flat) Write(w io.Writer) error {
	header := make([]byte, snapshotHeader)
	binary.LittleEndian.PutUint32(header[0:4], snapshotMagic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(f.dim))
	binary.LittleEndian.PutUint32(header[8:12], uint32(f.count))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("index: write snapshot header: %w", err)
	}

	buf := make([]byte, len(f.data)*4)
	for i, v := range f.data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("index: write snapshot payload: %w", err)
	}
	return nil
}

// WriteFile writes the snapshot to path atomically via a temp file rename.
func (f *Flat) WriteFile(path string) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("index: create %s: %w", tmp, err)
	}
	if err := f.Write(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("index: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("index: rename snapshot: %w", err)
	}
	return nil
}
