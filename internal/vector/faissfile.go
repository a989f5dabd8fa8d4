package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FAISS flat index fourcc codes, as they appear in the file.
const (
	fourccFlatL2 = "IxF2"
	fourccFlatIP = "IxFI"
)

const (
	metricInnerProduct int32 = 0
	metricL2           int32 = 1
	// FAISS writes 1<<20 into the two unused header slots.
	faissDummy int64 = 1 << 20
)

// ErrUnsupportedIndex is returned for FAISS files other than a flat L2 index.
var ErrUnsupportedIndex = errors.New("unsupported faiss index")

type faissHeader struct {
	D         int32
	NTotal    int64
	Dummy1    int64
	Dummy2    int64
	IsTrained uint8
	Metric    int32
}

// ReadFAISSFlat decodes a FAISS IndexFlatL2 file.
func ReadFAISSFlat(r io.Reader) (*FlatIndex, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	var fourcc [4]byte
	if _, err := io.ReadFull(br, fourcc[:]); err != nil {
		return nil, fmt.Errorf("read fourcc: %w", err)
	}
	switch string(fourcc[:]) {
	case fourccFlatL2:
	case fourccFlatIP:
		return nil, fmt.Errorf("%w: inner-product flat index", ErrUnsupportedIndex)
	default:
		return nil, fmt.Errorf("%w: fourcc %q", ErrUnsupportedIndex, fourcc[:])
	}
	var h faissHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.Metric > 1 {
		var metricArg float32
		if err := binary.Read(br, binary.LittleEndian, &metricArg); err != nil {
			return nil, fmt.Errorf("read metric arg: %w", err)
		}
	}
	if h.Metric != metricL2 {
		return nil, fmt.Errorf("%w: metric %d", ErrUnsupportedIndex, h.Metric)
	}
	if h.D <= 0 || h.NTotal < 0 {
		return nil, fmt.Errorf("invalid header: d=%d ntotal=%d", h.D, h.NTotal)
	}
	var n uint64
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read vector count: %w", err)
	}
	if n != uint64(h.NTotal)*uint64(h.D) {
		return nil, fmt.Errorf("corrupt index: %d floats for %d vectors of dimension %d", n, h.NTotal, h.D)
	}
	data := make([]float32, n)
	if err := binary.Read(br, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	return newFlatFromData(int(h.D), data), nil
}

// WriteFAISSFlat encodes idx as a FAISS IndexFlatL2 file.
func WriteFAISSFlat(w io.Writer, idx VectorIndex) error {
	bw := bufio.NewWriter(w)
	n := idx.Size()
	d := idx.Dimensions()
	if _, err := bw.WriteString(fourccFlatL2); err != nil {
		return err
	}
	h := faissHeader{
		D:         int32(d),
		NTotal:    int64(n),
		Dummy1:    faissDummy,
		Dummy2:    faissDummy,
		IsTrained: 1,
		Metric:    metricL2,
	}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(n*d)); err != nil {
		return fmt.Errorf("write vector count: %w", err)
	}
	for i := 0; i < n; i++ {
		v, err := idx.Reconstruct(i)
		if err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// LoadFAISSFile reads a FAISS flat index from path.
func LoadFAISSFile(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	idx, err := ReadFAISSFlat(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return idx, nil
}

// SaveFAISSFile writes idx to path, creating the directory if needed.
func SaveFAISSFile(path string, idx VectorIndex) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := WriteFAISSFlat(f, idx); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
