package classfile

import (
	"encoding/binary"
	"fmt"
)

// Provides utilities for reading binary data in big-endian format.
// Class files are small enough to be decoded from memory, which lets the
// code decoder seek back to compute switch padding.
type BinaryReader struct {
	data   []byte
	offset int
	base   int
}

func NewBinaryReader(data []byte) *BinaryReader {
	return &BinaryReader{data: data}
}

// newSubReader reads a slice of a parent buffer while reporting offsets
// relative to the start of the class file
func newSubReader(data []byte, base int) *BinaryReader {
	return &BinaryReader{data: data, base: base}
}

// BytesRead returns the position relative to the start of this reader
func (br *BinaryReader) BytesRead() int {
	return br.offset
}

// Offset returns the absolute position inside the class file
func (br *BinaryReader) Offset() int {
	return br.base + br.offset
}

func (br *BinaryReader) Remaining() int {
	return len(br.data) - br.offset
}

func (br *BinaryReader) truncated(n int) error {
	return &FormatError{
		Offset: br.Offset(),
		Err:    fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, br.Remaining()),
	}
}

// ReadNBytes reads exactly n bytes and tracks position.
// The returned slice aliases the underlying buffer.
func (br *BinaryReader) ReadNBytes(n int) ([]byte, error) {
	if n < 0 || br.Remaining() < n {
		return nil, br.truncated(n)
	}
	buf := br.data[br.offset : br.offset+n]
	br.offset += n
	return buf, nil
}

// ReadU1 reads a single unsigned byte
func (br *BinaryReader) ReadU1() (uint8, error) {
	if br.Remaining() < 1 {
		return 0, br.truncated(1)
	}
	b := br.data[br.offset]
	br.offset++
	return b, nil
}

// ReadI1 reads a single signed byte
func (br *BinaryReader) ReadI1() (int8, error) {
	b, err := br.ReadU1()
	return int8(b), err
}

// ReadU2 reads a 2-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU2() (uint16, error) {
	buf, err := br.ReadNBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadI2 reads a 2-byte signed integer (big-endian)
func (br *BinaryReader) ReadI2() (int16, error) {
	v, err := br.ReadU2()
	return int16(v), err
}

// ReadU4 reads a 4-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU4() (uint32, error) {
	buf, err := br.ReadNBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadI4 reads a 4-byte signed integer (big-endian)
func (br *BinaryReader) ReadI4() (int32, error) {
	v, err := br.ReadU4()
	return int32(v), err
}

// ReadU8 reads an 8-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU8() (uint64, error) {
	buf, err := br.ReadNBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// Skip skips n bytes in the stream
func (br *BinaryReader) Skip(n int) error {
	if _, err := br.ReadNBytes(n); err != nil {
		return fmt.Errorf("failed to skip %d bytes: %w", n, err)
	}
	return nil
}

// Align skips padding until BytesRead is a multiple of n
func (br *BinaryReader) Align(n int) error {
	if pad := (n - br.offset%n) % n; pad > 0 {
		return br.Skip(pad)
	}
	return nil
}
