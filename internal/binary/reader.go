package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrPointerSize is returned for pointer widths other than 4 and 8.
var ErrPointerSize = errors.New("unsupported pointer size")

// Reader decodes fixed-width fields of a C record from a byte slice,
// tracking the position relative to the start of the record.
type Reader struct {
	order   binary.ByteOrder
	data    []byte
	pos     int
	ptrSize int
}

// NewReader creates a Reader over data using the given byte order and
// pointer width in bytes.
func NewReader(data []byte, order binary.ByteOrder, ptrSize int) *Reader {
	return &Reader{data: data, order: order, ptrSize: ptrSize}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, r.wrapError(io.ErrUnexpectedEOF)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Align skips padding so the next field starts at a multiple of n.
func (r *Reader) Align(n int) error {
	if pad := r.pos % n; pad != 0 {
		_, err := r.ReadBytes(n - pad)
		return err
	}
	return nil
}

// ReadU32 reads an aligned uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.Align(4); err != nil {
		return 0, err
	}
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadI32 reads an aligned int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadPtr reads an aligned pointer-width value, widened to uint64.
func (r *Reader) ReadPtr() (uint64, error) {
	if err := r.Align(r.ptrSize); err != nil {
		return 0, err
	}
	switch r.ptrSize {
	case 4:
		buf, err := r.ReadBytes(4)
		if err != nil {
			return 0, err
		}
		return uint64(r.order.Uint32(buf)), nil
	case 8:
		buf, err := r.ReadBytes(8)
		if err != nil {
			return 0, err
		}
		return r.order.Uint64(buf), nil
	default:
		return 0, r.wrapError(fmt.Errorf("%w: %d", ErrPointerSize, r.ptrSize))
	}
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}
