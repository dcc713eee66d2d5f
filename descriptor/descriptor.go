package descriptor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	ibinary "github.com/wippyai/vmod-types/internal/binary"

	"github.com/wippyai/vmod-types/errors"
)

// Layout describes how the target platform lays out the record.
type Layout struct {
	Order   binary.ByteOrder
	PtrSize int
}

var (
	// Layout64 is the LP64 little-endian layout (x86-64, aarch64).
	Layout64 = Layout{Order: binary.LittleEndian, PtrSize: 8}
	// Layout32 is the ILP32 little-endian layout (i386, armhf).
	Layout32 = Layout{Order: binary.LittleEndian, PtrSize: 4}
)

// Size returns the size of the record in bytes, including padding, or 0
// for an unsupported pointer width.
func (l Layout) Size() int {
	p := l.PtrSize
	if p != 4 && p != 8 {
		return 0
	}
	// u32 u32 | ptr ptr ptr | i32 | ptr ptr ptr
	off := alignUp(8, p) + 3*p + 4
	off = alignUp(off, p) + 3*p
	return alignUp(off, max(p, 4))
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}

// Descriptor is the decoded Vmod_<name>_Data record.
type Descriptor struct {
	FileID    string
	Name      string
	Prototype string
	Schema    string
	ABI       string
	// FuncTable is the raw function table address. It is never
	// dereferenced.
	FuncTable    uint64
	ABIMajor     uint32
	ABIMinor     uint32
	FuncTableLen int32
}

// ABIVersion returns "major.minor".
func (d *Descriptor) ABIVersion() string {
	return fmt.Sprintf("%d.%d", d.ABIMajor, d.ABIMinor)
}

// Decode reads the record at offset using Layout64.
func Decode(data []byte, offset int64) (*Descriptor, error) {
	return DecodeLayout(data, offset, Layout64)
}

// DecodeLayout reads the record at offset and resolves its text fields.
// Each text field holds a byte offset into data where a null-terminated
// string starts.
func DecodeLayout(data []byte, offset int64, layout Layout) (*Descriptor, error) {
	size := layout.Size()
	if size == 0 || layout.Order == nil {
		return nil, errors.InvalidInput(errors.PhaseDecode,
			fmt.Sprintf("unsupported layout: pointer size %d", layout.PtrSize))
	}
	if offset < 0 || offset >= int64(len(data)) {
		return nil, errors.OutOfBounds(errors.PhaseDecode, []string{"descriptor"}, clampInt(offset), len(data))
	}
	if avail := int64(len(data)) - offset; avail < int64(size) {
		return nil, errors.TruncatedData(int(offset), size, int(avail))
	}

	r := ibinary.NewReader(data[offset:offset+int64(size)], layout.Order, layout.PtrSize)

	var (
		d                                    Descriptor
		fileID, name, proto, schema, abiMark uint64
		err                                  error
	)

	read32 := func(dst *uint32) {
		if err == nil {
			*dst, err = r.ReadU32()
		}
	}
	readPtr := func(dst *uint64) {
		if err == nil {
			*dst, err = r.ReadPtr()
		}
	}

	read32(&d.ABIMajor)
	read32(&d.ABIMinor)
	readPtr(&fileID)
	readPtr(&name)
	readPtr(&d.FuncTable)
	if err == nil {
		d.FuncTableLen, err = r.ReadI32()
	}
	readPtr(&proto)
	readPtr(&schema)
	readPtr(&abiMark)
	if err != nil {
		// The record fits by construction; a failure here is a layout bug.
		return nil, errors.New(errors.PhaseDecode, errors.KindTruncatedData).
			Detail("read record at offset %d", offset).
			Cause(err).
			Build()
	}

	fields := []struct {
		dst  *string
		name string
		at   uint64
	}{
		{&d.FileID, "file_id", fileID},
		{&d.Name, "name", name},
		{&d.Prototype, "prototype", proto},
		{&d.Schema, "schema", schema},
		{&d.ABI, "abi", abiMark},
	}
	for _, f := range fields {
		s, err := cstring(data, f.at, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = s
	}

	return &d, nil
}

// ReadCString reads the null-terminated string starting at offset.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func ReadCString(data []byte, offset int) (string, error) {
	if offset < 0 {
		return "", errors.OutOfBounds(errors.PhaseDecode, nil, offset, len(data))
	}
	return cstring(data, uint64(offset), "")
}

func cstring(data []byte, offset uint64, field string) (string, error) {
	var path []string
	if field != "" {
		path = []string{field}
	}
	if offset >= uint64(len(data)) {
		return "", errors.OutOfBounds(errors.PhaseDecode, path, clampInt(int64(min(offset, math.MaxInt64))), len(data))
	}
	start := int(offset)
	end := bytes.IndexByte(data[start:], 0)
	if end < 0 {
		return "", errors.UnterminatedString(path, start, len(data))
	}
	raw := data[start : start+end]
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), nil
}

func clampInt(v int64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}
