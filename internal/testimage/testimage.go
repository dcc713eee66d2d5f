// Package testimage builds synthetic vmod shared objects for tests.
package testimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Pointer field names accepted by Record.Override.
const (
	FieldFileID    = "file_id"
	FieldName      = "name"
	FieldPrototype = "prototype"
	FieldSchema    = "schema"
	FieldABI       = "abi"
)

// Record is the content of a Vmod_<name>_Data record.
type Record struct {
	// Override replaces the computed pointer of a text field with a raw
	// value, keyed by the Field* constants.
	Override     map[string]uint64
	FileID       string
	Name         string
	Prototype    string
	Schema       string
	ABI          string
	FuncTable    uint64
	ABIMajor     uint32
	ABIMinor     uint32
	FuncTableLen int32
}

// DefaultRecord returns a record for module name carrying schema.
func DefaultRecord(name, schema string) Record {
	return Record{
		ABIMajor:     17,
		ABIMinor:     0,
		FileID:       "0123456789abcdef",
		Name:         name,
		FuncTable:    0xdeadbeef,
		FuncTableLen: 3,
		Prototype:    "struct Vmod_" + name + "_Func { ... };",
		Schema:       schema,
		ABI:          "Varnish 7.4.0 " + name,
	}
}

// RecordSize returns the C struct size for the pointer width.
func RecordSize(ptrSize int) int {
	if ptrSize == 4 {
		return 36
	}
	return 64
}

// encodeRecord lays out rec for an image where the strings are written
// starting at stringsAt. It returns the record bytes and the string pool
// bytes.
func encodeRecord(rec Record, ptrSize int, order binary.ByteOrder, stringsAt uint64) (record, pool []byte) {
	var sp bytes.Buffer
	ptrs := map[string]uint64{}
	for _, f := range []struct {
		name string
		val  string
	}{
		{FieldFileID, rec.FileID},
		{FieldName, rec.Name},
		{FieldPrototype, rec.Prototype},
		{FieldSchema, rec.Schema},
		{FieldABI, rec.ABI},
	} {
		ptrs[f.name] = stringsAt + uint64(sp.Len())
		sp.WriteString(f.val)
		sp.WriteByte(0)
	}
	for k, v := range rec.Override {
		ptrs[k] = v
	}

	buf := make([]byte, RecordSize(ptrSize))
	putPtr := func(at int, v uint64) {
		if ptrSize == 4 {
			order.PutUint32(buf[at:], uint32(v))
		} else {
			order.PutUint64(buf[at:], v)
		}
	}

	order.PutUint32(buf[0:], rec.ABIMajor)
	order.PutUint32(buf[4:], rec.ABIMinor)
	p := ptrSize
	putPtr(8, ptrs[FieldFileID])
	putPtr(8+p, ptrs[FieldName])
	putPtr(8+2*p, rec.FuncTable)
	lenAt := 8 + 3*p
	order.PutUint32(buf[lenAt:], uint32(rec.FuncTableLen))
	next := (lenAt + 4 + p - 1) / p * p
	putPtr(next, ptrs[FieldPrototype])
	putPtr(next+p, ptrs[FieldSchema])
	putPtr(next+2*p, ptrs[FieldABI])

	return buf, sp.Bytes()
}

// Blob returns a buffer holding prefix filler bytes, the encoded record
// and its strings, and the record's offset.
func Blob(rec Record, ptrSize, prefix int) ([]byte, int64) {
	size := RecordSize(ptrSize)
	record, pool := encodeRecord(rec, ptrSize, binary.LittleEndian, uint64(prefix+size))
	data := bytes.Repeat([]byte{0xAA}, prefix)
	data = append(data, record...)
	data = append(data, pool...)
	return data, int64(prefix)
}

// Options control Build.
type Options struct {
	// Record is written when Module is set. Nil uses DefaultRecord with
	// an empty schema.
	Record *Record
	// Module names the Vmod_<Module>_Data symbol. Empty omits it.
	Module string
	// Before and After are extra dynamic symbols around the vmod symbol.
	Before []string
	After  []string
	// EntSize is sh_entsize of the data section.
	EntSize uint64
	// Shndx overrides the section index of the vmod symbol.
	Shndx uint16
	// Class selects ELFCLASS32 or ELFCLASS64. Zero means ELFCLASS64.
	Class elf.Class
	// Order selects the data encoding. Nil means little-endian.
	Order binary.ByteOrder
}

// Info reports where Build placed things.
type Info struct {
	// SymbolIndex is the vmod symbol's index in the full dynamic symbol
	// table, counting the null entry at 0.
	SymbolIndex  int
	DataShndx    int
	DataOffset   uint64
	EntSize      uint64
	RecordOffset uint64
	// SectionTable is e_shoff.
	SectionTable uint64
}

const shData = 3

// format holds the class dependent sizes of an image.
type format struct {
	order    binary.ByteOrder
	machine  elf.Machine
	class    elf.Class
	data     elf.Data
	ptrSize  int
	ehdrSize uint64
	shdrSize uint64
	phdrSize uint64
	symSize  uint64
}

func formatOf(o Options) format {
	f := format{
		order:    binary.LittleEndian,
		machine:  elf.EM_X86_64,
		class:    elf.ELFCLASS64,
		data:     elf.ELFDATA2LSB,
		ptrSize:  8,
		ehdrSize: 64,
		shdrSize: 64,
		phdrSize: 56,
		symSize:  24,
	}
	if o.Class == elf.ELFCLASS32 {
		f.machine = elf.EM_386
		f.class = elf.ELFCLASS32
		f.ptrSize = 4
		f.ehdrSize = 52
		f.shdrSize = 40
		f.phdrSize = 32
		f.symSize = 16
	}
	if o.Order == binary.BigEndian {
		f.order = binary.BigEndian
		f.data = elf.ELFDATA2MSB
		f.machine = elf.EM_PPC64
		if f.class == elf.ELFCLASS32 {
			f.machine = elf.EM_PPC
		}
	}
	return f
}

// word writes a class sized field: 4 bytes for ELF32, 8 for ELF64.
func (f format) word(b []byte, v uint64) {
	if f.ptrSize == 4 {
		f.order.PutUint32(b, uint32(v))
	} else {
		f.order.PutUint64(b, v)
	}
}

// Build returns a shared object with sections
// [null, .dynsym, .dynstr, .data, .shstrtab]. It is ELF64 little-endian
// unless Options.Class or Options.Order say otherwise.
func Build(o Options) ([]byte, Info) {
	f := formatOf(o)
	bo := f.order
	p := uint64(f.ptrSize)

	var names []string
	names = append(names, o.Before...)
	symIndex := 0
	if o.Module != "" {
		symIndex = len(names) + 1
		names = append(names, "Vmod_"+o.Module+"_Data")
	}
	names = append(names, o.After...)

	// .dynstr
	var dynstr bytes.Buffer
	dynstr.WriteByte(0)
	nameOff := make([]uint32, len(names))
	for i, n := range names {
		nameOff[i] = uint32(dynstr.Len())
		dynstr.WriteString(n)
		dynstr.WriteByte(0)
	}

	// .dynsym
	recSize := uint64(RecordSize(f.ptrSize))
	dynsym := make([]byte, f.symSize*uint64(len(names)+1))
	for i := range names {
		e := dynsym[f.symSize*uint64(i+1):]
		info := byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_OBJECT)
		shndx := uint16(shData)
		if i+1 == symIndex && o.Shndx != 0 {
			shndx = o.Shndx
		}
		bo.PutUint32(e[0:], nameOff[i])
		if f.class == elf.ELFCLASS32 {
			bo.PutUint32(e[8:], uint32(recSize))
			e[12] = info
			bo.PutUint16(e[14:], shndx)
		} else {
			e[4] = info
			bo.PutUint16(e[6:], shndx)
			bo.PutUint64(e[16:], recSize)
		}
	}

	// .shstrtab
	var shstr bytes.Buffer
	shstr.WriteByte(0)
	shName := func(s string) uint32 {
		off := uint32(shstr.Len())
		shstr.WriteString(s)
		shstr.WriteByte(0)
		return off
	}
	nDynsym := shName(".dynsym")
	nDynstr := shName(".dynstr")
	nData := shName(".data")
	nShstr := shName(".shstrtab")

	dynstrOff := f.ehdrSize
	dynsymOff := align(dynstrOff+uint64(dynstr.Len()), 8)
	dataOff := align(dynsymOff+uint64(len(dynsym)), 16)

	// .data
	var data []byte
	recOff := dataOff + uint64(symIndex)*o.EntSize
	if o.Module != "" {
		rec := DefaultRecord(o.Module, "[]")
		if o.Record != nil {
			rec = *o.Record
		}
		record, pool := encodeRecord(rec, f.ptrSize, bo, recOff+recSize)
		data = make([]byte, recOff-dataOff)
		data = append(data, record...)
		data = append(data, pool...)
	} else {
		data = make([]byte, 16)
	}

	shstrOff := dataOff + uint64(len(data))
	shOff := align(shstrOff+uint64(shstr.Len()), 8)
	total := shOff + 5*f.shdrSize

	img := make([]byte, total)
	copy(img[dynstrOff:], dynstr.Bytes())
	copy(img[dynsymOff:], dynsym)
	copy(img[dataOff:], data)
	copy(img[shstrOff:], shstr.Bytes())

	// ELF header; the fields after e_entry shift with the word size.
	copy(img[0:], elf.ELFMAG)
	img[elf.EI_CLASS] = byte(f.class)
	img[elf.EI_DATA] = byte(f.data)
	img[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	bo.PutUint16(img[16:], uint16(elf.ET_DYN))
	bo.PutUint16(img[18:], uint16(f.machine))
	bo.PutUint32(img[20:], uint32(elf.EV_CURRENT))
	shoffAt := 24 + 2*p
	f.word(img[shoffAt:], shOff)
	tail := img[shoffAt+p+4:]
	bo.PutUint16(tail[0:], uint16(f.ehdrSize))
	bo.PutUint16(tail[2:], uint16(f.phdrSize))
	bo.PutUint16(tail[6:], uint16(f.shdrSize))
	bo.PutUint16(tail[8:], 5)
	bo.PutUint16(tail[10:], 4)

	putShdr := func(i int, name uint32, typ elf.SectionType, flags elf.SectionFlag, off, size uint64, link uint32, info uint32, addralign, entsize uint64) {
		h := img[shOff+uint64(i)*f.shdrSize:]
		bo.PutUint32(h[0:], name)
		bo.PutUint32(h[4:], uint32(typ))
		f.word(h[8:], uint64(flags))
		f.word(h[8+p:], off) // addr mirrors offset
		f.word(h[8+2*p:], off)
		f.word(h[8+3*p:], size)
		bo.PutUint32(h[8+4*p:], link)
		bo.PutUint32(h[12+4*p:], info)
		f.word(h[16+4*p:], addralign)
		f.word(h[16+5*p:], entsize)
	}
	putShdr(1, nDynsym, elf.SHT_DYNSYM, elf.SHF_ALLOC, dynsymOff, uint64(len(dynsym)), 2, 1, 8, f.symSize)
	putShdr(2, nDynstr, elf.SHT_STRTAB, elf.SHF_ALLOC, dynstrOff, uint64(dynstr.Len()), 0, 0, 1, 0)
	putShdr(3, nData, elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE, dataOff, uint64(len(data)), 0, 0, 16, o.EntSize)
	putShdr(4, nShstr, elf.SHT_STRTAB, 0, shstrOff, uint64(shstr.Len()), 0, 0, 1, 0)

	return img, Info{
		SymbolIndex:  symIndex,
		DataShndx:    shData,
		DataOffset:   dataOff,
		EntSize:      o.EntSize,
		RecordOffset: recOff,
		SectionTable: shOff,
	}
}

// SetEntSize overwrites sh_entsize of section shndx in an ELF64 image
// produced by Build.
func SetEntSize(img []byte, info Info, shndx int, entsize uint64) {
	h := img[info.SectionTable+uint64(shndx)*64:]
	binary.LittleEndian.PutUint64(h[56:], entsize)
}

func align(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}

// Image returns a shared object exporting module name with schema.
func Image(name, schema string) []byte {
	rec := DefaultRecord(name, schema)
	img, _ := Build(Options{Module: name, Record: &rec})
	return img
}

// Schema is a small interface schema with a $VMOD header, an event, a
// function and an object with two methods.
const Schema = `[
	["$VMOD","1.0","example","Vmod_example_Func","0123456789abcdef","Varnish 7.4.0","17","0"],
	["$EVENT","vmod_event"],
	["$FUNC","greet",[["STRING"],"vmod_greet","arg_vmod_greet",["STRING","name"],["INT","count"]]],
	["$OBJ","backend_handle",{"NULL_OK":false},"struct vmod_example_backend_handle",
		["$INIT",[["VOID"],"vmod_bh__init"]],
		["$FINI",[["VOID"],"vmod_bh__fini"]],
		["$METHOD","backend",[["BACKEND"],"vmod_bh_backend",""]],
		["$METHOD","healthy",[["BOOL"],"vmod_bh_healthy","",["DURATION","window"]]]
	]
]`
