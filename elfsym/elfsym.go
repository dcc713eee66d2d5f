package elfsym

import (
	"bytes"
	"debug/elf"
	stderrors "errors"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/wippyai/vmod-types/descriptor"
	"github.com/wippyai/vmod-types/errors"
)

const (
	symbolPrefix = "Vmod_"
	symbolSuffix = "_Data"
)

// SymbolName returns the export name the host runtime looks up for a vmod.
func SymbolName(module string) string {
	return symbolPrefix + module + symbolSuffix
}

// Location is where a vmod's data record lives in the file image.
type Location struct {
	Symbol string
	// Layout is derived from the ELF class and data encoding.
	Layout descriptor.Layout
	// Index counts from the reserved null entry at position 0 of the
	// dynamic symbol table.
	Index   int
	Section int
	Offset  int64
}

// Locate finds Vmod_<module>_Data in the dynamic export table of data and
// returns the file offset of its record.
//
// The offset is section.Offset + Index*section.Entsize rather than the
// symbol value. This matches the loader the schema format was designed
// against; see DESIGN.md before changing it.
func Locate(data []byte, module string) (*Location, error) {
	f, err := open(data)
	if err != nil {
		return nil, err
	}

	want := SymbolName(module)
	syms, err := dynamicSymbols(f)
	if err != nil {
		if stderrors.Is(err, elf.ErrNoSymbols) {
			return nil, errors.SymbolNotFound(want)
		}
		return nil, err
	}

	for i, sym := range syms {
		if sym.Name != want {
			continue
		}
		// debug/elf drops the null entry; the table index is one higher.
		index := i + 1

		shndx := int(sym.Section)
		if sym.Section == elf.SHN_UNDEF || sym.Section >= elf.SHN_LORESERVE || shndx >= len(f.Sections) {
			return nil, errors.SectionNotFound(want, shndx)
		}
		sec := f.Sections[shndx]

		off, err := recordOffset(sec.Offset, index, sec.Entsize)
		if err != nil {
			return nil, err
		}

		return &Location{
			Symbol:  want,
			Index:   index,
			Section: shndx,
			Offset:  off,
			Layout:  layoutOf(f),
		}, nil
	}

	return nil, errors.SymbolNotFound(want)
}

// Modules lists the names of every vmod whose data record is exported by
// data, in export table order.
func Modules(data []byte) ([]string, error) {
	f, err := open(data)
	if err != nil {
		return nil, err
	}
	syms, err := dynamicSymbols(f)
	if err != nil {
		if stderrors.Is(err, elf.ErrNoSymbols) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, sym := range syms {
		if sym.Section == elf.SHN_UNDEF {
			continue
		}
		if !strings.HasPrefix(sym.Name, symbolPrefix) || !strings.HasSuffix(sym.Name, symbolSuffix) {
			continue
		}
		name := sym.Name[len(symbolPrefix) : len(sym.Name)-len(symbolSuffix)]
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// recordOffset computes base + index*entsize, refusing any result that
// wraps or does not fit in an int64.
func recordOffset(base uint64, index int, entsize uint64) (int64, error) {
	hi, lo := bits.Mul64(uint64(index), entsize)
	if hi != 0 {
		return 0, errors.MalformedImage(
			fmt.Sprintf("record offset overflows: index %d * entsize %d", index, entsize), nil)
	}
	if base > math.MaxInt64 || lo > math.MaxInt64-base {
		return 0, errors.MalformedImage(
			fmt.Sprintf("record offset overflows: offset %d + %d", base, lo), nil)
	}
	return int64(base + lo), nil
}

func open(data []byte) (*elf.File, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.MalformedImage("parse ELF image", err)
	}
	return f, nil
}

func dynamicSymbols(f *elf.File) ([]elf.Symbol, error) {
	syms, err := f.DynamicSymbols()
	if err != nil {
		if stderrors.Is(err, elf.ErrNoSymbols) {
			return nil, err
		}
		return nil, errors.MalformedImage("read dynamic symbol table", err)
	}
	return syms, nil
}

func layoutOf(f *elf.File) descriptor.Layout {
	l := descriptor.Layout{Order: f.ByteOrder, PtrSize: 8}
	if f.Class == elf.ELFCLASS32 {
		l.PtrSize = 4
	}
	return l
}
