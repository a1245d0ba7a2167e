// Package mock builds small executable images for tests.
package mock

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/Binject/debug/pe"
)

// layout of every image built by PE
const (
	TextRVA    = 0x1000
	EdataRVA   = 0x2000
	CodeStride = 0x20
	ImageSize  = 0x3000

	sectionSize = 0x1000
	headerSize  = 0x400
	peOffset    = 0x80
)

// Export is one entry of the export table. Set Code for a real function or
// Forward ("MODULE.Name", "MODULE.#7") for a forwarder. Exports without a
// name are reachable by ordinal only.
type Export struct {
	Name    string
	Code    []byte
	Forward string
}

// CodeRVA is where the code of the i'th export is placed.
func CodeRVA(i int) uint32 {
	return TextRVA + uint32(i)*CodeStride
}

// Ordinal of the i'th export.
func Ordinal(i int) uint32 {
	return uint32(i) + 1
}

// PE returns the file bytes of a DLL called name with preferred base base.
// Export i gets ordinal i+1; its code, truncated to CodeStride bytes, sits at
// CodeRVA(i) in .text and the export directory fills .edata.
func PE(name string, bits uint, base uint64, exps []Export) []byte {
	text := bytes.Repeat([]byte{0xcc}, sectionSize)
	for i, e := range exps {
		code := e.Code
		if len(code) > CodeStride {
			code = code[:CodeStride]
		}
		copy(text[CodeRVA(i)-TextRVA:], code)
	}
	edata := exportData(name, exps)

	var dirs [16]pe.DataDirectory
	dirs[pe.IMAGE_DIRECTORY_ENTRY_EXPORT] = pe.DataDirectory{VirtualAddress: EdataRVA, Size: uint32(len(edata))}

	var buf bytes.Buffer
	put := func(v interface{}) { binary.Write(&buf, binary.LittleEndian, v) }
	put(pe.DosHeader{MZSignature: 0x5a4d, AddressOfNewExeHeader: peOffset})
	buf.Write(make([]byte, peOffset-buf.Len()))
	buf.WriteString("PE\x00\x00")
	fh := pe.FileHeader{NumberOfSections: 2, Characteristics: 0x2102}
	if bits == 64 {
		fh.Machine = pe.IMAGE_FILE_MACHINE_AMD64
		fh.SizeOfOptionalHeader = uint16(binary.Size(pe.OptionalHeader64{}))
		put(fh)
		put(pe.OptionalHeader64{
			Magic:               0x20b,
			BaseOfCode:          TextRVA,
			ImageBase:           base,
			SectionAlignment:    sectionSize,
			FileAlignment:       0x200,
			SizeOfImage:         ImageSize,
			SizeOfHeaders:       headerSize,
			Subsystem:           2,
			NumberOfRvaAndSizes: 16,
			DataDirectory:       dirs,
		})
	} else {
		fh.Machine = pe.IMAGE_FILE_MACHINE_I386
		fh.SizeOfOptionalHeader = uint16(binary.Size(pe.OptionalHeader32{}))
		put(fh)
		put(pe.OptionalHeader32{
			Magic:               0x10b,
			BaseOfCode:          TextRVA,
			ImageBase:           uint32(base),
			SectionAlignment:    sectionSize,
			FileAlignment:       0x200,
			SizeOfImage:         ImageSize,
			SizeOfHeaders:       headerSize,
			Subsystem:           2,
			NumberOfRvaAndSizes: 16,
			DataDirectory:       dirs,
		})
	}
	put(pe.SectionHeader32{
		Name:             [8]uint8{'.', 't', 'e', 'x', 't'},
		VirtualSize:      sectionSize,
		VirtualAddress:   TextRVA,
		SizeOfRawData:    sectionSize,
		PointerToRawData: headerSize,
		Characteristics:  0x60000020,
	})
	put(pe.SectionHeader32{
		Name:             [8]uint8{'.', 'e', 'd', 'a', 't', 'a'},
		VirtualSize:      sectionSize,
		VirtualAddress:   EdataRVA,
		SizeOfRawData:    sectionSize,
		PointerToRawData: headerSize + sectionSize,
		Characteristics:  0x40000040,
	})
	buf.Write(make([]byte, headerSize-buf.Len()))
	buf.Write(text)
	buf.Write(edata)
	buf.Write(make([]byte, sectionSize-len(edata)))
	return buf.Bytes()
}

// exportData lays out the export directory followed by the address, name
// and ordinal tables and then the strings they point to.
func exportData(name string, exps []Export) []byte {
	type named struct {
		name  string
		index int
	}
	var names []named
	for i, e := range exps {
		if e.Name != "" {
			names = append(names, named{e.Name, i})
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].name < names[j].name })

	const dirSize = 40
	addrTable := uint32(EdataRVA + dirSize)
	nameTable := addrTable + uint32(4*len(exps))
	ordTable := nameTable + uint32(4*len(names))
	strs := ordTable + uint32(2*len(names))

	var pool bytes.Buffer
	str := func(s string) uint32 {
		rva := strs + uint32(pool.Len())
		pool.WriteString(s)
		pool.WriteByte(0)
		return rva
	}
	dllName := str(name)

	var buf bytes.Buffer
	put := func(v interface{}) { binary.Write(&buf, binary.LittleEndian, v) }
	put([]uint32{0, 0, 0})
	put(dllName)
	put([]uint32{Ordinal(0), uint32(len(exps)), uint32(len(names)), addrTable, nameTable, ordTable})
	for i, e := range exps {
		if e.Forward != "" {
			put(str(e.Forward))
		} else {
			put(CodeRVA(i))
		}
	}
	for _, n := range names {
		put(str(n.name))
	}
	for _, n := range names {
		put(uint16(n.index))
	}
	buf.Write(pool.Bytes())
	return buf.Bytes()
}

// Image returns the same DLL as PE laid out the way the loader maps it.
func Image(name string, bits uint, base uint64, exps []Export) []byte {
	file := PE(name, bits, base, exps)
	img := make([]byte, ImageSize)
	copy(img, file[:headerSize])
	copy(img[TextRVA:], file[headerSize:headerSize+sectionSize])
	copy(img[EdataRVA:], file[headerSize+sectionSize:])
	return img
}
