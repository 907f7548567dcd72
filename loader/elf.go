// Package loader parses ELF program images for the RV32I simulator.
//
// Both ELFCLASS32 and ELFCLASS64 images are accepted, in either byte order.
// Only PT_LOAD segments are returned; the caller copies them into memory.
package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Load and placement failures. Every error returned by this package wraps
// exactly one of them, so callers can tell them apart with errors.Is.
var (
	ErrOpen             = errors.New("cannot read program image")
	ErrBadMagic         = errors.New("not an ELF image")
	ErrTruncatedHeader  = errors.New("truncated ELF header")
	ErrUnsupportedClass = errors.New("unsupported ELF class")
	ErrTruncatedSegment = errors.New("truncated segment data")
	ErrSegmentSize      = errors.New("segment memory size smaller than file size")
	ErrOutOfBounds      = errors.New("segment exceeds memory")
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from an ELF image.
type Segment struct {
	// PhysAddr is the physical address where this segment is loaded.
	PhysAddr uint64
	// VirtAddr is the segment's virtual address, informational only.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a parsed ELF image ready for loading.
type Program struct {
	// Entry is the address where execution should begin.
	Entry uint64
	// Class is ELFCLASS32 or ELFCLASS64.
	Class elf.Class
	// Machine is the e_machine field, informational only.
	Machine elf.Machine
	// Segments contains the PT_LOAD segments with a non-zero memory size.
	Segments []Segment
}

// Load reads and parses the ELF image at path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	return Parse(data)
}

// progHeader is a class-independent view of a program header.
type progHeader struct {
	typ    elf.ProgType
	flags  elf.ProgFlag
	off    uint64
	vaddr  uint64
	paddr  uint64
	filesz uint64
	memsz  uint64
}

// Parse parses an in-memory ELF image.
func Parse(data []byte) (*Program, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: image is %d bytes", ErrTruncatedHeader, len(data))
	}
	if !bytes.Equal(data[:4], []byte(elf.ELFMAG)) {
		return nil, fmt.Errorf("%w: magic % x", ErrBadMagic, data[:4])
	}
	if len(data) < elf.EI_NIDENT {
		return nil, fmt.Errorf("%w: image is %d bytes", ErrTruncatedHeader, len(data))
	}

	var order binary.ByteOrder
	switch elf.Data(data[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: data encoding %v", ErrBadMagic, elf.Data(data[elf.EI_DATA]))
	}

	class := elf.Class(data[elf.EI_CLASS])
	switch class {
	case elf.ELFCLASS32:
		return parse32(data, order)
	case elf.ELFCLASS64:
		return parse64(data, order)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedClass, class)
	}
}

func parse32(data []byte, order binary.ByteOrder) (*Program, error) {
	var hdr elf.Header32
	if err := readAt(data, 0, order, &hdr); err != nil {
		return nil, err
	}

	prog := &Program{
		Entry:   uint64(hdr.Entry),
		Class:   elf.ELFCLASS32,
		Machine: elf.Machine(hdr.Machine),
	}

	phdrs := make([]progHeader, 0, hdr.Phnum)
	for i := 0; i < int(hdr.Phnum); i++ {
		var ph elf.Prog32
		off := uint64(hdr.Phoff) + uint64(i)*uint64(hdr.Phentsize)
		if err := readAt(data, off, order, &ph); err != nil {
			return nil, err
		}
		phdrs = append(phdrs, progHeader{
			typ:    elf.ProgType(ph.Type),
			flags:  elf.ProgFlag(ph.Flags),
			off:    uint64(ph.Off),
			vaddr:  uint64(ph.Vaddr),
			paddr:  uint64(ph.Paddr),
			filesz: uint64(ph.Filesz),
			memsz:  uint64(ph.Memsz),
		})
	}

	return prog, collectSegments(prog, data, phdrs)
}

func parse64(data []byte, order binary.ByteOrder) (*Program, error) {
	var hdr elf.Header64
	if err := readAt(data, 0, order, &hdr); err != nil {
		return nil, err
	}

	prog := &Program{
		Entry:   hdr.Entry,
		Class:   elf.ELFCLASS64,
		Machine: elf.Machine(hdr.Machine),
	}

	phdrs := make([]progHeader, 0, hdr.Phnum)
	for i := 0; i < int(hdr.Phnum); i++ {
		var ph elf.Prog64
		off := hdr.Phoff + uint64(i)*uint64(hdr.Phentsize)
		if err := readAt(data, off, order, &ph); err != nil {
			return nil, err
		}
		phdrs = append(phdrs, progHeader{
			typ:    elf.ProgType(ph.Type),
			flags:  elf.ProgFlag(ph.Flags),
			off:    ph.Off,
			vaddr:  ph.Vaddr,
			paddr:  ph.Paddr,
			filesz: ph.Filesz,
			memsz:  ph.Memsz,
		})
	}

	return prog, collectSegments(prog, data, phdrs)
}

// readAt decodes a fixed-size header structure at off.
func readAt(data []byte, off uint64, order binary.ByteOrder, v any) error {
	size := uint64(binary.Size(v))
	if off > uint64(len(data)) || size > uint64(len(data))-off {
		return fmt.Errorf("%w: %d-byte structure at offset %d, image is %d bytes",
			ErrTruncatedHeader, size, off, len(data))
	}

	return binary.Read(bytes.NewReader(data[off:off+size]), order, v)
}

func collectSegments(prog *Program, data []byte, phdrs []progHeader) error {
	for _, ph := range phdrs {
		if ph.typ != elf.PT_LOAD || ph.memsz == 0 {
			continue
		}

		if ph.memsz < ph.filesz {
			return fmt.Errorf("%w: segment at 0x%x has memsz %d < filesz %d",
				ErrSegmentSize, ph.paddr, ph.memsz, ph.filesz)
		}

		if ph.off > uint64(len(data)) || ph.filesz > uint64(len(data))-ph.off {
			return fmt.Errorf("%w: segment at 0x%x needs %d bytes at offset %d, image is %d bytes",
				ErrTruncatedSegment, ph.paddr, ph.filesz, ph.off, len(data))
		}

		seg := Segment{
			PhysAddr: ph.paddr,
			VirtAddr: ph.vaddr,
			Data:     append([]byte(nil), data[ph.off:ph.off+ph.filesz]...),
			MemSize:  ph.memsz,
			Flags:    convertFlags(ph.flags),
		}
		prog.Segments = append(prog.Segments, seg)
	}

	return nil
}

func convertFlags(f elf.ProgFlag) SegmentFlags {
	var flags SegmentFlags
	if f&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if f&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if f&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}
	return flags
}
